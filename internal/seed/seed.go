// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"opentimes/internal/models"
	"opentimes/internal/timetable"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumGroups   int
	ShouldClean bool
}

// DefaultPassword is the plaintext password shared by all seeded accounts.
const DefaultPassword = "password123"

var groupActivities = []string{
	"Board Game Night", "Book Club", "Climbing", "D&D Campaign", "Film Club",
	"Five-a-side", "Garage Band", "Pottery Class", "Pub Quiz", "Running Club",
	"Study Group", "Volleyball", "Weekly Dinner", "Yoga",
}

// Seed populates the database with test data
func Seed(db *gorm.DB, opts Options) error {
	gofakeit.Seed(time.Now().UnixNano())
	log.Printf("Starting database seeding with %d users and %d groups...", opts.NumUsers, opts.NumGroups)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("Warning: could not clear all existing data, continuing anyway...")
		}
	}

	users, err := createUsers(db, opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("%d test users created", len(users))

	groups, err := createGroups(db, users, opts.NumGroups)
	if err != nil {
		return fmt.Errorf("failed to create groups: %w", err)
	}
	log.Printf("%d groups created with members and schedules", len(groups))

	log.Println("Database seeding complete")
	return nil
}

func clearData(db *gorm.DB) error {
	// Child tables first so foreign keys never dangle.
	for _, table := range []string{"schedules", "group_memberships", "groups", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	return nil
}

func createUsers(db *gorm.DB, n int) ([]models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		username := strings.ToLower(gofakeit.Username())
		if len(username) > 30 {
			username = username[:30]
		}
		user := models.User{
			Username: fmt.Sprintf("%s%d", username, i),
			Email:    fmt.Sprintf("%d.%s", i, gofakeit.Email()),
			Password: string(hashed),
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// createGroups builds groups with a random member subset each. Every member
// gets a membership row and most get a random availability grid, matching
// what the API would have produced.
func createGroups(db *gorm.DB, users []models.User, n int) ([]models.Group, error) {
	if len(users) == 0 {
		return nil, fmt.Errorf("cannot seed groups without users")
	}

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	groups := make([]models.Group, 0, n)
	for i := 0; i < n; i++ {
		creator := users[r.Intn(len(users))]
		group := models.Group{
			Slug:            uuid.NewString(),
			Name:            fmt.Sprintf("%s %s", gofakeit.City(), groupActivities[r.Intn(len(groupActivities))]),
			Location:        gofakeit.StreetName(),
			Description:     gofakeit.Sentence(8),
			CreatedByUserID: creator.ID,
		}
		if err := db.Create(&group).Error; err != nil {
			return nil, err
		}

		members := pickMembers(r, users, creator)
		for _, member := range members {
			membership := models.GroupMembership{GroupID: group.ID, UserID: member.ID}
			if err := db.Create(&membership).Error; err != nil {
				return nil, err
			}

			// Roughly one in five members has not filled in their week yet.
			if r.Intn(5) == 0 && member.ID != creator.ID {
				continue
			}
			schedule := models.Schedule{
				GroupID: group.ID,
				UserID:  member.ID,
				Slots:   randomGrid(r),
			}
			if err := db.Create(&schedule).Error; err != nil {
				return nil, err
			}
		}

		groups = append(groups, group)
	}
	return groups, nil
}

// pickMembers returns the creator plus a random sample of other users.
func pickMembers(r *rand.Rand, users []models.User, creator models.User) []models.User {
	members := []models.User{creator}
	size := 2 + r.Intn(6)
	perm := r.Perm(len(users))
	for _, idx := range perm {
		if len(members) > size {
			break
		}
		if users[idx].ID == creator.ID {
			continue
		}
		members = append(members, users[idx])
	}
	return members
}

// randomGrid produces a plausible week: a few contiguous free blocks rather
// than uniform noise.
func randomGrid(r *rand.Rand) timetable.Grid {
	grid := make(timetable.Grid, timetable.SlotsPerWeek)
	blocks := 3 + r.Intn(8)
	for i := 0; i < blocks; i++ {
		start := r.Intn(timetable.SlotsPerWeek)
		length := 1 + r.Intn(6)
		for j := start; j < start+length && j < timetable.SlotsPerWeek; j++ {
			grid[j] = 1
		}
	}
	return grid
}
