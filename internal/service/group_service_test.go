package service

import (
	"context"
	"errors"
	"testing"

	"opentimes/internal/models"
	"opentimes/internal/repository"
	"opentimes/internal/timetable"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupServiceTest(t *testing.T) (*gorm.DB, *GroupService) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupMembership{},
		&models.Schedule{},
	); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	svc := NewGroupService(repository.NewGroupLedger(db), repository.NewUserRepository(db))
	return db, svc
}

func mustCreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Email: username + "@example.com", Password: "hashed"}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func availableAt(hours ...int) timetable.Grid {
	g := make(timetable.Grid, timetable.SlotsPerWeek)
	for _, h := range hours {
		g[h] = 1
	}
	return g
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	return appErr.Code
}

func TestCreateGroupValidatesName(t *testing.T) {
	db, svc := setupServiceTest(t)
	alice := mustCreateUser(t, db, "alice")

	_, err := svc.CreateGroup(context.Background(), alice.ID, CreateGroupInput{Name: "   "})
	if err == nil {
		t.Fatal("expected validation error for blank name")
	}
	if code := errCode(t, err); code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %s", code)
	}
}

func TestCreateGroupTrimsName(t *testing.T) {
	db, svc := setupServiceTest(t)
	alice := mustCreateUser(t, db, "alice")

	group, err := svc.CreateGroup(context.Background(), alice.ID, CreateGroupInput{Name: "  Study Group  "})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if group.Name != "Study Group" {
		t.Fatalf("expected trimmed name, got %q", group.Name)
	}
}

func TestSetScheduleRejectsBadGrid(t *testing.T) {
	db, svc := setupServiceTest(t)
	ctx := context.Background()
	alice := mustCreateUser(t, db, "alice")

	group, err := svc.CreateGroup(ctx, alice.ID, CreateGroupInput{Name: "Study Group"})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	_, err = svc.SetSchedule(ctx, alice.ID, group.Slug, make(timetable.Grid, 10))
	if err == nil {
		t.Fatal("expected error for short grid")
	}
	if code := errCode(t, err); code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %s", code)
	}

	// Rejected submission leaves no schedule row behind.
	var count int64
	db.Model(&models.Schedule{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no schedule rows, got %d", count)
	}
}

func TestGetCombinedView(t *testing.T) {
	db, svc := setupServiceTest(t)
	ctx := context.Background()

	alice := mustCreateUser(t, db, "alice")
	bob := mustCreateUser(t, db, "bob")

	group, err := svc.CreateGroup(ctx, alice.ID, CreateGroupInput{Name: "Study Group", Location: "Library"})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if _, err := svc.SetSchedule(ctx, alice.ID, group.Slug, availableAt(0, 3)); err != nil {
		t.Fatalf("alice SetSchedule: %v", err)
	}
	if _, err := svc.SetSchedule(ctx, bob.ID, group.Slug, availableAt(0)); err != nil {
		t.Fatalf("bob SetSchedule: %v", err)
	}

	view, err := svc.GetCombinedView(ctx, group.Slug)
	if err != nil {
		t.Fatalf("GetCombinedView: %v", err)
	}

	if view.Group.Slug != group.Slug {
		t.Fatalf("expected group %s, got %s", group.Slug, view.Group.Slug)
	}
	if len(view.Members) != 2 || view.Members[0] != "alice" || view.Members[1] != "bob" {
		t.Fatalf("expected members [alice bob], got %v", view.Members)
	}

	slot0 := view.CombinedSchedule[0]
	if slot0.AmountAvailable != 2 {
		t.Fatalf("slot 0: expected 2 available, got %d", slot0.AmountAvailable)
	}
	if slot0.MembersAvailable[0] != "alice" || slot0.MembersAvailable[1] != "bob" {
		t.Fatalf("slot 0: expected [alice bob], got %v", slot0.MembersAvailable)
	}

	slot1 := view.CombinedSchedule[1]
	if slot1.AmountAvailable != 0 || len(slot1.MembersAvailable) != 0 {
		t.Fatalf("slot 1: expected empty, got %+v", slot1)
	}
	if slot1.MembersAvailable == nil {
		t.Fatal("slot 1: members must serialize as an empty list")
	}

	slot3 := view.CombinedSchedule[3]
	if slot3.AmountAvailable != 1 || slot3.MembersAvailable[0] != "alice" {
		t.Fatalf("slot 3: expected only alice, got %+v", slot3)
	}
}

// Members without a stored schedule still appear in the member list but
// contribute nothing to the combined grid.
func TestGetCombinedViewMemberWithoutSchedule(t *testing.T) {
	db, svc := setupServiceTest(t)
	ctx := context.Background()

	alice := mustCreateUser(t, db, "alice")
	bob := mustCreateUser(t, db, "bob")

	group, err := svc.CreateGroup(ctx, alice.ID, CreateGroupInput{Name: "Study Group"})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if _, err := svc.JoinGroup(ctx, bob.ID, group.Slug); err != nil {
		t.Fatalf("JoinGroup: %v", err)
	}
	if _, err := svc.SetSchedule(ctx, alice.ID, group.Slug, availableAt(5)); err != nil {
		t.Fatalf("SetSchedule: %v", err)
	}

	view, err := svc.GetCombinedView(ctx, group.Slug)
	if err != nil {
		t.Fatalf("GetCombinedView: %v", err)
	}
	if len(view.Members) != 2 {
		t.Fatalf("expected 2 members, got %v", view.Members)
	}
	if view.CombinedSchedule[5].AmountAvailable != 1 {
		t.Fatalf("slot 5: expected just alice, got %+v", view.CombinedSchedule[5])
	}
}

func TestEditInfoNonCreatorForbidden(t *testing.T) {
	db, svc := setupServiceTest(t)
	ctx := context.Background()

	alice := mustCreateUser(t, db, "alice")
	bob := mustCreateUser(t, db, "bob")
	group, err := svc.CreateGroup(ctx, alice.ID, CreateGroupInput{Name: "Study Group"})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if _, err := svc.JoinGroup(ctx, bob.ID, group.Slug); err != nil {
		t.Fatalf("JoinGroup: %v", err)
	}

	_, err = svc.EditInfo(ctx, group.Slug, bob.ID, EditInfoInput{Name: "Taken Over"})
	if err == nil {
		t.Fatal("expected error for non-creator edit")
	}
	if code := errCode(t, err); code != "FORBIDDEN" {
		t.Fatalf("expected FORBIDDEN, got %s", code)
	}

	fresh, err := svc.GetCombinedView(ctx, group.Slug)
	if err != nil {
		t.Fatalf("GetCombinedView: %v", err)
	}
	if fresh.Group.Name != "Study Group" {
		t.Fatalf("name must be unchanged, got %q", fresh.Group.Name)
	}
}

func TestDashboardListsUserGroups(t *testing.T) {
	db, svc := setupServiceTest(t)
	ctx := context.Background()

	alice := mustCreateUser(t, db, "alice")
	bob := mustCreateUser(t, db, "bob")

	g1, err := svc.CreateGroup(ctx, alice.ID, CreateGroupInput{Name: "Alpha"})
	if err != nil {
		t.Fatalf("CreateGroup g1: %v", err)
	}
	g2, err := svc.CreateGroup(ctx, bob.ID, CreateGroupInput{Name: "Beta"})
	if err != nil {
		t.Fatalf("CreateGroup g2: %v", err)
	}
	if _, err := svc.JoinGroup(ctx, alice.ID, g2.Slug); err != nil {
		t.Fatalf("JoinGroup: %v", err)
	}

	groups, err := svc.Dashboard(ctx, alice.ID)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups for alice, got %d", len(groups))
	}
	// Ordered by name
	if groups[0].Slug != g1.Slug || groups[1].Slug != g2.Slug {
		t.Fatalf("unexpected dashboard order: %v", []string{groups[0].Name, groups[1].Name})
	}

	bobGroups, err := svc.Dashboard(ctx, bob.ID)
	if err != nil {
		t.Fatalf("Dashboard bob: %v", err)
	}
	if len(bobGroups) != 1 || bobGroups[0].Slug != g2.Slug {
		t.Fatalf("expected bob only in Beta, got %d groups", len(bobGroups))
	}
}
