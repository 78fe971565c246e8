package repository

import (
	"context"
	"errors"

	"opentimes/internal/models"
	"opentimes/internal/timetable"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GroupLedger exposes the atomic membership operations. Every mutation that
// touches more than one row (group, memberships, schedules) runs inside a
// single transaction: a failure in any sub-step rolls the whole operation
// back, so readers never observe a group without its creator membership or a
// schedule row for a non-member.
type GroupLedger interface {
	CreateGroup(ctx context.Context, creatorID uint, name, location, description string) (*models.Group, error)
	JoinGroup(ctx context.Context, userID uint, slug string) (*models.Group, error)
	RemoveMembers(ctx context.Context, slug string, usernames []string, actorID uint) error
	DeleteGroup(ctx context.Context, slug string, actorID uint) error
	SetSchedule(ctx context.Context, userID uint, slug string, grid timetable.Grid) (*models.Schedule, error)

	EditInfo(ctx context.Context, groupID uint, name, location, description string) (*models.Group, error)

	GetBySlug(ctx context.Context, slug string) (*models.Group, error)
	ListMembers(ctx context.Context, groupID uint) ([]models.User, error)
	ListSchedules(ctx context.Context, groupID uint) ([]models.Schedule, error)
	ListGroupsForUser(ctx context.Context, userID uint) ([]models.Group, error)
}

type groupLedger struct {
	db *gorm.DB
}

// NewGroupLedger returns a GroupLedger backed by the given gorm DB.
func NewGroupLedger(db *gorm.DB) GroupLedger {
	return &groupLedger{db: db}
}

// slugAttempts bounds the retry loop on slug collision. UUID collisions are
// astronomically unlikely; the loop exists so a collision is a retry, not
// a user-visible failure.
const slugAttempts = 3

func newSlug() string {
	return uuid.NewString()
}

// lockForUpdate takes a row lock on postgres so concurrent membership
// mutations on the same group serialize. The sqlite test driver has no
// FOR UPDATE; its single-writer model provides the same guarantee.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func (l *groupLedger) lockGroupBySlug(tx *gorm.DB, slug string) (*models.Group, error) {
	var group models.Group
	if err := lockForUpdate(tx).Where("slug = ?", slug).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Group", slug)
		}
		return nil, models.NewInternalError(err)
	}
	return &group, nil
}

func (l *groupLedger) CreateGroup(ctx context.Context, creatorID uint, name, location, description string) (*models.Group, error) {
	var created *models.Group

	for attempt := 0; attempt < slugAttempts; attempt++ {
		group := &models.Group{
			Slug:            newSlug(),
			Name:            name,
			Location:        location,
			Description:     description,
			CreatedByUserID: creatorID,
		}

		err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var creator models.User
			if err := tx.First(&creator, creatorID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return models.NewNotFoundError("User", creatorID)
				}
				return models.NewInternalError(err)
			}

			if err := tx.Create(group).Error; err != nil {
				return err
			}

			// The creator is always a member.
			membership := &models.GroupMembership{GroupID: group.ID, UserID: creatorID}
			if err := tx.Create(membership).Error; err != nil {
				return models.NewInternalError(err)
			}

			return nil
		})
		if err == nil {
			created = group
			break
		}

		// Slug collision aborts the transaction; retry with a fresh slug.
		if isUniqueConstraintError(err) {
			continue
		}

		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, models.NewInternalError(err)
	}

	if created == nil {
		return nil, models.NewConflictError("could not allocate a unique group slug")
	}
	return created, nil
}

func (l *groupLedger) JoinGroup(ctx context.Context, userID uint, slug string) (*models.Group, error) {
	var joined *models.Group

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group, err := l.lockGroupBySlug(tx, slug)
		if err != nil {
			return err
		}

		var existing models.GroupMembership
		err = tx.Where("group_id = ? AND user_id = ?", group.ID, userID).First(&existing).Error
		switch {
		case err == nil:
			// Already a member: joining again is a no-op, not an error.
			joined = group
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return models.NewInternalError(err)
		}

		membership := &models.GroupMembership{GroupID: group.ID, UserID: userID}
		if err := tx.Create(membership).Error; err != nil {
			return models.NewInternalError(err)
		}

		joined = group
		return nil
	})
	if err != nil {
		return nil, err
	}
	return joined, nil
}

func (l *groupLedger) RemoveMembers(ctx context.Context, slug string, usernames []string, actorID uint) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group, err := l.lockGroupBySlug(tx, slug)
		if err != nil {
			return err
		}

		if group.CreatedByUserID != actorID {
			return models.NewForbiddenError("Only the group creator can remove members")
		}

		unique := make([]string, 0, len(usernames))
		seen := make(map[string]struct{}, len(usernames))
		for _, name := range usernames {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			unique = append(unique, name)
		}

		var targets []models.User
		if err := tx.Where("username IN ?", unique).Find(&targets).Error; err != nil {
			return models.NewInternalError(err)
		}
		if len(targets) != len(unique) {
			return models.NewNotFoundError("User", unique)
		}

		targetIDs := make([]uint, 0, len(targets))
		for _, u := range targets {
			if u.ID == group.CreatedByUserID {
				return models.NewValidationError("The group creator cannot be removed; delete the group instead")
			}
			targetIDs = append(targetIDs, u.ID)
		}

		// Membership and schedule rows go together or not at all.
		if err := tx.Where("group_id = ? AND user_id IN ?", group.ID, targetIDs).
			Delete(&models.Schedule{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Where("group_id = ? AND user_id IN ?", group.ID, targetIDs).
			Delete(&models.GroupMembership{}).Error; err != nil {
			return models.NewInternalError(err)
		}

		return nil
	})
}

func (l *groupLedger) DeleteGroup(ctx context.Context, slug string, actorID uint) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group, err := l.lockGroupBySlug(tx, slug)
		if err != nil {
			return err
		}

		if group.CreatedByUserID != actorID {
			return models.NewForbiddenError("Only the group creator can delete the group")
		}

		if err := tx.Where("group_id = ?", group.ID).Delete(&models.Schedule{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Where("group_id = ?", group.ID).Delete(&models.GroupMembership{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Delete(&models.Group{}, group.ID).Error; err != nil {
			return models.NewInternalError(err)
		}

		return nil
	})
}

// SetSchedule upserts the (user, group) schedule row. A submitter who is not
// yet a member is enrolled first, in the same transaction. This is the
// join-by-scheduling path. Repeat submissions update the stored grid in
// place; a pair never has two rows.
func (l *groupLedger) SetSchedule(ctx context.Context, userID uint, slug string, grid timetable.Grid) (*models.Schedule, error) {
	var saved *models.Schedule

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group, err := l.lockGroupBySlug(tx, slug)
		if err != nil {
			return err
		}

		var membership models.GroupMembership
		err = tx.Where("group_id = ? AND user_id = ?", group.ID, userID).First(&membership).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := tx.Create(&models.GroupMembership{GroupID: group.ID, UserID: userID}).Error; err != nil {
				return models.NewInternalError(err)
			}
		} else if err != nil {
			return models.NewInternalError(err)
		}

		schedule := &models.Schedule{GroupID: group.ID, UserID: userID, Slots: grid}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "group_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"slots", "updated_at"}),
		}).Create(schedule).Error; err != nil {
			return models.NewInternalError(err)
		}

		saved = schedule
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// EditInfo rewrites the group's display fields. Memberships and schedules
// are left untouched.
func (l *groupLedger) EditInfo(ctx context.Context, groupID uint, name, location, description string) (*models.Group, error) {
	var group models.Group
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&group, groupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Group", groupID)
			}
			return models.NewInternalError(err)
		}

		group.Name = name
		group.Location = location
		group.Description = description
		if err := tx.Model(&group).Updates(map[string]any{
			"name":        name,
			"location":    location,
			"description": description,
		}).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (l *groupLedger) GetBySlug(ctx context.Context, slug string) (*models.Group, error) {
	var group models.Group
	if err := l.db.WithContext(ctx).Where("slug = ?", slug).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Group", slug)
		}
		return nil, models.NewInternalError(err)
	}
	return &group, nil
}

func (l *groupLedger) ListMembers(ctx context.Context, groupID uint) ([]models.User, error) {
	var users []models.User
	if err := l.db.WithContext(ctx).
		Joins("JOIN group_memberships ON group_memberships.user_id = users.id").
		Where("group_memberships.group_id = ?", groupID).
		Order("users.username ASC").
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (l *groupLedger) ListSchedules(ctx context.Context, groupID uint) ([]models.Schedule, error) {
	var schedules []models.Schedule
	if err := l.db.WithContext(ctx).
		Preload("User").
		Where("group_id = ?", groupID).
		Find(&schedules).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return schedules, nil
}

func (l *groupLedger) ListGroupsForUser(ctx context.Context, userID uint) ([]models.Group, error) {
	var groups []models.Group
	if err := l.db.WithContext(ctx).
		Joins("JOIN group_memberships ON group_memberships.group_id = groups.id").
		Where("group_memberships.user_id = ?", userID).
		Order("groups.name ASC").
		Find(&groups).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return groups, nil
}
