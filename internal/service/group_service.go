// Package service implements the application's business logic on top of the
// repository layer.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"opentimes/internal/models"
	"opentimes/internal/observability"
	"opentimes/internal/repository"
	"opentimes/internal/timetable"
	"opentimes/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// GroupService orchestrates the group lifecycle: creation, info edits,
// membership changes, schedule submission, and the combined view. All
// consistency-sensitive mutations are delegated to the GroupLedger.
type GroupService struct {
	ledger   repository.GroupLedger
	userRepo repository.UserRepository
}

// NewGroupService returns a new GroupService.
func NewGroupService(ledger repository.GroupLedger, userRepo repository.UserRepository) *GroupService {
	return &GroupService{ledger: ledger, userRepo: userRepo}
}

// CreateGroupInput carries the caller-editable group fields.
type CreateGroupInput struct {
	Name        string
	Location    string
	Description string
}

// EditInfoInput carries the fields EditInfo may change. Members and
// schedules are never touched by an info edit.
type EditInfoInput struct {
	Name        string
	Location    string
	Description string
}

// GroupView is the combined-availability response for one group.
type GroupView struct {
	Group            *models.Group              `json:"group"`
	Members          []string                   `json:"members"`
	CombinedSchedule timetable.CombinedSchedule `json:"combinedSchedule"`
}

// CreateGroup creates a group owned by creatorID with the creator enrolled.
func (s *GroupService) CreateGroup(ctx context.Context, creatorID uint, in CreateGroupInput) (*models.Group, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.ValidateGroupName(in.Name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	group, err := s.ledger.CreateGroup(ctx, creatorID, in.Name, in.Location, in.Description)
	if err != nil {
		return nil, err
	}

	observability.MembershipChanges.WithLabelValues("create_group").Inc()
	return group, nil
}

// JoinGroup enrolls userID in the group. Joining twice is a no-op.
func (s *GroupService) JoinGroup(ctx context.Context, userID uint, slug string) (*models.Group, error) {
	group, err := s.ledger.JoinGroup(ctx, userID, slug)
	if err != nil {
		return nil, err
	}

	observability.MembershipChanges.WithLabelValues("join").Inc()
	return group, nil
}

// RemoveMembers removes the named members and their schedules. Creator only.
func (s *GroupService) RemoveMembers(ctx context.Context, slug string, usernames []string, actorID uint) error {
	if len(usernames) == 0 {
		return models.NewValidationError("at least one username is required")
	}

	if err := s.ledger.RemoveMembers(ctx, slug, usernames, actorID); err != nil {
		return err
	}

	observability.MembershipChanges.WithLabelValues("remove_members").Inc()
	return nil
}

// DeleteGroup removes the group, its memberships, and its schedules.
// Creator only; the slug is never reused.
func (s *GroupService) DeleteGroup(ctx context.Context, slug string, actorID uint) error {
	if err := s.ledger.DeleteGroup(ctx, slug, actorID); err != nil {
		return err
	}

	observability.MembershipChanges.WithLabelValues("delete_group").Inc()
	return nil
}

// EditInfo updates the group's display fields in place. Creator only.
func (s *GroupService) EditInfo(ctx context.Context, slug string, actorID uint, in EditInfoInput) (*models.Group, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.ValidateGroupName(in.Name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	group, err := s.ledger.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if group.CreatedByUserID != actorID {
		return nil, models.NewForbiddenError("Only the group creator can edit group info")
	}

	return s.ledger.EditInfo(ctx, group.ID, in.Name, in.Location, in.Description)
}

// SetSchedule validates the submitted grid and upserts the member's schedule
// row. A non-member submitter is enrolled as part of the same ledger
// transaction (join-by-scheduling).
func (s *GroupService) SetSchedule(ctx context.Context, userID uint, slug string, grid timetable.Grid) (*models.Schedule, error) {
	if err := grid.Validate(); err != nil {
		observability.ScheduleSubmissions.WithLabelValues("rejected").Inc()
		return nil, models.NewValidationError(err.Error())
	}

	schedule, err := s.ledger.SetSchedule(ctx, userID, slug, grid)
	if err != nil {
		observability.ScheduleSubmissions.WithLabelValues("failed").Inc()
		return nil, err
	}

	observability.ScheduleSubmissions.WithLabelValues("accepted").Inc()
	return schedule, nil
}

// GetCombinedView loads all schedule rows for the group and aggregates them
// into the per-hour combined schedule, alongside group metadata and the
// member list.
func (s *GroupService) GetCombinedView(ctx context.Context, slug string) (*GroupView, error) {
	span, ctx := observability.NewSpan(ctx, "GroupService.GetCombinedView")
	defer span.End()

	group, err := s.ledger.GetBySlug(ctx, slug)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	members, err := s.ledger.ListMembers(ctx, group.ID)
	if err != nil {
		return nil, err
	}

	schedules, err := s.ledger.ListSchedules(ctx, group.ID)
	if err != nil {
		return nil, err
	}

	entries := make([]timetable.MemberGrid, 0, len(schedules))
	for _, sched := range schedules {
		username := ""
		if sched.User != nil {
			username = sched.User.Username
		}
		entries = append(entries, timetable.MemberGrid{Username: username, Grid: sched.Slots})
	}

	start := time.Now()
	combined, err := timetable.Combine(entries)
	if err != nil {
		// A stored grid violating the contract means a write-path bug,
		// not caller error.
		span.SetError(err)
		var malformed *timetable.MalformedScheduleError
		if errors.As(err, &malformed) {
			return nil, models.NewInternalError(err)
		}
		return nil, err
	}
	observability.ObserveCombine(start)
	span.AddAttributes(
		attribute.Int("group.members", len(members)),
		attribute.Int("group.schedules", len(entries)),
	)

	usernames := make([]string, 0, len(members))
	for _, m := range members {
		usernames = append(usernames, m.Username)
	}

	return &GroupView{
		Group:            group,
		Members:          usernames,
		CombinedSchedule: combined,
	}, nil
}

// Dashboard returns every group the user belongs to, for the dashboard view.
func (s *GroupService) Dashboard(ctx context.Context, userID uint) ([]models.Group, error) {
	return s.ledger.ListGroupsForUser(ctx, userID)
}
