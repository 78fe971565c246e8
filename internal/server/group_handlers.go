package server

import (
	"opentimes/internal/models"
	"opentimes/internal/service"
	"opentimes/internal/timetable"

	"github.com/gofiber/fiber/v2"
)

type groupInfoRequest struct {
	Name        string `json:"name"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// CreateGroup handles POST /api/groups. The creator is enrolled as the first
// member in the same transaction that creates the group.
func (s *Server) CreateGroup(c *fiber.Ctx) error {
	var req groupInfoRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	group, err := s.groupService.CreateGroup(c.UserContext(), currentUserID(c), service.CreateGroupInput{
		Name:        req.Name,
		Location:    req.Location,
		Description: req.Description,
	})
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"group": group,
	})
}

// GetGroup handles GET /api/groups/:slug. The response carries the group
// metadata, the member list, and the hour-by-hour combined schedule.
func (s *Server) GetGroup(c *fiber.Ctx) error {
	view, err := s.groupService.GetCombinedView(c.UserContext(), c.Params("slug"))
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	return c.JSON(view)
}

// JoinGroup handles POST /api/groups/:slug/join
func (s *Server) JoinGroup(c *fiber.Ctx) error {
	group, err := s.groupService.JoinGroup(c.UserContext(), currentUserID(c), c.Params("slug"))
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	return c.JSON(fiber.Map{
		"group": group,
	})
}

// EditGroupInfo handles PUT /api/groups/:slug. Creator only; members and
// schedules are untouched.
func (s *Server) EditGroupInfo(c *fiber.Ctx) error {
	var req groupInfoRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	group, err := s.groupService.EditInfo(c.UserContext(), c.Params("slug"), currentUserID(c), service.EditInfoInput{
		Name:        req.Name,
		Location:    req.Location,
		Description: req.Description,
	})
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	return c.JSON(fiber.Map{
		"group": group,
	})
}

// SetSchedule handles PUT /api/groups/:slug/schedule. Submitting a schedule
// to a group you have not joined enrolls you in it.
func (s *Server) SetSchedule(c *fiber.Ctx) error {
	var req struct {
		Schedule timetable.Grid `json:"schedule"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	schedule, err := s.groupService.SetSchedule(c.UserContext(), currentUserID(c), c.Params("slug"), req.Schedule)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	return c.JSON(fiber.Map{
		"schedule": schedule,
	})
}

// RemoveMembers handles DELETE /api/groups/:slug/members. Creator only; the
// named members and their schedules go in one transaction.
func (s *Server) RemoveMembers(c *fiber.Ctx) error {
	var req struct {
		Usernames []string `json:"usernames"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.groupService.RemoveMembers(c.UserContext(), c.Params("slug"), req.Usernames, currentUserID(c)); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	return c.JSON(fiber.Map{
		"message": "Members removed",
	})
}

// DeleteGroup handles DELETE /api/groups/:slug
func (s *Server) DeleteGroup(c *fiber.Ctx) error {
	if err := s.groupService.DeleteGroup(c.UserContext(), c.Params("slug"), currentUserID(c)); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	return c.JSON(fiber.Map{
		"message": "Group deleted",
	})
}
