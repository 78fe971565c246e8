package server

import (
	"opentimes/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"user": currentUser(c),
	})
}

// GetMyGroups handles GET /api/users/me/groups, the dashboard listing of
// every group the user belongs to.
func (s *Server) GetMyGroups(c *fiber.Ctx) error {
	groups, err := s.groupService.Dashboard(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	return c.JSON(fiber.Map{
		"groups": groups,
	})
}
