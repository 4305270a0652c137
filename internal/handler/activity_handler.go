package handler

import (
	"go-pos-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ActivityHandler struct {
	service service.ActivityService
}

func NewActivityHandler(s service.ActivityService) *ActivityHandler {
	return &ActivityHandler{service: s}
}

// GetActivity returns the most recent audit entries
// GET /api/v1/activity?limit=50
func (h *ActivityHandler) GetActivity(c *fiber.Ctx) error {
	entries, err := h.service.List(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(entries)
}
