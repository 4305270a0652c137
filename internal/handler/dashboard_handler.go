package handler

import (
	"time"

	"go-pos-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	service service.DashboardService
	loc     *time.Location
}

func NewDashboardHandler(s service.DashboardService, loc *time.Location) *DashboardHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &DashboardHandler{service: s, loc: loc}
}

// GetSummary returns the day's sales by payment method, plus finance totals
// for roles that may see them.
// Query params: date (YYYY-MM-DD, default today)
func (h *DashboardHandler) GetSummary(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	day := time.Now()
	if raw := c.Query("date"); raw != "" {
		day, err = parseDay(raw, h.loc)
		if err != nil {
			return badRequest(c, "Invalid date, expected YYYY-MM-DD")
		}
	}

	summary, err := h.service.Summary(c.UserContext(), actor, day)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summary)
}
