package handler

import (
	"time"

	"go-pos-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

const dateLayout = "2006-01-02"

type SaleHandler struct {
	service service.SaleService
	loc     *time.Location
	now     func() time.Time
}

func NewSaleHandler(s service.SaleService, loc *time.Location) *SaleHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &SaleHandler{service: s, loc: loc, now: time.Now}
}

// RecordSale records a sale, charging the customer's ledger for credit sales
// POST /api/v1/sales
func (h *SaleHandler) RecordSale(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	var req service.SaleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	result, err := h.service.RecordSale(c.UserContext(), actor, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Sale recorded",
		"data":    result,
	})
}

// GetSales lists sales for whole business days, both ends inclusive
// GET /api/v1/sales?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *SaleHandler) GetSales(c *fiber.Ctx) error {
	today := h.now().In(h.loc).Format(dateLayout)

	from, err := parseDay(c.Query("from", today), h.loc)
	if err != nil {
		return badRequest(c, "Invalid 'from' date, expected YYYY-MM-DD")
	}
	to, err := parseDay(c.Query("to", c.Query("from", today)), h.loc)
	if err != nil {
		return badRequest(c, "Invalid 'to' date, expected YYYY-MM-DD")
	}

	sales, err := h.service.ListSales(c.UserContext(), from, to.AddDate(0, 0, 1))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sales)
}

// GetSale returns a single sale
// GET /api/v1/sales/:id
func (h *SaleHandler) GetSale(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "sale")
	if err != nil {
		return err
	}

	sale, err := h.service.GetSale(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sale)
}

func parseDay(value string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateLayout, value, loc)
}
