package handler

import (
	"fmt"
	"strings"
	"time"

	"go-pos-ledger/internal/export"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type CreditHandler struct {
	ledger service.LedgerService
	loc    *time.Location
}

func NewCreditHandler(ledger service.LedgerService, loc *time.Location) *CreditHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &CreditHandler{ledger: ledger, loc: loc}
}

// ListCredits returns ledger summaries, most recently updated first
// GET /api/v1/credits?active=true&customer=
func (h *CreditHandler) ListCredits(c *fiber.Ctx) error {
	filter := repository.CreditFilter{
		ActiveOnly: c.QueryBool("active", false),
		Customer:   strings.TrimSpace(c.Query("customer")),
	}

	credits, err := h.ledger.ListCredits(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(credits)
}

// Lookup finds the active ledger for an exact customer name
// GET /api/v1/credits/lookup?customer=
func (h *CreditHandler) Lookup(c *fiber.Ctx) error {
	credit, err := h.ledger.Lookup(c.UserContext(), c.Query("customer"))
	if err != nil {
		return respondError(c, err)
	}
	if credit == nil {
		return c.JSON(fiber.Map{"found": false, "data": nil})
	}
	return c.JSON(fiber.Map{"found": true, "data": credit.ToResponse()})
}

// GetCredit returns one ledger with its entries and replayed statement
// GET /api/v1/credits/:id
func (h *CreditHandler) GetCredit(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "credit")
	if err != nil {
		return err
	}

	credit, err := h.ledger.GetCredit(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(credit.ToResponse())
}

// RecordCharge debits a customer's ledger directly
// POST /api/v1/credits/charges
func (h *CreditHandler) RecordCharge(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	var req service.CreditSaleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	credit, err := h.ledger.RecordCreditSale(c.UserContext(), actor, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Credit recorded",
		"data":    credit.ToResponse(),
	})
}

// RecordPayment applies a payment to a ledger
// POST /api/v1/credits/:id/payments
func (h *CreditHandler) RecordPayment(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "credit")
	if err != nil {
		return err
	}

	var req service.PaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	req.CreditID = id

	credit, err := h.ledger.RecordPayment(c.UserContext(), actor, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Payment recorded",
		"data":    credit.ToResponse(),
	})
}

// ExportStatement downloads a ledger statement as XLSX
// GET /api/v1/credits/:id/statement
func (h *CreditHandler) ExportStatement(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "credit")
	if err != nil {
		return err
	}

	credit, err := h.ledger.GetCredit(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}

	filename := export.StatementFilename(credit, time.Now().In(h.loc))
	c.Set(fiber.HeaderContentType, export.StatementContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", filename))

	if err := export.WriteStatement(c.Response().BodyWriter(), credit, h.loc); err != nil {
		return respondError(c, err)
	}
	return nil
}

// Reconcile checks every ledger against its entries and the sales table
// GET /api/v1/credits/reconcile
func (h *CreditHandler) Reconcile(c *fiber.Ctx) error {
	report, err := h.ledger.Reconcile(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"ok":     report.OK(),
		"report": report,
	})
}
