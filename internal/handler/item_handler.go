package handler

import (
	"go-pos-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ItemHandler struct {
	service service.ItemService
}

func NewItemHandler(s service.ItemService) *ItemHandler {
	return &ItemHandler{service: s}
}

// GetItems lists the catalog
// GET /api/v1/items?includeRetired=true
func (h *ItemHandler) GetItems(c *fiber.Ctx) error {
	items, err := h.service.ListItems(c.UserContext(), c.QueryBool("includeRetired", false))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}

// SearchItems suggests active items for the sale entry form
// GET /api/v1/items/search?q=
func (h *ItemHandler) SearchItems(c *fiber.Ctx) error {
	items, err := h.service.SearchItems(c.UserContext(), c.Query("q"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}

// GET /api/v1/items/:id
func (h *ItemHandler) GetItem(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "item")
	if err != nil {
		return err
	}

	item, err := h.service.GetItem(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item.ToResponse())
}

// POST /api/v1/items
func (h *ItemHandler) CreateItem(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	var req service.ItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	item, err := h.service.CreateItem(c.UserContext(), actor, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Item created", "data": item.ToResponse()})
}

// PUT /api/v1/items/:id
func (h *ItemHandler) UpdateItem(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "item")
	if err != nil {
		return err
	}

	var req service.ItemUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	item, err := h.service.UpdateItem(c.UserContext(), actor, id, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Item updated", "data": item.ToResponse()})
}

// RetireItem hides an item from sale entry; sales history keeps it
// DELETE /api/v1/items/:id
func (h *ItemHandler) RetireItem(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "item")
	if err != nil {
		return err
	}

	if err := h.service.RetireItem(c.UserContext(), actor, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Item retired"})
}
