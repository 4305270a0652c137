package handler

import (
	"errors"

	"go-pos-ledger/internal/middleware"
	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/policy"
	"go-pos-ledger/internal/service"
	"go-pos-ledger/pkg/database"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// respondError maps service errors onto HTTP statuses. Anything unexpected is
// logged and reported as a 500 without leaking the cause.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrWrongPassword):
		status = fiber.StatusBadRequest
	case errors.Is(err, policy.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrUserInactive),
		errors.Is(err, service.ErrSessionExpired):
		status = fiber.StatusUnauthorized
	case errors.Is(err, service.ErrCreditNotFound),
		errors.Is(err, service.ErrItemNotFound),
		errors.Is(err, service.ErrSaleNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrRoleNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, service.ErrItemExists),
		errors.Is(err, service.ErrEmailExists),
		errors.Is(err, database.ErrConcurrentModification):
		status = fiber.StatusConflict
	}

	if status == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("request failed")
		return c.Status(status).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// currentActor reads the identity set by RequireAuth. Routes are always
// mounted behind it, so a missing actor is a wiring bug and answers 401.
func currentActor(c *fiber.Ctx) (model.Actor, error) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return model.Actor{}, fiber.NewError(fiber.StatusUnauthorized, "Not authenticated")
	}
	return actor, nil
}

func parseIDParam(c *fiber.Ctx, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid "+what+" ID")
	}
	return id, nil
}

// ErrorHandler answers fiber errors as JSON so every failure has one shape.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	return respondError(c, err)
}
