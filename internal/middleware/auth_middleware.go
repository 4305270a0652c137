package middleware

import (
	"strings"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/policy"
	"go-pos-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

const actorKey = "actor"

// RequireAuth validates the bearer token against the current session and
// stores the resolved Actor in the request locals.
func RequireAuth(auth service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Get Authorization header
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(401).JSON(fiber.Map{"error": "Missing authorization token"})
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid authorization format. Use: Bearer <token>"})
		}

		user, err := auth.Authenticate(c.UserContext(), parts[1])
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": err.Error()})
		}

		// Role comes from the stored user, so a role change applies immediately
		actor := user.Actor()
		c.Locals(actorKey, actor)
		c.Locals("user_id", actor.ID())
		c.Locals("user_email", actor.Email)
		c.Locals("user_name", actor.Name)

		return c.Next()
	}
}

// ActorFrom returns the identity RequireAuth attached to the request
func ActorFrom(c *fiber.Ctx) (model.Actor, bool) {
	actor, ok := c.Locals(actorKey).(model.Actor)
	return actor, ok
}

// RequirePermission checks the actor's role against the policy
func RequirePermission(op policy.Operation) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFrom(c)
		if !ok {
			return c.Status(401).JSON(fiber.Map{"error": "Not authenticated"})
		}
		if !policy.Allow(actor.Role, op) {
			return c.Status(403).JSON(fiber.Map{
				"error": "Forbidden: requires '" + string(op) + "' permission",
			})
		}
		return c.Next()
	}
}
