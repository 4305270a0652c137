package handler

import (
	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/policy"
	"go-pos-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type RoleHandler struct {
	userService service.UserService
}

func NewRoleHandler(userService service.UserService) *RoleHandler {
	return &RoleHandler{userService: userService}
}

type roleResponse struct {
	model.Role
	Permissions []policy.Operation `json:"permissions"`
}

// GetRoles returns all available roles with what each may do
// GET /api/v1/roles
func (h *RoleHandler) GetRoles(c *fiber.Ctx) error {
	roles, err := h.userService.GetRoles(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}

	out := make([]roleResponse, len(roles))
	for i, r := range roles {
		out[i] = roleResponse{Role: r, Permissions: policy.Permissions(r.Code)}
	}
	return c.JSON(out)
}
