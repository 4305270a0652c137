package handler

import (
	"go-pos-ledger/internal/middleware"
	"go-pos-ledger/internal/policy"
	"go-pos-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Auth      *AuthHandler
	Credit    *CreditHandler
	Sale      *SaleHandler
	Item      *ItemHandler
	Dashboard *DashboardHandler
	User      *UserHandler
	Role      *RoleHandler
	Activity  *ActivityHandler
}

// RegisterRoutes mounts the REST API under /api/v1
func RegisterRoutes(app *fiber.App, auth service.AuthService, h Handlers) {
	api := app.Group("/api/v1")
	allow := middleware.RequirePermission

	// ============ PUBLIC ROUTES ============
	authGroup := api.Group("/auth")
	authGroup.Post("/login", h.Auth.Login)
	authGroup.Post("/validate-token", h.Auth.ValidateToken)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth(auth))

	protected.Get("/auth/me", h.Auth.Me)
	protected.Post("/auth/reset-password", h.Auth.ResetPassword)
	protected.Post("/auth/logout", h.Auth.Logout)

	protected.Get("/dashboard/summary", allow(policy.DashboardView), h.Dashboard.GetSummary)

	// Sales
	protected.Post("/sales", allow(policy.SaleRecord), h.Sale.RecordSale)
	protected.Get("/sales", allow(policy.CreditView), h.Sale.GetSales)
	protected.Get("/sales/:id", allow(policy.CreditView), h.Sale.GetSale)

	// Items
	protected.Get("/items", allow(policy.ItemView), h.Item.GetItems)
	protected.Get("/items/search", allow(policy.ItemView), h.Item.SearchItems)
	protected.Get("/items/:id", allow(policy.ItemView), h.Item.GetItem)
	protected.Post("/items", allow(policy.ItemCreate), h.Item.CreateItem)
	protected.Put("/items/:id", allow(policy.ItemUpdate), h.Item.UpdateItem)
	protected.Delete("/items/:id", allow(policy.ItemRetire), h.Item.RetireItem)

	// Credit ledger. Static paths are registered before /:id.
	protected.Get("/credits", allow(policy.CreditView), h.Credit.ListCredits)
	protected.Get("/credits/lookup", allow(policy.CreditView), h.Credit.Lookup)
	protected.Get("/credits/reconcile", allow(policy.CreditReconcile), h.Credit.Reconcile)
	protected.Post("/credits/charges", allow(policy.CreditCharge), h.Credit.RecordCharge)
	protected.Get("/credits/:id", allow(policy.CreditView), h.Credit.GetCredit)
	protected.Post("/credits/:id/payments", allow(policy.CreditPayment), h.Credit.RecordPayment)
	protected.Get("/credits/:id/statement", allow(policy.CreditExport), h.Credit.ExportStatement)

	// Users and roles
	protected.Get("/users", allow(policy.UserView), h.User.GetUsers)
	protected.Get("/users/:id", allow(policy.UserView), h.User.GetUser)
	protected.Post("/users", allow(policy.UserManage), h.User.CreateUser)
	protected.Put("/users/:id", allow(policy.UserManage), h.User.UpdateUser)
	protected.Get("/roles", h.Role.GetRoles)

	protected.Get("/activity", allow(policy.ActivityView), h.Activity.GetActivity)
}
