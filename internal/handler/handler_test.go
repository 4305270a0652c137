package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"go-pos-ledger/internal/activity"
	"go-pos-ledger/internal/export"
	"go-pos-ledger/internal/handler"
	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/internal/seed"
	"go-pos-ledger/internal/service"
	"go-pos-ledger/internal/testutil"
	"go-pos-ledger/internal/ws"
	"go-pos-ledger/pkg/database"
	"go-pos-ledger/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const password = "secret123"

type api struct {
	app    *fiber.App
	tokens map[string]string
}

func newAPI(t *testing.T) *api {
	t.Helper()
	db := testutil.NewTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())

	users := repository.NewUserRepo(db)
	roles := repository.NewRoleRepo(db)
	items := repository.NewItemRepo(db)
	sales := repository.NewSaleRepo(db)
	credits := repository.NewCreditRepo(db)
	activities := repository.NewActivityRepo(db)

	require.NoError(t, seed.Defaults(ctx, roles, users, seed.Admin{
		Email:    "admin@shop.test",
		Password: password,
		Name:     "Ada Admin",
	}, zerolog.Nop()))

	hub := ws.NewHub(zerolog.Nop())
	go hub.Run(ctx)
	recorder := activity.NewRecorder(activities, activity.Options{}, zerolog.Nop())
	recorder.Start()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, recorder.Close(context.Background()))
	})

	retry := database.RetryOptions{MaxRetries: 20, BaseBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
	signer := jwt.NewSigner("test-secret", "go-pos-ledger-test", time.Hour)

	authService := service.NewAuthService(users, signer, recorder, hub, zerolog.Nop())
	ledgerService := service.NewLedgerService(credits, sales, retry, recorder, hub, zerolog.Nop())
	saleService := service.NewSaleService(db, items, sales, credits, retry, recorder, hub, zerolog.Nop())
	userService := service.NewUserService(users, roles, recorder)

	app := fiber.New(fiber.Config{ErrorHandler: handler.ErrorHandler})
	handler.RegisterRoutes(app, authService, handler.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		Credit:    handler.NewCreditHandler(ledgerService, time.UTC),
		Sale:      handler.NewSaleHandler(saleService, time.UTC),
		Item:      handler.NewItemHandler(service.NewItemService(items, recorder, hub)),
		Dashboard: handler.NewDashboardHandler(service.NewDashboardService(repository.NewDashboardRepo(db), credits, items, time.UTC), time.UTC),
		User:      handler.NewUserHandler(userService),
		Role:      handler.NewRoleHandler(userService),
		Activity:  handler.NewActivityHandler(service.NewActivityService(activities)),
	})

	a := &api{app: app, tokens: map[string]string{}}
	a.tokens[model.RoleAdmin] = a.login(t, "admin@shop.test")

	for _, role := range []string{model.RoleManager, model.RoleEntryOnly} {
		email := role + "@shop.test"
		resp := a.do(t, http.MethodPost, "/api/v1/users", model.RoleAdmin, fiber.Map{
			"email":       email,
			"password":    password,
			"displayName": "Test " + role,
			"role":        role,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		a.tokens[role] = a.login(t, email)
	}
	return a
}

func (a *api) login(t *testing.T, email string) string {
	t.Helper()
	resp := a.do(t, http.MethodPost, "/api/v1/auth/login", "", fiber.Map{"email": email, "password": password})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body service.LoginResponse
	decode(t, resp, &body)
	require.NotEmpty(t, body.Token)
	return body.Token
}

// do sends a JSON request as the user holding role; an empty role sends no token.
func (a *api) do(t *testing.T, method, path, role string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+a.tokens[role])
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

type creditEnvelope struct {
	Data model.CreditResponse `json:"data"`
}

type saleEnvelope struct {
	Data service.SaleResult `json:"data"`
}

func money(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// =============================================================================
// AUTH
// =============================================================================

func TestAPI_RequiresToken(t *testing.T) {
	a := newAPI(t)

	resp := a.do(t, http.MethodGet, "/api/v1/credits", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/credits", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_LoginRejectsBadPassword(t *testing.T) {
	a := newAPI(t)

	resp := a.do(t, http.MethodPost, "/api/v1/auth/login", "", fiber.Map{"email": "admin@shop.test", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = a.do(t, http.MethodPost, "/api/v1/auth/login", "", fiber.Map{"email": "admin@shop.test"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_MeReportsPermissions(t *testing.T) {
	a := newAPI(t)

	resp := a.do(t, http.MethodGet, "/api/v1/auth/me", model.RoleEntryOnly, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Role        string   `json:"role"`
		Permissions []string `json:"permissions"`
	}
	decode(t, resp, &body)
	assert.Equal(t, model.RoleEntryOnly, body.Role)
	assert.ElementsMatch(t, []string{"sale:record", "item:view", "dashboard:view"}, body.Permissions)
}

func TestAPI_ResetPassword(t *testing.T) {
	// GIVEN: A signed-in clerk
	// WHEN: They change their password through the API
	// THEN: Their token is revoked and only the new password signs in

	a := newAPI(t)

	resp := a.do(t, http.MethodPost, "/api/v1/auth/reset-password", model.RoleEntryOnly, fiber.Map{
		"old_password": "wrong-one",
		"new_password": "n3w-secret",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = a.do(t, http.MethodPost, "/api/v1/auth/reset-password", model.RoleEntryOnly, fiber.Map{
		"old_password": password,
		"new_password": "abc",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = a.do(t, http.MethodPost, "/api/v1/auth/reset-password", model.RoleEntryOnly, fiber.Map{
		"old_password": password,
		"new_password": "n3w-secret",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/api/v1/auth/me", model.RoleEntryOnly, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	email := model.RoleEntryOnly + "@shop.test"
	resp = a.do(t, http.MethodPost, "/api/v1/auth/login", "", fiber.Map{"email": email, "password": password})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = a.do(t, http.MethodPost, "/api/v1/auth/login", "", fiber.Map{"email": email, "password": "n3w-secret"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = a.do(t, http.MethodPost, "/api/v1/auth/reset-password", "", fiber.Map{
		"old_password": "n3w-secret",
		"new_password": "another1",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_Logout(t *testing.T) {
	a := newAPI(t)

	resp := a.do(t, http.MethodPost, "/api/v1/auth/logout", model.RoleManager, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/api/v1/auth/me", model.RoleManager, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	a.tokens[model.RoleManager] = a.login(t, model.RoleManager+"@shop.test")
	resp = a.do(t, http.MethodGet, "/api/v1/auth/me", model.RoleManager, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// =============================================================================
// CREDIT LEDGER
// =============================================================================

func TestAPI_CreditSaleThenPayment(t *testing.T) {
	a := newAPI(t)

	// GIVEN an item in the catalog
	resp := a.do(t, http.MethodPost, "/api/v1/items", model.RoleManager, fiber.Map{
		"name":         "Rice 5kg",
		"currentPrice": "250",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// WHEN a clerk records two units on credit
	resp = a.do(t, http.MethodPost, "/api/v1/sales", model.RoleEntryOnly, fiber.Map{
		"itemName":      "rice 5KG",
		"quantity":      2,
		"unitPrice":     "250",
		"paymentMethod": "credit",
		"customerName":  "Mama Nkechi",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var sale saleEnvelope
	decode(t, resp, &sale)
	require.NotNil(t, sale.Data.Credit)
	assert.True(t, sale.Data.Credit.TotalOwed.Equal(money(500)))
	assert.False(t, sale.Data.Sale.IsPaid)

	// THEN the manager finds the ledger by exact name
	resp = a.do(t, http.MethodGet, "/api/v1/credits/lookup?customer="+url.QueryEscape("Mama Nkechi"), model.RoleManager, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var found struct {
		Found bool                 `json:"found"`
		Data  model.CreditResponse `json:"data"`
	}
	decode(t, resp, &found)
	require.True(t, found.Found)
	creditID := found.Data.ID.String()
	assert.True(t, found.Data.Reconciled)

	// AND a clerk cannot take a payment
	payment := fiber.Map{"amount": "600", "method": "cash", "remarks": "settled"}
	resp = a.do(t, http.MethodPost, "/api/v1/credits/"+creditID+"/payments", model.RoleEntryOnly, payment)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// WHEN the manager records an overpayment
	resp = a.do(t, http.MethodPost, "/api/v1/credits/"+creditID+"/payments", model.RoleManager, payment)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var paid creditEnvelope
	decode(t, resp, &paid)

	// THEN the balance clamps at zero and the ledger closes
	assert.True(t, paid.Data.TotalOwed.IsZero())
	assert.False(t, paid.Data.IsActive)
	require.Len(t, paid.Data.Statement, 2)
	assert.True(t, paid.Data.Statement[1].Applied.Equal(money(500)))

	// AND lookup no longer finds an active ledger
	resp = a.do(t, http.MethodGet, "/api/v1/credits/lookup?customer="+url.QueryEscape("Mama Nkechi"), model.RoleManager, nil)
	decode(t, resp, &found)
	assert.False(t, found.Found)

	// AND the books reconcile
	resp = a.do(t, http.MethodGet, "/api/v1/credits/reconcile", model.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report struct {
		OK bool `json:"ok"`
	}
	decode(t, resp, &report)
	assert.True(t, report.OK)
}

func TestAPI_ReconcileIsAdminOnly(t *testing.T) {
	a := newAPI(t)

	resp := a.do(t, http.MethodGet, "/api/v1/credits/reconcile", model.RoleManager, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAPI_CreditErrors(t *testing.T) {
	a := newAPI(t)

	resp := a.do(t, http.MethodGet, "/api/v1/credits/not-a-uuid", model.RoleManager, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/api/v1/credits/6f1c9a7e-3d4b-4c8e-9f10-2a3b4c5d6e7f", model.RoleManager, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = a.do(t, http.MethodPost, "/api/v1/credits/charges", model.RoleManager, fiber.Map{"customerName": "Bola", "amount": "0"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	for _, amount := range []string{"0.005", "1000000000000"} {
		resp = a.do(t, http.MethodPost, "/api/v1/credits/charges", model.RoleManager, fiber.Map{"customerName": "Bola", "amount": amount})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, amount)
	}

	resp = a.do(t, http.MethodGet, "/api/v1/credits/lookup", model.RoleManager, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_ChargeAndListCredits(t *testing.T) {
	a := newAPI(t)

	for _, name := range []string{"Bola", "Bolaji"} {
		resp := a.do(t, http.MethodPost, "/api/v1/credits/charges", model.RoleManager, fiber.Map{"customerName": name, "amount": "100"})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := a.do(t, http.MethodGet, "/api/v1/credits?active=true&customer=bolaj", model.RoleManager, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []model.CreditSummary
	decode(t, resp, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Bolaji", list[0].CustomerName)
}

func TestAPI_ExportStatement(t *testing.T) {
	a := newAPI(t)

	resp := a.do(t, http.MethodPost, "/api/v1/credits/charges", model.RoleManager, fiber.Map{"customerName": "Bola", "amount": "150"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var charged creditEnvelope
	decode(t, resp, &charged)

	resp = a.do(t, http.MethodGet, "/api/v1/credits/"+charged.Data.ID.String()+"/statement", model.RoleManager, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, export.StatementContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment; filename=statement_")

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()

	customer, err := f.GetCellValue(export.StatementSheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "Bola", customer)

	resp = a.do(t, http.MethodGet, "/api/v1/credits/"+charged.Data.ID.String()+"/statement", model.RoleEntryOnly, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// =============================================================================
// SALES, ITEMS, DASHBOARD
// =============================================================================

func TestAPI_ClerkCannotSellUnknownItem(t *testing.T) {
	a := newAPI(t)

	resp := a.do(t, http.MethodPost, "/api/v1/sales", model.RoleEntryOnly, fiber.Map{
		"itemName":      "Garri",
		"quantity":      1,
		"unitPrice":     "80",
		"paymentMethod": "cash",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = a.do(t, http.MethodPost, "/api/v1/items", model.RoleEntryOnly, fiber.Map{"name": "Garri", "currentPrice": "80"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAPI_ItemLifecycle(t *testing.T) {
	a := newAPI(t)

	resp := a.do(t, http.MethodPost, "/api/v1/items", model.RoleAdmin, fiber.Map{"name": "Palm Oil 1L", "currentPrice": "120", "category": "oils"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		Data model.ItemResponse `json:"data"`
	}
	decode(t, resp, &created)
	id := created.Data.ID.String()

	resp = a.do(t, http.MethodPost, "/api/v1/items", model.RoleAdmin, fiber.Map{"name": "palm oil 1l", "currentPrice": "120"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = a.do(t, http.MethodPut, "/api/v1/items/"+id, model.RoleManager, fiber.Map{"currentPrice": "130"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/api/v1/items/search?q=palm", model.RoleEntryOnly, nil)
	var hits []model.Item
	decode(t, resp, &hits)
	require.Len(t, hits, 1)
	assert.True(t, hits[0].CurrentPrice.Equal(money(130)))

	resp = a.do(t, http.MethodDelete, "/api/v1/items/"+id, model.RoleManager, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/api/v1/items/search?q=palm", model.RoleEntryOnly, nil)
	decode(t, resp, &hits)
	assert.Empty(t, hits)

	resp = a.do(t, http.MethodGet, "/api/v1/items?includeRetired=true", model.RoleEntryOnly, nil)
	var all []model.Item
	decode(t, resp, &all)
	require.Len(t, all, 1)
	assert.Equal(t, model.ItemRetired, all[0].Status)
}

func TestAPI_SalesListAndDashboard(t *testing.T) {
	a := newAPI(t)
	today := time.Now().UTC().Format("2006-01-02")

	for _, method := range []string{"cash", "pos", "credit"} {
		body := fiber.Map{
			"itemName":      "Sugar",
			"quantity":      1,
			"unitPrice":     "100",
			"paymentMethod": method,
		}
		if method == "credit" {
			body["customerName"] = "Emeka"
		}
		resp := a.do(t, http.MethodPost, "/api/v1/sales", model.RoleManager, body)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := a.do(t, http.MethodGet, "/api/v1/sales?from="+today+"&to="+today, model.RoleManager, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sales []model.Sale
	decode(t, resp, &sales)
	assert.Len(t, sales, 3)

	resp = a.do(t, http.MethodGet, "/api/v1/sales/"+sales[0].ID.String(), model.RoleManager, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/api/v1/sales?from=yesterday", model.RoleManager, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Clerks see the day's takings but not the credit book
	resp = a.do(t, http.MethodGet, "/api/v1/dashboard/summary?date="+today, model.RoleEntryOnly, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var clerkView service.DashboardSummary
	decode(t, resp, &clerkView)
	assert.EqualValues(t, 3, clerkView.SalesCount)
	assert.True(t, clerkView.SalesTotal.Equal(money(300)))
	assert.Nil(t, clerkView.Finance)

	resp = a.do(t, http.MethodGet, "/api/v1/dashboard/summary", model.RoleManager, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var managerView service.DashboardSummary
	decode(t, resp, &managerView)
	require.NotNil(t, managerView.Finance)
	assert.True(t, managerView.Finance.OutstandingCredit.Equal(money(100)))
	assert.EqualValues(t, 1, managerView.Finance.CustomersOwing)
}

// =============================================================================
// USERS, ROLES, ACTIVITY
// =============================================================================

func TestAPI_UserManagementIsAdminOnly(t *testing.T) {
	a := newAPI(t)

	resp := a.do(t, http.MethodPost, "/api/v1/users", model.RoleManager, fiber.Map{
		"email":       "new@shop.test",
		"password":    password,
		"displayName": "New",
		"role":        model.RoleEntryOnly,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = a.do(t, http.MethodPost, "/api/v1/users", model.RoleAdmin, fiber.Map{
		"email":       "manager@shop.test",
		"password":    password,
		"displayName": "Dup",
		"role":        model.RoleEntryOnly,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/api/v1/users", model.RoleManager, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var users []model.UserResponse
	decode(t, resp, &users)
	assert.Len(t, users, 3)
}

func TestAPI_RolesListPermissions(t *testing.T) {
	a := newAPI(t)

	resp := a.do(t, http.MethodGet, "/api/v1/roles", model.RoleEntryOnly, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var roles []struct {
		Code        string   `json:"code"`
		Permissions []string `json:"permissions"`
	}
	decode(t, resp, &roles)
	require.Len(t, roles, 3)
	for _, r := range roles {
		assert.NotEmpty(t, r.Permissions, r.Code)
	}
}

func TestAPI_ActivityFeed(t *testing.T) {
	a := newAPI(t)

	resp := a.do(t, http.MethodPost, "/api/v1/credits/charges", model.RoleManager, fiber.Map{"customerName": "Bola", "amount": "100"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/api/v1/activity", model.RoleEntryOnly, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// The recorder writes in the background
	require.Eventually(t, func() bool {
		resp := a.do(t, http.MethodGet, "/api/v1/activity?limit=10", model.RoleManager, nil)
		var entries []model.Activity
		decode(t, resp, &entries)
		for _, e := range entries {
			if e.Action == model.ActionCreditCharged {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)
}
