package service

import (
	"sync"
	"testing"
	"time"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/internal/testutil"
	"go-pos-ledger/internal/ws"
	"go-pos-ledger/pkg/database"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

type captureActivity struct {
	mu      sync.Mutex
	entries []model.Activity
}

func (c *captureActivity) Record(actor model.Actor, action, details string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, model.Activity{UserID: actor.ID(), Action: action, Details: details})
}

func (c *captureActivity) actions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Action
	}
	return out
}

type capturePublisher struct {
	mu     sync.Mutex
	events []ws.Event
}

func (c *capturePublisher) Publish(event ws.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *capturePublisher) actions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, e := range c.events {
		out[i] = e.Action
	}
	return out
}

// =============================================================================
// TEST SETUP
// =============================================================================

var (
	admin   = model.Actor{UserID: uuid.New(), Name: "Ada Admin", Email: "admin@shop.test", Role: model.RoleAdmin}
	manager = model.Actor{UserID: uuid.New(), Name: "Musa Manager", Email: "manager@shop.test", Role: model.RoleManager}
	clerk   = model.Actor{UserID: uuid.New(), Name: "Chidi Clerk", Email: "clerk@shop.test", Role: model.RoleEntryOnly}
)

func testRetry() database.RetryOptions {
	return database.RetryOptions{MaxRetries: 50, BaseBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

type harness struct {
	db       *gorm.DB
	credits  repository.CreditRepository
	items    repository.ItemRepository
	sales    repository.SaleRepository
	activity *captureActivity
	events   *capturePublisher
	ledger   *ledgerService
	sale     *saleService
	item     ItemService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessOn(t, testutil.NewTestDB(t))
}

func newHarnessOn(t *testing.T, db *gorm.DB) *harness {
	t.Helper()
	h := &harness{
		db:       db,
		credits:  repository.NewCreditRepo(db),
		items:    repository.NewItemRepo(db),
		sales:    repository.NewSaleRepo(db),
		activity: &captureActivity{},
		events:   &capturePublisher{},
	}
	h.ledger = NewLedgerService(h.credits, h.sales, testRetry(), h.activity, h.events, zerolog.Nop()).(*ledgerService)
	h.sale = NewSaleService(db, h.items, h.sales, h.credits, testRetry(), h.activity, h.events, zerolog.Nop()).(*saleService)
	h.item = NewItemService(h.items, h.activity, h.events)
	return h
}

func money(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func assertMoney(t *testing.T, want int64, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	if !got.Equal(money(want)) {
		t.Errorf("expected %d, got %s %v", want, got.String(), msgAndArgs)
	}
}
