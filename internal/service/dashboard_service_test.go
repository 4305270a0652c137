package service

import (
	"context"
	"testing"
	"time"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboard_Summary(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rice := seedItem(t, h, "Rice", 500)
	seedItem(t, h, "Beans", 800)

	// Lagos is UTC+1: 23:30 UTC on the 9th is already the 10th locally
	lagos := time.FixedZone("WAT", 3600)
	inWindow := time.Date(2025, time.March, 9, 23, 30, 0, 0, time.UTC)
	outside := time.Date(2025, time.March, 9, 22, 30, 0, 0, time.UTC)

	sales := []*model.Sale{
		model.NewSale(rice, 2, money(500), model.PaymentCash, "", "", clerk.ID(), inWindow),
		model.NewSale(rice, 1, money(500), model.PaymentTransfer, "", "", clerk.ID(), inWindow.Add(time.Hour)),
		model.NewSale(rice, 1, money(500), model.PaymentCash, "", "", clerk.ID(), outside),
	}
	for _, s := range sales {
		require.NoError(t, h.sales.Create(ctx, s))
	}
	charge(t, h, "Ada", 700)

	svc := NewDashboardService(repository.NewDashboardRepo(h.db), h.credits, h.items, lagos)
	day := time.Date(2025, time.March, 10, 12, 0, 0, 0, lagos)

	summary, err := svc.Summary(ctx, manager, day)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", summary.Date)
	assertMoney(t, 1500, summary.SalesTotal)
	assert.Equal(t, int64(2), summary.SalesCount)
	assert.Len(t, summary.ByMethod, 2)
	require.NotNil(t, summary.Finance)
	assertMoney(t, 700, summary.Finance.OutstandingCredit)
	assert.Equal(t, int64(1), summary.Finance.CustomersOwing)
	assert.Equal(t, int64(2), summary.Finance.ActiveItems)

	clerkView, err := svc.Summary(ctx, clerk, day)
	require.NoError(t, err)
	assertMoney(t, 1500, clerkView.SalesTotal)
	assert.Nil(t, clerkView.Finance, "entry-only staff do not see credit totals")
}

func TestDashboard_EmptyDay(t *testing.T) {
	h := newHarness(t)
	svc := NewDashboardService(repository.NewDashboardRepo(h.db), h.credits, h.items, nil)

	summary, err := svc.Summary(context.Background(), admin, time.Now())
	require.NoError(t, err)
	assert.True(t, summary.SalesTotal.IsZero())
	assert.NotNil(t, summary.ByMethod)
	assert.Empty(t, summary.ByMethod)
}
