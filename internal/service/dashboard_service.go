package service

import (
	"context"
	"time"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/policy"
	"go-pos-ledger/internal/repository"

	"github.com/shopspring/decimal"
)

type DashboardService interface {
	Summary(ctx context.Context, actor model.Actor, day time.Time) (*DashboardSummary, error)
}

// FinanceSummary is only filled in for roles allowed to see it
type FinanceSummary struct {
	OutstandingCredit decimal.Decimal `json:"outstandingCredit"`
	CustomersOwing    int64           `json:"customersOwing"`
	ActiveItems       int64           `json:"activeItems"`
}

type DashboardSummary struct {
	Date       string                   `json:"date"`
	SalesTotal decimal.Decimal          `json:"salesTotal"`
	SalesCount int64                    `json:"salesCount"`
	ByMethod   []repository.MethodTotal `json:"byMethod"`
	Finance    *FinanceSummary          `json:"finance,omitempty"`
}

type dashboardService struct {
	dashboard repository.DashboardRepository
	credits   repository.CreditRepository
	items     repository.ItemRepository
	loc       *time.Location
}

func NewDashboardService(dashboard repository.DashboardRepository, credits repository.CreditRepository, items repository.ItemRepository, loc *time.Location) DashboardService {
	if loc == nil {
		loc = time.UTC
	}
	return &dashboardService{
		dashboard: dashboard,
		credits:   credits,
		items:     items,
		loc:       loc,
	}
}

// Summary reports the business day containing day, in the shop's timezone.
func (s *dashboardService) Summary(ctx context.Context, actor model.Actor, day time.Time) (*DashboardSummary, error) {
	if err := policy.Check(actor.Role, policy.DashboardView); err != nil {
		return nil, err
	}

	local := day.In(s.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	end := start.AddDate(0, 0, 1)

	byMethod, err := s.dashboard.SalesByMethod(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if byMethod == nil {
		byMethod = []repository.MethodTotal{}
	}

	summary := &DashboardSummary{
		Date:       start.Format("2006-01-02"),
		SalesTotal: decimal.Zero,
		ByMethod:   byMethod,
	}
	for _, m := range byMethod {
		summary.SalesTotal = summary.SalesTotal.Add(m.Total)
		summary.SalesCount += m.Count
	}

	if policy.Allow(actor.Role, policy.DashboardFinance) {
		outstanding, owing, err := s.credits.Outstanding(ctx)
		if err != nil {
			return nil, err
		}
		activeItems, err := s.items.CountActive(ctx)
		if err != nil {
			return nil, err
		}
		summary.Finance = &FinanceSummary{
			OutstandingCredit: outstanding,
			CustomersOwing:    owing,
			ActiveItems:       activeItems,
		}
	}

	return summary, nil
}
