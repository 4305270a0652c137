package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/policy"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/internal/ws"
	"go-pos-ledger/pkg/database"
	"go-pos-ledger/pkg/validator"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type LedgerService interface {
	Lookup(ctx context.Context, customerName string) (*model.Credit, error)
	RecordCreditSale(ctx context.Context, actor model.Actor, req *CreditSaleRequest) (*model.Credit, error)
	RecordPayment(ctx context.Context, actor model.Actor, req *PaymentRequest) (*model.Credit, error)
	GetCredit(ctx context.Context, id uuid.UUID) (*model.Credit, error)
	ListCredits(ctx context.Context, filter repository.CreditFilter) ([]model.CreditSummary, error)
	Reconcile(ctx context.Context) (*ReconcileReport, error)
}

type CreditSaleRequest struct {
	CustomerName string          `json:"customerName" validate:"required,notblank,max=255"`
	Amount       decimal.Decimal `json:"amount" validate:"money"`
}

type PaymentRequest struct {
	CreditID uuid.UUID           `json:"-" validate:"uuid_required"`
	Amount   decimal.Decimal     `json:"amount" validate:"money"`
	Method   model.PaymentMethod `json:"method" validate:"required,oneof=cash transfer pos"`
	Remarks  string              `json:"remarks" validate:"max=500"`
}

// Reconciliation issue kinds
const (
	IssueBalanceMismatch = "balance_mismatch" // cached totalOwed disagrees with the entries
	IssueSaleDivergence  = "sale_divergence"  // credit sales and sale-linked debits differ
	IssueMissingLedger   = "missing_ledger"   // credit sales exist but no ledger record does
)

type ReconcileIssue struct {
	Kind         string          `json:"kind"`
	CreditID     *uuid.UUID      `json:"creditId,omitempty"`
	CustomerName string          `json:"customerName"`
	Recorded     decimal.Decimal `json:"recorded"`
	Expected     decimal.Decimal `json:"expected"`
}

type ReconcileReport struct {
	CheckedAt time.Time        `json:"checkedAt"`
	Checked   int              `json:"checked"`
	Issues    []ReconcileIssue `json:"issues"`
}

func (r *ReconcileReport) OK() bool {
	return len(r.Issues) == 0
}

type ledgerService struct {
	credits  repository.CreditRepository
	sales    repository.SaleRepository
	retry    database.RetryOptions
	activity ActivityLogger
	events   EventPublisher
	log      zerolog.Logger
	now      func() time.Time
}

func NewLedgerService(
	credits repository.CreditRepository,
	sales repository.SaleRepository,
	retry database.RetryOptions,
	activity ActivityLogger,
	events EventPublisher,
	log zerolog.Logger,
) LedgerService {
	return &ledgerService{
		credits:  credits,
		sales:    sales,
		retry:    retry,
		activity: activity,
		events:   events,
		log:      log,
		now:      utcNow,
	}
}

func utcNow() time.Time {
	return time.Now().UTC()
}

// Lookup finds the customer's active ledger. It returns nil, nil when there
// is none. More than one active record for a name should never exist; if it
// does, the oldest is used and the anomaly is logged.
func (s *ledgerService) Lookup(ctx context.Context, customerName string) (*model.Credit, error) {
	name := strings.TrimSpace(customerName)
	if name == "" {
		return nil, invalid("customer name is required")
	}

	matches, err := s.credits.FindActiveByCustomer(ctx, name)
	if err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return &matches[0], nil
	default:
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.ID.String()
		}
		s.log.Warn().
			Str("customer", name).
			Strs("credit_ids", ids).
			Msg("data integrity: multiple active ledger records for one customer")
		return &matches[0], nil
	}
}

// RecordCreditSale debits a customer's ledger, creating it on first use.
func (s *ledgerService) RecordCreditSale(ctx context.Context, actor model.Actor, req *CreditSaleRequest) (*model.Credit, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}
	if err := policy.Check(actor.Role, policy.CreditCharge); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.CustomerName)

	var credit *model.Credit
	err := database.WithRetry(ctx, s.retry, func() error {
		var err error
		credit, err = applyCreditSale(ctx, s.credits, actor, name, req.Amount, nil, s.now())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("record credit sale for %q: %w", name, err)
	}

	s.activity.Record(actor, model.ActionCreditCharged,
		fmt.Sprintf("Charged %s to %s (owes %s)", req.Amount.StringFixed(2), name, credit.TotalOwed.StringFixed(2)))
	s.publishCredit(actor, "credit_charged", credit,
		fmt.Sprintf("%s charged %s to %s", actor.Label(), req.Amount.StringFixed(2), name))

	return credit, nil
}

// applyCreditSale is one attempt at appending a debit. Callers retry it as a
// whole: it re-reads the record every time and fails with a retryable error
// when another writer got there first.
func applyCreditSale(
	ctx context.Context,
	credits repository.CreditRepository,
	actor model.Actor,
	customerName string,
	amount decimal.Decimal,
	saleID *uuid.UUID,
	now time.Time,
) (*model.Credit, error) {
	entry := model.CreditTransaction{
		Amount:     amount,
		Date:       now,
		RecordedBy: actor.ID(),
		Type:       model.EntrySale,
		SaleID:     saleID,
	}

	// Keyed on name alone: a paid-off customer's record is reused and
	// reactivated rather than duplicated.
	existing, err := credits.FindByCustomer(ctx, customerName)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		entry.Seq = 1
		credit := &model.Credit{
			CustomerName: customerName,
			TotalOwed:    amount,
			Transactions: []model.CreditTransaction{entry},
			Payments:     []model.CreditPayment{},
			LastUpdated:  now,
			IsActive:     true,
			Version:      1,
		}
		// A concurrent first sale loses on the unique customer_name index
		// and comes back through the update branch on retry.
		if err := credits.Create(ctx, credit); err != nil {
			return nil, err
		}
		return credit, nil
	}
	if err != nil {
		return nil, err
	}

	expected := existing.Version
	entry.Seq = expected + 1
	existing.Transactions = append(existing.Transactions, entry)
	existing.TotalOwed = existing.TotalOwed.Add(amount)
	if existing.TotalOwed.GreaterThan(validator.MaxMoney) {
		return nil, invalid("balance for %q would exceed %s", customerName, validator.MaxMoney)
	}
	existing.IsActive = existing.TotalOwed.IsPositive()
	existing.LastUpdated = now

	if err := credits.UpdateIfVersion(ctx, existing, expected); err != nil {
		return nil, err
	}
	return existing, nil
}

// RecordPayment credits a ledger by id. Paying more than is owed clears the
// balance and deactivates the record; the excess is not carried forward.
func (s *ledgerService) RecordPayment(ctx context.Context, actor model.Actor, req *PaymentRequest) (*model.Credit, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}
	if err := policy.Check(actor.Role, policy.CreditPayment); err != nil {
		return nil, err
	}

	remarks := strings.TrimSpace(req.Remarks)
	var credit *model.Credit
	var excess decimal.Decimal

	err := database.WithRetry(ctx, s.retry, func() error {
		current, err := s.credits.FindByID(ctx, req.CreditID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCreditNotFound
		}
		if err != nil {
			return err
		}

		now := s.now()
		expected := current.Version
		newOwed := decimal.Max(decimal.Zero, current.TotalOwed.Sub(req.Amount))
		excess = decimal.Max(decimal.Zero, req.Amount.Sub(current.TotalOwed))

		current.Payments = append(current.Payments, model.CreditPayment{
			Amount:     req.Amount,
			Method:     req.Method,
			Date:       now,
			RecordedBy: actor.ID(),
			Remarks:    remarks,
			Seq:        expected + 1,
		})
		current.TotalOwed = newOwed
		current.IsActive = newOwed.IsPositive()
		current.LastUpdated = now

		if err := s.credits.UpdateIfVersion(ctx, current, expected); err != nil {
			return err
		}
		credit = current
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record payment on %s: %w", req.CreditID, err)
	}

	if excess.IsPositive() {
		s.log.Info().
			Str("credit_id", credit.ID.String()).
			Str("customer", credit.CustomerName).
			Str("excess", excess.StringFixed(2)).
			Msg("overpayment accepted, excess discarded")
	}

	s.activity.Record(actor, model.ActionPaymentRecorded,
		fmt.Sprintf("Recorded %s payment of %s from %s", req.Method, req.Amount.StringFixed(2), credit.CustomerName))
	s.publishCredit(actor, "payment_recorded", credit,
		fmt.Sprintf("%s recorded a payment of %s from %s", actor.Label(), req.Amount.StringFixed(2), credit.CustomerName))

	return credit, nil
}

func (s *ledgerService) GetCredit(ctx context.Context, id uuid.UUID) (*model.Credit, error) {
	credit, err := s.credits.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCreditNotFound
	}
	return credit, err
}

func (s *ledgerService) ListCredits(ctx context.Context, filter repository.CreditFilter) ([]model.CreditSummary, error) {
	credits, err := s.credits.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	summaries := make([]model.CreditSummary, len(credits))
	for i := range credits {
		summaries[i] = credits[i].ToSummary()
	}
	return summaries, nil
}

// Reconcile replays every ledger and compares it with the sales table.
func (s *ledgerService) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	saleTotals, err := s.sales.CreditTotalsByCustomer(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credit sale totals: %w", err)
	}

	report := &ReconcileReport{CheckedAt: s.now(), Issues: []ReconcileIssue{}}
	seen := make(map[string]bool, len(saleTotals))

	err = s.credits.ForEach(ctx, 100, func(c *model.Credit) error {
		report.Checked++
		seen[c.CustomerName] = true
		id := c.ID

		if !c.Reconciled() {
			report.Issues = append(report.Issues, ReconcileIssue{
				Kind:         IssueBalanceMismatch,
				CreditID:     &id,
				CustomerName: c.CustomerName,
				Recorded:     c.TotalOwed,
				Expected:     c.ExpectedOwed(),
			})
		}

		linked := decimal.Zero
		for _, t := range c.Transactions {
			if t.SaleID != nil {
				linked = linked.Add(t.Amount)
			}
		}
		fromSales := saleTotals[c.CustomerName]
		if !linked.Equal(fromSales) {
			report.Issues = append(report.Issues, ReconcileIssue{
				Kind:         IssueSaleDivergence,
				CreditID:     &id,
				CustomerName: c.CustomerName,
				Recorded:     linked,
				Expected:     fromSales,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan ledgers: %w", err)
	}

	missing := make([]string, 0, len(saleTotals))
	for name := range saleTotals {
		if !seen[name] {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	for _, name := range missing {
		report.Issues = append(report.Issues, ReconcileIssue{
			Kind:         IssueMissingLedger,
			CustomerName: name,
			Recorded:     decimal.Zero,
			Expected:     saleTotals[name],
		})
	}

	for _, issue := range report.Issues {
		s.log.Warn().
			Str("kind", issue.Kind).
			Str("customer", issue.CustomerName).
			Str("recorded", issue.Recorded.StringFixed(2)).
			Str("expected", issue.Expected.StringFixed(2)).
			Msg("ledger reconciliation divergence")
	}
	return report, nil
}

func (s *ledgerService) publishCredit(actor model.Actor, action string, credit *model.Credit, message string) {
	s.events.Publish(ws.Event{
		Type:    "credit_update",
		Action:  action,
		Data:    credit.ToSummary(),
		User:    eventUser(actor),
		Message: message,
	})
}
