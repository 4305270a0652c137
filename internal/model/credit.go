package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	EntrySale    = "sale"
	EntryPayment = "payment"
)

// CreditTransaction is a debit appended to a ledger by a credit sale.
// Seq is the record version the entry was written at; it orders debits and
// payments against each other.
type CreditTransaction struct {
	Amount     decimal.Decimal `json:"amount"`
	Date       time.Time       `json:"date"`
	RecordedBy string          `json:"recordedBy"`
	Type       string          `json:"type"`
	Seq        int64           `json:"seq"`
	SaleID     *uuid.UUID      `json:"saleId,omitempty"`
}

// CreditPayment is money received against a ledger.
type CreditPayment struct {
	Amount     decimal.Decimal `json:"amount"`
	Method     PaymentMethod   `json:"method"`
	Date       time.Time       `json:"date"`
	RecordedBy string          `json:"recordedBy"`
	Remarks    string          `json:"remarks"`
	Seq        int64           `json:"seq"`
}

// Credit is the per-customer ledger record. Transactions and Payments are the
// source of truth; TotalOwed is a cached projection guarded by Version.
type Credit struct {
	BaseModel
	CustomerName string                                 `gorm:"type:varchar(255);uniqueIndex;not null" json:"customerName"`
	TotalOwed    decimal.Decimal                        `gorm:"type:numeric(14,2);not null" json:"totalOwed"`
	Transactions datatypes.JSONSlice[CreditTransaction] `json:"transactions"`
	Payments     datatypes.JSONSlice[CreditPayment]     `json:"payments"`
	LastUpdated  time.Time                              `gorm:"not null" json:"lastUpdated"`
	IsActive     bool                                   `gorm:"not null;index" json:"isActive"`
	Version      int64                                  `gorm:"not null" json:"version"`
}

func (Credit) TableName() string {
	return "credits"
}

func (c *Credit) TotalTransactions() decimal.Decimal {
	total := decimal.Zero
	for _, t := range c.Transactions {
		total = total.Add(t.Amount)
	}
	return total
}

func (c *Credit) TotalPayments() decimal.Decimal {
	total := decimal.Zero
	for _, p := range c.Payments {
		total = total.Add(p.Amount)
	}
	return total
}

// StatementLine is one replayed ledger entry with the balance after it.
type StatementLine struct {
	Seq        int64           `json:"seq"`
	Date       time.Time       `json:"date"`
	Kind       string          `json:"kind"`
	Amount     decimal.Decimal `json:"amount"`
	Applied    decimal.Decimal `json:"applied"` // part of a payment that reduced the debt
	Balance    decimal.Decimal `json:"balance"`
	Method     PaymentMethod   `json:"method,omitempty"`
	Remarks    string          `json:"remarks,omitempty"`
	RecordedBy string          `json:"recordedBy"`
}

// Statement replays every entry in write order. A payment larger than the
// running balance clears it and the excess is dropped, the same way the write
// path handles it.
func (c *Credit) Statement() []StatementLine {
	lines := make([]StatementLine, 0, len(c.Transactions)+len(c.Payments))
	for _, t := range c.Transactions {
		lines = append(lines, StatementLine{
			Seq:        t.Seq,
			Date:       t.Date,
			Kind:       EntrySale,
			Amount:     t.Amount,
			Applied:    t.Amount,
			RecordedBy: t.RecordedBy,
		})
	}
	for _, p := range c.Payments {
		lines = append(lines, StatementLine{
			Seq:        p.Seq,
			Date:       p.Date,
			Kind:       EntryPayment,
			Amount:     p.Amount,
			Method:     p.Method,
			Remarks:    p.Remarks,
			RecordedBy: p.RecordedBy,
		})
	}
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].Seq != lines[j].Seq {
			return lines[i].Seq < lines[j].Seq
		}
		return lines[i].Date.Before(lines[j].Date)
	})

	balance := decimal.Zero
	for i := range lines {
		if lines[i].Kind == EntrySale {
			balance = balance.Add(lines[i].Amount)
		} else {
			applied := decimal.Min(lines[i].Amount, balance)
			lines[i].Applied = applied
			balance = balance.Sub(applied)
		}
		lines[i].Balance = balance
	}
	return lines
}

// ExpectedOwed is the balance the entry sequences imply.
func (c *Credit) ExpectedOwed() decimal.Decimal {
	lines := c.Statement()
	if len(lines) == 0 {
		return decimal.Zero
	}
	return lines[len(lines)-1].Balance
}

// Reconciled reports whether the cached balance and active flag agree with
// the entries.
func (c *Credit) Reconciled() bool {
	expected := c.ExpectedOwed()
	return c.TotalOwed.Equal(expected) && c.IsActive == expected.IsPositive()
}

// CreditSummary is the list view of a ledger record
type CreditSummary struct {
	ID                uuid.UUID       `json:"id"`
	CustomerName      string          `json:"customerName"`
	TotalOwed         decimal.Decimal `json:"totalOwed"`
	TotalTransactions decimal.Decimal `json:"totalTransactions"`
	TotalPayments     decimal.Decimal `json:"totalPayments"`
	TransactionCount  int             `json:"transactionCount"`
	PaymentCount      int             `json:"paymentCount"`
	LastUpdated       time.Time       `json:"lastUpdated"`
	IsActive          bool            `json:"isActive"`
}

func (c *Credit) ToSummary() CreditSummary {
	return CreditSummary{
		ID:                c.ID,
		CustomerName:      c.CustomerName,
		TotalOwed:         c.TotalOwed,
		TotalTransactions: c.TotalTransactions(),
		TotalPayments:     c.TotalPayments(),
		TransactionCount:  len(c.Transactions),
		PaymentCount:      len(c.Payments),
		LastUpdated:       c.LastUpdated,
		IsActive:          c.IsActive,
	}
}

// CreditResponse is the detail view: the record, its aggregates and the
// replayed statement.
type CreditResponse struct {
	CreditSummary
	Transactions []CreditTransaction `json:"transactions"`
	Payments     []CreditPayment     `json:"payments"`
	Statement    []StatementLine     `json:"statement"`
	Reconciled   bool                `json:"reconciled"`
}

func (c *Credit) ToResponse() CreditResponse {
	transactions := []CreditTransaction(c.Transactions)
	if transactions == nil {
		transactions = []CreditTransaction{}
	}
	payments := []CreditPayment(c.Payments)
	if payments == nil {
		payments = []CreditPayment{}
	}
	return CreditResponse{
		CreditSummary: c.ToSummary(),
		Transactions:  transactions,
		Payments:      payments,
		Statement:     c.Statement(),
		Reconciled:    c.Reconciled(),
	}
}
