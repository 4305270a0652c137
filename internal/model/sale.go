package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentPOS      PaymentMethod = "pos"
	PaymentCredit   PaymentMethod = "credit"
)

// Sale is an immutable record of one transaction at the counter.
type Sale struct {
	BaseModel
	ItemID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"itemId"`
	ItemName      string          `gorm:"type:varchar(255);not null" json:"itemName"`
	Quantity      int             `gorm:"not null" json:"quantity"`
	UnitPrice     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"unitPrice"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"totalAmount"` // Snapshot unitPrice * quantity
	PaymentMethod PaymentMethod   `gorm:"type:varchar(20);not null;index" json:"paymentMethod"`
	CustomerName  string          `gorm:"type:varchar(255);index" json:"customerName"`
	Remarks       string          `gorm:"type:text" json:"remarks"`
	SaleDate      time.Time       `gorm:"not null;index" json:"saleDate"`
	RecordedBy    string          `gorm:"type:varchar(64);not null" json:"recordedBy"`
	IsPaid        bool            `gorm:"not null" json:"isPaid"`
	CreditID      *uuid.UUID      `gorm:"type:uuid;index" json:"creditId,omitempty"`
}

func (Sale) TableName() string {
	return "sales"
}

// NewSale builds a sale with its derived fields filled in: the total, the
// paid flag, and a customer name only for credit sales.
func NewSale(item *Item, quantity int, unitPrice decimal.Decimal, method PaymentMethod, customerName, remarks, recordedBy string, at time.Time) *Sale {
	sale := &Sale{
		ItemID:        item.ID,
		ItemName:      item.Name,
		Quantity:      quantity,
		UnitPrice:     unitPrice,
		TotalAmount:   unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
		PaymentMethod: method,
		Remarks:       remarks,
		SaleDate:      at,
		RecordedBy:    recordedBy,
		IsPaid:        method != PaymentCredit,
	}
	if method == PaymentCredit {
		sale.CustomerName = customerName
	}
	sale.ID = uuid.New()
	return sale
}
