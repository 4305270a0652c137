package repository

import (
	"context"
	"time"

	"go-pos-ledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SaleRepository interface {
	WithTx(tx *gorm.DB) SaleRepository
	Create(ctx context.Context, sale *model.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	FindBetween(ctx context.Context, start, end time.Time) ([]model.Sale, error)
	CreditTotalsByCustomer(ctx context.Context) (map[string]decimal.Decimal, error)
}

type saleRepo struct {
	db *gorm.DB
}

func NewSaleRepo(db *gorm.DB) SaleRepository {
	return &saleRepo{db}
}

func (r *saleRepo) WithTx(tx *gorm.DB) SaleRepository {
	return &saleRepo{tx}
}

func (r *saleRepo) Create(ctx context.Context, sale *model.Sale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	if err := r.db.WithContext(ctx).First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

// FindBetween returns sales in [start, end), newest first
func (r *saleRepo) FindBetween(ctx context.Context, start, end time.Time) ([]model.Sale, error) {
	var sales []model.Sale
	err := r.db.WithContext(ctx).
		Where("sale_date >= ? AND sale_date < ?", start.UTC(), end.UTC()).
		Order("sale_date DESC").Order("id ASC").
		Find(&sales).Error
	return sales, err
}

// CreditTotalsByCustomer sums credit sales per customer, for reconciliation
// against the ledger debits.
func (r *saleRepo) CreditTotalsByCustomer(ctx context.Context) (map[string]decimal.Decimal, error) {
	rows, err := r.db.WithContext(ctx).Model(&model.Sale{}).
		Select("customer_name, COALESCE(SUM(total_amount), 0)").
		Where("payment_method = ?", model.PaymentCredit).
		Group("customer_name").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[string]decimal.Decimal)
	for rows.Next() {
		var name string
		var total decimal.Decimal
		if err := rows.Scan(&name, &total); err != nil {
			return nil, err
		}
		totals[name] = roundMoney(total)
	}
	return totals, rows.Err()
}
