package repository

import (
	"context"
	"time"

	"go-pos-ledger/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MethodTotal untuk breakdown penjualan per metode pembayaran
type MethodTotal struct {
	Method model.PaymentMethod `json:"method"`
	Count  int64               `json:"count"`
	Total  decimal.Decimal     `json:"total"`
}

type DashboardRepository interface {
	SalesByMethod(ctx context.Context, start, end time.Time) ([]MethodTotal, error)
}

type dashboardRepo struct {
	db *gorm.DB
}

func NewDashboardRepo(db *gorm.DB) DashboardRepository {
	return &dashboardRepo{db}
}

func (r *dashboardRepo) SalesByMethod(ctx context.Context, start, end time.Time) ([]MethodTotal, error) {
	var results []MethodTotal

	// Aggregate sales per payment method for the window
	rows, err := r.db.WithContext(ctx).Model(&model.Sale{}).
		Select(`
			payment_method,
			COUNT(*) as sales,
			COALESCE(SUM(total_amount), 0) as total
		`).
		Where("sale_date >= ? AND sale_date < ?", start.UTC(), end.UTC()).
		Group("payment_method").
		Order("payment_method ASC").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var data MethodTotal
		if err := rows.Scan(&data.Method, &data.Count, &data.Total); err != nil {
			return nil, err
		}
		data.Total = roundMoney(data.Total)
		results = append(results, data)
	}

	return results, rows.Err()
}
