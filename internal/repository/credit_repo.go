package repository

import (
	"context"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/pkg/database"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreditFilter struct {
	ActiveOnly bool
	Customer   string // case-insensitive substring
}

type CreditRepository interface {
	WithTx(tx *gorm.DB) CreditRepository
	FindByID(ctx context.Context, id uuid.UUID) (*model.Credit, error)
	FindByCustomer(ctx context.Context, customerName string) (*model.Credit, error)
	FindActiveByCustomer(ctx context.Context, customerName string) ([]model.Credit, error)
	Create(ctx context.Context, credit *model.Credit) error
	UpdateIfVersion(ctx context.Context, credit *model.Credit, expectedVersion int64) error
	List(ctx context.Context, filter CreditFilter) ([]model.Credit, error)
	ForEach(ctx context.Context, batchSize int, fn func(*model.Credit) error) error
	Outstanding(ctx context.Context) (decimal.Decimal, int64, error)
}

type creditRepo struct {
	db *gorm.DB
}

func NewCreditRepo(db *gorm.DB) CreditRepository {
	return &creditRepo{db}
}

// WithTx binds the repository to a running transaction
func (r *creditRepo) WithTx(tx *gorm.DB) CreditRepository {
	return &creditRepo{tx}
}

func (r *creditRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Credit, error) {
	var credit model.Credit
	if err := r.db.WithContext(ctx).First(&credit, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &credit, nil
}

// FindByCustomer finds the ledger for a customer whether or not it is active.
// customer_name is unique, so there is at most one.
func (r *creditRepo) FindByCustomer(ctx context.Context, customerName string) (*model.Credit, error) {
	var credit model.Credit
	if err := r.db.WithContext(ctx).Where("customer_name = ?", customerName).First(&credit).Error; err != nil {
		return nil, err
	}
	return &credit, nil
}

// FindActiveByCustomer returns every active ledger for the name in a stable
// order: oldest first, then by id.
func (r *creditRepo) FindActiveByCustomer(ctx context.Context, customerName string) ([]model.Credit, error) {
	var credits []model.Credit
	err := r.db.WithContext(ctx).
		Where("customer_name = ? AND is_active = ?", customerName, true).
		Order("created_at ASC").Order("id ASC").
		Find(&credits).Error
	return credits, err
}

func (r *creditRepo) Create(ctx context.Context, credit *model.Credit) error {
	return r.db.WithContext(ctx).Create(credit).Error
}

// UpdateIfVersion writes the balance, entries and active flag only if the
// stored version still equals expectedVersion, then bumps the version.
func (r *creditRepo) UpdateIfVersion(ctx context.Context, credit *model.Credit, expectedVersion int64) error {
	next := expectedVersion + 1
	result := r.db.WithContext(ctx).Model(&model.Credit{}).
		Where("id = ? AND version = ?", credit.ID, expectedVersion).
		Updates(map[string]interface{}{
			"total_owed":   credit.TotalOwed,
			"transactions": credit.Transactions,
			"payments":     credit.Payments,
			"is_active":    credit.IsActive,
			"last_updated": credit.LastUpdated,
			"version":      next,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return database.ErrConcurrentModification
	}
	credit.Version = next
	return nil
}

func (r *creditRepo) List(ctx context.Context, filter CreditFilter) ([]model.Credit, error) {
	var credits []model.Credit
	q := r.db.WithContext(ctx).Model(&model.Credit{})
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if filter.Customer != "" {
		q = q.Where(`LOWER(customer_name) LIKE ? ESCAPE '\'`, "%"+toLowerLike(filter.Customer)+"%")
	}
	err := q.Order("last_updated DESC").Order("id ASC").Find(&credits).Error
	return credits, err
}

// ForEach walks every ledger record in batches
func (r *creditRepo) ForEach(ctx context.Context, batchSize int, fn func(*model.Credit) error) error {
	var batch []model.Credit
	result := r.db.WithContext(ctx).Order("id ASC").FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
		for i := range batch {
			if err := fn(&batch[i]); err != nil {
				return err
			}
		}
		return nil
	})
	return result.Error
}

// Outstanding sums the balance of active ledgers and counts the customers
// that still owe.
func (r *creditRepo) Outstanding(ctx context.Context) (decimal.Decimal, int64, error) {
	var total decimal.Decimal
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Credit{}).
		Select("COALESCE(SUM(total_owed), 0), COUNT(*)").
		Where("is_active = ? AND total_owed > 0", true).
		Row().Scan(&total, &count)
	if err != nil {
		return decimal.Zero, 0, err
	}
	return roundMoney(total), count, nil
}
