package repository

import (
	"context"

	"go-pos-ledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ItemRepository interface {
	WithTx(tx *gorm.DB) ItemRepository
	Create(ctx context.Context, item *model.Item) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Item, error)
	FindByNameKey(ctx context.Context, nameKey string) (*model.Item, error)
	FindAll(ctx context.Context, includeRetired bool) ([]model.Item, error)
	Search(ctx context.Context, query string, limit int) ([]model.Item, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	CountActive(ctx context.Context) (int64, error)
}

type itemRepo struct {
	db *gorm.DB
}

func NewItemRepo(db *gorm.DB) ItemRepository {
	return &itemRepo{db}
}

func (r *itemRepo) WithTx(tx *gorm.DB) ItemRepository {
	return &itemRepo{tx}
}

func (r *itemRepo) Create(ctx context.Context, item *model.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *itemRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	var item model.Item
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByNameKey looks an item up by its case-insensitive name, retired or not
func (r *itemRepo) FindByNameKey(ctx context.Context, nameKey string) (*model.Item, error) {
	var item model.Item
	if err := r.db.WithContext(ctx).Where("name_key = ?", nameKey).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepo) FindAll(ctx context.Context, includeRetired bool) ([]model.Item, error) {
	var items []model.Item
	q := r.db.WithContext(ctx)
	if !includeRetired {
		q = q.Where("status = ?", model.ItemActive)
	}
	err := q.Order("name_key ASC").Find(&items).Error
	return items, err
}

// Search matches active items whose name contains query
func (r *itemRepo) Search(ctx context.Context, query string, limit int) ([]model.Item, error) {
	var items []model.Item
	err := r.db.WithContext(ctx).
		Where(`status = ? AND name_key LIKE ? ESCAPE '\'`, model.ItemActive, "%"+toLowerLike(query)+"%").
		Order("name_key ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// Update menerima map agar field bernilai nol tetap ditulis
func (r *itemRepo) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&model.Item{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *itemRepo) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Item{}).Where("status = ?", model.ItemActive).Count(&count).Error
	return count, err
}
