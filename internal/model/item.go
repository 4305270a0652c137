package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ItemStatus string

const (
	ItemActive  ItemStatus = "active"
	ItemRetired ItemStatus = "retired"
)

// Item is a sellable product. Items are retired, never deleted, so old sales
// keep a valid reference.
type Item struct {
	BaseModel
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	NameKey       string          `gorm:"type:varchar(255);uniqueIndex;not null" json:"-"`
	CurrentPrice  decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"currentPrice"`
	Category      string          `gorm:"type:varchar(100)" json:"category"`
	Status        ItemStatus      `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedBy     string          `gorm:"type:varchar(64)" json:"createdBy"`
	LastUpdatedBy string          `gorm:"type:varchar(64)" json:"lastUpdatedBy"`
}

func (Item) TableName() string {
	return "items"
}

// ItemNameKey is the case-insensitive identity of an item name.
func ItemNameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (i *Item) IsActive() bool {
	return i.Status == ItemActive
}

// ItemResponse is the wire shape of an item
type ItemResponse struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
	Category      string          `json:"category"`
	Status        ItemStatus      `json:"status"`
	IsActive      bool            `json:"isActive"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	CreatedBy     string          `json:"createdBy"`
	LastUpdatedBy string          `json:"lastUpdatedBy"`
}

func (i *Item) ToResponse() ItemResponse {
	return ItemResponse{
		ID:            i.ID,
		Name:          i.Name,
		CurrentPrice:  i.CurrentPrice,
		Category:      i.Category,
		Status:        i.Status,
		IsActive:      i.IsActive(),
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
		CreatedBy:     i.CreatedBy,
		LastUpdatedBy: i.LastUpdatedBy,
	}
}
