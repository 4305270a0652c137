package repository

import (
	"go-pos-ledger/internal/model"

	"gorm.io/gorm"
)

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Role{},
		&model.User{},
		&model.Item{},
		&model.Sale{},
		&model.Credit{},
		&model.Activity{},
	)
}
