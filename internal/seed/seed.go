// Package seed installs the rows a fresh database needs before anyone can
// log in: the fixed roles and a first administrator.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/repository"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type Admin struct {
	Email    string
	Password string
	Name     string
}

// Defaults seeds roles and, if no user has the admin email yet, the admin
// account. Running it again changes nothing.
func Defaults(ctx context.Context, roles repository.RoleRepository, users repository.UserRepository, admin Admin, log zerolog.Logger) error {
	if err := roles.SeedDefaults(ctx); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(admin.Email))
	if email == "" {
		return nil
	}

	_, err := users.FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("look up admin: %w", err)
	}

	role, err := roles.FindByCode(ctx, model.RoleAdmin)
	if err != nil {
		return fmt.Errorf("find admin role: %w", err)
	}

	user := &model.User{
		Email:       email,
		DisplayName: admin.Name,
		RoleID:      &role.ID,
		IsActive:    true,
	}
	if err := user.SetPassword(admin.Password); err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if err := users.Create(ctx, user); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	log.Warn().Str("email", email).Msg("default admin user created, change its password")
	return nil
}
