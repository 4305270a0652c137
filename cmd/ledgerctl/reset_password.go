package main

import (
	"context"
	"fmt"
	"strings"

	"go-pos-ledger/internal/logger"
	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/internal/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var resetPasswordCmd = &cobra.Command{
	Use:     "reset-password",
	Short:   "Set a user's password and sign out their sessions",
	Example: `  ledgerctl reset-password --email admin@example.com --password 'n3w-secret'`,
	RunE:    runResetPassword,
}

func init() {
	rootCmd.AddCommand(resetPasswordCmd)

	resetPasswordCmd.Flags().String("email", "", "email of the user to reset")
	resetPasswordCmd.Flags().String("password", "", "new password (at least 6 characters)")
	_ = resetPasswordCmd.MarkFlagRequired("email")
	_ = resetPasswordCmd.MarkFlagRequired("password")
}

func runResetPassword(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("reset-password")

	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	email = strings.ToLower(strings.TrimSpace(email))

	if len(password) < service.MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", service.MinPasswordLength)
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	users := repository.NewUserRepo(db)
	ctx := context.Background()

	user, err := users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("user %s not found: %w", email, err)
	}

	var hashed model.User
	if err := hashed.SetPassword(password); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := users.UpdatePassword(ctx, user.ID, hashed.Password); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	// Rotating the version invalidates every outstanding token
	if err := users.UpdateTokenVersion(ctx, user.ID, uuid.NewString()); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	log.Info().Str("email", email).Msg("password reset")
	return nil
}
