package main

import (
	"context"

	"go-pos-ledger/internal/logger"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/internal/seed"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the schema and seed roles and the admin user",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("migrate")

	db, err := openDB()
	if err != nil {
		return err
	}

	err = seed.Defaults(context.Background(),
		repository.NewRoleRepo(db),
		repository.NewUserRepo(db),
		seed.Admin{
			Email:    loaded.Seed.AdminEmail,
			Password: loaded.Seed.AdminPassword,
			Name:     loaded.Seed.AdminName,
		},
		log,
	)
	if err != nil {
		return err
	}

	log.Info().Str("driver", loaded.Database.Driver).Msg("schema is up to date")
	return nil
}
