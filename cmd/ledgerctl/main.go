// Command ledgerctl runs maintenance tasks against the ledger database.
package main

import (
	"fmt"
	"os"

	"go-pos-ledger/internal/config"
	"go-pos-ledger/internal/logger"
	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/internal/ws"
	"go-pos-ledger/pkg/database"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var version = "1.0.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Maintenance tools for the POS credit ledger",
	Long: `ledgerctl works directly against the ledger database using the same
configuration as the API server (config file, .env and environment).`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		loaded = cfg
		return logger.Setup(logger.LogConfig{
			Level:  cfg.Log.Level,
			Format: "console",
			Output: "stderr",
		})
	},
}

var loaded *config.Config

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to an optional config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log := logger.WithComponent("cmd")
		log.Error().Err(err).Msg("command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openDB connects and migrates so every command sees the current schema.
func openDB() (*gorm.DB, error) {
	db, err := database.Connect(database.Options{
		Driver:          loaded.Database.Driver,
		URL:             loaded.Database.URL,
		MaxOpenConns:    loaded.Database.MaxOpenConns,
		MaxIdleConns:    loaded.Database.MaxIdleConns,
		ConnMaxLifetime: loaded.Database.ConnMaxLifetime,
		LogLevel:        loaded.Database.LogLevel,
	}, logger.WithComponent("database"))
	if err != nil {
		return nil, err
	}
	if err := repository.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func retryOptions() database.RetryOptions {
	return database.RetryOptions{
		MaxRetries:  loaded.Ledger.MaxRetries,
		BaseBackoff: loaded.Ledger.BaseBackoff,
		MaxBackoff:  loaded.Ledger.MaxBackoff,
	}
}

// Read-only commands never record activity and no terminal listens to a CLI
// process, so both sinks discard.
type discardEvents struct{}

func (discardEvents) Publish(ws.Event) {}

type discardActivity struct{}

func (discardActivity) Record(model.Actor, string, string) {}
