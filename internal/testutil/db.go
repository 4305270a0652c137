// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"testing"

	"go-pos-ledger/internal/repository"
	"go-pos-ledger/pkg/database"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewTestDB returns a migrated sqlite database in a temp dir, closed when
// the test ends.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return OpenTestDB(t, SQLiteDSN(t.TempDir()))
}

// SQLiteDSN names a ledger database file inside dir, with the pragmas the
// tests rely on.
func SQLiteDSN(dir string) string {
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on",
		filepath.Join(dir, "ledger.db"))
}

// OpenTestDB connects to dsn and migrates it. Tests that hand the same dsn
// to another process-level entry point (a CLI command) use this directly.
func OpenTestDB(t *testing.T, dsn string) *gorm.DB {
	t.Helper()

	db, err := database.Connect(database.Options{
		Driver:   database.DriverSQLite,
		URL:      dsn,
		LogLevel: "silent",
	}, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, repository.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
