// Package dbtest opens throwaway SQLite stores for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"wallet-ledger-go/internal/database"
	"wallet-ledger-go/internal/models"
)

// Config returns a database config pointing at a fresh file under t.TempDir
func Config(t testing.TB) models.DatabaseConfig {
	t.Helper()
	return models.DatabaseConfig{
		Path:            filepath.Join(t.TempDir(), "ledger.db"),
		MaxOpenConns:    4,
		MaxIdleConns:    4,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
		PingTimeout:     5 * time.Second,
		BusyTimeout:     5 * time.Second,
	}
}

// NewService opens a migrated store that is closed when the test ends
func NewService(t testing.TB) *database.Service {
	t.Helper()
	svc, err := database.NewService(context.Background(), Config(t))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}
