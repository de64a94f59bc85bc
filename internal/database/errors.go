package database

import (
	"errors"
	"fmt"

	"wallet-ledger-go/internal/store"

	"github.com/mattn/go-sqlite3"
)

// storageError maps a driver error onto the shared taxonomy. A uniqueness
// violation means another writer created the same row first, so it is a
// concurrency conflict and safe to retry. Everything else is a storage failure.
func storageError(op string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w: %w", op, store.ErrConcurrentModification, err)
	}
	return fmt.Errorf("%s: %w: %w", op, store.ErrStorageFailure, err)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
