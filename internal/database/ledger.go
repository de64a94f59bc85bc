package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AuditEventLedgerEntry is the outbox event type for a new ledger entry
const AuditEventLedgerEntry = "ledger.entry.created"

// ApplyMutation atomically updates the balance, appends the ledger entry and
// enqueues the audit event in one transaction.
func (s *Service) ApplyMutation(ctx context.Context, params store.MutationParams) (*models.LedgerEntry, bool, error) {
	zap.L().Debug("Applying mutation",
		zap.String("user_id", params.UserId),
		zap.String("currency_code", params.CurrencyCode),
		zap.String("type", string(params.EntryType)),
		zap.String("delta", params.Delta.String()),
		zap.String("idempotency_key", params.IdempotencyKey))

	metadata, err := params.Metadata.Encode()
	if err != nil {
		return nil, false, store.NewValidationError("metadata", err.Error())
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, storageError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Replay: the key was already applied, hand back the original entry
	existing, err := scanEntry(tx.QueryRowContext(ctx, queryGetEntryByIdempotencyKey, params.IdempotencyKey))
	if err == nil {
		zap.L().Info("Idempotency key already applied, returning existing entry",
			zap.String("idempotency_key", params.IdempotencyKey),
			zap.String("entry_id", existing.Id))
		return existing, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, storageError("check idempotency key", err)
	}

	now := time.Now().UTC()

	var accountId string
	var currentBalance decimal.Decimal
	var version int64
	err = tx.QueryRowContext(ctx, queryGetWalletBalance, params.UserId, params.CurrencyCode).
		Scan(&accountId, &currentBalance, &version)
	if errors.Is(err, sql.ErrNoRows) {
		// First mutation for this pair, create the row lazily
		accountId = uuid.New().String()
		currentBalance = decimal.Zero
		version = 1

		_, err = tx.ExecContext(ctx, queryInsertWalletBalance, accountId, params.UserId, params.CurrencyCode, "0", 1, dbTime(now))
		if err != nil {
			return nil, false, storageError("create wallet balance", err)
		}
	} else if err != nil {
		return nil, false, storageError("get current balance", err)
	}

	newBalance := currentBalance.Add(params.Delta)
	if newBalance.IsNegative() {
		zap.L().Info("Rejecting mutation for insufficient funds",
			zap.String("user_id", params.UserId),
			zap.String("currency_code", params.CurrencyCode),
			zap.String("balance", currentBalance.String()),
			zap.String("delta", params.Delta.String()))
		return nil, false, fmt.Errorf("%w: balance %s %s cannot absorb %s",
			store.ErrInsufficientFunds, currentBalance.String(), params.CurrencyCode, params.Delta.String())
	}

	md := params.Metadata
	if md.SchemaVersion == 0 {
		md.SchemaVersion = models.MetadataSchemaVersion
	}

	entry := &models.LedgerEntry{
		Id:               uuid.New().String(),
		UserId:           params.UserId,
		CurrencyCode:     params.CurrencyCode,
		EntryType:        params.EntryType,
		Delta:            params.Delta,
		BalanceBefore:    currentBalance,
		ResultingBalance: newBalance,
		Status:           models.EntryStatusCompleted,
		IdempotencyKey:   params.IdempotencyKey,
		Reference:        params.Reference,
		Metadata:         md,
		CreatedAt:        now,
	}

	_, err = tx.ExecContext(ctx, queryInsertEntry,
		entry.Id, entry.UserId, entry.CurrencyCode, string(entry.EntryType),
		entry.Delta.String(), entry.BalanceBefore.String(), entry.ResultingBalance.String(),
		string(entry.Status), entry.IdempotencyKey, entry.Reference, string(metadata), dbTime(now))
	if err != nil {
		return nil, false, storageError("insert ledger entry", err)
	}

	// Optimistic lock: the row must still carry the version we read
	result, err := tx.ExecContext(ctx, queryUpdateWalletBalance,
		newBalance.String(), entry.Id, dbTime(now), params.UserId, params.CurrencyCode, version)
	if err != nil {
		return nil, false, storageError("update balance", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, false, storageError("check rows affected", err)
	}
	if rowsAffected == 0 {
		return nil, false, fmt.Errorf("balance update failed - %w", store.ErrConcurrentModification)
	}

	if err := enqueueAuditEvent(ctx, tx, entry, params.Actor, now); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, storageError("commit mutation", err)
	}

	zap.L().Info("Mutation applied successfully",
		zap.String("entry_id", entry.Id),
		zap.String("user_id", entry.UserId),
		zap.String("currency_code", entry.CurrencyCode),
		zap.String("type", string(entry.EntryType)),
		zap.String("old_balance", currentBalance.String()),
		zap.String("new_balance", newBalance.String()))

	return entry, false, nil
}

func enqueueAuditEvent(ctx context.Context, tx *sql.Tx, entry *models.LedgerEntry, actor models.AuditActor, now time.Time) error {
	payload, err := json.Marshal(models.LedgerAuditRecord{
		SchemaVersion:    1,
		EntryId:          entry.Id,
		UserId:           entry.UserId,
		CurrencyCode:     entry.CurrencyCode,
		EntryType:        entry.EntryType,
		Delta:            entry.Delta,
		ResultingBalance: entry.ResultingBalance,
		Reference:        entry.Reference,
		IdempotencyKey:   entry.IdempotencyKey,
		Actor:            actor,
		Description: fmt.Sprintf("%s of %s %s for user %s",
			entry.EntryType, entry.Delta.String(), entry.CurrencyCode, entry.UserId),
		OccurredAt: entry.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode audit event: %w", err)
	}

	_, err = tx.ExecContext(ctx, queryInsertAuditEvent,
		uuid.New().String(), entry.Id, AuditEventLedgerEntry, string(payload), dbTime(now), dbTime(now))
	if err != nil {
		return storageError("enqueue audit event", err)
	}
	return nil
}

// GetEntry returns a ledger entry by id
func (s *Service) GetEntry(ctx context.Context, entryId string) (*models.LedgerEntry, error) {
	entry, err := scanEntry(s.db.QueryRowContext(ctx, queryGetEntryById, entryId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrEntryNotFound, entryId)
	}
	if err != nil {
		return nil, storageError("get ledger entry", err)
	}
	return entry, nil
}

// GetEntryByIdempotencyKey returns the entry applied under key
func (s *Service) GetEntryByIdempotencyKey(ctx context.Context, key string) (*models.LedgerEntry, error) {
	entry, err := scanEntry(s.db.QueryRowContext(ctx, queryGetEntryByIdempotencyKey, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: idempotency key %s", store.ErrEntryNotFound, key)
	}
	if err != nil {
		return nil, storageError("get ledger entry by key", err)
	}
	return entry, nil
}

// GetEntryHistory returns paginated ledger history for a user, newest first
func (s *Service) GetEntryHistory(ctx context.Context, userId, currencyCode string, limit, offset int) ([]models.LedgerEntry, error) {
	zap.L().Debug("Getting entry history",
		zap.String("user_id", userId),
		zap.String("currency_code", currencyCode),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	rows, err := s.db.QueryContext(ctx, queryGetEntryHistory, userId, currencyCode, limit, offset)
	if err != nil {
		return nil, storageError("get entry history", err)
	}
	defer closeRows(rows)

	var entries []models.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during entry row iteration", zap.Error(err))
		return nil, storageError("iterate entry rows", err)
	}

	return entries, nil
}

func scanEntry(row rowScanner) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	var metadata string
	err := row.Scan(&entry.Id, &entry.UserId, &entry.CurrencyCode, &entry.EntryType,
		&entry.Delta, &entry.BalanceBefore, &entry.ResultingBalance,
		&entry.Status, &entry.IdempotencyKey, &entry.Reference, &metadata, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}

	entry.Metadata, err = models.DecodeEntryMetadata([]byte(metadata))
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
