package ledger

import (
	"context"
	"fmt"

	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"go.uber.org/zap"
)

// ReversalKey is the idempotency key of the entry compensating entryId
func ReversalKey(entryId string) string {
	return entryId + "-reversal"
}

// ReverseEntry appends a compensating entry that cancels entryId. The original
// row is never modified. Reversing twice returns the first reversal.
func (m *Mutator) ReverseEntry(ctx context.Context, entryId, reason string) (*models.LedgerEntry, error) {
	if entryId == "" {
		return nil, store.NewValidationError("entry_id", "is required")
	}

	original, err := m.store.GetEntry(ctx, entryId)
	if err != nil {
		return nil, fmt.Errorf("failed to load entry to reverse: %w", err)
	}
	if original.EntryType == models.EntryTypeReversal {
		return nil, store.NewValidationError("entry_id", "a reversal cannot itself be reversed")
	}

	zap.L().Info("Reversing ledger entry",
		zap.String("entry_id", original.Id),
		zap.String("user_id", original.UserId),
		zap.String("currency_code", original.CurrencyCode),
		zap.String("delta", original.Delta.String()),
		zap.String("reason", reason))

	return m.AdjustBalance(ctx, original.UserId, original.CurrencyCode, original.Delta.Neg(), models.MutationContext{
		Reference:      original.Id,
		IdempotencyKey: ReversalKey(original.Id),
		EntryType:      models.EntryTypeReversal,
		Metadata: models.EntryMetadata{
			Source: "reversal",
			Attributes: map[string]string{
				"reason":        reason,
				"original_type": string(original.EntryType),
			},
		},
	})
}

// EntryByIdempotencyKey returns the entry applied under key, or an error
// wrapping store.ErrEntryNotFound when nothing was committed with it.
func (m *Mutator) EntryByIdempotencyKey(ctx context.Context, key string) (*models.LedgerEntry, error) {
	if key == "" {
		return nil, store.NewValidationError("idempotency_key", "is required")
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.StorageTimeout)
	defer cancel()
	return m.store.GetEntryByIdempotencyKey(ctx, key)
}
