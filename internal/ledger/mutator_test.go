package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"wallet-ledger-go/internal/database/dbtest"
	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testConfig = models.LedgerConfig{
	MaxAttempts:    3,
	InitialBackoff: time.Millisecond,
	MaxBackoff:     5 * time.Millisecond,
	StorageTimeout: 5 * time.Second,
}

// flakyStore fails the first ApplyMutation calls with scripted errors
type flakyStore struct {
	store.LedgerStore

	mu       sync.Mutex
	failures []error
	calls    int
}

func (f *flakyStore) ApplyMutation(ctx context.Context, params store.MutationParams) (*models.LedgerEntry, bool, error) {
	f.mu.Lock()
	f.calls++
	var err error
	if len(f.failures) > 0 {
		err = f.failures[0]
		f.failures = f.failures[1:]
	}
	f.mu.Unlock()

	if err != nil {
		return nil, false, err
	}
	return f.LedgerStore.ApplyMutation(ctx, params)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAdjustBalanceCreditAndDebit(t *testing.T) {
	ctx := context.Background()
	db := dbtest.NewService(t)
	m := NewMutator(db, testConfig)

	credit, err := m.AdjustBalance(ctx, "user-1", "usd", dec("100.00"), models.MutationContext{Reference: "dep-1", IdempotencyKey: "k-1"})
	require.NoError(t, err)
	assert.Equal(t, models.EntryTypeDeposit, credit.EntryType)
	assert.Equal(t, "USD", credit.CurrencyCode)
	assert.True(t, credit.BalanceBefore.IsZero())
	assert.True(t, credit.ResultingBalance.Equal(dec("100")))

	debit, err := m.AdjustBalance(ctx, "user-1", "USD", dec("-30.25"), models.MutationContext{Reference: "wd-1", IdempotencyKey: "k-2"})
	require.NoError(t, err)
	assert.Equal(t, models.EntryTypeWithdrawal, debit.EntryType)
	assert.True(t, debit.BalanceBefore.Equal(dec("100")))
	assert.True(t, debit.ResultingBalance.Equal(dec("69.75")))

	balance, err := db.GetBalance(ctx, "user-1", "USD")
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("69.75")), "balance %s", balance)
}

func TestAdjustBalanceInsufficientFundsLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	db := dbtest.NewService(t)
	m := NewMutator(db, testConfig)

	_, err := m.AdjustBalance(ctx, "user-1", "USD", dec("10"), models.MutationContext{IdempotencyKey: "seed"})
	require.NoError(t, err)

	_, err = m.AdjustBalance(ctx, "user-1", "USD", dec("-20"), models.MutationContext{IdempotencyKey: "too-much"})
	require.ErrorIs(t, err, store.ErrInsufficientFunds)
	assert.False(t, store.IsRetryable(err))

	balance, err := db.GetBalance(ctx, "user-1", "USD")
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("10")))

	history, err := db.GetEntryHistory(ctx, "user-1", "USD", 10, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = db.GetEntryByIdempotencyKey(ctx, "too-much")
	assert.ErrorIs(t, err, store.ErrEntryNotFound)
}

func TestAdjustBalanceValidation(t *testing.T) {
	ctx := context.Background()
	m := NewMutator(dbtest.NewService(t), testConfig)

	tests := []struct {
		name     string
		userId   string
		currency string
		delta    string
		mc       models.MutationContext
		field    string
	}{
		{"missing user", "", "USD", "1", models.MutationContext{}, "user_id"},
		{"bad currency", "user-1", "us dollars", "1", models.MutationContext{}, "currency_code"},
		{"zero delta", "user-1", "USD", "0", models.MutationContext{}, "delta"},
		{"too precise", "user-1", "USD", "0.001", models.MutationContext{}, "delta"},
		{"unknown type", "user-1", "USD", "1", models.MutationContext{EntryType: "gift"}, "entry_type"},
		{"unsupported metadata version", "user-1", "USD", "1", models.MutationContext{Metadata: models.EntryMetadata{SchemaVersion: 2}}, "metadata"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.AdjustBalance(ctx, tt.userId, tt.currency, dec(tt.delta), tt.mc)
			require.ErrorIs(t, err, store.ErrValidation)

			var ve *store.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestAdjustBalanceAcceptsCryptoPrecision(t *testing.T) {
	m := NewMutator(dbtest.NewService(t), testConfig)
	entry, err := m.AdjustBalance(context.Background(), "user-1", "BTC", dec("0.00012345"), models.MutationContext{})
	require.NoError(t, err)
	assert.True(t, entry.ResultingBalance.Equal(dec("0.00012345")))
	assert.NotEmpty(t, entry.IdempotencyKey)
}

func TestAdjustBalanceIdempotentRetry(t *testing.T) {
	ctx := context.Background()
	db := dbtest.NewService(t)
	m := NewMutator(db, testConfig)

	mc := models.MutationContext{Reference: "trade-42", IdempotencyKey: "trade-42-settle", EntryType: models.EntryTypeTrade}
	first, err := m.AdjustBalance(ctx, "user-1", "USD", dec("25"), mc)
	require.NoError(t, err)

	second, err := m.AdjustBalance(ctx, "user-1", "USD", dec("25"), mc)
	require.NoError(t, err)
	assert.Equal(t, first.Id, second.Id)

	balance, err := db.GetBalance(ctx, "user-1", "USD")
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("25")))

	_, err = m.AdjustBalance(ctx, "user-1", "USD", dec("99"), mc)
	assert.ErrorIs(t, err, store.ErrDuplicateTransaction)
	assert.ErrorIs(t, err, store.ErrValidation)
}

func TestAdjustBalanceRetriesTransientFailures(t *testing.T) {
	ctx := context.Background()
	db := dbtest.NewService(t)
	flaky := &flakyStore{
		LedgerStore: db,
		failures: []error{
			fmt.Errorf("update: %w", store.ErrConcurrentModification),
			fmt.Errorf("commit: %w", store.ErrStorageFailure),
		},
	}
	m := NewMutator(flaky, testConfig)

	entry, err := m.AdjustBalance(ctx, "user-1", "USD", dec("5"), models.MutationContext{IdempotencyKey: "retry-me"})
	require.NoError(t, err)
	assert.Equal(t, 3, flaky.calls)
	assert.True(t, entry.ResultingBalance.Equal(dec("5")))
}

func TestAdjustBalanceSurfacesExhaustedRetries(t *testing.T) {
	ctx := context.Background()
	db := dbtest.NewService(t)
	flaky := &flakyStore{LedgerStore: db}
	for i := 0; i < 5; i++ {
		flaky.failures = append(flaky.failures, fmt.Errorf("disk: %w", store.ErrStorageFailure))
	}
	m := NewMutator(flaky, testConfig)

	_, err := m.AdjustBalance(ctx, "user-1", "USD", dec("5"), models.MutationContext{IdempotencyKey: "doomed"})
	require.ErrorIs(t, err, store.ErrStorageFailure)
	assert.Equal(t, testConfig.MaxAttempts, flaky.calls)

	balance, err := db.GetBalance(ctx, "user-1", "USD")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestAdjustBalanceDoesNotRetryTerminalErrors(t *testing.T) {
	flaky := &flakyStore{LedgerStore: dbtest.NewService(t)}
	m := NewMutator(flaky, testConfig)

	_, err := m.AdjustBalance(context.Background(), "user-1", "USD", dec("-1"), models.MutationContext{})
	require.ErrorIs(t, err, store.ErrInsufficientFunds)
	assert.Equal(t, 1, flaky.calls)
}

func TestConcurrentAdjustmentsConserveBalance(t *testing.T) {
	ctx := context.Background()
	db := dbtest.NewService(t)

	// Two mutators with separate lock tables contend through the store only
	mutators := []*Mutator{
		NewMutator(db, models.LedgerConfig{MaxAttempts: 10, InitialBackoff: time.Millisecond, MaxBackoff: 10 * time.Millisecond, StorageTimeout: 10 * time.Second}),
		NewMutator(db, models.LedgerConfig{MaxAttempts: 10, InitialBackoff: time.Millisecond, MaxBackoff: 10 * time.Millisecond, StorageTimeout: 10 * time.Second}),
	}

	_, err := mutators[0].AdjustBalance(ctx, "user-1", "USD", dec("100"), models.MutationContext{IdempotencyKey: "seed"})
	require.NoError(t, err)

	const workers = 40
	var wg sync.WaitGroup
	var mu sync.Mutex
	applied := decimal.Zero
	successes := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			delta := dec("7.5")
			if i%2 == 1 {
				delta = dec("-12")
			}
			_, err := mutators[i%2].AdjustBalance(ctx, "user-1", "USD", delta, models.MutationContext{
				IdempotencyKey: fmt.Sprintf("op-%d", i),
			})
			if err != nil {
				assert.ErrorIs(t, err, store.ErrInsufficientFunds)
				return
			}
			mu.Lock()
			applied = applied.Add(delta)
			successes++
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	balance, err := db.GetBalance(ctx, "user-1", "USD")
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("100").Add(applied)), "balance %s, applied %s", balance, applied)
	assert.False(t, balance.IsNegative())

	history, err := db.GetEntryHistory(ctx, "user-1", "USD", 1000, 0)
	require.NoError(t, err)
	assert.Len(t, history, successes+1)

	// Oldest first, every entry continues the previous one
	for i := len(history) - 2; i >= 0; i-- {
		prev, cur := history[i+1], history[i]
		assert.True(t, cur.BalanceBefore.Equal(prev.ResultingBalance))
		assert.True(t, cur.ResultingBalance.Equal(prev.ResultingBalance.Add(cur.Delta)))
	}

	require.NoError(t, db.ReconcileBalance(ctx, "user-1", "USD"))
}

func TestAdjustBalanceStampsAuditActor(t *testing.T) {
	db := dbtest.NewService(t)
	m := NewMutator(db, testConfig)

	ctx := models.WithAuditActor(context.Background(), models.AuditActor{Actor: "ops@example.com", Source: "cli"})
	entry, err := m.AdjustBalance(ctx, "user-1", "USD", dec("1"), models.MutationContext{})
	require.NoError(t, err)

	events, err := db.FetchDueEvents(context.Background(), time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, entry.Id, events[0].EntryId)
	assert.Contains(t, string(events[0].Payload), `"actor":"ops@example.com"`)
}
