package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations and services.
var (
	ErrValidation             = errors.New("validation failed")
	ErrDuplicateTransaction   = errors.New("duplicate transaction")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrConcurrentUpdate       = errors.New("concurrent rewards summary update")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInsufficientBalance    = errors.New("insufficient rewards balance")
	ErrStorageFailure         = errors.New("storage failure")
	ErrAmountOutOfRange       = errors.New("amount out of range for commission rule")
	ErrEntryNotFound          = errors.New("ledger entry not found")
	ErrSummaryNotFound        = errors.New("rewards summary not found")
	ErrRuleNotFound           = errors.New("commission rule not found")
)

// ValidationError describes malformed input rejected before any mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation.Error(), e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsRetryable reports whether err is transient: a version conflict or a storage failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification) || errors.Is(err, ErrStorageFailure)
}

// MutationParams contains the parameters for applying one balance mutation
type MutationParams struct {
	UserId         string
	CurrencyCode   string
	Delta          decimal.Decimal
	EntryType      models.EntryType
	IdempotencyKey string
	Reference      string
	Metadata       models.EntryMetadata
	Actor          models.AuditActor
}

// LedgerStore persists balances and the append-only ledger.
type LedgerStore interface {
	// ApplyMutation atomically updates the balance row, appends the ledger entry
	// and enqueues its audit event. When an entry with the same idempotency key
	// already exists it is returned with replayed=true and nothing is written.
	ApplyMutation(ctx context.Context, params MutationParams) (entry *models.LedgerEntry, replayed bool, err error)
	GetEntry(ctx context.Context, entryId string) (*models.LedgerEntry, error)
	GetEntryByIdempotencyKey(ctx context.Context, key string) (*models.LedgerEntry, error)

	GetBalance(ctx context.Context, userId, currencyCode string) (decimal.Decimal, error)
	GetAllBalances(ctx context.Context, userId string) ([]models.WalletBalance, error)
	ListBalanceUsers(ctx context.Context) ([]string, error)
	GetEntryHistory(ctx context.Context, userId, currencyCode string, limit, offset int) ([]models.LedgerEntry, error)
	ReconcileBalance(ctx context.Context, userId, currencyCode string) error
}

// CommissionStore persists commission rules and charged commissions.
type CommissionStore interface {
	// FindActiveRules returns every active rule for the service type. An empty
	// result means no rule exists; an error means the lookup failed.
	FindActiveRules(ctx context.Context, serviceType string) ([]models.CommissionRule, error)
	UpsertRule(ctx context.Context, rule models.CommissionRule) (*models.CommissionRule, error)
	DisableRule(ctx context.Context, serviceType string, operatorId *string) error
	ListRules(ctx context.Context, includeInactive bool) ([]models.CommissionRule, error)
	InsertCommissionTransaction(ctx context.Context, tx models.CommissionTransaction) (*models.CommissionTransaction, error)
	GetCommissionStats(ctx context.Context, from, to time.Time) (*models.CommissionStats, error)
}

// RewardsStore persists rewards summaries and the activity stream.
type RewardsStore interface {
	GetSummary(ctx context.Context, userId string) (*models.RewardsSummary, error)
	// SaveActivity inserts the activity and, when summary is non-nil, writes it
	// guarded by expectedVersion (0 inserts a new summary row).
	SaveActivity(ctx context.Context, activity models.ActivityTransaction, summary *models.RewardsSummary, expectedVersion int64) (*models.RewardsSummary, error)
	UpdateSummary(ctx context.Context, summary models.RewardsSummary, expectedVersion int64) (*models.RewardsSummary, error)
	CountActivitiesSince(ctx context.Context, userId string, since time.Time) (int, error)
	GetActivityStats(ctx context.Context, userId string) (models.ActivityStats, error)
	ListSummaryUsers(ctx context.Context) ([]string, error)
}

// OutboxStore exposes the audit outbox to the delivery worker.
type OutboxStore interface {
	FetchDueEvents(ctx context.Context, now time.Time, limit int) ([]models.AuditEvent, error)
	MarkDelivered(ctx context.Context, eventId string, at time.Time) error
	MarkFailed(ctx context.Context, eventId, lastError string, nextAttemptAt time.Time, deadLetter bool) error
	PurgeDelivered(ctx context.Context, before time.Time) (int64, error)
	CountPending(ctx context.Context) (int, error)
}
