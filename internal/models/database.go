package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType classifies a ledger entry
type EntryType string

const (
	EntryTypeTrade            EntryType = "trade"
	EntryTypeWithdrawal       EntryType = "withdrawal"
	EntryTypeDeposit          EntryType = "deposit"
	EntryTypeCommission       EntryType = "commission"
	EntryTypeReward           EntryType = "reward"
	EntryTypeTransfer         EntryType = "transfer"
	EntryTypeReversal         EntryType = "reversal"
	EntryTypeRewardWithdrawal EntryType = "reward_withdrawal"
)

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	switch t {
	case EntryTypeTrade, EntryTypeWithdrawal, EntryTypeDeposit, EntryTypeCommission,
		EntryTypeReward, EntryTypeTransfer, EntryTypeReversal, EntryTypeRewardWithdrawal:
		return true
	}
	return false
}

// EntryStatus is the settlement state recorded on a ledger entry
type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "pending"
	EntryStatusCompleted EntryStatus = "completed"
	EntryStatusFailed    EntryStatus = "failed"
	EntryStatusReversed  EntryStatus = "reversed"
)

// WalletBalance represents current balance state (hot data)
type WalletBalance struct {
	Id           string          `db:"id"`
	UserId       string          `db:"user_id"`
	CurrencyCode string          `db:"currency_code"`
	Balance      decimal.Decimal `db:"balance"`
	LastEntryId  string          `db:"last_entry_id"`
	Version      int64           `db:"version"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

// LedgerEntry is the immutable record of one balance mutation (cold data)
type LedgerEntry struct {
	Id               string          `db:"id" json:"id"`
	UserId           string          `db:"user_id" json:"user_id"`
	CurrencyCode     string          `db:"currency_code" json:"currency_code"`
	EntryType        EntryType       `db:"entry_type" json:"type"`
	Delta            decimal.Decimal `db:"delta" json:"delta"`
	BalanceBefore    decimal.Decimal `db:"balance_before" json:"balance_before"`
	ResultingBalance decimal.Decimal `db:"resulting_balance" json:"resulting_balance"`
	Status           EntryStatus     `db:"status" json:"status"`
	IdempotencyKey   string          `db:"idempotency_key" json:"idempotency_key"`
	Reference        string          `db:"reference" json:"reference,omitempty"`
	Metadata         EntryMetadata   `db:"metadata" json:"metadata"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}

// AuditEventStatus tracks outbox delivery
type AuditEventStatus string

const (
	AuditEventPending    AuditEventStatus = "pending"
	AuditEventDelivered  AuditEventStatus = "delivered"
	AuditEventDeadLetter AuditEventStatus = "dead_letter"
)

// AuditEvent is one row of the audit outbox, written in the same
// transaction as the ledger entry it describes.
type AuditEvent struct {
	Id            string           `db:"id"`
	EntryId       string           `db:"entry_id"`
	EventType     string           `db:"event_type"`
	Payload       []byte           `db:"payload"`
	Status        AuditEventStatus `db:"status"`
	Attempts      int              `db:"attempts"`
	NextAttemptAt time.Time        `db:"next_attempt_at"`
	LastError     string           `db:"last_error"`
	CreatedAt     time.Time        `db:"created_at"`
	DeliveredAt   *time.Time       `db:"delivered_at"`
}

// LedgerAuditRecord is the JSON body carried by a ledger.entry.created event
type LedgerAuditRecord struct {
	SchemaVersion    int             `json:"schema_version"`
	EntryId          string          `json:"entry_id"`
	UserId           string          `json:"user_id"`
	CurrencyCode     string          `json:"currency_code"`
	EntryType        EntryType       `json:"type"`
	Delta            decimal.Decimal `json:"delta"`
	ResultingBalance decimal.Decimal `json:"resulting_balance"`
	Reference        string          `json:"reference,omitempty"`
	IdempotencyKey   string          `json:"idempotency_key"`
	Actor            AuditActor      `json:"actor"`
	Description      string          `json:"description"`
	OccurredAt       time.Time       `json:"occurred_at"`
}
