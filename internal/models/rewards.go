package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ActivityStatus is the outcome of a rewards activity
type ActivityStatus string

const (
	ActivityCompleted ActivityStatus = "completed"
	ActivityFailed    ActivityStatus = "failed"
	ActivityDisputed  ActivityStatus = "disputed"
)

// ActivityCategoryWithdrawal marks the negative activity written for a payout.
// It is history only and never counts toward activity stats.
const ActivityCategoryWithdrawal = "withdrawal"

// RewardsSummary is the denormalized per-user rewards state
type RewardsSummary struct {
	UserId           string          `db:"user_id" json:"user_id"`
	CurrencyCode     string          `db:"currency_code" json:"currency_code"`
	TotalEarned      decimal.Decimal `db:"total_earned" json:"total_earned"`
	AvailableBalance decimal.Decimal `db:"available_balance" json:"available_balance"`
	TotalWithdrawn   decimal.Decimal `db:"total_withdrawn" json:"total_withdrawn"`
	CurrentStreak    int             `db:"current_streak" json:"current_streak"`
	LongestStreak    int             `db:"longest_streak" json:"longest_streak"`
	TrustScore       int             `db:"trust_score" json:"trust_score"`
	Level            int             `db:"level" json:"level"`
	TotalActivities  int             `db:"total_activities" json:"total_activities"`
	LastActivityAt   *time.Time      `db:"last_activity_at" json:"last_activity_at,omitempty"`
	Version          int64           `db:"version" json:"-"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`

	// Derived on read, not stored
	LevelName           string          `db:"-" json:"level_name"`
	NextLevelThreshold  decimal.Decimal `db:"-" json:"next_level_threshold"`
	ActivitiesThisMonth int             `db:"-" json:"activities_this_month"`
}

// ActivityTransaction is one event in the rewards activity stream
type ActivityTransaction struct {
	Id           string          `db:"id"`
	UserId       string          `db:"user_id"`
	Category     string          `db:"category"`
	Amount       decimal.Decimal `db:"amount"`
	CurrencyCode string          `db:"currency_code"`
	Description  string          `db:"description"`
	Status       ActivityStatus  `db:"status"`
	CreatedAt    time.Time       `db:"created_at"`
}

// ActivityStats counts a user's activities by outcome
type ActivityStats struct {
	Completed int
	Failed    int
	Disputed  int
}
