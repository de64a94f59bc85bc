/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package rewards keeps the per-user rewards summary in step with the
// activity stream and pays withdrawals out through the ledger.
package rewards

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wallet-ledger-go/internal/common"
	"wallet-ledger-go/internal/metrics"
	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxDescriptionLength = 500

// BalanceMutator is the ledger entry point used for payouts
type BalanceMutator interface {
	AdjustBalance(ctx context.Context, userId, currencyCode string, delta decimal.Decimal, mc models.MutationContext) (*models.LedgerEntry, error)
	// EntryByIdempotencyKey settles whether a failed payout call committed
	EntryByIdempotencyKey(ctx context.Context, key string) (*models.LedgerEntry, error)
}

// Aggregator serializes summary updates per user. Withdrawals hold the
// summary lock while calling the mutator, which takes the wallet lock, so
// the two are always acquired in that order.
type Aggregator struct {
	store   store.RewardsStore
	mutator BalanceMutator
	levels  *LevelTable
	locks   *common.KeyedMutex
	metrics *metrics.Recorder
	cfg     models.RewardsConfig
	now     func() time.Time
}

type Option func(*Aggregator)

func WithLevels(levels *LevelTable) Option {
	return func(a *Aggregator) { a.levels = levels }
}

func WithLocks(locks *common.KeyedMutex) Option {
	return func(a *Aggregator) { a.locks = locks }
}

func WithMetrics(recorder *metrics.Recorder) Option {
	return func(a *Aggregator) { a.metrics = recorder }
}

func withClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func NewAggregator(rewardsStore store.RewardsStore, mutator BalanceMutator, cfg models.RewardsConfig, opts ...Option) *Aggregator {
	if cfg.CurrencyCode == "" {
		cfg.CurrencyCode = "USD"
	}
	cfg.CurrencyCode = strings.ToUpper(cfg.CurrencyCode)
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 50 * time.Millisecond
	}
	if cfg.StorageTimeout <= 0 {
		cfg.StorageTimeout = 5 * time.Second
	}

	a := &Aggregator{
		store:   rewardsStore,
		mutator: mutator,
		levels:  DefaultLevels(),
		locks:   common.NewKeyedMutex(),
		cfg:     cfg,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// newSummary is the starting state on a user's first activity
func (a *Aggregator) newSummary(userId string) models.RewardsSummary {
	return models.RewardsSummary{
		UserId:           userId,
		CurrencyCode:     a.cfg.CurrencyCode,
		TotalEarned:      decimal.Zero,
		AvailableBalance: decimal.Zero,
		TotalWithdrawn:   decimal.Zero,
		TrustScore:       baseTrustScore,
		Level:            1,
	}
}

// RecordActivity stores the activity and folds it into the user's summary.
// Only completed activities with a positive amount change the totals.
func (a *Aggregator) RecordActivity(ctx context.Context, activity models.ActivityTransaction) (*models.RewardsSummary, error) {
	if err := a.normalizeActivity(&activity); err != nil {
		return nil, err
	}

	unlock, err := a.locks.Lock(ctx, common.SummaryKey(activity.UserId))
	if err != nil {
		return nil, fmt.Errorf("waiting for rewards lock: %w", err)
	}
	defer unlock()

	saved, err := a.withRetry(ctx, "record_activity", func(ctx context.Context) (*models.RewardsSummary, error) {
		summary, version, err := a.loadForUpdate(ctx, activity.UserId)
		if err != nil {
			return nil, err
		}
		a.apply(&summary, activity)
		return a.store.SaveActivity(ctx, activity, &summary, version)
	})
	if err != nil {
		return nil, err
	}

	a.metrics.IncActivity()
	zap.L().Info("Rewards activity recorded",
		zap.String("user_id", activity.UserId),
		zap.String("category", activity.Category),
		zap.String("amount", activity.Amount.String()),
		zap.String("total_earned", saved.TotalEarned.String()),
		zap.Int("level", saved.Level),
		zap.Int("current_streak", saved.CurrentStreak))
	return a.decorate(ctx, saved)
}

func (a *Aggregator) normalizeActivity(activity *models.ActivityTransaction) error {
	if strings.TrimSpace(activity.UserId) == "" {
		return store.NewValidationError("user_id", "is required")
	}
	if strings.TrimSpace(activity.Category) == "" {
		return store.NewValidationError("category", "is required")
	}
	if len(activity.Description) > maxDescriptionLength {
		return store.NewValidationError("description", fmt.Sprintf("exceeds %d characters", maxDescriptionLength))
	}

	activity.CurrencyCode = strings.ToUpper(strings.TrimSpace(activity.CurrencyCode))
	if activity.CurrencyCode == "" {
		activity.CurrencyCode = a.cfg.CurrencyCode
	}
	if activity.CurrencyCode != a.cfg.CurrencyCode {
		return store.NewValidationError("currency_code",
			fmt.Sprintf("rewards are tracked in %s, got %s", a.cfg.CurrencyCode, activity.CurrencyCode))
	}

	switch activity.Status {
	case "":
		activity.Status = models.ActivityCompleted
	case models.ActivityCompleted, models.ActivityFailed, models.ActivityDisputed:
	default:
		return store.NewValidationError("status", fmt.Sprintf("unknown status %q", activity.Status))
	}

	if activity.Id == "" {
		activity.Id = uuid.New().String()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = a.now().UTC()
	}
	return nil
}

// apply folds one activity into the summary
func (a *Aggregator) apply(summary *models.RewardsSummary, activity models.ActivityTransaction) {
	if activity.Status != models.ActivityCompleted || !activity.Amount.IsPositive() {
		return
	}

	summary.TotalEarned = summary.TotalEarned.Add(activity.Amount)
	summary.AvailableBalance = summary.AvailableBalance.Add(activity.Amount)
	summary.TotalActivities++
	summary.Level = a.levels.LevelFor(summary.TotalEarned)

	summary.CurrentStreak = nextStreak(summary.CurrentStreak, summary.LastActivityAt, activity.CreatedAt)
	summary.LongestStreak = max(summary.LongestStreak, summary.CurrentStreak)

	if summary.LastActivityAt == nil || activity.CreatedAt.After(*summary.LastActivityAt) {
		at := activity.CreatedAt.UTC()
		summary.LastActivityAt = &at
	}
}

// loadForUpdate returns the summary and the version to write against; 0
// means the row does not exist yet.
func (a *Aggregator) loadForUpdate(ctx context.Context, userId string) (models.RewardsSummary, int64, error) {
	summary, err := a.store.GetSummary(ctx, userId)
	if errors.Is(err, store.ErrSummaryNotFound) {
		return a.newSummary(userId), 0, nil
	}
	if err != nil {
		return models.RewardsSummary{}, 0, err
	}
	return *summary, summary.Version, nil
}

// withRetry runs op with a per-attempt timeout, retrying version conflicts
// and storage failures. A conflict that outlives the retries surfaces as
// ErrConcurrentUpdate.
func (a *Aggregator) withRetry(ctx context.Context, op string, fn func(ctx context.Context) (*models.RewardsSummary, error)) (*models.RewardsSummary, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = a.cfg.InitialBackoff

	attempts := 0
	result, err := backoff.Retry(ctx, func() (*models.RewardsSummary, error) {
		attempts++
		if attempts > 1 {
			a.metrics.IncRetry("rewards")
		}
		attemptCtx, cancel := context.WithTimeout(ctx, a.cfg.StorageTimeout)
		defer cancel()

		summary, err := fn(attemptCtx)
		if err != nil && !store.IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return summary, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(a.cfg.MaxAttempts)))

	if err != nil && errors.Is(err, store.ErrConcurrentModification) {
		zap.L().Warn("Rewards summary still contended after retries",
			zap.String("operation", op),
			zap.Int("attempts", attempts),
			zap.Error(err))
		return nil, fmt.Errorf("%s: %w: %w", op, store.ErrConcurrentUpdate, err)
	}
	return result, err
}

// GetSummary returns the user's summary with level name, next threshold and
// this month's activity count filled in. Users without activity get the
// starting summary.
func (a *Aggregator) GetSummary(ctx context.Context, userId string) (*models.RewardsSummary, error) {
	if strings.TrimSpace(userId) == "" {
		return nil, store.NewValidationError("user_id", "is required")
	}

	summary, err := a.store.GetSummary(ctx, userId)
	if errors.Is(err, store.ErrSummaryNotFound) {
		fresh := a.newSummary(userId)
		summary = &fresh
	} else if err != nil {
		zap.L().Error("Failed to load rewards summary", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("failed to load rewards summary: %w", err)
	}
	return a.decorate(ctx, summary)
}

func (a *Aggregator) decorate(ctx context.Context, summary *models.RewardsSummary) (*models.RewardsSummary, error) {
	summary.LevelName = a.levels.Name(summary.Level)
	summary.NextLevelThreshold = a.levels.NextThreshold(summary.Level)

	count, err := a.store.CountActivitiesSince(ctx, summary.UserId, monthStart(a.now()))
	if err != nil {
		return nil, fmt.Errorf("failed to count monthly activities: %w", err)
	}
	summary.ActivitiesThisMonth = count
	return summary, nil
}
