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

// Package ledger is the single entry point for changing a wallet balance.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"regexp"
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

const maxReferenceLength = 255

var currencyCodePattern = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)

// Mutator applies balance changes one at a time per (user, currency).
// Each attempt is a single storage transaction, so a failed call leaves no
// partial state, and retries reuse the idempotency key.
type Mutator struct {
	store      store.LedgerStore
	locks      *common.KeyedMutex
	currencies *common.CurrencyRegistry
	metrics    *metrics.Recorder
	cfg        models.LedgerConfig
}

type Option func(*Mutator)

// WithLocks shares a lock table with other components
func WithLocks(locks *common.KeyedMutex) Option {
	return func(m *Mutator) { m.locks = locks }
}

func WithCurrencies(currencies *common.CurrencyRegistry) Option {
	return func(m *Mutator) { m.currencies = currencies }
}

func WithMetrics(recorder *metrics.Recorder) Option {
	return func(m *Mutator) { m.metrics = recorder }
}

func NewMutator(ledgerStore store.LedgerStore, cfg models.LedgerConfig, opts ...Option) *Mutator {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 50 * time.Millisecond
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	if cfg.StorageTimeout <= 0 {
		cfg.StorageTimeout = 5 * time.Second
	}

	m := &Mutator{
		store:      ledgerStore,
		locks:      common.NewKeyedMutex(),
		currencies: common.DefaultCurrencyRegistry(),
		cfg:        cfg,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type applied struct {
	entry    *models.LedgerEntry
	replayed bool
}

// AdjustBalance applies delta to the (userId, currencyCode) wallet and returns
// the resulting ledger entry. A call whose idempotency key was already applied
// returns the original entry without changing the balance.
func (m *Mutator) AdjustBalance(ctx context.Context, userId, currencyCode string, delta decimal.Decimal, mc models.MutationContext) (*models.LedgerEntry, error) {
	started := time.Now()
	currencyCode = strings.ToUpper(strings.TrimSpace(currencyCode))

	params, err := m.buildParams(ctx, userId, currencyCode, delta, mc)
	if err != nil {
		m.metrics.ObserveMutation(string(mc.EntryType), metrics.OutcomeRejected, time.Since(started))
		return nil, err
	}

	unlock, err := m.locks.Lock(ctx, common.WalletKey(params.UserId, params.CurrencyCode))
	if err != nil {
		return nil, fmt.Errorf("waiting for wallet lock: %w", err)
	}
	defer unlock()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.cfg.InitialBackoff
	b.MaxInterval = m.cfg.MaxBackoff

	attempts := 0
	result, err := backoff.Retry(ctx, func() (*applied, error) {
		attempts++
		if attempts > 1 {
			m.metrics.IncRetry("ledger")
		}

		attemptCtx, cancel := context.WithTimeout(ctx, m.cfg.StorageTimeout)
		defer cancel()

		entry, replayed, err := m.store.ApplyMutation(attemptCtx, params)
		if err != nil {
			if store.IsRetryable(err) {
				zap.L().Warn("Mutation attempt failed, will retry",
					zap.String("user_id", params.UserId),
					zap.String("currency_code", params.CurrencyCode),
					zap.String("idempotency_key", params.IdempotencyKey),
					zap.Int("attempt", attempts),
					zap.Error(err))
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return &applied{entry: entry, replayed: replayed}, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(m.cfg.MaxAttempts)))

	if err != nil {
		outcome := metrics.OutcomeFailed
		if errors.Is(err, store.ErrInsufficientFunds) || errors.Is(err, store.ErrValidation) {
			outcome = metrics.OutcomeRejected
		}
		m.metrics.ObserveMutation(string(params.EntryType), outcome, time.Since(started))

		if store.IsRetryable(err) {
			zap.L().Error("Mutation abandoned after retries",
				zap.String("user_id", params.UserId),
				zap.String("currency_code", params.CurrencyCode),
				zap.String("idempotency_key", params.IdempotencyKey),
				zap.Int("attempts", attempts),
				zap.Error(err))
			return nil, fmt.Errorf("mutation not applied after %d attempts: %w", attempts, err)
		}
		return nil, err
	}

	if result.replayed {
		if err := matchesReplay(result.entry, params); err != nil {
			m.metrics.ObserveMutation(string(params.EntryType), metrics.OutcomeRejected, time.Since(started))
			return nil, err
		}
		m.metrics.ObserveMutation(string(params.EntryType), metrics.OutcomeReplayed, time.Since(started))
		return result.entry, nil
	}

	m.metrics.ObserveMutation(string(params.EntryType), metrics.OutcomeApplied, time.Since(started))
	return result.entry, nil
}

func (m *Mutator) buildParams(ctx context.Context, userId, currencyCode string, delta decimal.Decimal, mc models.MutationContext) (store.MutationParams, error) {
	var params store.MutationParams

	if strings.TrimSpace(userId) == "" {
		return params, store.NewValidationError("user_id", "is required")
	}
	if !currencyCodePattern.MatchString(currencyCode) {
		return params, store.NewValidationError("currency_code", fmt.Sprintf("%q is not a valid currency code", currencyCode))
	}
	if delta.IsZero() {
		return params, store.NewValidationError("delta", "must be non-zero")
	}
	if m.currencies.Known(currencyCode) {
		precision := m.currencies.Precision(currencyCode)
		if !delta.Equal(delta.Truncate(precision)) {
			return params, store.NewValidationError("delta",
				fmt.Sprintf("%s has more than %d decimal places for %s", delta.String(), precision, currencyCode))
		}
	}

	entryType := mc.EntryType
	if entryType == "" {
		entryType = models.DefaultEntryType(delta)
	}
	if !entryType.Valid() {
		return params, store.NewValidationError("entry_type", fmt.Sprintf("unknown type %q", entryType))
	}
	if len(mc.Reference) > maxReferenceLength {
		return params, store.NewValidationError("reference", fmt.Sprintf("exceeds %d characters", maxReferenceLength))
	}
	if _, err := mc.Metadata.Encode(); err != nil {
		return params, store.NewValidationError("metadata", err.Error())
	}

	key := mc.IdempotencyKey
	if key == "" {
		// No caller key: the mutation cannot be safely retried by the caller
		key = uuid.New().String()
	}

	return store.MutationParams{
		UserId:         userId,
		CurrencyCode:   currencyCode,
		Delta:          delta,
		EntryType:      entryType,
		IdempotencyKey: key,
		Reference:      mc.Reference,
		Metadata:       mc.Metadata,
		Actor:          models.GetAuditActor(ctx),
	}, nil
}

// matchesReplay rejects reuse of an idempotency key for a different mutation
func matchesReplay(entry *models.LedgerEntry, params store.MutationParams) error {
	if entry.UserId == params.UserId &&
		entry.CurrencyCode == params.CurrencyCode &&
		entry.Delta.Equal(params.Delta) {
		return nil
	}

	zap.L().Warn("Idempotency key reused with different parameters",
		zap.String("idempotency_key", params.IdempotencyKey),
		zap.String("entry_id", entry.Id),
		zap.String("original_user_id", entry.UserId),
		zap.String("original_delta", entry.Delta.String()),
		zap.String("requested_user_id", params.UserId),
		zap.String("requested_delta", params.Delta.String()))
	return fmt.Errorf("%w: %w", store.ErrDuplicateTransaction,
		store.NewValidationError("idempotency_key", "was already used for a different mutation"))
}
