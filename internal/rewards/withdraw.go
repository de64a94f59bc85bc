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

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const compensationTimeout = 30 * time.Second

// WithdrawalKey is the ledger idempotency key for a rewards payout
func WithdrawalKey(withdrawalId string) string {
	return "rewards-withdrawal-" + withdrawalId
}

// Withdraw moves amount from the user's available rewards into their wallet.
// The summary is debited first under the user's summary lock, then the ledger
// entry is written. If the ledger call fails, the payout key is looked up: a
// committed entry completes the withdrawal, a missing one undoes the summary
// debit, and an unanswerable lookup leaves the debit in place.
func (a *Aggregator) Withdraw(ctx context.Context, userId string, amount decimal.Decimal, method string) (bool, error) {
	if strings.TrimSpace(userId) == "" {
		return false, store.NewValidationError("user_id", "is required")
	}
	if !amount.IsPositive() {
		return false, store.NewValidationError("amount", "must be positive")
	}
	method = strings.TrimSpace(method)
	if method == "" {
		method = "wallet"
	}

	unlock, err := a.locks.Lock(ctx, common.SummaryKey(userId))
	if err != nil {
		return false, fmt.Errorf("waiting for rewards lock: %w", err)
	}
	defer unlock()

	var before models.RewardsSummary
	debited, err := a.withRetry(ctx, "withdraw", func(ctx context.Context) (*models.RewardsSummary, error) {
		summary, version, err := a.loadForUpdate(ctx, userId)
		if err != nil {
			return nil, err
		}
		if amount.GreaterThan(summary.AvailableBalance) {
			return nil, fmt.Errorf("%w: requested %s, available %s",
				store.ErrInsufficientBalance, amount.String(), summary.AvailableBalance.String())
		}
		before = summary

		summary.AvailableBalance = summary.AvailableBalance.Sub(amount)
		summary.TotalWithdrawn = summary.TotalWithdrawn.Add(amount)
		return a.store.UpdateSummary(ctx, summary, version)
	})
	if err != nil {
		if errors.Is(err, store.ErrInsufficientBalance) {
			a.metrics.ObserveWithdrawal(metrics.OutcomeInsufficient)
			zap.L().Info("Rewards withdrawal rejected",
				zap.String("user_id", userId),
				zap.String("amount", amount.String()),
				zap.Error(err))
		} else {
			a.metrics.ObserveWithdrawal(metrics.OutcomeFailed)
		}
		return false, err
	}

	withdrawalId := uuid.New().String()
	payoutKey := WithdrawalKey(withdrawalId)
	entry, err := a.mutator.AdjustBalance(ctx, userId, debited.CurrencyCode, amount, models.MutationContext{
		Reference:      withdrawalId,
		IdempotencyKey: payoutKey,
		EntryType:      models.EntryTypeRewardWithdrawal,
		Metadata: models.EntryMetadata{
			Source:     "rewards",
			Attributes: map[string]string{"method": method},
		},
	})
	if err != nil {
		committed, lerr := a.lookupPayout(ctx, payoutKey)
		switch {
		case committed != nil:
			zap.L().Warn("Ledger payout reported an error but committed",
				zap.String("user_id", userId),
				zap.String("withdrawal_id", withdrawalId),
				zap.String("entry_id", committed.Id),
				zap.Error(err))
			entry = committed
		case !errors.Is(lerr, store.ErrEntryNotFound):
			a.metrics.ObserveWithdrawal(metrics.OutcomeFailed)
			zap.L().Error("Ledger payout outcome unknown, rewards balance stays debited",
				zap.String("user_id", userId),
				zap.String("withdrawal_id", withdrawalId),
				zap.String("idempotency_key", payoutKey),
				zap.String("amount", amount.String()),
				zap.Error(err),
				zap.NamedError("lookup_error", lerr))
			return false, errors.Join(fmt.Errorf("rewards payout failed: %w", err),
				fmt.Errorf("payout %s unresolved: %w", payoutKey, lerr))
		}
	}
	if err != nil && entry == nil {
		zap.L().Error("Ledger payout failed, restoring rewards balance",
			zap.String("user_id", userId),
			zap.String("withdrawal_id", withdrawalId),
			zap.String("amount", amount.String()),
			zap.Error(err))

		if cerr := a.compensate(ctx, userId, amount); cerr != nil {
			a.metrics.ObserveWithdrawal(metrics.OutcomeFailed)
			zap.L().Error("Rewards compensation failed, summary needs manual repair",
				zap.String("user_id", userId),
				zap.String("withdrawal_id", withdrawalId),
				zap.String("available_before", before.AvailableBalance.String()),
				zap.String("amount", amount.String()),
				zap.Error(cerr))
			return false, errors.Join(fmt.Errorf("rewards payout failed: %w", err), cerr)
		}
		a.metrics.ObserveWithdrawal(metrics.OutcomeCompensated)
		return false, fmt.Errorf("rewards payout failed: %w", err)
	}

	// The activity row is informational; the ledger entry is authoritative
	_, err = a.store.SaveActivity(ctx, models.ActivityTransaction{
		Id:           uuid.New().String(),
		UserId:       userId,
		Category:     models.ActivityCategoryWithdrawal,
		Amount:       amount.Neg(),
		CurrencyCode: debited.CurrencyCode,
		Description:  "withdrawal via " + method,
		Status:       models.ActivityCompleted,
		CreatedAt:    a.now().UTC(),
	}, nil, 0)
	if err != nil {
		zap.L().Warn("Failed to record withdrawal activity",
			zap.String("user_id", userId),
			zap.String("entry_id", entry.Id),
			zap.Error(err))
	}

	a.metrics.ObserveWithdrawal(metrics.OutcomeApplied)
	zap.L().Info("Rewards withdrawal completed",
		zap.String("user_id", userId),
		zap.String("entry_id", entry.Id),
		zap.String("amount", amount.String()),
		zap.String("method", method),
		zap.String("available_balance", debited.AvailableBalance.String()))
	return true, nil
}

// lookupPayout checks the ledger for the payout key, detached from the
// caller's cancellation like compensate.
func (a *Aggregator) lookupPayout(ctx context.Context, key string) (*models.LedgerEntry, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()
	return a.mutator.EntryByIdempotencyKey(ctx, key)
}

// compensate returns amount to the available balance. It runs detached from
// the caller's cancellation so a cancelled request still restores the summary.
func (a *Aggregator) compensate(ctx context.Context, userId string, amount decimal.Decimal) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	_, err := a.withRetry(ctx, "compensate_withdrawal", func(ctx context.Context) (*models.RewardsSummary, error) {
		summary, err := a.store.GetSummary(ctx, userId)
		if err != nil {
			return nil, err
		}
		summary.AvailableBalance = summary.AvailableBalance.Add(amount)
		summary.TotalWithdrawn = summary.TotalWithdrawn.Sub(amount)
		return a.store.UpdateSummary(ctx, *summary, summary.Version)
	})
	return err
}
