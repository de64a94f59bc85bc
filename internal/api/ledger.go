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

package api

import (
	"context"
	"errors"
	"strings"

	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AdjustWalletBalanceAtomic applies delta to the user's wallet. Reusing the
// idempotency key of an applied mutation returns the original entry.
func (s *WalletService) AdjustWalletBalanceAtomic(ctx context.Context, userId, currencyCode string, delta decimal.Decimal, mc models.MutationContext) (*models.LedgerEntry, error) {
	currencyCode = strings.ToUpper(strings.TrimSpace(currencyCode))

	entry, err := s.mutator.AdjustBalance(ctx, userId, currencyCode, delta, mc)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateTransaction) {
			zap.L().Info("Duplicate mutation detected in API service",
				zap.String("user_id", userId),
				zap.String("currency_code", currencyCode),
				zap.String("delta", delta.String()),
				zap.String("idempotency_key", mc.IdempotencyKey))
		} else {
			zap.L().Error("Balance adjustment failed",
				zap.String("user_id", userId),
				zap.String("currency_code", currencyCode),
				zap.String("delta", delta.String()),
				zap.Error(err))
		}
		return nil, err
	}
	return entry, nil
}

// ApplyAdjustment wraps AdjustWalletBalanceAtomic in a caller-facing result.
// Failures are reported in the result, not as an error.
func (s *WalletService) ApplyAdjustment(ctx context.Context, userId, currencyCode string, delta decimal.Decimal, mc models.MutationContext) *models.MutationResult {
	entry, err := s.AdjustWalletBalanceAtomic(ctx, userId, currencyCode, delta, mc)
	if err != nil {
		return &models.MutationResult{
			Success:  false,
			UserId:   userId,
			Currency: strings.ToUpper(currencyCode),
			Delta:    delta,
			Error:    err.Error(),
		}
	}

	zap.L().Info("Adjustment processed successfully",
		zap.String("user_id", entry.UserId),
		zap.String("currency_code", entry.CurrencyCode),
		zap.String("delta", entry.Delta.String()),
		zap.String("new_balance", entry.ResultingBalance.String()))

	return &models.MutationResult{
		Success:    true,
		EntryId:    entry.Id,
		UserId:     entry.UserId,
		Currency:   entry.CurrencyCode,
		Delta:      entry.Delta,
		NewBalance: entry.ResultingBalance,
	}
}

// ReverseEntry appends the compensating entry for entryId
func (s *WalletService) ReverseEntry(ctx context.Context, entryId, reason string) (*models.LedgerEntry, error) {
	entry, err := s.mutator.ReverseEntry(ctx, entryId, reason)
	if err != nil {
		zap.L().Error("Entry reversal failed",
			zap.String("entry_id", entryId),
			zap.String("reason", reason),
			zap.Error(err))
		return nil, err
	}
	return entry, nil
}
