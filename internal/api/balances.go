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
	"fmt"
	"strings"

	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// GetUserBalance returns the current balance for a user and currency
func (s *WalletService) GetUserBalance(ctx context.Context, userId, currencyCode string) (decimal.Decimal, error) {
	currencyCode = strings.ToUpper(strings.TrimSpace(currencyCode))
	if userId == "" || currencyCode == "" {
		return decimal.Zero, store.NewValidationError("user_id/currency_code", "are required")
	}

	balance, err := s.db.GetBalance(ctx, userId, currencyCode)
	if err != nil {
		zap.L().Error("Failed to get user balance",
			zap.String("user_id", userId),
			zap.String("currency_code", currencyCode),
			zap.Error(err))
		return decimal.Zero, fmt.Errorf("failed to retrieve balance: %w", err)
	}

	return balance, nil
}

// GetUserBalances returns all non-zero balances for a user
func (s *WalletService) GetUserBalances(ctx context.Context, userId string) ([]models.UserBalance, error) {
	if userId == "" {
		return nil, store.NewValidationError("user_id", "is required")
	}

	balances, err := s.db.GetAllBalances(ctx, userId)
	if err != nil {
		zap.L().Error("Failed to get user balances", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve balances: %w", err)
	}

	result := make([]models.UserBalance, len(balances))
	for i, balance := range balances {
		result[i] = models.UserBalance{
			CurrencyCode: balance.CurrencyCode,
			Balance:      balance.Balance,
		}
	}

	return result, nil
}

// GetTransactionHistory returns paginated ledger history for a user and currency, newest first
func (s *WalletService) GetTransactionHistory(ctx context.Context, userId, currencyCode string, limit, offset int) ([]models.TransactionRecord, error) {
	currencyCode = strings.ToUpper(strings.TrimSpace(currencyCode))
	if userId == "" || currencyCode == "" {
		return nil, store.NewValidationError("user_id/currency_code", "are required")
	}

	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := s.db.GetEntryHistory(ctx, userId, currencyCode, limit, offset)
	if err != nil {
		zap.L().Error("Failed to get transaction history",
			zap.String("user_id", userId),
			zap.String("currency_code", currencyCode),
			zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve transaction history: %w", err)
	}

	result := make([]models.TransactionRecord, len(entries))
	for i, entry := range entries {
		result[i] = models.TransactionRecord{
			Id:               entry.Id,
			Type:             entry.EntryType,
			CurrencyCode:     entry.CurrencyCode,
			Delta:            entry.Delta,
			ResultingBalance: entry.ResultingBalance,
			Reference:        entry.Reference,
			Status:           entry.Status,
			CreatedAt:        entry.CreatedAt,
		}
	}

	return result, nil
}

// ReconcileUserBalance checks every wallet the user holds against its ledger.
// All mismatches are reported together.
func (s *WalletService) ReconcileUserBalance(ctx context.Context, userId string) error {
	if userId == "" {
		return store.NewValidationError("user_id", "is required")
	}

	balances, err := s.db.GetAllBalances(ctx, userId)
	if err != nil {
		return fmt.Errorf("failed to retrieve balances: %w", err)
	}

	var errs []error
	for _, balance := range balances {
		if err := s.db.ReconcileBalance(ctx, userId, balance.CurrencyCode); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", balance.CurrencyCode, err))
		}
	}
	return errors.Join(errs...)
}
