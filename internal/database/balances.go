package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"wallet-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetBalance returns current balance for user/currency (O(1) lookup)
func (s *Service) GetBalance(ctx context.Context, userId, currencyCode string) (decimal.Decimal, error) {
	zap.L().Debug("Getting balance", zap.String("user_id", userId), zap.String("currency_code", currencyCode))

	var balance decimal.Decimal
	err := s.db.QueryRowContext(ctx, queryGetBalance, userId, currencyCode).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		// No balance record means zero balance
		return decimal.Zero, nil
	}
	if err != nil {
		zap.L().Error("Failed to get balance", zap.String("user_id", userId), zap.String("currency_code", currencyCode), zap.Error(err))
		return decimal.Zero, storageError("get balance", err)
	}

	return balance, nil
}

// GetAllBalances returns all non-zero balances for a user
func (s *Service) GetAllBalances(ctx context.Context, userId string) ([]models.WalletBalance, error) {
	zap.L().Debug("Getting all balances", zap.String("user_id", userId))

	rows, err := s.db.QueryContext(ctx, queryGetAllUserBalances, userId)
	if err != nil {
		zap.L().Error("Failed to get all balances", zap.String("user_id", userId), zap.Error(err))
		return nil, storageError("get all balances", err)
	}
	defer closeRows(rows)

	var balances []models.WalletBalance
	for rows.Next() {
		var balance models.WalletBalance
		err := rows.Scan(&balance.Id, &balance.UserId, &balance.CurrencyCode, &balance.Balance,
			&balance.LastEntryId, &balance.Version, &balance.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances = append(balances, balance)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during balance row iteration", zap.Error(err))
		return nil, storageError("iterate balance rows", err)
	}

	zap.L().Debug("Retrieved all balances", zap.String("user_id", userId), zap.Int("count", len(balances)))
	return balances, nil
}

// ListBalanceUsers returns every user that holds a wallet balance row
func (s *Service) ListBalanceUsers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, queryListBalanceUsers)
	if err != nil {
		return nil, storageError("list balance users", err)
	}
	defer closeRows(rows)

	var users []string
	for rows.Next() {
		var userId string
		if err := rows.Scan(&userId); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		users = append(users, userId)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterate balance users", err)
	}
	return users, nil
}

// ReconcileBalance verifies that the balance row matches the sum of completed entries
func (s *Service) ReconcileBalance(ctx context.Context, userId, currencyCode string) error {
	zap.L().Info("Reconciling balance", zap.String("user_id", userId), zap.String("currency_code", currencyCode))

	currentBalance, err := s.GetBalance(ctx, userId, currencyCode)
	if err != nil {
		return fmt.Errorf("failed to get current balance: %w", err)
	}

	// Summed in decimal; SQL SUM over TEXT would go through floating point
	rows, err := s.db.QueryContext(ctx, queryReconcileDeltas, userId, currencyCode)
	if err != nil {
		return storageError("load entry deltas", err)
	}
	defer closeRows(rows)

	calculatedBalance := decimal.Zero
	for rows.Next() {
		var delta decimal.Decimal
		if err := rows.Scan(&delta); err != nil {
			return fmt.Errorf("failed to scan delta: %w", err)
		}
		calculatedBalance = calculatedBalance.Add(delta)
	}
	if err := rows.Err(); err != nil {
		return storageError("iterate entry deltas", err)
	}

	if !currentBalance.Equal(calculatedBalance) {
		zap.L().Error("Balance reconciliation failed",
			zap.String("user_id", userId),
			zap.String("currency_code", currencyCode),
			zap.String("current_balance", currentBalance.String()),
			zap.String("calculated_balance", calculatedBalance.String()),
			zap.String("difference", currentBalance.Sub(calculatedBalance).String()))
		return fmt.Errorf("balance mismatch: current=%s, calculated=%s", currentBalance.String(), calculatedBalance.String())
	}

	zap.L().Info("Balance reconciliation successful",
		zap.String("user_id", userId),
		zap.String("currency_code", currencyCode),
		zap.String("balance", currentBalance.String()))
	return nil
}
