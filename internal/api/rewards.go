package api

import (
	"context"

	"wallet-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetSummary returns the user's rewards summary with derived fields
func (s *WalletService) GetSummary(ctx context.Context, userId string) (*models.RewardsSummary, error) {
	return s.aggregator.GetSummary(ctx, userId)
}

// RecordActivity folds an activity into the user's rewards summary
func (s *WalletService) RecordActivity(ctx context.Context, activity models.ActivityTransaction) (*models.RewardsSummary, error) {
	return s.aggregator.RecordActivity(ctx, activity)
}

// Withdraw pays available rewards into the user's wallet
func (s *WalletService) Withdraw(ctx context.Context, userId string, amount decimal.Decimal, method string) (bool, error) {
	zap.L().Info("Processing rewards withdrawal",
		zap.String("user_id", userId),
		zap.String("amount", amount.String()),
		zap.String("method", method))

	return s.aggregator.Withdraw(ctx, userId, amount, method)
}

// RecomputeTrustScores refreshes every user's trust score
func (s *WalletService) RecomputeTrustScores(ctx context.Context) (int, error) {
	return s.aggregator.RecomputeTrustScores(ctx)
}
