package api

import (
	"context"
	"fmt"
	"time"

	"wallet-ledger-go/internal/commission"
	"wallet-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

// CalculateCommission resolves the fee for amount under the best matching rule
func (s *WalletService) CalculateCommission(ctx context.Context, serviceType string, amount decimal.Decimal, operatorId *string) (*models.CommissionCalculation, error) {
	return s.resolver.Resolve(ctx, serviceType, amount, operatorId)
}

func (s *WalletService) SetCommissionRule(ctx context.Context, rule models.CommissionRule) (*models.CommissionRule, error) {
	return s.resolver.SetRule(ctx, rule)
}

func (s *WalletService) DisableCommissionRule(ctx context.Context, serviceType string, operatorId *string) error {
	return s.resolver.DisableRule(ctx, serviceType, operatorId)
}

func (s *WalletService) ListCommissionRules(ctx context.Context, includeInactive bool) ([]models.CommissionRule, error) {
	return s.resolver.ListRules(ctx, includeInactive)
}

// SeedCommissionRules loads rules from a YAML file and stores them
func (s *WalletService) SeedCommissionRules(ctx context.Context, path string) (int, error) {
	rules, err := commission.LoadRulesFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to load commission rules: %w", err)
	}
	return s.resolver.SeedRules(ctx, rules)
}

// RecordCommissionTransaction stores a charged commission against a transaction
func (s *WalletService) RecordCommissionTransaction(ctx context.Context, transactionId, userId string, calc *models.CommissionCalculation) (*models.CommissionTransaction, error) {
	return s.resolver.RecordTransaction(ctx, transactionId, userId, calc)
}

// GetCommissionStats totals commissions recorded in [from, to)
func (s *WalletService) GetCommissionStats(ctx context.Context, from, to time.Time) (*models.CommissionStats, error) {
	return s.resolver.Stats(ctx, from, to)
}
