package commission

import (
	"context"
	"fmt"
	"time"

	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"
)

// RecordTransaction stores the commission charged for transactionId
func (r *Resolver) RecordTransaction(ctx context.Context, transactionId, userId string, calc *models.CommissionCalculation) (*models.CommissionTransaction, error) {
	if transactionId == "" {
		return nil, store.NewValidationError("transaction_id", "is required")
	}
	if userId == "" {
		return nil, store.NewValidationError("user_id", "is required")
	}
	if calc == nil {
		return nil, store.NewValidationError("calculation", "is required")
	}

	recorded, err := r.store.InsertCommissionTransaction(ctx, models.CommissionTransaction{
		TransactionId:    transactionId,
		UserId:           userId,
		ServiceType:      calc.ServiceType,
		OperatorId:       calc.OperatorId,
		BaseAmount:       calc.BaseAmount,
		CommissionType:   calc.CommissionType,
		CommissionAmount: calc.CommissionValue,
		TotalCharged:     calc.FinalAmount,
		CurrencyCode:     calc.CurrencyCode,
		Status:           "completed",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record commission transaction: %w", err)
	}
	return recorded, nil
}

// Stats totals commissions recorded in [from, to)
func (r *Resolver) Stats(ctx context.Context, from, to time.Time) (*models.CommissionStats, error) {
	if !from.Before(to) {
		return nil, store.NewValidationError("period", "from must be before to")
	}
	stats, err := r.store.GetCommissionStats(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load commission stats: %w", err)
	}
	return stats, nil
}
