package commission

import (
	"context"
	"fmt"
	"strings"

	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SetRule validates and stores a rule, replacing any rule for the same
// (service type, operator). The change is visible to the next resolution.
func (r *Resolver) SetRule(ctx context.Context, rule models.CommissionRule) (*models.CommissionRule, error) {
	rule.ServiceType = normalizeServiceType(rule.ServiceType)
	rule.OperatorId = normalizeOperator(rule.OperatorId)
	rule.CurrencyCode = strings.ToUpper(strings.TrimSpace(rule.CurrencyCode))
	rule.IsActive = true

	if err := validateRule(&rule); err != nil {
		return nil, err
	}

	saved, err := r.store.UpsertRule(ctx, rule)
	if err != nil {
		return nil, fmt.Errorf("failed to save commission rule: %w", err)
	}
	r.Invalidate()
	return saved, nil
}

// DisableRule deactivates the rule for (service type, operator)
func (r *Resolver) DisableRule(ctx context.Context, serviceType string, operatorId *string) error {
	serviceType = normalizeServiceType(serviceType)
	if serviceType == "" {
		return store.NewValidationError("service_type", "is required")
	}

	if err := r.store.DisableRule(ctx, serviceType, normalizeOperator(operatorId)); err != nil {
		return fmt.Errorf("failed to disable commission rule: %w", err)
	}
	r.Invalidate()
	return nil
}

func (r *Resolver) ListRules(ctx context.Context, includeInactive bool) ([]models.CommissionRule, error) {
	rules, err := r.store.ListRules(ctx, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to list commission rules: %w", err)
	}
	return rules, nil
}

func validateRule(rule *models.CommissionRule) error {
	if rule.ServiceType == "" {
		return store.NewValidationError("service_type", "is required")
	}

	switch rule.CommissionType {
	case models.CommissionPercentage:
		if rule.CommissionValue.IsNegative() || rule.CommissionValue.GreaterThan(hundred) {
			return store.NewValidationError("commission_value",
				fmt.Sprintf("percentage %s must be between 0 and 100", rule.CommissionValue.String()))
		}
	case models.CommissionFixedAmount:
		if rule.CommissionValue.IsNegative() {
			return store.NewValidationError("commission_value",
				fmt.Sprintf("fixed amount %s cannot be negative", rule.CommissionValue.String()))
		}
	case models.CommissionNone:
		rule.CommissionValue = decimal.Zero
	default:
		return store.NewValidationError("commission_type", fmt.Sprintf("unknown type %q", rule.CommissionType))
	}

	if rule.MinAmount.Valid && rule.MinAmount.Decimal.IsNegative() {
		return store.NewValidationError("min_amount", "cannot be negative")
	}
	if rule.MaxAmount.Valid && !rule.MaxAmount.Decimal.IsPositive() {
		return store.NewValidationError("max_amount", "must be positive")
	}
	if rule.MinAmount.Valid && rule.MaxAmount.Valid && rule.MinAmount.Decimal.GreaterThan(rule.MaxAmount.Decimal) {
		return store.NewValidationError("min_amount",
			fmt.Sprintf("%s exceeds max_amount %s", rule.MinAmount.Decimal.String(), rule.MaxAmount.Decimal.String()))
	}

	zap.L().Debug("Commission rule validated",
		zap.String("service_type", rule.ServiceType),
		zap.String("commission_type", string(rule.CommissionType)))
	return nil
}
