package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FindActiveRules returns all active rules for a service type
func (s *Service) FindActiveRules(ctx context.Context, serviceType string) ([]models.CommissionRule, error) {
	rows, err := s.db.QueryContext(ctx, queryFindActiveRules, serviceType)
	if err != nil {
		return nil, storageError("find commission rules", err)
	}
	defer closeRows(rows)

	return scanRules(rows)
}

// UpsertRule creates or replaces the rule for (service type, operator)
func (s *Service) UpsertRule(ctx context.Context, rule models.CommissionRule) (*models.CommissionRule, error) {
	now := time.Now().UTC()
	if rule.Id == "" {
		rule.Id = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx, queryUpsertRule,
		rule.Id, rule.ServiceType, operatorToDB(rule.OperatorId), string(rule.CommissionType),
		rule.CommissionValue.String(), rule.CurrencyCode,
		nullDecimalToDB(rule.MinAmount), nullDecimalToDB(rule.MaxAmount),
		rule.IsActive, rule.AppliedBy, dbTime(now), dbTime(now))
	if err != nil {
		return nil, storageError("upsert commission rule", err)
	}

	saved, err := scanRule(s.db.QueryRowContext(ctx, queryGetRule, rule.ServiceType, operatorToDB(rule.OperatorId)))
	if err != nil {
		return nil, storageError("reload commission rule", err)
	}

	zap.L().Info("Commission rule saved",
		zap.String("rule_id", saved.Id),
		zap.String("service_type", saved.ServiceType),
		zap.String("operator_id", operatorToDB(saved.OperatorId)),
		zap.String("commission_type", string(saved.CommissionType)),
		zap.String("commission_value", saved.CommissionValue.String()),
		zap.Bool("is_active", saved.IsActive))
	return saved, nil
}

// DisableRule deactivates the rule for (service type, operator)
func (s *Service) DisableRule(ctx context.Context, serviceType string, operatorId *string) error {
	result, err := s.db.ExecContext(ctx, queryDisableRule, dbTime(time.Now()), serviceType, operatorToDB(operatorId))
	if err != nil {
		return storageError("disable commission rule", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return storageError("check rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: service_type=%s operator_id=%s", store.ErrRuleNotFound, serviceType, operatorToDB(operatorId))
	}

	zap.L().Info("Commission rule disabled",
		zap.String("service_type", serviceType),
		zap.String("operator_id", operatorToDB(operatorId)))
	return nil
}

// ListRules returns rules ordered by service and operator
func (s *Service) ListRules(ctx context.Context, includeInactive bool) ([]models.CommissionRule, error) {
	rows, err := s.db.QueryContext(ctx, queryListRules, includeInactive)
	if err != nil {
		return nil, storageError("list commission rules", err)
	}
	defer closeRows(rows)

	return scanRules(rows)
}

// InsertCommissionTransaction records a charged commission
func (s *Service) InsertCommissionTransaction(ctx context.Context, ct models.CommissionTransaction) (*models.CommissionTransaction, error) {
	if ct.Id == "" {
		ct.Id = uuid.New().String()
	}
	if ct.CreatedAt.IsZero() {
		ct.CreatedAt = time.Now().UTC()
	}
	if ct.Status == "" {
		ct.Status = "completed"
	}

	_, err := s.db.ExecContext(ctx, queryInsertCommissionTransaction,
		ct.Id, ct.TransactionId, ct.UserId, ct.ServiceType, operatorToDB(ct.OperatorId),
		ct.BaseAmount.String(), string(ct.CommissionType), ct.CommissionAmount.String(),
		ct.TotalCharged.String(), ct.CurrencyCode, ct.Status, dbTime(ct.CreatedAt))
	if err != nil {
		return nil, storageError("insert commission transaction", err)
	}

	zap.L().Info("Commission transaction recorded",
		zap.String("id", ct.Id),
		zap.String("transaction_id", ct.TransactionId),
		zap.String("user_id", ct.UserId),
		zap.String("commission_amount", ct.CommissionAmount.String()))
	return &ct, nil
}

// GetCommissionStats totals commissions recorded in [from, to)
func (s *Service) GetCommissionStats(ctx context.Context, from, to time.Time) (*models.CommissionStats, error) {
	rows, err := s.db.QueryContext(ctx, queryCommissionStatsRows, dbTime(from), dbTime(to))
	if err != nil {
		return nil, storageError("load commission stats", err)
	}
	defer closeRows(rows)

	stats := &models.CommissionStats{
		TotalCommission:  decimal.Zero,
		ByServiceType:    make(map[string]decimal.Decimal),
		ByCommissionType: make(map[string]decimal.Decimal),
	}
	for rows.Next() {
		var serviceType, commissionType string
		var amount decimal.Decimal
		if err := rows.Scan(&serviceType, &commissionType, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan commission row: %w", err)
		}
		stats.TotalTransactions++
		stats.TotalCommission = stats.TotalCommission.Add(amount)
		stats.ByServiceType[serviceType] = stats.ByServiceType[serviceType].Add(amount)
		stats.ByCommissionType[commissionType] = stats.ByCommissionType[commissionType].Add(amount)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterate commission rows", err)
	}
	return stats, nil
}

func scanRules(rows *sql.Rows) ([]models.CommissionRule, error) {
	var rules []models.CommissionRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan commission rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterate commission rules", err)
	}
	return rules, nil
}

func scanRule(row rowScanner) (*models.CommissionRule, error) {
	var rule models.CommissionRule
	var operatorId string
	err := row.Scan(&rule.Id, &rule.ServiceType, &operatorId, &rule.CommissionType, &rule.CommissionValue,
		&rule.CurrencyCode, &rule.MinAmount, &rule.MaxAmount, &rule.IsActive, &rule.AppliedBy,
		&rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rule.OperatorId = operatorFromDB(operatorId)
	return &rule, nil
}

func operatorToDB(operatorId *string) string {
	if operatorId == nil {
		return ""
	}
	return *operatorId
}

func operatorFromDB(operatorId string) *string {
	if operatorId == "" {
		return nil
	}
	return &operatorId
}

func nullDecimalToDB(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}
