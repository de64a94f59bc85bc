package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CommissionType is how a rule computes its fee
type CommissionType string

const (
	CommissionPercentage  CommissionType = "percentage"
	CommissionFixedAmount CommissionType = "fixed_amount"
	CommissionNone        CommissionType = "none"
)

// ServiceTypeAll is the catch-all service type consulted after service-level rules.
const ServiceTypeAll = "all"

// RuleSource records which resolution step produced a commission.
type RuleSource string

const (
	RuleSourceOperator RuleSource = "operator"
	RuleSourceService  RuleSource = "service"
	RuleSourceCatchAll RuleSource = "catch_all"
	RuleSourceNone     RuleSource = "none"
)

// CommissionRule configures the fee for a service, optionally scoped to one operator.
// A nil OperatorId is the global default for the service.
type CommissionRule struct {
	Id              string              `db:"id" yaml:"-"`
	ServiceType     string              `db:"service_type"`
	OperatorId      *string             `db:"operator_id"`
	CommissionType  CommissionType      `db:"commission_type"`
	CommissionValue decimal.Decimal     `db:"commission_value"`
	CurrencyCode    string              `db:"currency_code"`
	MinAmount       decimal.NullDecimal `db:"min_amount"`
	MaxAmount       decimal.NullDecimal `db:"max_amount"`
	IsActive        bool                `db:"is_active"`
	AppliedBy       string              `db:"applied_by"`
	CreatedAt       time.Time           `db:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at"`
}

// CommissionCalculation is the result of resolving and applying a rule
type CommissionCalculation struct {
	ServiceType     string          `json:"service_type"`
	OperatorId      *string         `json:"operator_id,omitempty"`
	BaseAmount      decimal.Decimal `json:"base_amount"`
	CommissionType  CommissionType  `json:"commission_type"`
	RuleValue       decimal.Decimal `json:"rule_value"`       // configured percentage or fixed fee
	CommissionValue decimal.Decimal `json:"commission_value"` // computed fee
	FinalAmount     decimal.Decimal `json:"final_amount"`
	CurrencyCode    string          `json:"currency_code"`
	RuleId          string          `json:"rule_id,omitempty"`
	Source          RuleSource      `json:"source"`
}

// CommissionTransaction records a commission actually charged
type CommissionTransaction struct {
	Id               string          `db:"id"`
	TransactionId    string          `db:"transaction_id"`
	UserId           string          `db:"user_id"`
	ServiceType      string          `db:"service_type"`
	OperatorId       *string         `db:"operator_id"`
	BaseAmount       decimal.Decimal `db:"base_amount"`
	CommissionType   CommissionType  `db:"commission_type"`
	CommissionAmount decimal.Decimal `db:"commission_amount"`
	TotalCharged     decimal.Decimal `db:"total_charged"`
	CurrencyCode     string          `db:"currency_code"`
	Status           string          `db:"status"`
	CreatedAt        time.Time       `db:"created_at"`
}

// CommissionStats aggregates recorded commissions over a window
type CommissionStats struct {
	TotalTransactions int                        `json:"total_transactions"`
	TotalCommission   decimal.Decimal            `json:"total_commission"`
	ByServiceType     map[string]decimal.Decimal `json:"by_service_type"`
	ByCommissionType  map[string]decimal.Decimal `json:"by_commission_type"`
}
