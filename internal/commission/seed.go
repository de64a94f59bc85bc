package commission

import (
	"context"
	"fmt"
	"os"

	"wallet-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// RuleConfig is one entry of commission_rules.yaml. Amounts are strings so
// they parse exactly.
type RuleConfig struct {
	ServiceType     string `yaml:"service_type"`
	OperatorId      string `yaml:"operator_id"`
	CommissionType  string `yaml:"commission_type"`
	CommissionValue string `yaml:"commission_value"`
	CurrencyCode    string `yaml:"currency_code"`
	MinAmount       string `yaml:"min_amount"`
	MaxAmount       string `yaml:"max_amount"`
}

type RulesConfig struct {
	Rules []RuleConfig `yaml:"rules"`
}

// LoadRulesFile parses a commission rule seed file
func LoadRulesFile(path string) ([]models.CommissionRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", path, err)
	}

	var config RulesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", path, err)
	}

	rules := make([]models.CommissionRule, 0, len(config.Rules))
	for i, rc := range config.Rules {
		rule, err := rc.toRule()
		if err != nil {
			return nil, fmt.Errorf("rule at index %d: %w", i, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (rc RuleConfig) toRule() (models.CommissionRule, error) {
	rule := models.CommissionRule{
		ServiceType:    rc.ServiceType,
		CommissionType: models.CommissionType(rc.CommissionType),
		CurrencyCode:   rc.CurrencyCode,
		AppliedBy:      "seed",
		IsActive:       true,
	}
	if rc.ServiceType == "" {
		return rule, fmt.Errorf("missing service_type")
	}
	if rc.OperatorId != "" {
		operatorId := rc.OperatorId
		rule.OperatorId = &operatorId
	}

	var err error
	if rc.CommissionValue != "" {
		if rule.CommissionValue, err = decimal.NewFromString(rc.CommissionValue); err != nil {
			return rule, fmt.Errorf("invalid commission_value %q: %w", rc.CommissionValue, err)
		}
	}
	if rule.MinAmount, err = parseOptional(rc.MinAmount); err != nil {
		return rule, fmt.Errorf("invalid min_amount %q: %w", rc.MinAmount, err)
	}
	if rule.MaxAmount, err = parseOptional(rc.MaxAmount); err != nil {
		return rule, fmt.Errorf("invalid max_amount %q: %w", rc.MaxAmount, err)
	}
	return rule, nil
}

func parseOptional(value string) (decimal.NullDecimal, error) {
	if value == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

// SeedRules stores every rule, stopping at the first invalid one
func (r *Resolver) SeedRules(ctx context.Context, rules []models.CommissionRule) (int, error) {
	for i, rule := range rules {
		saved, err := r.SetRule(ctx, rule)
		if err != nil {
			return i, fmt.Errorf("failed to seed rule for %s: %w", rule.ServiceType, err)
		}
		operator := "global"
		if saved.OperatorId != nil {
			operator = *saved.OperatorId
		}
		zap.L().Info("Seeded commission rule",
			zap.String("service_type", saved.ServiceType),
			zap.String("operator_id", operator),
			zap.String("commission_type", string(saved.CommissionType)),
			zap.String("commission_value", saved.CommissionValue.String()))
	}
	return len(rules), nil
}
