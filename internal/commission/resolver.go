// Package commission resolves fee rules and computes commissions. It never
// touches balances; callers apply the final amount through the ledger.
package commission

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"wallet-ledger-go/internal/common"
	"wallet-ledger-go/internal/metrics"
	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	commissionPlaces = 4
	ruleLoadTimeout  = 5 * time.Second
)

var hundred = decimal.NewFromInt(100)

type cachedRules struct {
	rules   []models.CommissionRule
	expires time.Time
}

// Resolver is safe for concurrent use. Active rules are cached per service
// type for the configured TTL and concurrent misses share one load.
type Resolver struct {
	store      store.CommissionStore
	currencies *common.CurrencyRegistry
	metrics    *metrics.Recorder
	ttl        time.Duration
	now        func() time.Time

	mu         sync.RWMutex
	cache      map[string]cachedRules
	generation uint64
	loads      singleflight.Group
}

type Option func(*Resolver)

func WithCurrencies(currencies *common.CurrencyRegistry) Option {
	return func(r *Resolver) { r.currencies = currencies }
}

func WithMetrics(recorder *metrics.Recorder) Option {
	return func(r *Resolver) { r.metrics = recorder }
}

func withClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func NewResolver(commissionStore store.CommissionStore, cfg models.CommissionConfig, opts ...Option) *Resolver {
	r := &Resolver{
		store:      commissionStore,
		currencies: common.DefaultCurrencyRegistry(),
		ttl:        cfg.CacheTTL,
		now:        time.Now,
		cache:      make(map[string]cachedRules),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds the rule for serviceType and operatorId and applies it to amount.
//
// Resolution order:
//  1. active rule for the service and this operator
//  2. active global rule for the service
//  3. active global rule for the "all" service type
//  4. no rule: zero commission and the amount unchanged
func (r *Resolver) Resolve(ctx context.Context, serviceType string, amount decimal.Decimal, operatorId *string) (*models.CommissionCalculation, error) {
	serviceType = normalizeServiceType(serviceType)
	if serviceType == "" {
		return nil, store.NewValidationError("service_type", "is required")
	}
	if !amount.IsPositive() {
		return nil, store.NewValidationError("amount", "must be positive")
	}
	operatorId = normalizeOperator(operatorId)

	rule, source, err := r.findRule(ctx, serviceType, operatorId)
	if err != nil {
		zap.L().Error("Commission rule lookup failed",
			zap.String("service_type", serviceType),
			zap.Error(err))
		return nil, fmt.Errorf("commission rule lookup failed: %w", err)
	}

	calc := &models.CommissionCalculation{
		ServiceType:     serviceType,
		OperatorId:      operatorId,
		BaseAmount:      amount,
		CommissionType:  models.CommissionNone,
		CommissionValue: decimal.Zero,
		FinalAmount:     amount,
		Source:          source,
	}
	if rule == nil {
		r.metrics.ObserveCommission(string(source))
		return calc, nil
	}

	if err := checkBounds(rule, amount); err != nil {
		return nil, err
	}

	commission := decimal.Zero
	switch rule.CommissionType {
	case models.CommissionPercentage:
		commission = amount.Mul(rule.CommissionValue).Div(hundred)
	case models.CommissionFixedAmount:
		commission = rule.CommissionValue
	}
	commission = commission.Round(commissionPlaces)

	calc.CommissionType = rule.CommissionType
	calc.RuleValue = rule.CommissionValue
	calc.CommissionValue = commission
	calc.CurrencyCode = rule.CurrencyCode
	calc.RuleId = rule.Id
	calc.FinalAmount = amount.Add(commission).Round(r.precision(rule.CurrencyCode))

	r.metrics.ObserveCommission(string(source))
	zap.L().Debug("Commission resolved",
		zap.String("service_type", serviceType),
		zap.String("rule_id", rule.Id),
		zap.String("source", string(source)),
		zap.String("amount", amount.String()),
		zap.String("commission", commission.String()),
		zap.String("final_amount", calc.FinalAmount.String()))
	return calc, nil
}

func (r *Resolver) findRule(ctx context.Context, serviceType string, operatorId *string) (*models.CommissionRule, models.RuleSource, error) {
	rules, err := r.activeRules(ctx, serviceType)
	if err != nil {
		return nil, models.RuleSourceNone, err
	}

	if operatorId != nil {
		for i := range rules {
			if rules[i].OperatorId != nil && *rules[i].OperatorId == *operatorId {
				return &rules[i], models.RuleSourceOperator, nil
			}
		}
	}
	if rule := globalRule(rules); rule != nil {
		return rule, models.RuleSourceService, nil
	}

	if serviceType != models.ServiceTypeAll {
		catchAll, err := r.activeRules(ctx, models.ServiceTypeAll)
		if err != nil {
			return nil, models.RuleSourceNone, err
		}
		if rule := globalRule(catchAll); rule != nil {
			return rule, models.RuleSourceCatchAll, nil
		}
	}
	return nil, models.RuleSourceNone, nil
}

func globalRule(rules []models.CommissionRule) *models.CommissionRule {
	for i := range rules {
		if rules[i].OperatorId == nil {
			return &rules[i]
		}
	}
	return nil
}

func (r *Resolver) activeRules(ctx context.Context, serviceType string) ([]models.CommissionRule, error) {
	r.mu.RLock()
	cached, ok := r.cache[serviceType]
	generation := r.generation
	r.mu.RUnlock()
	if ok && r.now().Before(cached.expires) {
		r.metrics.IncCommissionCacheHit()
		return cached.rules, nil
	}

	// The shared load outlives any one caller; each caller still honours its own ctx
	results := r.loads.DoChan(serviceType, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ruleLoadTimeout)
		defer cancel()

		rules, err := r.store.FindActiveRules(loadCtx, serviceType)
		if err != nil {
			return nil, err
		}
		if r.ttl > 0 {
			r.mu.Lock()
			// An edit while loading makes this result stale
			if r.generation == generation {
				r.cache[serviceType] = cachedRules{rules: rules, expires: r.now().Add(r.ttl)}
			}
			r.mu.Unlock()
		}
		return rules, nil
	})

	select {
	case res := <-results:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]models.CommissionRule), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate drops cached rules so the next resolution reads the store
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.cache = make(map[string]cachedRules)
	r.generation++
	r.mu.Unlock()
}

func (r *Resolver) precision(currencyCode string) int32 {
	if currencyCode == "" {
		return common.DefaultPrecision
	}
	return r.currencies.Precision(currencyCode)
}

func checkBounds(rule *models.CommissionRule, amount decimal.Decimal) error {
	if rule.MinAmount.Valid && amount.LessThan(rule.MinAmount.Decimal) {
		return fmt.Errorf("%w: %s is below minimum %s for %s",
			store.ErrAmountOutOfRange, amount.String(), rule.MinAmount.Decimal.String(), rule.ServiceType)
	}
	if rule.MaxAmount.Valid && amount.GreaterThan(rule.MaxAmount.Decimal) {
		return fmt.Errorf("%w: %s is above maximum %s for %s",
			store.ErrAmountOutOfRange, amount.String(), rule.MaxAmount.Decimal.String(), rule.ServiceType)
	}
	return nil
}

func normalizeServiceType(serviceType string) string {
	return strings.ToLower(strings.TrimSpace(serviceType))
}

func normalizeOperator(operatorId *string) *string {
	if operatorId == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*operatorId)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
