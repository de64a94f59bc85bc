package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"wallet-ledger-go/internal/api"
	"wallet-ledger-go/internal/common"
	"wallet-ledger-go/internal/config"
	"wallet-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func seedRules(ctx context.Context, services *api.Services, path string) {
	zap.L().Info("Seeding commission rules", zap.String("rules_file", path))

	seeded, err := services.Wallet.SeedCommissionRules(ctx, path)
	if err != nil {
		zap.L().Fatal("Failed to seed commission rules",
			zap.String("rules_file", path),
			zap.Int("seeded_before_failure", seeded),
			zap.Error(err))
	}

	zap.L().Info("Commission rules seeded", zap.Int("count", seeded))
}

func operatorLabel(operatorId *string) string {
	if operatorId == nil {
		return "(all operators)"
	}
	return *operatorId
}

func listRules(ctx context.Context, services *api.Services, includeInactive bool) {
	rules, err := services.Wallet.ListCommissionRules(ctx, includeInactive)
	if err != nil {
		zap.L().Fatal("Failed to list commission rules", zap.Error(err))
	}

	report := common.NewReport(os.Stdout, common.WideWidth)
	report.Header("COMMISSION RULES")
	for i, rule := range rules {
		isLast := i == len(rules)-1
		status := "active"
		if !rule.IsActive {
			status = "disabled"
		}
		report.Item(isLast, "%-14s %-18s %-10s %12s %s  [%s]",
			rule.ServiceType, operatorLabel(rule.OperatorId), rule.CommissionType,
			rule.CommissionValue.String(), rule.CurrencyCode, status)
		if rule.MinAmount.Valid || rule.MaxAmount.Valid {
			bounds := "amount range:"
			if rule.MinAmount.Valid {
				bounds += " min " + rule.MinAmount.Decimal.String()
			}
			if rule.MaxAmount.Valid {
				bounds += " max " + rule.MaxAmount.Decimal.String()
			}
			report.Detail(isLast, "%s", bounds)
		}
	}
	report.Footer(fmt.Sprintf("%d rules", len(rules)))
}

func quote(ctx context.Context, services *api.Services, serviceType, operator, amount string) {
	base, err := decimal.NewFromString(amount)
	if err != nil {
		zap.L().Fatal("Invalid amount", zap.String("amount", amount), zap.Error(err))
	}

	var operatorId *string
	if operator != "" {
		operatorId = &operator
	}

	calc, err := services.Wallet.CalculateCommission(ctx, serviceType, base, operatorId)
	if err != nil {
		zap.L().Fatal("Failed to calculate commission", zap.Error(err))
	}

	precision := services.Currencies.Precision(calc.CurrencyCode)
	report := common.NewReport(os.Stdout, common.DefaultWidth)
	report.Header("COMMISSION QUOTE")
	report.Item(false, "Service:     %s / %s", calc.ServiceType, operatorLabel(calc.OperatorId))
	report.Item(false, "Rule source: %s", calc.Source)
	report.Item(false, "Base:        %s %s", common.FormatAmount(calc.BaseAmount, precision), calc.CurrencyCode)
	report.Item(false, "Commission:  %s (%s %s)", calc.CommissionValue.String(), calc.CommissionType, calc.RuleValue.String())
	report.Item(true, "Final:       %s %s", common.FormatAmount(calc.FinalAmount, precision), calc.CurrencyCode)
	report.Footer("")
}

func printStats(ctx context.Context, services *api.Services, days int) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days)

	stats, err := services.Wallet.GetCommissionStats(ctx, from, to)
	if err != nil {
		zap.L().Fatal("Failed to load commission stats", zap.Error(err))
	}

	report := common.NewReport(os.Stdout, common.DefaultWidth)
	report.Header(fmt.Sprintf("COMMISSION STATS (last %d days)", days))
	report.Item(false, "Transactions: %d", stats.TotalTransactions)
	report.Item(false, "Total:        %s", stats.TotalCommission.String())
	report.Section("By service type")
	for serviceType, total := range stats.ByServiceType {
		report.Detail(false, "%-14s %s", serviceType, total.String())
	}
	report.Section("By commission type")
	for commissionType, total := range stats.ByCommissionType {
		report.Detail(false, "%-14s %s", commissionType, total.String())
	}
	report.Footer("")
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	initFlag := flag.Bool("init", false, "Seed commission rules from the configured rules file")
	rulesFlag := flag.String("rules", "", "Rules file to seed (default: COMMISSION_RULES_FILE)")
	allFlag := flag.Bool("all", false, "Include disabled rules in the listing")
	serviceFlag := flag.String("quote-service", "", "Quote a commission for this service type")
	operatorFlag := flag.String("quote-operator", "", "Operator for the quote (optional)")
	amountFlag := flag.String("quote-amount", "100", "Base amount for the quote")
	statsFlag := flag.Int("stats-days", 0, "Print commission stats for the last N days")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := api.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	ctx = models.WithAuditActor(ctx, models.AuditActor{Actor: os.Getenv("USER"), Source: "cmd/setup"})

	if *initFlag {
		path := *rulesFlag
		if path == "" {
			path = cfg.Commission.RulesFile
		}
		seedRules(ctx, services, path)
	}

	if *serviceFlag != "" {
		quote(ctx, services, *serviceFlag, *operatorFlag, *amountFlag)
		return
	}

	if *statsFlag > 0 {
		printStats(ctx, services, *statsFlag)
		return
	}

	listRules(ctx, services, *allFlag)
}
