package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"wallet-ledger-go/internal/api"
	"wallet-ledger-go/internal/common"
	"wallet-ledger-go/internal/config"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	userFlag := flag.String("user", "", "User id (required)")
	currencyFlag := flag.String("currency", "", "Currency code (required unless --reconcile)")
	limitFlag := flag.Int("limit", 20, "Entries per page (max 100)")
	offsetFlag := flag.Int("offset", 0, "Entries to skip")
	reconcileFlag := flag.Bool("reconcile", false, "Check every wallet balance of the user against its ledger")
	flag.Parse()

	if *userFlag == "" || (*currencyFlag == "" && !*reconcileFlag) {
		logger.Fatal("Required flags: --user and --currency (or --reconcile)")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	services, err := api.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	report := common.NewReport(os.Stdout, common.WideWidth)

	if *reconcileFlag {
		report.Header(fmt.Sprintf("RECONCILIATION: %s", *userFlag))
		if err := services.Wallet.ReconcileUserBalance(ctx, *userFlag); err != nil {
			report.Footer(fmt.Sprintf("MISMATCH: %v", err))
			os.Exit(1)
		}
		report.Footer("All balances match their ledger entries")
		return
	}

	currency := strings.ToUpper(*currencyFlag)
	records, err := services.Wallet.GetTransactionHistory(ctx, *userFlag, currency, *limitFlag, *offsetFlag)
	if err != nil {
		logger.Fatal("Failed to load history", zap.Error(err))
	}

	precision := services.Currencies.Precision(currency)
	report.Header(fmt.Sprintf("LEDGER HISTORY: %s %s", *userFlag, currency))
	for i, record := range records {
		isLast := i == len(records)-1
		report.Item(isLast, "%s  %-18s %20s  -> %20s",
			record.CreatedAt.Format("2006-01-02 15:04:05"),
			record.Type,
			common.FormatAmount(record.Delta, precision),
			common.FormatAmount(record.ResultingBalance, precision))
		if record.Reference != "" {
			report.Detail(isLast, "entry %s, ref %s", record.Id, record.Reference)
		} else {
			report.Detail(isLast, "entry %s", record.Id)
		}
	}
	report.Footer(fmt.Sprintf("%d entries (offset %d)", len(records), *offsetFlag))
}
