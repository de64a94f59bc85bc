/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"wallet-ledger-go/internal/common"
	"wallet-ledger-go/internal/config"
	"wallet-ledger-go/internal/database"
	"wallet-ledger-go/internal/models"

	"go.uber.org/zap"
)

type balanceStats struct {
	totalUsers        int
	totalBalances     int
	usersWithBalances int
}

func formatEntryId(entryId string) string {
	if entryId == "" {
		return "none"
	}
	if len(entryId) > 8 {
		return entryId[:8] + "..."
	}
	return entryId
}

func printBalances(report *common.Report, balances []models.WalletBalance, currencies *common.CurrencyRegistry) {
	for i, balance := range balances {
		report.Item(i == len(balances)-1, "%-8s: %24s (v%d, last_entry: %s, updated: %s)",
			balance.CurrencyCode,
			common.FormatAmount(balance.Balance, currencies.Precision(balance.CurrencyCode)),
			balance.Version,
			formatEntryId(balance.LastEntryId),
			balance.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
}

func processUser(ctx context.Context, report *common.Report, userId string, dbService *database.Service, currencies *common.CurrencyRegistry) (int, error) {
	balances, err := dbService.GetAllBalances(ctx, userId)
	if err != nil {
		return 0, fmt.Errorf("failed to get balances: %w", err)
	}

	if len(balances) == 0 {
		return 0, nil
	}

	report.Section(fmt.Sprintf("User: %s (%d currencies)", userId, len(balances)))
	printBalances(report, balances, currencies)

	return len(balances), nil
}

func processUsersAndGenerateReport(ctx context.Context, report *common.Report, users []string, dbService *database.Service, currencies *common.CurrencyRegistry, logger *zap.Logger) balanceStats {
	stats := balanceStats{}

	for _, userId := range users {
		stats.totalUsers++

		balanceCount, err := processUser(ctx, report, userId, dbService, currencies)
		if err != nil {
			logger.Error("Failed to process user",
				zap.String("user_id", userId),
				zap.Error(err))
			continue
		}

		if balanceCount > 0 {
			stats.usersWithBalances++
			stats.totalBalances += balanceCount
		}
	}

	return stats
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	userFlag := flag.String("user", "", "Filter by specific user id (optional)")
	flag.Parse()

	logger.Info("Starting balance query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	currencies, err := common.LoadCurrencyRegistry(cfg.Commission.CurrenciesFile)
	if err != nil {
		logger.Fatal("Failed to load currencies", zap.Error(err))
	}

	// Read-only: the store is enough
	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	users, err := common.ResolveUsers(ctx, dbService, *userFlag, logger)
	if err != nil {
		logger.Fatal("Failed to resolve users", zap.Error(err))
	}

	report := common.NewReport(os.Stdout, common.WideWidth)
	report.Header("WALLET BALANCE REPORT")

	stats := processUsersAndGenerateReport(ctx, report, users, dbService, currencies, logger)

	report.Footer(fmt.Sprintf("SUMMARY: %d users with balances (%d total balances across %d users queried)",
		stats.usersWithBalances, stats.totalBalances, stats.totalUsers))

	logger.Info("Balance query completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int("users_with_balances", stats.usersWithBalances),
		zap.Int("total_balances", stats.totalBalances))
}
