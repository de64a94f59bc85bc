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
	"errors"
	"flag"
	"fmt"
	"os"

	"wallet-ledger-go/internal/api"
	"wallet-ledger-go/internal/common"
	"wallet-ledger-go/internal/config"
	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type withdrawalRequest struct {
	userId string
	amount decimal.Decimal
	method string
}

func parseAndValidateFlags() (*withdrawalRequest, error) {
	userFlag := flag.String("user", "", "User id (required)")
	amountFlag := flag.String("amount", "", "Amount of earned rewards to withdraw (required)")
	methodFlag := flag.String("method", "wallet", "Payout method recorded on the activity")
	flag.Parse()

	if *userFlag == "" || *amountFlag == "" {
		return nil, fmt.Errorf("required flags: --user, --amount")
	}

	amount, err := decimal.NewFromString(*amountFlag)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be greater than zero")
	}

	return &withdrawalRequest{userId: *userFlag, amount: amount, method: *methodFlag}, nil
}

func printWithdrawalSummary(summary *models.RewardsSummary, amount decimal.Decimal, method string, precision int32) {
	report := common.NewReport(os.Stdout, common.DefaultWidth)
	report.Header("REWARDS WITHDRAWAL REQUEST")
	report.Item(false, "User:              %s", summary.UserId)
	report.Item(false, "Level:             %d", summary.Level)
	report.Item(false, "Available:         %s %s", common.FormatAmount(summary.AvailableBalance, precision), summary.CurrencyCode)
	report.Item(false, "Withdrawal Amount: %s %s", common.FormatAmount(amount, precision), summary.CurrencyCode)
	report.Item(true, "Method:            %s", method)
	report.Footer("Submitting withdrawal...")
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	req, err := parseAndValidateFlags()
	if err != nil {
		logger.Fatal("Invalid arguments", zap.Error(err))
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

	ctx = models.WithAuditActor(ctx, models.AuditActor{
		Actor:  req.userId,
		Source: "cmd/withdrawal",
	})

	summary, err := services.Wallet.GetSummary(ctx, req.userId)
	if err != nil {
		logger.Fatal("Failed to load rewards summary", zap.String("user_id", req.userId), zap.Error(err))
	}
	precision := services.Currencies.Precision(summary.CurrencyCode)
	printWithdrawalSummary(summary, req.amount, req.method, precision)

	ok, err := services.Wallet.Withdraw(ctx, req.userId, req.amount, req.method)
	switch {
	case err != nil && errors.Is(err, store.ErrConcurrentUpdate):
		logger.Fatal("Rewards summary kept changing underneath the withdrawal, retry later", zap.Error(err))
	case err != nil && errors.Is(err, store.ErrStorageFailure):
		logger.Fatal("Withdrawal failed, earned balance was restored", zap.Error(err))
	case err != nil:
		logger.Fatal("Withdrawal failed", zap.Error(err))
	case !ok:
		fmt.Printf("Insufficient earned balance: %s %s available\n",
			common.FormatAmount(summary.AvailableBalance, precision), summary.CurrencyCode)
		os.Exit(1)
	}

	fmt.Printf("Withdrawal complete: %s %s credited to the wallet\n",
		common.FormatAmount(req.amount, precision), summary.CurrencyCode)
	logger.Info("Rewards withdrawal complete",
		zap.String("user_id", req.userId),
		zap.String("amount", req.amount.String()),
		zap.String("method", req.method))
}
