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
	"strings"

	"wallet-ledger-go/internal/api"
	"wallet-ledger-go/internal/common"
	"wallet-ledger-go/internal/config"
	"wallet-ledger-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type adjustmentRequest struct {
	userId         string
	currencyCode   string
	delta          decimal.Decimal
	entryType      models.EntryType
	reference      string
	idempotencyKey string
	reason         string
}

func parseAndValidateFlags() (*adjustmentRequest, error) {
	userFlag := flag.String("user", "", "User id (required)")
	currencyFlag := flag.String("currency", "", "Currency code, e.g. USD or BTC (required)")
	deltaFlag := flag.String("delta", "", "Signed amount; negative debits the wallet (required)")
	typeFlag := flag.String("type", "", "Entry type (default: deposit for credits, withdrawal for debits)")
	referenceFlag := flag.String("reference", "", "External reference (optional)")
	keyFlag := flag.String("key", "", "Idempotency key; reuse it to retry safely (default: generated)")
	reasonFlag := flag.String("reason", "", "Reason recorded in entry metadata (optional)")
	flag.Parse()

	if *userFlag == "" || *currencyFlag == "" || *deltaFlag == "" {
		return nil, fmt.Errorf("required flags: --user, --currency, --delta")
	}

	delta, err := decimal.NewFromString(*deltaFlag)
	if err != nil {
		return nil, fmt.Errorf("invalid delta format: %w", err)
	}
	if delta.IsZero() {
		return nil, fmt.Errorf("delta must be non-zero")
	}

	key := *keyFlag
	if key == "" {
		key = "manual-" + uuid.New().String()
	}

	return &adjustmentRequest{
		userId:         *userFlag,
		currencyCode:   strings.ToUpper(*currencyFlag),
		delta:          delta,
		entryType:      models.EntryType(*typeFlag),
		reference:      *referenceFlag,
		idempotencyKey: key,
		reason:         *reasonFlag,
	}, nil
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

	operator := os.Getenv("USER")
	ctx = models.WithAuditActor(ctx, models.AuditActor{
		Actor:     operator,
		Source:    "cmd/adjust",
		RequestId: req.idempotencyKey,
	})

	metadata := models.EntryMetadata{Source: "manual"}
	if req.reason != "" {
		metadata.Attributes = map[string]string{"reason": req.reason}
	}

	result := services.Wallet.ApplyAdjustment(ctx, req.userId, req.currencyCode, req.delta, models.MutationContext{
		Reference:      req.reference,
		IdempotencyKey: req.idempotencyKey,
		EntryType:      req.entryType,
		Metadata:       metadata,
	})
	if !result.Success {
		logger.Fatal("Adjustment failed",
			zap.String("user_id", req.userId),
			zap.String("currency_code", req.currencyCode),
			zap.String("delta", req.delta.String()),
			zap.String("idempotency_key", req.idempotencyKey),
			zap.String("error", result.Error))
	}

	precision := services.Currencies.Precision(result.Currency)
	report := common.NewReport(os.Stdout, common.DefaultWidth)
	report.Header("BALANCE ADJUSTED")
	report.Item(false, "User:            %s", result.UserId)
	report.Item(false, "Entry:           %s", result.EntryId)
	report.Item(false, "Delta:           %s %s", common.FormatAmount(result.Delta, precision), result.Currency)
	report.Item(false, "New balance:     %s %s", common.FormatAmount(result.NewBalance, precision), result.Currency)
	report.Item(true, "Idempotency key: %s", req.idempotencyKey)
	report.Footer("Re-run with the same --key to retry without double applying")
}
