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

// Package api is the in-process surface of the wallet core. It validates
// caller input, delegates to the ledger, commission and rewards services and
// logs the outcome the way a request handler would.
package api

import (
	"context"
	"fmt"

	"wallet-ledger-go/internal/commission"
	"wallet-ledger-go/internal/database"
	"wallet-ledger-go/internal/ledger"
	"wallet-ledger-go/internal/rewards"
)

// WalletService fronts the ledger, commission resolver and rewards aggregator
type WalletService struct {
	db         *database.Service
	mutator    *ledger.Mutator
	resolver   *commission.Resolver
	aggregator *rewards.Aggregator
}

func NewWalletService(db *database.Service, mutator *ledger.Mutator, resolver *commission.Resolver, aggregator *rewards.Aggregator) *WalletService {
	return &WalletService{
		db:         db,
		mutator:    mutator,
		resolver:   resolver,
		aggregator: aggregator,
	}
}

func (s *WalletService) HealthCheck(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	if _, err := s.db.CountPending(ctx); err != nil {
		return fmt.Errorf("outbox health check failed: %w", err)
	}
	return nil
}
