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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserBalance represents a user's balance for a specific currency
type UserBalance struct {
	CurrencyCode string          `json:"currency_code"`
	Balance      decimal.Decimal `json:"balance"`
}

// TransactionRecord represents a ledger entry in the user's history
type TransactionRecord struct {
	Id               string          `json:"id"`
	Type             EntryType       `json:"type"`
	CurrencyCode     string          `json:"currency_code"`
	Delta            decimal.Decimal `json:"delta"`
	ResultingBalance decimal.Decimal `json:"resulting_balance"`
	Reference        string          `json:"reference,omitempty"`
	Status           EntryStatus     `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
}

// MutationResult represents the caller-visible outcome of a balance change
type MutationResult struct {
	Success    bool            `json:"success"`
	EntryId    string          `json:"entry_id,omitempty"`
	UserId     string          `json:"user_id,omitempty"`
	Currency   string          `json:"currency_code,omitempty"`
	Delta      decimal.Decimal `json:"delta,omitempty"`
	NewBalance decimal.Decimal `json:"new_balance,omitempty"`
	Error      string          `json:"error,omitempty"`
}
