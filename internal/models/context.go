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
	"context"

	"github.com/shopspring/decimal"
)

type auditActorKey struct{}

// AuditActor identifies who triggered a mutation. It travels through context
// so the ledger can stamp outbox events without widening every signature.
type AuditActor struct {
	Actor     string `json:"actor,omitempty"`     // user or service that initiated the call
	Source    string `json:"source,omitempty"`    // calling path, e.g. "trading", "rewards"
	RequestId string `json:"request_id,omitempty"`
}

// WithAuditActor attaches actor data to a context.
func WithAuditActor(ctx context.Context, actor AuditActor) context.Context {
	return context.WithValue(ctx, auditActorKey{}, actor)
}

// GetAuditActor returns actor data from context, or the zero value if absent.
func GetAuditActor(ctx context.Context) AuditActor {
	actor, _ := ctx.Value(auditActorKey{}).(AuditActor)
	return actor
}

// MutationContext carries the causal reference and idempotency key for a
// balance adjustment.
type MutationContext struct {
	Reference      string
	IdempotencyKey string
	EntryType      EntryType
	Metadata       EntryMetadata
}

// DefaultEntryType picks deposit for credits and withdrawal for debits.
func DefaultEntryType(delta decimal.Decimal) EntryType {
	if delta.IsNegative() {
		return EntryTypeWithdrawal
	}
	return EntryTypeDeposit
}
