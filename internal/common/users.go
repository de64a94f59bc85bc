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

package common

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// BalanceUserLister lists users that hold at least one wallet balance row
type BalanceUserLister interface {
	ListBalanceUsers(ctx context.Context) ([]string, error)
}

// ResolveUsers returns the users a command should cover.
// If userFilter is provided, returns just that user.
// If userFilter is empty, returns every user holding a balance.
func ResolveUsers(ctx context.Context, lister BalanceUserLister, userFilter string, logger *zap.Logger) ([]string, error) {
	if userFilter != "" {
		logger.Info("Restricting to single user", zap.String("user_id", userFilter))
		return []string{userFilter}, nil
	}

	users, err := lister.ListBalanceUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}

	logger.Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}
