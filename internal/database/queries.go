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

package database

const (
	entryColumns = `id, user_id, currency_code, entry_type, delta, balance_before, resulting_balance,
		status, idempotency_key, reference, metadata, created_at`

	// Balance queries
	queryGetBalance = `
		SELECT balance
		FROM wallet_balances
		WHERE user_id = ? AND currency_code = ?`

	queryGetAllUserBalances = `
		SELECT id, user_id, currency_code, balance, last_entry_id, version, updated_at
		FROM wallet_balances
		WHERE user_id = ? AND balance != '0'
		ORDER BY currency_code`

	queryListBalanceUsers = `
		SELECT DISTINCT user_id
		FROM wallet_balances
		ORDER BY user_id`

	queryGetWalletBalance = `
		SELECT id, balance, version
		FROM wallet_balances
		WHERE user_id = ? AND currency_code = ?`

	queryInsertWalletBalance = `
		INSERT INTO wallet_balances (id, user_id, currency_code, balance, version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryUpdateWalletBalance = `
		UPDATE wallet_balances
		SET balance = ?, last_entry_id = ?, version = version + 1, updated_at = ?
		WHERE user_id = ? AND currency_code = ? AND version = ?`

	queryReconcileDeltas = `
		SELECT delta
		FROM ledger_entries
		WHERE user_id = ? AND currency_code = ? AND status = 'completed'`

	// Ledger entry queries
	queryGetEntryByIdempotencyKey = `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE idempotency_key = ?`

	queryGetEntryById = `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE id = ?`

	queryInsertEntry = `
		INSERT INTO ledger_entries (` + entryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetEntryHistory = `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE user_id = ? AND currency_code = ?
		ORDER BY rowid DESC
		LIMIT ? OFFSET ?`

	// Outbox queries
	queryInsertAuditEvent = `
		INSERT INTO audit_outbox (id, entry_id, event_type, payload, status, attempts, next_attempt_at, created_at)
		VALUES (?, ?, ?, ?, 'pending', 0, ?, ?)`

	queryFetchDueEvents = `
		SELECT id, entry_id, event_type, payload, status, attempts, next_attempt_at, last_error, created_at, delivered_at
		FROM audit_outbox
		WHERE status = 'pending' AND next_attempt_at <= ?
		ORDER BY rowid
		LIMIT ?`

	queryMarkEventDelivered = `
		UPDATE audit_outbox
		SET status = 'delivered', attempts = attempts + 1, delivered_at = ?, last_error = ''
		WHERE id = ?`

	queryMarkEventFailed = `
		UPDATE audit_outbox
		SET status = ?, attempts = attempts + 1, next_attempt_at = ?, last_error = ?
		WHERE id = ?`

	queryPurgeDeliveredEvents = `
		DELETE FROM audit_outbox
		WHERE status = 'delivered' AND delivered_at < ?`

	queryCountPendingEvents = `
		SELECT COUNT(*) FROM audit_outbox WHERE status = 'pending'`

	// Commission queries
	ruleColumns = `id, service_type, operator_id, commission_type, commission_value, currency_code,
		min_amount, max_amount, is_active, applied_by, created_at, updated_at`

	queryFindActiveRules = `
		SELECT ` + ruleColumns + `
		FROM commission_rules
		WHERE service_type = ? AND is_active = 1`

	queryGetRule = `
		SELECT ` + ruleColumns + `
		FROM commission_rules
		WHERE service_type = ? AND operator_id = ?`

	queryListRules = `
		SELECT ` + ruleColumns + `
		FROM commission_rules
		WHERE is_active = 1 OR ?
		ORDER BY service_type, operator_id`

	queryUpsertRule = `
		INSERT INTO commission_rules (` + ruleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(service_type, operator_id) DO UPDATE SET
			commission_type = excluded.commission_type,
			commission_value = excluded.commission_value,
			currency_code = excluded.currency_code,
			min_amount = excluded.min_amount,
			max_amount = excluded.max_amount,
			is_active = excluded.is_active,
			applied_by = excluded.applied_by,
			updated_at = excluded.updated_at`

	queryDisableRule = `
		UPDATE commission_rules
		SET is_active = 0, updated_at = ?
		WHERE service_type = ? AND operator_id = ?`

	queryInsertCommissionTransaction = `
		INSERT INTO commission_transactions (
			id, transaction_id, user_id, service_type, operator_id, base_amount, commission_type,
			commission_amount, total_charged, currency_code, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryCommissionStatsRows = `
		SELECT service_type, commission_type, commission_amount
		FROM commission_transactions
		WHERE created_at >= ? AND created_at < ?`

	// Rewards queries
	summaryColumns = `user_id, currency_code, total_earned, available_balance, total_withdrawn,
		current_streak, longest_streak, trust_score, level, total_activities, last_activity_at,
		version, created_at, updated_at`

	queryGetSummary = `
		SELECT ` + summaryColumns + `
		FROM rewards_summaries
		WHERE user_id = ?`

	queryInsertSummary = `
		INSERT INTO rewards_summaries (` + summaryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`

	queryUpdateSummary = `
		UPDATE rewards_summaries
		SET total_earned = ?, available_balance = ?, total_withdrawn = ?, current_streak = ?,
			longest_streak = ?, trust_score = ?, level = ?, total_activities = ?, last_activity_at = ?,
			version = version + 1, updated_at = ?
		WHERE user_id = ? AND version = ?`

	queryActivityExists = `
		SELECT COUNT(*) FROM activity_transactions WHERE id = ?`

	queryInsertActivity = `
		INSERT INTO activity_transactions (id, user_id, category, amount, currency_code, description, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	queryCountActivitiesSince = `
		SELECT COUNT(*)
		FROM activity_transactions
		WHERE user_id = ? AND created_at >= ?`

	queryActivityStats = `
		SELECT status, COUNT(*)
		FROM activity_transactions
		WHERE user_id = ? AND category != ?
		GROUP BY status`

	queryListSummaryUsers = `
		SELECT user_id FROM rewards_summaries ORDER BY user_id`
)
