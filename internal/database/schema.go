package database

import "context"

// Amounts are TEXT so decimals survive the round trip exactly.
const schema = `
	-- Wallet Balances (Current State - Hot Data)
	CREATE TABLE IF NOT EXISTS wallet_balances (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		currency_code TEXT NOT NULL,
		balance TEXT NOT NULL DEFAULT '0',
		last_entry_id TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 1,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE(user_id, currency_code)
	);

	CREATE INDEX IF NOT EXISTS idx_wallet_balances_user_id ON wallet_balances(user_id);

	-- Ledger Entries (Audit Trail - Cold Data, append only)
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		currency_code TEXT NOT NULL,
		entry_type TEXT NOT NULL,
		delta TEXT NOT NULL,
		balance_before TEXT NOT NULL,
		resulting_balance TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'completed',
		idempotency_key TEXT NOT NULL UNIQUE,
		reference TEXT NOT NULL DEFAULT '',
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_entries_user_currency ON ledger_entries(user_id, currency_code);
	CREATE INDEX IF NOT EXISTS idx_ledger_entries_created_at ON ledger_entries(created_at);
	CREATE INDEX IF NOT EXISTS idx_ledger_entries_reference ON ledger_entries(reference);

	CREATE TRIGGER IF NOT EXISTS trg_ledger_entries_no_update
	BEFORE UPDATE ON ledger_entries
	BEGIN
		SELECT RAISE(ABORT, 'ledger entries are immutable');
	END;

	CREATE TRIGGER IF NOT EXISTS trg_ledger_entries_no_delete
	BEFORE DELETE ON ledger_entries
	BEGIN
		SELECT RAISE(ABORT, 'ledger entries are immutable');
	END;

	-- Audit Outbox (written with each ledger entry, drained by the worker)
	CREATE TABLE IF NOT EXISTS audit_outbox (
		id TEXT PRIMARY KEY,
		entry_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		attempts INTEGER NOT NULL DEFAULT 0,
		next_attempt_at TIMESTAMP NOT NULL,
		last_error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		delivered_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_audit_outbox_due ON audit_outbox(status, next_attempt_at);

	-- Commission Rules; operator_id '' is the global rule for a service
	CREATE TABLE IF NOT EXISTS commission_rules (
		id TEXT PRIMARY KEY,
		service_type TEXT NOT NULL,
		operator_id TEXT NOT NULL DEFAULT '',
		commission_type TEXT NOT NULL,
		commission_value TEXT NOT NULL DEFAULT '0',
		currency_code TEXT NOT NULL DEFAULT '',
		min_amount TEXT,
		max_amount TEXT,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		applied_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE(service_type, operator_id)
	);

	CREATE TABLE IF NOT EXISTS commission_transactions (
		id TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		service_type TEXT NOT NULL,
		operator_id TEXT NOT NULL DEFAULT '',
		base_amount TEXT NOT NULL,
		commission_type TEXT NOT NULL,
		commission_amount TEXT NOT NULL,
		total_charged TEXT NOT NULL,
		currency_code TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'completed',
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_commission_transactions_created_at ON commission_transactions(created_at);
	CREATE INDEX IF NOT EXISTS idx_commission_transactions_user_id ON commission_transactions(user_id);

	-- Rewards
	CREATE TABLE IF NOT EXISTS rewards_summaries (
		user_id TEXT PRIMARY KEY,
		currency_code TEXT NOT NULL,
		total_earned TEXT NOT NULL DEFAULT '0',
		available_balance TEXT NOT NULL DEFAULT '0',
		total_withdrawn TEXT NOT NULL DEFAULT '0',
		current_streak INTEGER NOT NULL DEFAULT 0,
		longest_streak INTEGER NOT NULL DEFAULT 0,
		trust_score INTEGER NOT NULL DEFAULT 50,
		level INTEGER NOT NULL DEFAULT 1,
		total_activities INTEGER NOT NULL DEFAULT 0,
		last_activity_at TIMESTAMP,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS activity_transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		category TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency_code TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'completed',
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_activity_transactions_user_created ON activity_transactions(user_id, created_at);
	`

func (s *Service) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}
