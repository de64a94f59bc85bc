package models

import "time"

// Config represents the application configuration
type Config struct {
	Database   DatabaseConfig
	Ledger     LedgerConfig
	Commission CommissionConfig
	Rewards    RewardsConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	BusyTimeout     time.Duration
}

// LedgerConfig holds balance mutator retry settings
type LedgerConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	StorageTimeout time.Duration
}

// CommissionConfig holds commission resolver settings
type CommissionConfig struct {
	CacheTTL       time.Duration
	RulesFile      string
	CurrenciesFile string
}

// RewardsConfig holds rewards aggregator settings
type RewardsConfig struct {
	CurrencyCode   string
	LevelsFile     string
	TrustInterval  time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	StorageTimeout time.Duration
}

// AuditConfig holds outbox delivery settings
type AuditConfig struct {
	Sink            string // log, http, kafka
	HTTPEndpoint    string
	HTTPTimeout     time.Duration
	KafkaBrokers    []string
	KafkaTopic      string
	PollingInterval time.Duration
	CleanupInterval time.Duration
	BatchSize       int
	MaxAttempts     int
	Retention       time.Duration
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool
	Addr    string
}
