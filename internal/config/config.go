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

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"wallet-ledger-go/internal/models"
)

func Load() (*models.Config, error) {
	cfg := &models.Config{
		Database: models.DatabaseConfig{
			Path:         getEnvString("DATABASE_PATH", "wallet.db"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
		},
		Ledger: models.LedgerConfig{
			MaxAttempts: getEnvInt("LEDGER_MAX_ATTEMPTS", 3),
		},
		Commission: models.CommissionConfig{
			RulesFile:      getEnvString("COMMISSION_RULES_FILE", "commission_rules.yaml"),
			CurrenciesFile: getEnvString("CURRENCIES_FILE", "currencies.yaml"),
		},
		Rewards: models.RewardsConfig{
			CurrencyCode: strings.ToUpper(getEnvString("REWARDS_CURRENCY", "USD")),
			LevelsFile:   getEnvString("REWARDS_LEVELS_FILE", ""),
			MaxAttempts:  getEnvInt("REWARDS_MAX_ATTEMPTS", 3),
		},
		Audit: models.AuditConfig{
			Sink:         strings.ToLower(getEnvString("AUDIT_SINK", "log")),
			HTTPEndpoint: getEnvString("AUDIT_HTTP_ENDPOINT", ""),
			KafkaBrokers: getEnvList("AUDIT_KAFKA_BROKERS", []string{"localhost:9092"}),
			KafkaTopic:   getEnvString("AUDIT_KAFKA_TOPIC", "wallet-ledger-audit"),
			BatchSize:    getEnvInt("AUDIT_BATCH_SIZE", 100),
			MaxAttempts:  getEnvInt("AUDIT_MAX_ATTEMPTS", 10),
		},
		Metrics: models.MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Addr:    getEnvString("METRICS_ADDR", ":9090"),
		},
	}

	var err error
	if cfg.Database.ConnMaxLifetime, err = getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Database.ConnMaxIdleTime, err = getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.Database.PingTimeout, err = getEnvDuration("DB_PING_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.Database.BusyTimeout, err = getEnvDuration("DB_BUSY_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.Ledger.InitialBackoff, err = getEnvDuration("LEDGER_INITIAL_BACKOFF", 50*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.Ledger.MaxBackoff, err = getEnvDuration("LEDGER_MAX_BACKOFF", time.Second); err != nil {
		return nil, err
	}
	if cfg.Ledger.StorageTimeout, err = getEnvDuration("LEDGER_STORAGE_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.Commission.CacheTTL, err = getEnvDuration("COMMISSION_CACHE_TTL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.Rewards.TrustInterval, err = getEnvDuration("REWARDS_TRUST_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.Rewards.InitialBackoff, err = getEnvDuration("REWARDS_INITIAL_BACKOFF", 50*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.Rewards.StorageTimeout, err = getEnvDuration("REWARDS_STORAGE_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.Audit.HTTPTimeout, err = getEnvDuration("AUDIT_HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.Audit.PollingInterval, err = getEnvDuration("AUDIT_POLLING_INTERVAL", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.Audit.CleanupInterval, err = getEnvDuration("AUDIT_CLEANUP_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Audit.Retention, err = getEnvDuration("AUDIT_RETENTION", 7*24*time.Hour); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *models.Config) error {
	if cfg.Ledger.MaxAttempts < 1 {
		return fmt.Errorf("LEDGER_MAX_ATTEMPTS must be at least 1, got %d", cfg.Ledger.MaxAttempts)
	}
	if cfg.Rewards.MaxAttempts < 1 {
		return fmt.Errorf("REWARDS_MAX_ATTEMPTS must be at least 1, got %d", cfg.Rewards.MaxAttempts)
	}
	switch cfg.Audit.Sink {
	case "log", "kafka":
	case "http":
		if cfg.Audit.HTTPEndpoint == "" {
			return fmt.Errorf("AUDIT_HTTP_ENDPOINT is required when AUDIT_SINK=http")
		}
	default:
		return fmt.Errorf("unknown AUDIT_SINK %q (expected log, http or kafka)", cfg.Audit.Sink)
	}
	if cfg.Audit.BatchSize <= 0 {
		return fmt.Errorf("AUDIT_BATCH_SIZE must be positive, got %d", cfg.Audit.BatchSize)
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping blanks
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
