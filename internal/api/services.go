package api

import (
	"context"
	"fmt"

	"wallet-ledger-go/internal/commission"
	"wallet-ledger-go/internal/common"
	"wallet-ledger-go/internal/database"
	"wallet-ledger-go/internal/ledger"
	"wallet-ledger-go/internal/metrics"
	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/rewards"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// Services holds the wired core for commands
type Services struct {
	DbService  *database.Service
	Currencies *common.CurrencyRegistry
	Registry   *prometheus.Registry
	Metrics    *metrics.Recorder
	Mutator    *ledger.Mutator
	Resolver   *commission.Resolver
	Aggregator *rewards.Aggregator
	Wallet     *WalletService
}

// InitializeServices opens the store and builds the services on top of it.
// The mutator and aggregator share one KeyedMutex so wallet and summary
// locks come from the same table.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	currencies, err := common.LoadCurrencyRegistry(cfg.Commission.CurrenciesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load currencies: %w", err)
	}

	levels, err := rewards.LoadLevelTable(cfg.Rewards.LevelsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load reward levels: %w", err)
	}

	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	var registry *prometheus.Registry
	var recorder *metrics.Recorder
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		recorder = metrics.New(registry)
	}

	locks := common.NewKeyedMutex()
	mutator := ledger.NewMutator(dbService, cfg.Ledger,
		ledger.WithLocks(locks),
		ledger.WithCurrencies(currencies),
		ledger.WithMetrics(recorder))
	resolver := commission.NewResolver(dbService, cfg.Commission,
		commission.WithCurrencies(currencies),
		commission.WithMetrics(recorder))
	aggregator := rewards.NewAggregator(dbService, mutator, cfg.Rewards,
		rewards.WithLevels(levels),
		rewards.WithLocks(locks),
		rewards.WithMetrics(recorder))

	zap.L().Info("Services initialized",
		zap.Strings("currencies", currencies.Codes()),
		zap.Int("reward_levels", levels.Len()),
		zap.Bool("metrics_enabled", cfg.Metrics.Enabled))

	return &Services{
		DbService:  dbService,
		Currencies: currencies,
		Registry:   registry,
		Metrics:    recorder,
		Mutator:    mutator,
		Resolver:   resolver,
		Aggregator: aggregator,
		Wallet:     NewWalletService(dbService, mutator, resolver, aggregator),
	}, nil
}

func (cs *Services) Close() {
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}
