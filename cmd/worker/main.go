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
	"errors"
	"flag"
	"net/http"
	"time"

	"wallet-ledger-go/internal/api"
	"wallet-ledger-go/internal/audit"
	"wallet-ledger-go/internal/common"
	"wallet-ledger-go/internal/config"
	"wallet-ledger-go/internal/metrics"
	"wallet-ledger-go/internal/rewards"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	noTrust := flag.Bool("no-trust", false, "Do not run the periodic trust score recompute")
	flag.Parse()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := common.SignalContext(context.Background())
	defer cancel()

	zap.L().Info("Starting wallet ledger worker", zap.String("audit_sink", cfg.Audit.Sink))

	services, err := api.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	sink, err := audit.NewSink(cfg.Audit)
	if err != nil {
		zap.L().Fatal("Failed to create audit sink", zap.Error(err))
	}
	defer func() {
		if err := sink.Close(); err != nil {
			zap.L().Warn("Failed to close audit sink", zap.Error(err))
		}
	}()

	worker := audit.NewWorker(audit.WorkerConfig{
		Store:           services.DbService,
		Sink:            sink,
		Metrics:         services.Metrics,
		PollingInterval: cfg.Audit.PollingInterval,
		CleanupInterval: cfg.Audit.CleanupInterval,
		BatchSize:       cfg.Audit.BatchSize,
		MaxAttempts:     cfg.Audit.MaxAttempts,
		Retention:       cfg.Audit.Retention,
	})
	if err := worker.Start(ctx); err != nil {
		zap.L().Fatal("Failed to start audit worker", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)

	if !*noTrust {
		trustJob := rewards.NewTrustJob(services.Aggregator, cfg.Rewards.TrustInterval)
		g.Go(func() error {
			return trustJob.Run(gctx)
		})
	}

	if cfg.Metrics.Enabled {
		server := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           metricsMux(services),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			zap.L().Info("Serving metrics", zap.String("addr", cfg.Metrics.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	zap.L().Info("Worker running, press Ctrl+C to stop")
	<-gctx.Done()
	zap.L().Info("Shutdown signal received, stopping worker...")

	done := make(chan struct{})
	go func() {
		worker.Stop()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Audit worker stopped gracefully")
	case <-time.After(shutdownTimeout):
		zap.L().Warn("Forced shutdown after timeout")
	}

	if err := g.Wait(); err != nil {
		zap.L().Error("Worker exited with error", zap.Error(err))
	}
}

func metricsMux(services *api.Services) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(services.Registry))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := services.Wallet.HealthCheck(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
