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

package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"wallet-ledger-go/internal/metrics"
	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

const (
	maxRetryDelay  = time.Hour
	maxErrorLength = 1000
)

// WorkerConfig contains configuration for Worker
type WorkerConfig struct {
	Store           store.OutboxStore
	Sink            Sink
	Metrics         *metrics.Recorder
	PollingInterval time.Duration
	CleanupInterval time.Duration
	BatchSize       int
	MaxAttempts     int
	Retention       time.Duration
}

// Worker polls the outbox and hands due events to the sink
type Worker struct {
	store   store.OutboxStore
	sink    Sink
	metrics *metrics.Recorder

	pollingInterval time.Duration
	cleanupInterval time.Duration
	batchSize       int
	maxAttempts     int
	retention       time.Duration
	now             func() time.Time

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewWorker(cfg WorkerConfig) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.PollingInterval <= 0 {
		cfg.PollingInterval = 5 * time.Second
	}
	return &Worker{
		store:           cfg.Store,
		sink:            cfg.Sink,
		metrics:         cfg.Metrics,
		pollingInterval: cfg.PollingInterval,
		cleanupInterval: cfg.CleanupInterval,
		batchSize:       cfg.BatchSize,
		maxAttempts:     cfg.MaxAttempts,
		retention:       cfg.Retention,
		now:             time.Now,
		stopChan:        make(chan struct{}),
	}
}

// Start launches the poll and cleanup loops
func (w *Worker) Start(ctx context.Context) error {
	if w.store == nil || w.sink == nil {
		return fmt.Errorf("audit worker requires a store and a sink")
	}

	w.wg.Add(1)
	go w.pollLoop(ctx)

	if w.cleanupInterval > 0 && w.retention > 0 {
		w.wg.Add(1)
		go w.cleanupLoop(ctx)
	}

	zap.L().Info("Audit worker started",
		zap.Duration("polling_interval", w.pollingInterval),
		zap.Int("batch_size", w.batchSize),
		zap.Int("max_attempts", w.maxAttempts))
	return nil
}

// Stop ends both loops and waits for the batch in flight
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		zap.L().Info("Stopping audit worker")
		close(w.stopChan)
	})
	w.wg.Wait()
	zap.L().Info("Audit worker stopped")
}

func (w *Worker) pollLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollingInterval)
	defer ticker.Stop()

	w.drain(ctx)

	for {
		select {
		case <-ticker.C:
			w.drain(ctx)
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// drain processes full batches back to back so a backlog clears without
// waiting a polling interval per batch.
func (w *Worker) drain(ctx context.Context) {
	for {
		processed, err := w.ProcessBatch(ctx)
		if err != nil {
			zap.L().Error("Audit batch failed", zap.Error(err))
			return
		}
		if processed < w.batchSize {
			return
		}
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (w *Worker) cleanupLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.cleanup(ctx)
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	purged, err := w.store.PurgeDelivered(ctx, w.now().Add(-w.retention))
	if err != nil {
		zap.L().Error("Failed to purge delivered audit events", zap.Error(err))
		return
	}
	if purged > 0 {
		zap.L().Info("Purged delivered audit events",
			zap.Int64("count", purged),
			zap.Duration("retention", w.retention))
	}
}

// ProcessBatch delivers one batch of due events and returns how many it
// handled. Sink failures are recorded on the event; only outbox storage
// errors are returned.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	events, err := w.store.FetchDueEvents(ctx, w.now(), w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch due audit events: %w", err)
	}

	for _, event := range events {
		if err := w.deliver(ctx, event); err != nil {
			return 0, err
		}
	}

	if pending, err := w.store.CountPending(ctx); err == nil {
		w.metrics.SetOutboxPending(pending)
	}
	return len(events), nil
}

func (w *Worker) deliver(ctx context.Context, event models.AuditEvent) error {
	deliverErr := w.sink.Deliver(ctx, event)
	if deliverErr == nil {
		if err := w.store.MarkDelivered(ctx, event.Id, w.now()); err != nil {
			return fmt.Errorf("failed to mark audit event %s delivered: %w", event.Id, err)
		}
		w.metrics.ObserveDelivery(metrics.OutcomeDelivered)
		zap.L().Debug("Audit event delivered",
			zap.String("event_id", event.Id),
			zap.String("entry_id", event.EntryId))
		return nil
	}

	attempts := event.Attempts + 1
	deadLetter := errors.Is(deliverErr, ErrPermanent) || attempts >= w.maxAttempts
	nextAttempt := w.now().Add(retryDelay(w.pollingInterval, attempts))

	if err := w.store.MarkFailed(ctx, event.Id, truncate(deliverErr.Error(), maxErrorLength), nextAttempt, deadLetter); err != nil {
		return fmt.Errorf("failed to record audit delivery failure for %s: %w", event.Id, err)
	}

	if deadLetter {
		w.metrics.ObserveDelivery(metrics.OutcomeDeadLetter)
		zap.L().Error("Audit event dead-lettered",
			zap.String("event_id", event.Id),
			zap.String("entry_id", event.EntryId),
			zap.Int("attempts", attempts),
			zap.Error(deliverErr))
		return nil
	}

	w.metrics.ObserveDelivery(metrics.OutcomeRetry)
	zap.L().Warn("Audit delivery failed, will retry",
		zap.String("event_id", event.Id),
		zap.Int("attempts", attempts),
		zap.Time("next_attempt_at", nextAttempt),
		zap.Error(deliverErr))
	return nil
}

// retryDelay is the wait before the next attempt after `attempts` failures:
// the polling interval doubled per failure, capped at an hour.
func retryDelay(base time.Duration, attempts int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = maxRetryDelay

	delay := b.NextBackOff()
	for i := 1; i < attempts; i++ {
		delay = b.NextBackOff()
	}
	return delay
}

// truncate caps s at n bytes without splitting a UTF-8 sequence
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
