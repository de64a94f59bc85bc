// Package audit drains the ledger outbox into an external audit sink.
// Delivery is at least once: an event is marked delivered only after the
// sink accepts it, so consumers must dedupe on the event id.
package audit

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger-go/internal/models"
)

// ErrPermanent marks a delivery the sink will never accept. The worker
// dead-letters such events without further retries.
var ErrPermanent = errors.New("permanent delivery failure")

// Sink receives audit events
type Sink interface {
	Deliver(ctx context.Context, event models.AuditEvent) error
	Close() error
}

// NewSink builds the sink named by cfg.Sink
func NewSink(cfg models.AuditConfig) (Sink, error) {
	switch cfg.Sink {
	case "", "log":
		return NewLogSink(), nil
	case "http":
		return NewHTTPSink(cfg.HTTPEndpoint, cfg.HTTPTimeout)
	case "kafka":
		return NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
	default:
		return nil, fmt.Errorf("unknown audit sink %q", cfg.Sink)
	}
}
