package audit

import (
	"context"

	"wallet-ledger-go/internal/models"

	"go.uber.org/zap"
)

// LogSink writes events to the process log
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink() *LogSink {
	return &LogSink{logger: zap.L().Named("audit")}
}

func (s *LogSink) Deliver(ctx context.Context, event models.AuditEvent) error {
	s.logger.Info("Audit event",
		zap.String("event_id", event.Id),
		zap.String("event_type", event.EventType),
		zap.String("entry_id", event.EntryId),
		zap.ByteString("payload", event.Payload))
	return nil
}

func (s *LogSink) Close() error {
	return nil
}
