package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"wallet-ledger-go/internal/models"
)

// FetchDueEvents returns pending outbox events whose next attempt is due
func (s *Service) FetchDueEvents(ctx context.Context, now time.Time, limit int) ([]models.AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx, queryFetchDueEvents, dbTime(now), limit)
	if err != nil {
		return nil, storageError("fetch due audit events", err)
	}
	defer closeRows(rows)

	var events []models.AuditEvent
	for rows.Next() {
		var event models.AuditEvent
		var payload string
		var deliveredAt sql.NullTime
		err := rows.Scan(&event.Id, &event.EntryId, &event.EventType, &payload, &event.Status,
			&event.Attempts, &event.NextAttemptAt, &event.LastError, &event.CreatedAt, &deliveredAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		event.Payload = []byte(payload)
		if deliveredAt.Valid {
			t := deliveredAt.Time
			event.DeliveredAt = &t
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterate audit events", err)
	}
	return events, nil
}

// MarkDelivered records a successful delivery
func (s *Service) MarkDelivered(ctx context.Context, eventId string, at time.Time) error {
	if _, err := s.db.ExecContext(ctx, queryMarkEventDelivered, dbTime(at), eventId); err != nil {
		return storageError("mark audit event delivered", err)
	}
	return nil
}

// MarkFailed records a failed attempt and schedules the next one, or parks
// the event as a dead letter.
func (s *Service) MarkFailed(ctx context.Context, eventId, lastError string, nextAttemptAt time.Time, deadLetter bool) error {
	status := models.AuditEventPending
	if deadLetter {
		status = models.AuditEventDeadLetter
	}
	if _, err := s.db.ExecContext(ctx, queryMarkEventFailed, string(status), dbTime(nextAttemptAt), lastError, eventId); err != nil {
		return storageError("mark audit event failed", err)
	}
	return nil
}

// PurgeDelivered deletes delivered events older than before
func (s *Service) PurgeDelivered(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, queryPurgeDeliveredEvents, dbTime(before))
	if err != nil {
		return 0, storageError("purge delivered audit events", err)
	}
	return result.RowsAffected()
}

// CountPending returns the outbox backlog
func (s *Service) CountPending(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, queryCountPendingEvents).Scan(&count); err != nil {
		return 0, storageError("count pending audit events", err)
	}
	return count, nil
}
