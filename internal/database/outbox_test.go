package database

import (
	"context"
	"testing"
	"time"

	"wallet-ledger-go/internal/models"
)

func TestOutboxLifecycle(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()

	for _, key := range []string{"k1", "k2", "k3"} {
		if _, _, err := service.ApplyMutation(ctx, mutation("user1", "USD", "1", key)); err != nil {
			t.Fatalf("ApplyMutation failed: %v", err)
		}
	}

	now := time.Now().Add(time.Second)
	events, err := service.FetchDueEvents(ctx, now, 2)
	if err != nil {
		t.Fatalf("FetchDueEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected batch of 2, got %d", len(events))
	}

	if err := service.MarkDelivered(ctx, events[0].Id, now); err != nil {
		t.Fatalf("MarkDelivered failed: %v", err)
	}
	if err := service.MarkFailed(ctx, events[1].Id, "sink down", now.Add(time.Hour), false); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	pending, err := service.CountPending(ctx)
	if err != nil {
		t.Fatalf("CountPending failed: %v", err)
	}
	if pending != 2 {
		t.Errorf("Expected 2 pending, got %d", pending)
	}

	// The rescheduled event is not due yet
	due, err := service.FetchDueEvents(ctx, now, 10)
	if err != nil {
		t.Fatalf("FetchDueEvents failed: %v", err)
	}
	if len(due) != 1 || due[0].Id == events[1].Id {
		t.Fatalf("Expected only the untouched event to be due, got %d", len(due))
	}

	later, err := service.FetchDueEvents(ctx, now.Add(2*time.Hour), 10)
	if err != nil {
		t.Fatalf("FetchDueEvents failed: %v", err)
	}
	var retried *models.AuditEvent
	for i := range later {
		if later[i].Id == events[1].Id {
			retried = &later[i]
		}
	}
	if retried == nil {
		t.Fatalf("Expected rescheduled event to be due later")
	}
	if retried.Attempts != 1 || retried.LastError != "sink down" {
		t.Errorf("Unexpected retry state: attempts=%d last_error=%q", retried.Attempts, retried.LastError)
	}

	if err := service.MarkFailed(ctx, events[1].Id, "gave up", now, true); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}
	pending, err = service.CountPending(ctx)
	if err != nil {
		t.Fatalf("CountPending failed: %v", err)
	}
	if pending != 1 {
		t.Errorf("Expected dead letter to leave 1 pending, got %d", pending)
	}

	purged, err := service.PurgeDelivered(ctx, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("PurgeDelivered failed: %v", err)
	}
	if purged != 1 {
		t.Errorf("Expected 1 purged event, got %d", purged)
	}
}
