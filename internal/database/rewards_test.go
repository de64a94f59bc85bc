package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/shopspring/decimal"
)

func testSummary(userId string) models.RewardsSummary {
	return models.RewardsSummary{
		UserId:           userId,
		CurrencyCode:     "USD",
		TotalEarned:      decimal.NewFromInt(10),
		AvailableBalance: decimal.NewFromInt(10),
		TotalWithdrawn:   decimal.Zero,
		CurrentStreak:    1,
		LongestStreak:    1,
		TrustScore:       50,
		Level:            1,
		TotalActivities:  1,
	}
}

func TestSaveActivity_CreatesSummary(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()

	at := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	summary := testSummary("user1")
	summary.LastActivityAt = &at

	saved, err := service.SaveActivity(ctx, models.ActivityTransaction{
		UserId: "user1", Category: "referral", Amount: decimal.NewFromInt(10),
		CurrencyCode: "USD", Status: models.ActivityCompleted, CreatedAt: at,
	}, &summary, 0)
	if err != nil {
		t.Fatalf("SaveActivity failed: %v", err)
	}
	if saved.Version != 1 {
		t.Errorf("Expected version 1, got %d", saved.Version)
	}

	loaded, err := service.GetSummary(ctx, "user1")
	if err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if !loaded.AvailableBalance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected available 10, got %s", loaded.AvailableBalance)
	}
	if loaded.LastActivityAt == nil || !loaded.LastActivityAt.Equal(at) {
		t.Errorf("Expected last activity %v, got %v", at, loaded.LastActivityAt)
	}

	count, err := service.CountActivitiesSince(ctx, "user1", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("CountActivitiesSince failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 activity this month, got %d", count)
	}
	count, err = service.CountActivitiesSince(ctx, "user1", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("CountActivitiesSince failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 activities next month, got %d", count)
	}
}

func TestUpdateSummary_VersionConflict(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()

	if _, err := service.UpdateSummary(ctx, testSummary("user1"), 0); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	summary := testSummary("user1")
	summary.AvailableBalance = decimal.NewFromInt(4)
	saved, err := service.UpdateSummary(ctx, summary, 1)
	if err != nil {
		t.Fatalf("UpdateSummary failed: %v", err)
	}
	if saved.Version != 2 {
		t.Errorf("Expected version 2, got %d", saved.Version)
	}

	// A writer holding the old version loses
	_, err = service.UpdateSummary(ctx, testSummary("user1"), 1)
	if !errors.Is(err, store.ErrConcurrentModification) {
		t.Fatalf("Expected ErrConcurrentModification, got %v", err)
	}

	// Two first-time inserts race on the primary key
	_, err = service.UpdateSummary(ctx, testSummary("user1"), 0)
	if !errors.Is(err, store.ErrConcurrentModification) {
		t.Fatalf("Expected ErrConcurrentModification for duplicate insert, got %v", err)
	}

	loaded, err := service.GetSummary(ctx, "user1")
	if err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if !loaded.AvailableBalance.Equal(decimal.NewFromInt(4)) {
		t.Errorf("Expected available 4, got %s", loaded.AvailableBalance)
	}
}

func TestSaveActivity_RollsBackOnConflict(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()

	summary := testSummary("user1")
	_, err := service.SaveActivity(ctx, models.ActivityTransaction{
		UserId: "user1", Category: "referral", Amount: decimal.NewFromInt(10), CurrencyCode: "USD", Status: models.ActivityCompleted,
	}, &summary, 7)
	if !errors.Is(err, store.ErrConcurrentModification) {
		t.Fatalf("Expected ErrConcurrentModification, got %v", err)
	}

	stats, err := service.GetActivityStats(ctx, "user1")
	if err != nil {
		t.Fatalf("GetActivityStats failed: %v", err)
	}
	if stats.Completed != 0 {
		t.Errorf("Expected activity insert to roll back, got %d completed", stats.Completed)
	}
}

func TestGetSummary_NotFound(t *testing.T) {
	service := setupTestDb(t)

	_, err := service.GetSummary(context.Background(), "nobody")
	if !errors.Is(err, store.ErrSummaryNotFound) {
		t.Errorf("Expected ErrSummaryNotFound, got %v", err)
	}
}

func TestGetActivityStatsAndUsers(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()

	statuses := []models.ActivityStatus{models.ActivityCompleted, models.ActivityCompleted, models.ActivityFailed, models.ActivityDisputed}
	for _, status := range statuses {
		_, err := service.SaveActivity(ctx, models.ActivityTransaction{
			UserId: "user1", Category: "task", Amount: decimal.NewFromInt(1), CurrencyCode: "USD", Status: status,
		}, nil, 0)
		if err != nil {
			t.Fatalf("SaveActivity failed: %v", err)
		}
	}

	stats, err := service.GetActivityStats(ctx, "user1")
	if err != nil {
		t.Fatalf("GetActivityStats failed: %v", err)
	}
	want := models.ActivityStats{Completed: 2, Failed: 1, Disputed: 1}
	if stats != want {
		t.Errorf("Expected %+v, got %+v", want, stats)
	}

	for _, user := range []string{"zed", "amy"} {
		if _, err := service.UpdateSummary(ctx, testSummary(user), 0); err != nil {
			t.Fatalf("UpdateSummary failed: %v", err)
		}
	}
	users, err := service.ListSummaryUsers(ctx)
	if err != nil {
		t.Fatalf("ListSummaryUsers failed: %v", err)
	}
	if len(users) != 2 || users[0] != "amy" {
		t.Errorf("Expected [amy zed], got %v", users)
	}
}

func TestSaveActivity_DuplicateIdIsNotAConflict(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()

	activity := models.ActivityTransaction{
		Id: "act-1", UserId: "user1", Category: "referral", Amount: decimal.NewFromInt(10), CurrencyCode: "USD", Status: models.ActivityCompleted,
	}
	summary := testSummary("user1")
	if _, err := service.SaveActivity(ctx, activity, &summary, 0); err != nil {
		t.Fatalf("SaveActivity failed: %v", err)
	}

	again := testSummary("user1")
	again.TotalEarned = decimal.NewFromInt(20)
	_, err := service.SaveActivity(ctx, activity, &again, 1)
	if !errors.Is(err, store.ErrDuplicateTransaction) {
		t.Fatalf("Expected ErrDuplicateTransaction, got %v", err)
	}
	if store.IsRetryable(err) {
		t.Errorf("Duplicate activity must not be retryable: %v", err)
	}

	saved, err := service.GetSummary(ctx, "user1")
	if err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if saved.Version != 1 || !saved.TotalEarned.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected summary untouched at version 1 earning 10, got version %d earning %s", saved.Version, saved.TotalEarned)
	}
}

func TestGetActivityStats_ExcludesWithdrawals(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()

	activities := []models.ActivityTransaction{
		{UserId: "user1", Category: "task", Amount: decimal.NewFromInt(5), CurrencyCode: "USD", Status: models.ActivityCompleted},
		{UserId: "user1", Category: "task", Amount: decimal.NewFromInt(5), CurrencyCode: "USD", Status: models.ActivityFailed},
		{UserId: "user1", Category: models.ActivityCategoryWithdrawal, Amount: decimal.NewFromInt(-5), CurrencyCode: "USD", Status: models.ActivityCompleted},
	}
	for _, activity := range activities {
		if _, err := service.SaveActivity(ctx, activity, nil, 0); err != nil {
			t.Fatalf("SaveActivity failed: %v", err)
		}
	}

	stats, err := service.GetActivityStats(ctx, "user1")
	if err != nil {
		t.Fatalf("GetActivityStats failed: %v", err)
	}
	want := models.ActivityStats{Completed: 1, Failed: 1}
	if stats != want {
		t.Errorf("Expected %+v, got %+v", want, stats)
	}
}
