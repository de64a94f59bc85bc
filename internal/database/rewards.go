package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GetSummary returns the stored rewards summary for a user
func (s *Service) GetSummary(ctx context.Context, userId string) (*models.RewardsSummary, error) {
	summary, err := scanSummary(s.db.QueryRowContext(ctx, queryGetSummary, userId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrSummaryNotFound, userId)
	}
	if err != nil {
		return nil, storageError("get rewards summary", err)
	}
	return summary, nil
}

// SaveActivity inserts the activity and writes the summary in one transaction.
// An activity id that was already recorded returns ErrDuplicateTransaction.
func (s *Service) SaveActivity(ctx context.Context, activity models.ActivityTransaction, summary *models.RewardsSummary, expectedVersion int64) (*models.RewardsSummary, error) {
	if activity.Id == "" {
		activity.Id = uuid.New().String()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Activity ids are caller supplied; a resubmission is a duplicate, not a race
	var existing int
	if err := tx.QueryRowContext(ctx, queryActivityExists, activity.Id).Scan(&existing); err != nil {
		return nil, storageError("check activity id", err)
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: activity %s already recorded", store.ErrDuplicateTransaction, activity.Id)
	}

	_, err = tx.ExecContext(ctx, queryInsertActivity,
		activity.Id, activity.UserId, activity.Category, activity.Amount.String(), activity.CurrencyCode,
		activity.Description, string(activity.Status), dbTime(activity.CreatedAt))
	if err != nil {
		return nil, storageError("insert activity", err)
	}

	var saved *models.RewardsSummary
	if summary != nil {
		saved, err = writeSummary(ctx, tx, *summary, expectedVersion)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, storageError("commit activity", err)
	}

	zap.L().Debug("Activity recorded",
		zap.String("activity_id", activity.Id),
		zap.String("user_id", activity.UserId),
		zap.String("category", activity.Category),
		zap.String("amount", activity.Amount.String()))
	return saved, nil
}

// UpdateSummary writes the summary guarded by expectedVersion
func (s *Service) UpdateSummary(ctx context.Context, summary models.RewardsSummary, expectedVersion int64) (*models.RewardsSummary, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	saved, err := writeSummary(ctx, tx, summary, expectedVersion)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, storageError("commit summary", err)
	}
	return saved, nil
}

func writeSummary(ctx context.Context, tx *sql.Tx, summary models.RewardsSummary, expectedVersion int64) (*models.RewardsSummary, error) {
	now := time.Now().UTC()
	summary.UpdatedAt = now

	var lastActivity any
	if summary.LastActivityAt != nil {
		lastActivity = dbTime(*summary.LastActivityAt)
	}

	if expectedVersion == 0 {
		if summary.CreatedAt.IsZero() {
			summary.CreatedAt = now
		}
		_, err := tx.ExecContext(ctx, queryInsertSummary,
			summary.UserId, summary.CurrencyCode, summary.TotalEarned.String(), summary.AvailableBalance.String(),
			summary.TotalWithdrawn.String(), summary.CurrentStreak, summary.LongestStreak, summary.TrustScore,
			summary.Level, summary.TotalActivities, lastActivity, dbTime(summary.CreatedAt), dbTime(now))
		if err != nil {
			return nil, storageError("insert rewards summary", err)
		}
		summary.Version = 1
		return &summary, nil
	}

	result, err := tx.ExecContext(ctx, queryUpdateSummary,
		summary.TotalEarned.String(), summary.AvailableBalance.String(), summary.TotalWithdrawn.String(),
		summary.CurrentStreak, summary.LongestStreak, summary.TrustScore, summary.Level,
		summary.TotalActivities, lastActivity, dbTime(now), summary.UserId, expectedVersion)
	if err != nil {
		return nil, storageError("update rewards summary", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, storageError("check rows affected", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("rewards summary update failed - %w", store.ErrConcurrentModification)
	}

	summary.Version = expectedVersion + 1
	return &summary, nil
}

// CountActivitiesSince counts a user's activities created at or after since
func (s *Service) CountActivitiesSince(ctx context.Context, userId string, since time.Time) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, queryCountActivitiesSince, userId, dbTime(since)).Scan(&count); err != nil {
		return 0, storageError("count activities", err)
	}
	return count, nil
}

// GetActivityStats counts a user's activities by status, excluding payouts
func (s *Service) GetActivityStats(ctx context.Context, userId string) (models.ActivityStats, error) {
	var stats models.ActivityStats

	rows, err := s.db.QueryContext(ctx, queryActivityStats, userId, models.ActivityCategoryWithdrawal)
	if err != nil {
		return stats, storageError("load activity stats", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return stats, fmt.Errorf("failed to scan activity stats: %w", err)
		}
		switch models.ActivityStatus(status) {
		case models.ActivityCompleted:
			stats.Completed = count
		case models.ActivityFailed:
			stats.Failed = count
		case models.ActivityDisputed:
			stats.Disputed = count
		}
	}
	if err := rows.Err(); err != nil {
		return stats, storageError("iterate activity stats", err)
	}
	return stats, nil
}

// ListSummaryUsers returns every user with a rewards summary
func (s *Service) ListSummaryUsers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, queryListSummaryUsers)
	if err != nil {
		return nil, storageError("list summary users", err)
	}
	defer closeRows(rows)

	var users []string
	for rows.Next() {
		var userId string
		if err := rows.Scan(&userId); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		users = append(users, userId)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterate summary users", err)
	}
	return users, nil
}

func scanSummary(row rowScanner) (*models.RewardsSummary, error) {
	var summary models.RewardsSummary
	var lastActivity sql.NullTime
	err := row.Scan(&summary.UserId, &summary.CurrencyCode, &summary.TotalEarned, &summary.AvailableBalance,
		&summary.TotalWithdrawn, &summary.CurrentStreak, &summary.LongestStreak, &summary.TrustScore,
		&summary.Level, &summary.TotalActivities, &lastActivity, &summary.Version,
		&summary.CreatedAt, &summary.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastActivity.Valid {
		t := lastActivity.Time.UTC()
		summary.LastActivityAt = &t
	}
	return &summary, nil
}
