package rewards

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-ledger-go/internal/common"
	"wallet-ledger-go/internal/models"

	"go.uber.org/zap"
)

// RecomputeTrustScores refreshes every user's trust score from their
// activity history. A failure for one user does not stop the others.
func (a *Aggregator) RecomputeTrustScores(ctx context.Context) (int, error) {
	users, err := a.store.ListSummaryUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list rewards users: %w", err)
	}

	updated := 0
	var errs []error
	for _, userId := range users {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		changed, err := a.recomputeTrustScore(ctx, userId)
		if err != nil {
			zap.L().Error("Failed to recompute trust score", zap.String("user_id", userId), zap.Error(err))
			errs = append(errs, fmt.Errorf("user %s: %w", userId, err))
			continue
		}
		if changed {
			updated++
		}
	}

	zap.L().Info("Trust scores recomputed",
		zap.Int("users", len(users)),
		zap.Int("updated", updated),
		zap.Int("failed", len(errs)))
	return updated, errors.Join(errs...)
}

func (a *Aggregator) recomputeTrustScore(ctx context.Context, userId string) (bool, error) {
	unlock, err := a.locks.Lock(ctx, common.SummaryKey(userId))
	if err != nil {
		return false, err
	}
	defer unlock()

	changed := false
	_, err = a.withRetry(ctx, "recompute_trust", func(ctx context.Context) (*models.RewardsSummary, error) {
		summary, err := a.store.GetSummary(ctx, userId)
		if err != nil {
			return nil, err
		}
		stats, err := a.store.GetActivityStats(ctx, userId)
		if err != nil {
			return nil, err
		}

		score := TrustScore(TrustInputs{
			AccountAge:      a.now().Sub(summary.CreatedAt),
			Stats:           stats,
			TotalActivities: summary.TotalActivities,
			CurrentStreak:   summary.CurrentStreak,
			Level:           summary.Level,
		})
		if score == summary.TrustScore {
			changed = false
			return summary, nil
		}

		zap.L().Debug("Trust score changed",
			zap.String("user_id", userId),
			zap.Int("old_score", summary.TrustScore),
			zap.Int("new_score", score))
		summary.TrustScore = score
		changed = true
		return a.store.UpdateSummary(ctx, *summary, summary.Version)
	})
	return changed, err
}

// TrustJob recomputes trust scores on a fixed interval
type TrustJob struct {
	aggregator *Aggregator
	interval   time.Duration

	stopChan chan struct{}
	doneChan chan struct{}
}

func NewTrustJob(aggregator *Aggregator, interval time.Duration) *TrustJob {
	return &TrustJob{
		aggregator: aggregator,
		interval:   interval,
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
	}
}

// Run blocks until ctx is done or Stop is called
func (j *TrustJob) Run(ctx context.Context) error {
	defer close(j.doneChan)

	if j.interval <= 0 {
		return fmt.Errorf("trust interval must be positive, got %v", j.interval)
	}

	zap.L().Info("Starting trust score job", zap.Duration("interval", j.interval))
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := j.aggregator.RecomputeTrustScores(ctx); err != nil {
				zap.L().Warn("Trust score pass finished with errors", zap.Error(err))
			}
		case <-j.stopChan:
			zap.L().Info("Trust score job stopped")
			return nil
		case <-ctx.Done():
			zap.L().Info("Trust score job stopped")
			return nil
		}
	}
}

// Stop ends Run and waits for it to return
func (j *TrustJob) Stop() {
	close(j.stopChan)
	<-j.doneChan
}
