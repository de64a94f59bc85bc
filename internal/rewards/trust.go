package rewards

import (
	"time"

	"wallet-ledger-go/internal/models"
)

const (
	baseTrustScore = 50
	minTrustScore  = 0
	maxTrustScore  = 100
)

// TrustInputs are the facts the trust score is derived from
type TrustInputs struct {
	AccountAge      time.Duration
	Stats           models.ActivityStats
	TotalActivities int
	CurrentStreak   int
	Level           int
}

// TrustScore weighs activity volume, streak, level, failures and disputes,
// account age and completion ratio into a score clamped to [0, 100].
func TrustScore(in TrustInputs) int {
	score := baseTrustScore

	switch {
	case in.TotalActivities > 100:
		score += 10
	case in.TotalActivities > 50:
		score += 5
	}

	switch {
	case in.CurrentStreak > 30:
		score += 15
	case in.CurrentStreak > 7:
		score += 10
	case in.CurrentStreak > 0:
		score += 5
	}

	switch {
	case in.Level >= 5:
		score += 20
	case in.Level >= 3:
		score += 10
	}

	if bad := in.Stats.Failed + in.Stats.Disputed; bad > 5 {
		score -= min(bad*2, 20)
	}

	switch {
	case in.AccountAge >= 365*24*time.Hour:
		score += 10
	case in.AccountAge >= 90*24*time.Hour:
		score += 5
	}

	if total := in.Stats.Completed + in.Stats.Failed + in.Stats.Disputed; total >= 10 {
		ratio := float64(in.Stats.Completed) / float64(total)
		switch {
		case ratio >= 0.95:
			score += 5
		case ratio < 0.5:
			score -= 10
		}
	}

	return max(minTrustScore, min(maxTrustScore, score))
}
