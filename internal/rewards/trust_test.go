package rewards

import (
	"testing"
	"time"

	"wallet-ledger-go/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestTrustScore(t *testing.T) {
	year := 365 * 24 * time.Hour

	tests := []struct {
		name string
		in   TrustInputs
		want int
	}{
		{"new user", TrustInputs{}, 50},
		{"short streak", TrustInputs{CurrentStreak: 3}, 55},
		{"weekly streak and level 3", TrustInputs{CurrentStreak: 8, Level: 3}, 70},
		{"veteran", TrustInputs{
			AccountAge:      2 * year,
			TotalActivities: 150,
			CurrentStreak:   40,
			Level:           6,
			Stats:           models.ActivityStats{Completed: 150},
		}, 100},
		{"many disputes", TrustInputs{
			TotalActivities: 12,
			Stats:           models.ActivityStats{Completed: 4, Failed: 4, Disputed: 8},
		}, 20},
		{"penalty is capped", TrustInputs{
			Stats: models.ActivityStats{Completed: 100, Disputed: 50},
		}, 30},
		{"quarter old account", TrustInputs{AccountAge: 100 * 24 * time.Hour}, 55},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TrustScore(tt.in))
		})
	}
}

func TestTrustScoreIsClamped(t *testing.T) {
	for streak := 0; streak < 60; streak += 7 {
		for bad := 0; bad < 40; bad += 5 {
			score := TrustScore(TrustInputs{
				CurrentStreak: streak,
				Stats:         models.ActivityStats{Completed: 1, Failed: bad},
			})
			assert.GreaterOrEqual(t, score, 0)
			assert.LessOrEqual(t, score, 100)
		}
	}
}
