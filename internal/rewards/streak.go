package rewards

import "time"

// nextStreak advances a daily streak for an activity at `at`, given the
// previous activity time. Days are UTC calendar days. An activity dated
// before the last one leaves the streak as it is.
func nextStreak(current int, last *time.Time, at time.Time) int {
	if last == nil || current < 1 {
		return 1
	}

	days := daysBetween(*last, at)
	switch {
	case days == 0:
		return current
	case days == 1:
		return current + 1
	case days > 1:
		return 1
	default:
		return current
	}
}

func daysBetween(from, to time.Time) int {
	return int(utcDay(to).Sub(utcDay(from)).Hours() / 24)
}

func utcDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
