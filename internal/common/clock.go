package common

import (
	"context"
	"time"
)

// Duration until the next wall-clock boundary, e.g. the next
// 15 or 30 minute mark. Sleeping until a boundary instead of a fixed
// interval keeps every loop in the process synchronized, and after a
// restart the first sleep lands on the same grid as before
func UntilNextBoundary(now time.Time, interval time.Duration) time.Duration {
	return now.Truncate(interval).Add(interval).Sub(now)
}

// Duration until the next occurrence of the given local time of day
func UntilClock(now time.Time, hour int, minute int, loc *time.Location) time.Duration {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(local)
}

// Sleep for the given duration, waking up early if the context
// gets cancelled
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
