package automation

import (
	"context"
	"time"
)

// Clock abstracts time for the automation loop.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

// WallClock is the real time clock.
type WallClock struct{}

// Now returns the current time.
func (WallClock) Now() time.Time {
	return time.Now()
}

// Sleep waits for d or until ctx is done.
func (WallClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
