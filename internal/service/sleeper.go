package service

import (
	"context"
	"time"

	"github.com/bnema/handsync/internal/port"
)

type timeSleeper struct{}

// NewTimeSleeper returns the wall-clock Sleeper used outside of tests.
func NewTimeSleeper() port.Sleeper {
	return timeSleeper{}
}

func (timeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
