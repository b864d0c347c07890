package port

import (
	"context"
	"time"
)

// Sleeper abstracts the delays between polling cycles so the poller's
// retry and cancellation behavior is testable without wall-clock waits.
type Sleeper interface {
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in
	// the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}
