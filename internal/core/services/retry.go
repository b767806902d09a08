package services

import (
	"context"
	"time"

	"github.com/thomassicaud/teams-portal/internal/core/domain"
	"github.com/thomassicaud/teams-portal/internal/logger"
)

// Retrier re-runs an operation after transient failures, waiting
// baseDelay × attempt between attempts. Any other failure is returned at once.
type Retrier struct {
	attempts  int
	baseDelay time.Duration
	sleep     Sleeper
}

// NewRetrier creates a retrier. attempts counts the first call.
func NewRetrier(attempts int, baseDelay time.Duration, sleep Sleeper) *Retrier {
	if attempts < 1 {
		attempts = 1
	}
	if sleep == nil {
		sleep = sleepContext
	}
	return &Retrier{attempts: attempts, baseDelay: baseDelay, sleep: sleep}
}

// Do runs fn until it succeeds, fails non-transiently, or attempts run out.
// The last error is returned unchanged so its classification survives.
func (r *Retrier) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !domain.IsKind(err, domain.KindTransient) || attempt >= r.attempts {
			return err
		}

		delay := r.baseDelay * time.Duration(attempt)
		logger.Debug("retry: %s attempt %d/%d failed: %v (waiting %s)", op, attempt, r.attempts, err, delay)
		if serr := r.sleep(ctx, delay); serr != nil {
			return serr
		}
	}
}
