package upload

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy retries an idempotent operation a fixed number of times with a fixed pause.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy is used for every batch upload.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 5, Delay: time.Second}

// Do runs fn until it succeeds, attempts run out or ctx is done. It returns the number of attempts made.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return attempt - 1, fmt.Errorf("context canceled after %d attempts, last error: %w", attempt-1, lastErr)
			}
			return attempt - 1, err
		}

		err := fn(ctx)
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if attempt < maxAttempts {
			logger.Debug("Attempt %d/%d failed, retrying in %v: %v", attempt, maxAttempts, p.Delay, err)
			timer := time.NewTimer(p.Delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return attempt, fmt.Errorf("context canceled while waiting for retry: %w", lastErr)
			}
		}
	}
	return maxAttempts, lastErr
}
