// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Backoff selects how the wait between attempts grows.
type Backoff string

const (
	BackoffFixed       Backoff = "fixed"
	BackoffExponential Backoff = "exponential"
)

// RetryPolicy bounds how often and how patiently a call is retried.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     Backoff
}

func (p *RetryPolicy) defaults() {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	if p.Backoff == "" {
		p.Backoff = BackoffFixed
	}
}

// wait returns the pause after the given failed attempt (1-based).
func (p RetryPolicy) wait(attempt int) time.Duration {
	if p.Backoff == BackoffExponential && attempt > 1 {
		return p.Delay * time.Duration(1<<uint(attempt-1))
	}
	return p.Delay
}

// Retry calls fn until it succeeds, the attempts run out, or ctx is done.
// It returns the number of attempts made and the last error.
func Retry(ctx context.Context, p RetryPolicy, logger *zap.Logger, fn func(ctx context.Context, attempt int) error) (int, error) {
	p.defaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return attempt, lastErr
		}
		if attempt == p.MaxAttempts {
			return attempt, lastErr
		}

		wait := p.wait(attempt)
		logger.Warn("attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.MaxAttempts),
			zap.Duration("delay", wait),
			zap.Error(err))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, lastErr
		case <-timer.C:
		}
	}
	return p.MaxAttempts, lastErr
}
