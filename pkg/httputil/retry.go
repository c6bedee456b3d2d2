// Package httputil provides retry and backoff helpers for rate-limited APIs.
package httputil

import (
	"context"
	"time"

	"starmark/pkg/errors"
)

// Default backoff parameters, used when a Backoff field is left zero.
const (
	// DefaultMaxAttempts bounds the number of tries per request.
	DefaultMaxAttempts = 3

	// DefaultMaxWait caps the wait a rate-limit response may ask for.
	// Waits above the cap abort the request instead of sleeping.
	DefaultMaxWait = 300 * time.Second
)

// Backoff retries an operation when it fails with a rate-limit error.
//
// Only *errors.RateLimitedError triggers a retry; any other error is
// returned immediately. The wait duration comes from the error itself
// (the server's retry-after or quota-reset hint). A wait exceeding
// MaxWait aborts without sleeping.
//
// Sleep is injectable so tests can run with a simulated clock.
type Backoff struct {
	MaxAttempts int
	MaxWait     time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
}

// Do executes fn up to MaxAttempts times, sleeping between attempts when
// fn fails with a rate-limit error whose wait is within MaxWait.
// Returns nil on the first success, ctx.Err() if cancelled while waiting,
// or the last error otherwise.
func (b Backoff) Do(ctx context.Context, fn func() error) error {
	attempts := b.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	maxWait := b.MaxWait
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	sleep := b.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var lastErr error
	for i := range attempts {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		wait, ok := errors.IsRateLimited(err)
		if !ok {
			return err
		}
		if wait > maxWait {
			return errors.Wrap(errors.ErrCodeRateLimited, err,
				"rate limit wait %s exceeds maximum %s", wait, maxWait)
		}
		if i < attempts-1 {
			if err := sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
	return lastErr
}

// SleepContext blocks for d or until ctx is cancelled, whichever comes first.
func SleepContext(ctx context.Context, d time.Duration) error {
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
