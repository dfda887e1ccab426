package utils

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy bounds a retry loop: at most MaxAttempts calls, with
// exponential backoff starting at BaseBackoff between attempts.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
}

// DefaultRetry suits short external-visibility lag (a disk image or process
// artifact not observable yet). Billing mutations are never retried.
var DefaultRetry = RetryPolicy{MaxAttempts: 3, BaseBackoff: 100 * time.Millisecond}

// Retry runs fn until it succeeds, the policy is exhausted, or ctx is done.
// The last error is returned unchanged so callers can still classify it.
func Retry(ctx context.Context, p RetryPolicy, fn func() error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	var lastErr error
	for i := 0; i < p.MaxAttempts; i++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if i < p.MaxAttempts-1 {
			backoff := p.BaseBackoff * time.Duration(1<<i)
			select {
			case <-ctx.Done():
				return lastErr
			case <-time.After(backoff):
			}
		}
	}
	return lastErr
}

// WaitFor polls check at the given interval until it returns (true, nil),
// returns a non-nil error, or the timeout/context expires.
func WaitFor(ctx context.Context, timeout, interval time.Duration, check func() (done bool, err error)) error {
	deadline := time.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timeout after %s", timeout)
		}
		done, err := check()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
