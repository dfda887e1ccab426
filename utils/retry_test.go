package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), RetryPolicy{MaxAttempts: 3, BaseBackoff: time.Millisecond}, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestRetryExhaustedReturnsLastError(t *testing.T) {
	last := errors.New("still broken")
	attempts := 0
	err := Retry(context.Background(), RetryPolicy{MaxAttempts: 2, BaseBackoff: time.Millisecond}, func() error {
		attempts++
		return last
	})
	if !errors.Is(err, last) {
		t.Fatalf("err = %v, want %v", err, last)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
}

func TestRetryCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := Retry(ctx, RetryPolicy{MaxAttempts: 5, BaseBackoff: time.Minute}, func() error {
		attempts++
		return errors.New("nope")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	// Cancellation stops the backoff wait, not the first attempt.
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestWaitFor(t *testing.T) {
	calls := 0
	err := WaitFor(context.Background(), time.Second, time.Millisecond, func() (bool, error) {
		calls++
		return calls >= 3, nil
	})
	if err != nil {
		t.Fatalf("WaitFor: %v", err)
	}

	err = WaitFor(context.Background(), 10*time.Millisecond, time.Millisecond, func() (bool, error) {
		return false, nil
	})
	if err == nil {
		t.Fatal("expected timeout")
	}

	boom := errors.New("check failed")
	err = WaitFor(context.Background(), time.Second, time.Millisecond, func() (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}
