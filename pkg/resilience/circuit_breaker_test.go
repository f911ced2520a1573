package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker(Config{MaxFailures: 2, ResetTimeout: time.Hour})

	boom := errors.New("boom")
	fail := func() error { return boom }

	if err := cb.Execute(context.Background(), fail); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if err := cb.Execute(context.Background(), fail); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if got := cb.State(); got != StateOpen {
		t.Fatalf("expected breaker to be open after 2 consecutive failures, got %v", got)
	}

	if err := cb.Execute(context.Background(), fail); !errors.Is(err, ErrCircuitBreakerOpen) {
		t.Fatalf("expected ErrCircuitBreakerOpen, got %v", err)
	}
}

func TestCircuitBreakerClosedOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker(Config{MaxFailures: 5, ResetTimeout: time.Minute})

	if err := cb.Execute(context.Background(), func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cb.State(); got != StateClosed {
		t.Fatalf("expected breaker to stay closed, got %v", got)
	}
}

func TestCircuitBreakerExecuteWithFallback(t *testing.T) {
	cb := NewCircuitBreaker(Config{MaxFailures: 1, ResetTimeout: time.Hour})

	boom := errors.New("boom")
	_ = cb.Execute(context.Background(), func() error { return boom })

	called := false
	err := cb.ExecuteWithFallback(context.Background(),
		func() error { return boom },
		func() error { called = true; return nil },
	)
	if err != nil {
		t.Fatalf("unexpected error from fallback: %v", err)
	}
	if !called {
		t.Fatalf("expected fallback to be invoked once breaker is open")
	}
}

func TestRetryerGivesUpOnNonRetryableError(t *testing.T) {
	permanent := errors.New("permanent")
	r := NewRetryer(RetryConfig{
		MaxAttempts:     5,
		InitialDelay:    time.Millisecond,
		RetryableErrors: []error{ErrTimeout},
	})

	attempts := 0
	err := r.Execute(context.Background(), func() error {
		attempts++
		return permanent
	})

	if err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected exactly one attempt for a non-retryable error, got %d", attempts)
	}
}

func TestRetryerRetriesUntilSuccess(t *testing.T) {
	r := NewRetryer(RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	})

	attempts := 0
	err := r.Execute(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return ErrTimeout
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryerRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRetryer(RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond})
	err := r.Execute(ctx, func() error { return ErrTimeout })

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFixedBackoffUsesConstantDelay(t *testing.T) {
	r := FixedBackoff(3, 2*time.Millisecond)
	start := time.Now()

	attempts := 0
	_ = r.Execute(context.Background(), func() error {
		attempts++
		return ErrNetworkError
	})

	elapsed := time.Since(start)
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if elapsed < 4*time.Millisecond {
		t.Fatalf("expected at least two fixed delays to elapse, got %v", elapsed)
	}
}
