// Package resilience provides retry and circuit-breaker primitives. In this
// module the browser pool is their caller: FixedBackoff drives its
// reconnect loop and a CircuitBreaker guards its connect path.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts" default:"5"`
	InitialDelay    time.Duration `yaml:"initial_delay" default:"1s"`
	MaxDelay        time.Duration `yaml:"max_delay" default:"60s"`
	BackoffFactor   float64       `yaml:"backoff_factor" default:"2.0"`
	Jitter          bool          `yaml:"jitter" default:"true"`
	RetryableErrors []error       `yaml:"-"`
}

// RetryableFunc is a function that can be retried
type RetryableFunc func() error

// Retryer handles retry logic with exponential backoff
type Retryer struct {
	config RetryConfig
}

// NewRetryer creates a new retryer with the given configuration
func NewRetryer(config RetryConfig) *Retryer {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 5
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 60 * time.Second
	}
	if config.BackoffFactor <= 0 {
		config.BackoffFactor = 2.0
	}

	return &Retryer{config: config}
}

// Execute executes a function with retry logic
func (r *Retryer) Execute(ctx context.Context, fn RetryableFunc) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		// Check if error is retryable
		if !r.isRetryable(err) {
			return fmt.Errorf("non-retryable error: %w", err)
		}

		// Don't sleep after the last attempt
		if attempt == r.config.MaxAttempts {
			break
		}

		delay := r.calculateDelay(attempt)
		
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("max retry attempts (%d) exceeded, last error: %w", r.config.MaxAttempts, lastErr)
}

// calculateDelay calculates the delay for the given attempt using exponential backoff
func (r *Retryer) calculateDelay(attempt int) time.Duration {
	delay := float64(r.config.InitialDelay) * math.Pow(r.config.BackoffFactor, float64(attempt-1))
	
	// Apply maximum delay limit
	if delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}

	// Apply jitter to avoid thundering herd
	if r.config.Jitter {
		jitter := rand.Float64() * 0.1 * delay // 10% jitter
		delay += jitter
	}

	return time.Duration(delay)
}

// isRetryable checks if an error is retryable
func (r *Retryer) isRetryable(err error) bool {
	// If no specific retryable errors are configured, retry all errors
	if len(r.config.RetryableErrors) == 0 {
		return true
	}

	// Check if the error matches any of the configured retryable errors
	for _, retryableErr := range r.config.RetryableErrors {
		if errors.Is(err, retryableErr) {
			return true
		}
	}

	return false
}

// Common retryable sentinel errors, used by callers that configure
// RetryConfig.RetryableErrors instead of retrying every error.
var (
	ErrTimeout      = errors.New("timeout")
	ErrNetworkError = errors.New("network error")
)

// FixedBackoff builds a Retryer with a constant (non-exponential) delay,
// used for the browser pool's fixed 2s reconnect backoff (spec.md §4.1).
func FixedBackoff(maxAttempts int, delay time.Duration) *Retryer {
	return NewRetryer(RetryConfig{
		MaxAttempts:   maxAttempts,
		InitialDelay:  delay,
		MaxDelay:      delay,
		BackoffFactor: 1,
		Jitter:        false,
	})
}