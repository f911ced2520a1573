package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// CircuitBreakerState mirrors gobreaker's three states under the names the
// rest of this package already uses.
type CircuitBreakerState int

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

func fromGobreakerState(s gobreaker.State) CircuitBreakerState {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// String returns a string representation of the state.
func (s CircuitBreakerState) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "CLOSED"
	}
}

// Config holds circuit breaker configuration. Field names are kept from the
// hand-rolled predecessor of this file so call sites didn't need to change;
// they now map onto gobreaker.Settings.
type Config struct {
	Name             string
	MaxFailures      int
	Timeout          time.Duration
	ResetTimeout     time.Duration
	HalfOpenMaxCalls int
	OnStateChange    func(from, to CircuitBreakerState)
}

// CircuitBreaker wraps sony/gobreaker.CircuitBreaker behind an Execute(ctx,
// fn) shape; browserpool uses it around its connect path.
type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration.
func NewCircuitBreaker(config Config) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 10
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 300 * time.Second
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = 5
	}

	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: uint32(config.HalfOpenMaxCalls),
		Interval:    0, // never reset counts while closed
		Timeout:     config.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(config.MaxFailures)
		},
	}
	if config.OnStateChange != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			config.OnStateChange(fromGobreakerState(from), fromGobreakerState(to))
		}
	}

	return &CircuitBreaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Execute runs fn with circuit breaker protection.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	_, err := cb.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitBreakerOpen
	}
	return err
}

// ExecuteWithFallback runs fn with circuit breaker protection, falling back
// when the breaker is open.
func (cb *CircuitBreaker) ExecuteWithFallback(ctx context.Context, fn func() error, fallback func() error) error {
	err := cb.Execute(ctx, fn)
	if errors.Is(err, ErrCircuitBreakerOpen) && fallback != nil {
		return fallback()
	}
	return err
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() CircuitBreakerState {
	return fromGobreakerState(cb.cb.State())
}

// Stats returns statistics about the circuit breaker.
func (cb *CircuitBreaker) Stats() Stats {
	counts := cb.cb.Counts()
	return Stats{
		State:        cb.State(),
		FailureCount: int(counts.ConsecutiveFailures),
		SuccessCount: int(counts.ConsecutiveSuccesses),
	}
}

// Stats holds circuit breaker statistics.
type Stats struct {
	State        CircuitBreakerState
	FailureCount int
	SuccessCount int
}

// ErrCircuitBreakerOpen is returned by Execute while the breaker is open or
// while the half-open probe budget is exhausted.
var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
