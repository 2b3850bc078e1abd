// Package resilience provides a circuit breaker used to protect every
// outbound call to a pluggable capability (embedder, extractor) from
// cascading failures when the provider is flapping or down.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned when the breaker rejects a call to avoid
// hammering a failing provider.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config controls the trip/reset behavior of a Breaker.
type Config struct {
	// MaxFailures is the number of consecutive failures required to trip.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before probing again.
	Timeout time.Duration
	// HalfOpenMaxRequests is the number of trial requests allowed while
	// half-open before deciding to close or re-open.
	HalfOpenMaxRequests uint32
}

// DefaultConfig matches the thresholds used for the embedder/extractor
// capabilities: trip after 3 consecutive failures, cool for 30s, probe
// with 2 requests in half-open.
func DefaultConfig() Config {
	return Config{MaxFailures: 3, Timeout: 30 * time.Second, HalfOpenMaxRequests: 2}
}

// Breaker wraps gobreaker with context-aware Execute, used identically for
// every provider adapter so embedder and extractor calls degrade the same way.
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker
}

// New creates a Breaker with the given name (used only for gobreaker's
// internal bookkeeping) and config.
func New(name string, cfg Config) *Breaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenMaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
	}
	return &Breaker{name: name, cb: gobreaker.NewCircuitBreaker(settings)}
}

// Execute runs fn through the breaker. If the circuit is open, it returns
// ErrCircuitOpen without calling fn. Context cancellation is checked both
// before and during dispatch.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	result, err := b.cb.Execute(func() (interface{}, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		return fn(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}
	return result, nil
}

// State returns the current breaker state: "closed", "open", "half-open".
func (b *Breaker) State() string {
	switch b.cb.State() {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}
