package provider

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
)

// failureThreshold is FAILURE_THRESHOLD from spec §4.4: the circuit opens
// after this many consecutive failures.
const failureThreshold = 5

// defaultCooldown is how long the breaker stays Open before admitting a
// single HalfOpen probe.
const defaultCooldown = 30 * time.Second

// breakerProvider wraps a Provider with a per-provider circuit breaker
// implementing spec §4.4's Closed -> Open -> HalfOpen state machine via
// github.com/sony/gobreaker, rather than hand-rolling the state machine the
// way the teacher hand-rolls retry classification in pkg/mcp/recovery.go.
type breakerProvider struct {
	Provider
	cb *gobreaker.CircuitBreaker
}

func newBreakerProvider(p Provider, cooldown time.Duration) *breakerProvider {
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        p.Name(),
		MaxRequests: 1, // HalfOpen admits a single probe
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failureThreshold
		},
	})
	return &breakerProvider{Provider: p, cb: cb}
}

func (b *breakerProvider) Generate(ctx context.Context, prompt string, deadline time.Time) (Response, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.Provider.Generate(ctx, prompt, deadline)
	})
	if err != nil {
		if _, isProviderErr := err.(*Error); isProviderErr {
			return Response{}, err
		}
		// gobreaker.ErrOpenState / ErrTooManyRequests: the breaker itself
		// refused the call before reaching the provider.
		return Response{}, &Error{Category: CategoryNetwork, Provider: b.Provider.Name(), Err: err}
	}
	return result.(Response), nil
}
