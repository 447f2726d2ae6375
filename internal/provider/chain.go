package provider

import (
	"context"
	"fmt"
	"time"
)

// chain tries each wrapped provider in configured order, moving to the next
// only on a terminal (non-retryable, or retry-exhausted) failure from the
// current one. Each entry already carries its own breaker and retry wrapper,
// so "terminal" here just means "this provider returned an error at all" —
// retry has already done what it could.
type chain struct {
	providers []Provider
}

func newChain(providers []Provider) *chain {
	return &chain{providers: providers}
}

func (c *chain) Generate(ctx context.Context, prompt string, deadline time.Time) (Response, error) {
	var lastErr error
	for _, p := range c.providers {
		resp, err := p.Generate(ctx, prompt, deadline)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return Response{}, err
		}
	}
	wrapped := ErrAllProvidersFailed
	if lastErr != nil {
		wrapped = fmt.Errorf("%w: last error: %v", ErrAllProvidersFailed, lastErr)
	}
	return Response{}, &Error{Category: CategoryInternal, Provider: "chain", Err: wrapped}
}
