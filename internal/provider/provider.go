// Package provider implements the Provider Gateway (spec §4.4): a single
// generate(prompt, schema) -> response call that hides provider identity,
// retries, circuit breaking, fallback, and response repair behind one
// interface.
package provider

import (
	"context"
	"time"
)

// Response is a successful generation result (spec §6 Provider interface).
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
	Model        string
	Provider     string
}

// Provider is the minimal unit the gateway wraps with retry, breaker, and
// fallback behavior. One Provider corresponds to one configured LLM
// backend.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string, deadline time.Time) (Response, error)
}
