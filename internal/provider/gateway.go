package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/doculoom/engine/internal/budget"
	"github.com/doculoom/engine/internal/model"
)

// MetricsSink durably records one generate() call's accounting (spec §6
// `llm_metrics` table), satisfied by *database.LLMMetricsStore. Nil
// disables durable call accounting without affecting TALE's in-memory
// counters, which Generate always updates regardless.
type MetricsSink interface {
	Record(ctx context.Context, m model.LLMMetric) error
}

// Gateway is the single generate(prompt, schema) -> response entry point
// spec §4.4 describes, composed of seven layered behaviors: token
// accounting and the call timeout wrap the fallback chain, which tries
// each provider through its own retry wrapper around its own circuit
// breaker; the response then has invalid mermaid diagrams stripped and is
// validated against the schema (with one repair attempt).
type Gateway struct {
	chain   *chain
	tale    *budget.TALE
	timeout time.Duration

	sessionID string
	metrics   MetricsSink
}

// NewGateway builds a Gateway over an ordered list of providers. Each
// provider is wrapped with its own breaker and retry policy before being
// placed in the fallback chain, so a HalfOpen probe or an exhausted retry on
// provider N never affects provider N+1's independent state.
func NewGateway(providers []Provider, tale *budget.TALE, callTimeout time.Duration) *Gateway {
	wrapped := make([]Provider, 0, len(providers))
	for _, p := range providers {
		wrapped = append(wrapped, newRetryProvider(newBreakerProvider(p, defaultCooldown)))
	}
	return &Gateway{chain: newChain(wrapped), tale: tale, timeout: callTimeout}
}

// BindSession attaches a session id and a durable metrics sink, so every
// Generate call from here on also records a `llm_metrics` row (spec §6).
// sink may be nil to disable durable accounting.
func (g *Gateway) BindSession(sessionID string, sink MetricsSink) {
	g.sessionID = sessionID
	g.metrics = sink
}

// Generate runs the full layered call: it reserves estimatedTokens against
// phase's TALE envelope, invokes the fallback chain with a deadline derived
// from the gateway's call timeout, commits actual usage on success, strips
// any invalid mermaid diagrams, and then validates the result against
// schema (repairing once on failure).
func (g *Gateway) Generate(ctx context.Context, phase model.Phase, prompt string, estimatedTokens int64, schema *Schema) (map[string]interface{}, Response, error) {
	handle, err := g.tale.Reserve(phase, estimatedTokens)
	if err != nil {
		return nil, Response{}, &Error{Category: CategoryTokenLimit, Provider: "gateway", Err: err}
	}

	deadline := time.Now().Add(g.timeout)
	resp, err := g.chain.Generate(ctx, prompt, deadline)
	if err != nil {
		g.recordMetric(ctx, phase, resp, err)
		return nil, Response{}, err
	}

	if commitErr := g.tale.Commit(handle, int64(resp.InputTokens), int64(resp.OutputTokens)); commitErr != nil {
		werr := &Error{Category: CategoryTokenLimit, Provider: resp.Provider, Err: commitErr}
		g.recordMetric(ctx, phase, resp, werr)
		return nil, resp, werr
	}

	cleaned := stripInvalidMermaidDiagrams(resp.Text)

	obj, verr := validateAgainstSchema(schema, cleaned)
	if verr == nil {
		g.recordMetric(ctx, phase, resp, nil)
		return obj, resp, nil
	}

	repaired := repairJSON(cleaned)
	obj, verr = validateAgainstSchema(schema, repaired)
	if verr != nil {
		werr := &Error{Category: CategoryParseError, Provider: resp.Provider, Err: fmt.Errorf("after repair: %w", verr)}
		g.recordMetric(ctx, phase, resp, werr)
		return nil, resp, werr
	}
	g.recordMetric(ctx, phase, resp, nil)
	return obj, resp, nil
}

// recordMetric writes one llm_metrics row for a completed call, a no-op
// when no MetricsSink is bound. resp may be the zero value when the call
// failed before any provider responded.
func (g *Gateway) recordMetric(ctx context.Context, phase model.Phase, resp Response, callErr error) {
	if g.metrics == nil {
		return
	}
	m := model.LLMMetric{
		SessionID:    g.sessionID,
		Timestamp:    time.Now(),
		Phase:        phase,
		Provider:     resp.Provider,
		Model:        resp.Model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		Status:       "ok",
	}
	if callErr != nil {
		m.Status = "error"
		m.ErrorCategory = string(categoryOf(callErr))
	}
	if err := g.metrics.Record(ctx, m); err != nil {
		slog.Warn("provider: llm metric persist failed", "session_id", g.sessionID, "phase", phase, "error", err)
	}
}

func categoryOf(err error) Category {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Category
	}
	return CategoryInternal
}
