package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/sony/gobreaker"
)

// Category is the fixed error taxonomy spec §6 defines for the Provider
// interface. Every failure from a provider adapter is classified into
// exactly one of these before the gateway decides whether to retry.
type Category string

const (
	CategoryRateLimit  Category = "RateLimit"
	CategoryTokenLimit Category = "TokenLimit"
	CategoryAuth       Category = "Auth"
	CategoryNetwork    Category = "Network"
	CategoryTimeout    Category = "Timeout"
	CategoryParseError Category = "ParseError"
	CategoryInternal   Category = "Internal"
)

// Error wraps a provider failure with its classification. Gateway retry and
// fallback decisions are made on Category, never on the raw error text.
type Error struct {
	Category Category
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return "provider " + e.Provider + ": " + string(e.Category) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// ErrAllProvidersFailed is returned when every provider in the fallback
// chain has exhausted its retries (spec §4.4 layer 5).
var ErrAllProvidersFailed = errors.New("provider: all providers in fallback chain failed")

// ErrResponseNotJSON and ErrSchemaViolation are the two ways a response can
// fail layer 6 validation after repairJSON's best effort.
var (
	ErrResponseNotJSON = errors.New("provider: response is not valid JSON")
	ErrSchemaViolation = errors.New("provider: response does not match schema")
)

// Retryable reports whether Category is one the gateway's retry layer acts
// on. RateLimit and Network get exponential backoff; Auth and TokenLimit
// never do (spec §4.4 layer 4).
func (c Category) Retryable() bool {
	return c == CategoryRateLimit || c == CategoryNetwork
}

// ClassifyError maps a raw error from an HTTP-backed provider call into the
// fixed taxonomy. Grounded in the teacher's pkg/mcp/recovery.go
// ClassifyError, which does the same string/type inspection to sort
// arbitrary tool-call errors into a small recovery taxonomy.
func ClassifyError(err error) Category {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return CategoryNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429"):
		return CategoryRateLimit
	case strings.Contains(msg, "context length") || strings.Contains(msg, "token") && strings.Contains(msg, "limit"):
		return CategoryTokenLimit
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "401") || strings.Contains(msg, "invalid api key") || strings.Contains(msg, "403"):
		return CategoryAuth
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return CategoryTimeout
	case strings.Contains(msg, "connection") || strings.Contains(msg, "eof") || strings.Contains(msg, "network"):
		return CategoryNetwork
	default:
		return CategoryInternal
	}
}
