package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
)

func TestClassifyErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Category
	}{
		{"deadline", context.DeadlineExceeded, CategoryTimeout},
		{"breaker open", gobreaker.ErrOpenState, CategoryNetwork},
		{"rate limit text", errors.New("429 rate limit exceeded"), CategoryRateLimit},
		{"context length", errors.New("maximum context length exceeded"), CategoryTokenLimit},
		{"token limit text", errors.New("token limit reached"), CategoryTokenLimit},
		{"unauthorized", errors.New("401 unauthorized"), CategoryAuth},
		{"invalid key", errors.New("invalid api key provided"), CategoryAuth},
		{"network eof", errors.New("unexpected EOF"), CategoryNetwork},
		{"unknown", errors.New("something broke"), CategoryInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyError(tc.err))
		})
	}
}

func TestRetryableCategories(t *testing.T) {
	assert.True(t, CategoryRateLimit.Retryable())
	assert.True(t, CategoryNetwork.Retryable())
	assert.False(t, CategoryAuth.Retryable())
	assert.False(t, CategoryTokenLimit.Retryable())
	assert.False(t, CategoryParseError.Retryable())
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	e := &Error{Category: CategoryInternal, Provider: "test", Err: inner}
	assert.ErrorIs(t, e, inner)
}
