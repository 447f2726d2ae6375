package provider

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// maxRetryAttempts bounds retry attempts for RateLimit/Network failures,
// mirroring the teacher's MaxRetries=1 in pkg/mcp/recovery.go (one retry
// after the initial attempt).
const maxRetryAttempts = 1

// retryProvider wraps a Provider with exponential backoff for the two
// retryable error categories (spec §4.4 layer 4). Auth and TokenLimit
// failures pass straight through — retrying them can't succeed.
type retryProvider struct {
	Provider
}

func newRetryProvider(p Provider) *retryProvider {
	return &retryProvider{Provider: p}
}

func (r *retryProvider) Generate(ctx context.Context, prompt string, deadline time.Time) (Response, error) {
	var resp Response
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetryAttempts), ctx)

	err := backoff.Retry(func() error {
		var genErr error
		resp, genErr = r.Provider.Generate(ctx, prompt, deadline)
		if genErr == nil {
			return nil
		}
		perr, ok := genErr.(*Error)
		if !ok || !perr.Category.Retryable() {
			return backoff.Permanent(genErr)
		}
		return genErr
	}, policy)

	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Err
		}
		return Response{}, err
	}
	return resp, nil
}
