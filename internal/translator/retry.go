package translator

import (
	"context"
	"fmt"
	"time"
)

// retryProvider wraps another Provider and retries failed Translate calls.
// Retrying lives on the gateway side of the contract so the orchestrator can
// treat every provider error as final.
type retryProvider struct {
	inner       Provider
	maxAttempts int
	delay       time.Duration
}

// WithRetry returns a Provider that calls inner up to maxAttempts times
// (including the first), sleeping delay between attempts. maxAttempts < 2
// returns inner unchanged. Context cancellation stops the retry loop.
func WithRetry(inner Provider, maxAttempts int, delay time.Duration) Provider {
	if maxAttempts < 2 {
		return inner
	}
	if delay <= 0 {
		delay = time.Second
	}
	return &retryProvider{inner: inner, maxAttempts: maxAttempts, delay: delay}
}

func (r *retryProvider) ID() string {
	return r.inner.ID()
}

func (r *retryProvider) IsAvailable(ctx context.Context) error {
	return r.inner.IsAvailable(ctx)
}

func (r *retryProvider) Translate(ctx context.Context, cfg ProviderConfig, req Request) (*Candidate, error) {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		cand, err := r.inner.Translate(ctx, cfg, req)
		if err == nil {
			return cand, nil
		}
		lastErr = err

		if attempt < r.maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.delay):
			}
		}
	}
	return nil, fmt.Errorf("%s: all %d attempts failed: %w", r.inner.ID(), r.maxAttempts, lastErr)
}
