package lms

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy retries a single remote call while the LMS answers 429.
// The wait is the server's Retry-After when present, otherwise BaseDelay
// doubled on every attempt. Errors are returned as the call produced them.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration

	// OnRetry is called before each wait.
	OnRetry func(attempt int, wait time.Duration)
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: time.Second}
}

func (p RetryPolicy) Do(ctx context.Context, call func(context.Context) error) error {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	var (
		attempt    int
		retryAfter time.Duration
	)
	backoff := retry.WithMaxRetries(uint64(maxRetries), retry.BackoffFunc(func() (time.Duration, bool) {
		wait := base << attempt
		if retryAfter > 0 {
			wait = retryAfter
		}
		attempt++
		if p.OnRetry != nil {
			p.OnRetry(attempt, wait)
		}
		return wait, false
	}))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := call(ctx)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusTooManyRequests {
			retryAfter = apiErr.RetryAfter
			return retry.RetryableError(err)
		}
		return err
	})
}
