package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// ErrRetryExhausted is matched by errors returned after the last attempt failed.
var ErrRetryExhausted = errors.New("retries exhausted")

// RetryError reports a fetch that failed on every attempt.
type RetryError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("failed to get %s after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() []error {
	return []error{ErrRetryExhausted, e.Err}
}

// RetryPolicy bounds FetchWithRetry. The delay between attempts is constant.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// Delay is the wait between two attempts.
	Delay time.Duration
}

// DefaultRetryPolicy is 10 attempts, one second apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 10, Delay: time.Second}
}

// IsRetryable reports whether err is worth another attempt: transport
// failures, 5xx, 429 and 408. Invalid URLs, other HTTP statuses and
// cancellation are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidURL) || errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500 ||
			statusErr.Code == http.StatusTooManyRequests ||
			statusErr.Code == http.StatusRequestTimeout
	}
	return true
}

// FetchWithRetry GETs rawURL, retrying retryable failures according to policy.
//
// Non-retryable errors are returned as soon as they occur. When every attempt
// fails the result is a *RetryError, which matches ErrRetryExhausted.
//
// Example:
//
//	data, err := client.FetchWithRetry(ctx, segmentURL, DefaultRetryPolicy(), nil)
//	if errors.Is(err, ErrRetryExhausted) {
//	    // give up on the track
//	}
func (c *Client) FetchWithRetry(ctx context.Context, rawURL string, policy RetryPolicy, opts *RequestOptions) ([]byte, error) {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	attempts := 0
	op := func() ([]byte, error) {
		attempts++
		data, err := c.Get(ctx, rawURL, opts)
		if err == nil {
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		if !IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("retrying request",
			zap.String("url", rawURL),
			zap.Int("attempt", attempts),
			zap.Int("max_attempts", policy.MaxAttempts),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(policy.Delay), uint64(policy.MaxAttempts-1)),
		ctx,
	)

	data, err := backoff.RetryNotifyWithData(op, b, notify)
	if err == nil {
		return data, nil
	}
	if ctx.Err() != nil || !IsRetryable(err) {
		return nil, err
	}
	return nil, &RetryError{URL: rawURL, Attempts: attempts, Err: err}
}
