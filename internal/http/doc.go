// Package http provides the HTTP session shared by every MOOV request.
//
// The Client in this package handles:
//   - Session cookies (login carries over to later API calls)
//   - Per-request headers, query strings and form bodies
//   - Request rate limiting via golang.org/x/time/rate
//   - Bounded, constant-interval retries via github.com/cenkalti/backoff/v4
//
// # Basic Usage
//
//	client := http.NewClient(http.WithRateLimit(5))
//
//	// API call with query parameters
//	body, err := client.Get(ctx, apiURL, &http.RequestOptions{
//	    Query: url.Values{"pid": {trackID}},
//	})
//
//	// Segment fetch: 10 attempts, 1s apart
//	data, err := client.FetchWithRetry(ctx, segmentURL, http.DefaultRetryPolicy(), nil)
//
// # Errors
//
// Non-2xx answers are reported as *StatusError. IsRetryable classifies
// errors into transient (transport failures, 5xx, 429, 408) and final ones.
// A fetch that fails on every attempt returns *RetryError, which matches
// ErrRetryExhausted.
package http
