package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

func TestClient_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "custom-agent" {
			t.Errorf("User-Agent = %q, want custom-agent", got)
		}
		if got := r.URL.Query().Get("pid"); got != "42" {
			t.Errorf("pid = %q, want 42", got)
		}
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	c := NewClient()
	body, err := c.GetString(context.Background(), srv.URL+"/path?x=1", &RequestOptions{
		Header: http.Header{"User-Agent": {"custom-agent"}},
		Query:  url.Values{"pid": {"42"}},
	})
	if err != nil {
		t.Fatalf("GetString() error = %v", err)
	}
	if body != "ok" {
		t.Errorf("GetString() = %q, want ok", body)
	}
}

func TestClient_PostForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if got := r.PostForm.Get("loginid"); got != "user@example.com" {
			t.Errorf("loginid = %q", got)
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		w.Header().Set("Content-Type", "application/xml;charset=UTF-8")
	}))
	defer srv.Close()

	c := NewClient()
	resp, err := c.PostForm(context.Background(), srv.URL+"/login", url.Values{"loginid": {"user@example.com"}}, nil)
	if err != nil {
		t.Fatalf("PostForm() error = %v", err)
	}
	if got := resp.Header.Get("Content-Type"); got != "application/xml;charset=UTF-8" {
		t.Errorf("Content-Type = %q", got)
	}

	u, _ := url.Parse(srv.URL)
	if cookies := c.httpClient.Jar.Cookies(u); len(cookies) != 1 || cookies[0].Value != "abc" {
		t.Errorf("session cookie not stored: %v", cookies)
	}
}

func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewClient().Get(context.Background(), srv.URL, nil)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Get() error = %v, want *StatusError", err)
	}
	if statusErr.Code != http.StatusNotFound {
		t.Errorf("Code = %d, want 404", statusErr.Code)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"500", &StatusError{Code: 500}, true},
		{"503", &StatusError{Code: 503}, true},
		{"429", &StatusError{Code: 429}, true},
		{"408", &StatusError{Code: 408}, true},
		{"404", &StatusError{Code: 404}, false},
		{"403", &StatusError{Code: 403}, false},
		{"invalid url", ErrInvalidURL, false},
		{"cancelled", context.Canceled, false},
		{"transport", errors.New("connection reset by peer"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

// flakyServer fails the first failures requests with status and then
// answers with body.
func flakyServer(failures int32, status int, body string) (*httptest.Server, *atomic.Int32) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= failures {
			w.WriteHeader(status)
			return
		}
		io.WriteString(w, body)
	}))
	return srv, &hits
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 10, Delay: time.Millisecond}
}

func TestFetchWithRetry_SucceedsOnTenthAttempt(t *testing.T) {
	srv, hits := flakyServer(9, http.StatusServiceUnavailable, "segment")
	defer srv.Close()

	data, err := NewClient().FetchWithRetry(context.Background(), srv.URL, fastPolicy(), nil)
	if err != nil {
		t.Fatalf("FetchWithRetry() error = %v", err)
	}
	if string(data) != "segment" {
		t.Errorf("FetchWithRetry() = %q, want segment", data)
	}
	if got := hits.Load(); got != 10 {
		t.Errorf("attempts = %d, want 10", got)
	}
}

func TestFetchWithRetry_Exhausted(t *testing.T) {
	srv, hits := flakyServer(10, http.StatusBadGateway, "segment")
	defer srv.Close()

	_, err := NewClient().FetchWithRetry(context.Background(), srv.URL+"/seg-7", fastPolicy(), nil)
	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("FetchWithRetry() error = %v, want ErrRetryExhausted", err)
	}

	var retryErr *RetryError
	if !errors.As(err, &retryErr) {
		t.Fatalf("error %T is not *RetryError", err)
	}
	if retryErr.Attempts != 10 {
		t.Errorf("Attempts = %d, want 10", retryErr.Attempts)
	}
	if retryErr.URL != srv.URL+"/seg-7" {
		t.Errorf("URL = %q", retryErr.URL)
	}
	if got := hits.Load(); got != 10 {
		t.Errorf("server saw %d requests, want 10", got)
	}
}

func TestFetchWithRetry_NonRetryable(t *testing.T) {
	srv, hits := flakyServer(100, http.StatusForbidden, "")
	defer srv.Close()

	_, err := NewClient().FetchWithRetry(context.Background(), srv.URL, fastPolicy(), nil)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusForbidden {
		t.Fatalf("FetchWithRetry() error = %v, want 403 StatusError", err)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("a 403 must not be reported as exhausted retries")
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
}

func TestFetchWithRetry_InvalidURL(t *testing.T) {
	for _, raw := range []string{"ftp://example.com/seg", "not a url", "http://"} {
		_, err := NewClient().FetchWithRetry(context.Background(), raw, fastPolicy(), nil)
		if !errors.Is(err, ErrInvalidURL) {
			t.Errorf("FetchWithRetry(%q) error = %v, want ErrInvalidURL", raw, err)
		}
	}
}

func TestFetchWithRetry_Cancelled(t *testing.T) {
	srv, _ := flakyServer(100, http.StatusInternalServerError, "")
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient().FetchWithRetry(ctx, srv.URL, RetryPolicy{MaxAttempts: 10, Delay: time.Second}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("FetchWithRetry() error = %v, want context.Canceled", err)
	}
}
