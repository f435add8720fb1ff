package graph

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noopSleep is a sleep function that returns immediately, for fast tests.
func noopSleep(_ context.Context, _ time.Duration) error {
	return nil
}

// staticToken is a test TokenSource that returns a fixed token.
type staticToken string

func (t staticToken) Token() (string, error) {
	return string(t), nil
}

// failingToken is a test TokenSource that always returns an error.
type failingToken struct{}

func (failingToken) Token() (string, error) {
	return "", errors.New("token error")
}

// newTestClient creates a Client pointing at the given httptest server
// with instant retry sleeps and no pacing.
func newTestClient(t *testing.T, url string) *Client {
	t.Helper()

	c := NewClient(url, http.DefaultClient, staticToken("test-token"), slog.Default(), "test-agent").
		WithRateLimit(0, 0)
	c.sleepFunc = noopSleep

	return c
}

func TestDo_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"value":"ok"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	resp, err := client.Do(context.Background(), http.MethodGet, "/me")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"value":"ok"}`, string(body))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDo_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
	}{
		{"bad request", http.StatusBadRequest, ErrBadRequest},
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ErrForbidden},
		{"not found", http.StatusNotFound, ErrNotFound},
		{"gone", http.StatusGone, ErrGone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("request-id", "test-req-id")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"something"}`))
			}))
			defer srv.Close()

			client := newTestClient(t, srv.URL)
			_, err := client.Do(context.Background(), http.MethodGet, "/test")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)

			var graphErr *GraphError
			require.ErrorAs(t, err, &graphErr)
			assert.Equal(t, tt.status, graphErr.StatusCode)
			assert.Equal(t, "test-req-id", graphErr.RequestID)
			assert.Equal(t, `{"error":"something"}`, graphErr.Message)
		})
	}
}

func TestDo_RetryOn5xx(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	resp, err := client.Do(context.Background(), http.MethodGet, "/flaky")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, int32(3), calls.Load())
}

func TestDo_RetryOn429WithRetryAfter(t *testing.T) {
	var calls atomic.Int32

	var slept []time.Duration

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)

			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	client.sleepFunc = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	resp, err := client.Do(context.Background(), http.MethodGet, "/throttle")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []time.Duration{7 * time.Second}, slept)
}

func TestDo_MaxRetriesExhausted(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Do(context.Background(), http.MethodGet, "/fail")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServerError)

	// 1 initial + 5 retries = 6 total attempts.
	assert.Equal(t, int32(6), calls.Load())
}

func TestDo_NoRetryOn4xx(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Do(context.Background(), http.MethodGet, "/missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDo_Headers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	resp, err := client.Do(context.Background(), http.MethodGet, "/headers")
	require.NoError(t, err)
	defer resp.Body.Close()
}

func TestDo_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(t, srv.URL)
	_, err := client.Do(ctx, http.MethodGet, "/cancel")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_ContextCanceledWhilePacing(t *testing.T) {
	client := NewClient("http://localhost", nil, staticToken("tok"), nil, "").WithRateLimit(0.001, 1)

	// Drain the single burst token so the next Wait has to block.
	require.True(t, client.limiter.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Do(ctx, http.MethodGet, "/paced")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request canceled")
}

func TestDo_TokenError(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, http.DefaultClient, failingToken{}, slog.Default(), "test-agent")
	client.sleepFunc = noopSleep

	_, err := client.Do(context.Background(), http.MethodGet, "/test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token error")
	assert.Equal(t, int32(0), calls.Load(), "nothing is sent without a token")
}

func TestDo_NetworkError_MaxRetries(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:1")

	_, err := client.Do(context.Background(), http.MethodGet, "/unreachable")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 5 retries")
}

func TestGraphError_ErrorsIs(t *testing.T) {
	graphErr := &GraphError{
		StatusCode: http.StatusNotFound,
		RequestID:  "abc-123",
		Message:    "item not found",
		Err:        ErrNotFound,
	}

	assert.ErrorIs(t, graphErr, ErrNotFound)
	assert.NotErrorIs(t, graphErr, ErrForbidden)
}

func TestGraphError_ErrorString(t *testing.T) {
	t.Run("with request ID", func(t *testing.T) {
		graphErr := &GraphError{StatusCode: http.StatusNotFound, RequestID: "req-123", Message: "not found", Err: ErrNotFound}
		assert.Contains(t, graphErr.Error(), "404")
		assert.Contains(t, graphErr.Error(), "req-123")
	})

	t.Run("without request ID", func(t *testing.T) {
		graphErr := &GraphError{StatusCode: http.StatusNotFound, Message: "not found", Err: ErrNotFound}
		assert.Contains(t, graphErr.Error(), "404")
		assert.NotContains(t, graphErr.Error(), "request-id")
	})
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code     int
		expected error
	}{
		{http.StatusOK, nil},
		{http.StatusBadRequest, ErrBadRequest},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusConflict, nil},
		{http.StatusGone, ErrGone},
		{http.StatusTooManyRequests, ErrThrottled},
		{http.StatusInternalServerError, ErrServerError},
		{http.StatusBadGateway, ErrServerError},
		{http.StatusServiceUnavailable, ErrServerError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.expected, classifyStatus(tt.code))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	retryable := []int{408, 429, 500, 502, 503, 504, 509}
	for _, code := range retryable {
		assert.True(t, isRetryable(code), "status %d", code)
	}

	for _, code := range []int{400, 401, 403, 404, 409, 410, 501} {
		assert.False(t, isRetryable(code), "status %d", code)
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("http://localhost", nil, staticToken("tok"), nil, "")
	assert.NotNil(t, c.httpClient)
	assert.NotNil(t, c.logger)
	assert.Equal(t, DefaultUserAgent, c.userAgent)
	require.NotNil(t, c.limiter)
	assert.Equal(t, DefaultBurst, c.limiter.Burst())
}

func TestWithRateLimit(t *testing.T) {
	c := NewClient("http://localhost", nil, staticToken("tok"), nil, "")

	c.WithRateLimit(2, 0)
	require.NotNil(t, c.limiter)
	assert.Equal(t, 1, c.limiter.Burst())

	c.WithRateLimit(-1, 5)
	assert.Nil(t, c.limiter)
}

func TestTimeSleep_Completes(t *testing.T) {
	assert.NoError(t, timeSleep(context.Background(), 10*time.Millisecond))
}

func TestTimeSleep_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, timeSleep(ctx, time.Minute), context.Canceled)
}

func TestCalcBackoff_MaxCap(t *testing.T) {
	c := NewClient("http://localhost", nil, staticToken("tok"), nil, "")

	// 1s * 2^10 exceeds maxBackoff; the result stays within jitter of the cap.
	backoff := c.calcBackoff(10)
	assert.LessOrEqual(t, backoff, maxBackoff+maxBackoff/4)
	assert.GreaterOrEqual(t, backoff, maxBackoff-maxBackoff/4)
}

func TestRetryBackoff_MalformedRetryAfter(t *testing.T) {
	c := newTestClient(t, "http://localhost")

	resp := &http.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{}}
	resp.Header.Set("Retry-After", "soon")

	backoff := c.retryBackoff(resp, 0)
	assert.LessOrEqual(t, backoff, baseBackoff+baseBackoff/4)
	assert.GreaterOrEqual(t, backoff, baseBackoff-baseBackoff/4)
}
