package oasbind_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oasbind/oasbind"
)

func TestRateLimit(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		rate        float64
		burst       int
		numReqs     int
		wantOK      int
		wantLimited int
	}{
		"requests within rate succeed": {
			rate:        100,
			burst:       10,
			numReqs:     5,
			wantOK:      5,
			wantLimited: 0,
		},
		"requests exceeding rate get 429": {
			rate:        1,
			burst:       1,
			numReqs:     5,
			wantOK:      1,
			wantLimited: 4,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			mw := oasbind.RateLimit(oasbind.RateLimitConfig{
				Rate:  tc.rate,
				Burst: tc.burst,
			})
			handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			srv := httptest.NewServer(handler)
			t.Cleanup(srv.Close)

			okCount := 0
			limitedCount := 0

			for range tc.numReqs {
				req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/", nil)
				require.NoError(t, err)

				resp, err := http.DefaultClient.Do(req)
				require.NoError(t, err)

				switch resp.StatusCode {
				case http.StatusOK:
					okCount++
				case http.StatusTooManyRequests:
					limitedCount++
					assert.NotEmpty(t, resp.Header.Get("Retry-After"))
				}

				require.NoError(t, resp.Body.Close())
			}

			assert.Equal(t, tc.wantOK, okCount, "expected OK responses")
			assert.Equal(t, tc.wantLimited, limitedCount, "expected rate-limited responses")
		})
	}
}

func TestRateLimit_problem_body(t *testing.T) {
	t.Parallel()

	mw := oasbind.RateLimit(oasbind.RateLimitConfig{Rate: 1, Burst: 1})
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	for _, wantStatus := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/", nil)
		require.NoError(t, err)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		require.Equal(t, wantStatus, resp.StatusCode)

		if wantStatus != http.StatusTooManyRequests {
			require.NoError(t, resp.Body.Close())
			continue
		}

		assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
		assert.Equal(t, "1", resp.Header.Get("Retry-After"))

		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())

		var body map[string]any
		require.NoError(t, json.Unmarshal(data, &body))
		assert.Equal(t, "RateLimit", body["title"])
		assert.Equal(t, "Rate limit exceeded", body["detail"])
		assert.Equal(t, float64(1), body["retry_after"])
	}
}

func TestRateLimit_zero_rate(t *testing.T) {
	t.Parallel()

	mw := oasbind.RateLimit(oasbind.RateLimitConfig{Rate: 0, Burst: 0})
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "/", nil)
	require.NoError(t, err)

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["retry_after"])
}

func TestRateLimit_custom_key_func(t *testing.T) {
	t.Parallel()

	mw := oasbind.RateLimit(oasbind.RateLimitConfig{
		Rate:  1,
		Burst: 1,
		KeyFunc: func(r *http.Request) string {
			return r.Header.Get("X-API-Key")
		},
	})
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	send := func(key string) int {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/", nil)
		require.NoError(t, err)
		req.Header.Set("X-API-Key", key)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, send("caller-a"))
	assert.Equal(t, http.StatusTooManyRequests, send("caller-a"))

	// A different key keeps its own budget.
	assert.Equal(t, http.StatusOK, send("caller-b"))
}

func TestRateLimit_default_keyfunc_splithost_error(t *testing.T) {
	t.Parallel()

	mw := oasbind.RateLimit(oasbind.RateLimitConfig{Rate: 100, Burst: 10})
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "/", nil)
	require.NoError(t, err)
	req.RemoteAddr = "10.0.0.1" // no port

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_cleanup_expired_limiters(t *testing.T) {
	t.Parallel()

	mw := oasbind.RateLimit(oasbind.RateLimitConfig{
		Rate:            100,
		Burst:           100,
		CleanupInterval: time.Millisecond,
		MaxIdle:         time.Millisecond,
	})
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	send := func() int {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/", nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, send())

	// Wait for the first entry to go idle; the next request prunes it.
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, http.StatusOK, send())
}

func TestRateLimit_custom_on_limit(t *testing.T) {
	t.Parallel()

	mw := oasbind.RateLimit(oasbind.RateLimitConfig{
		Rate:  1,
		Burst: 1,
		OnLimit: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		},
	})
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec1 := httptest.NewRecorder()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "/", nil)
	require.NoError(t, err)
	req.RemoteAddr = "10.0.0.2:1234"

	handler.ServeHTTP(rec1, req)
	assert.Equal(t, http.StatusOK, rec1.Code)

	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec2.Code)
	// The Retry-After header is still set before the custom handler runs.
	assert.Equal(t, "1", rec2.Header().Get("Retry-After"))
}
