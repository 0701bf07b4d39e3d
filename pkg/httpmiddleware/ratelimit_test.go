package httpmiddleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doFrom(h http.Handler, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remote
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_RejectsOverLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := RateLimit(ctx, RateLimitConfig{Max: 2, Window: time.Minute})(okHandler())

	for i := range 2 {
		w := doFrom(h, "10.0.0.1:9999")
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := doFrom(h, "10.0.0.1:9999")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, w.Body.String())

	// Other clients have their own budget.
	assert.Equal(t, http.StatusOK, doFrom(h, "10.0.0.2:9999").Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	h := RateLimit(context.Background(), RateLimitConfig{})(okHandler())
	for range 10 {
		w := doFrom(h, "10.0.0.1:1")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestLimiter_SlidingWindow(t *testing.T) {
	l := newLimiter(4, time.Minute)
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := range 4 {
		_, _, ok := l.take("k", base.Add(time.Duration(i)*time.Second))
		require.True(t, ok)
	}
	_, _, ok := l.take("k", base.Add(10*time.Second))
	require.False(t, ok)

	// Half way through the next window half of the previous count still
	// applies: 4*0.5 = 2 used, so two more requests fit.
	mid := base.Add(90 * time.Second)
	_, _, ok = l.take("k", mid)
	assert.True(t, ok)
	_, _, ok = l.take("k", mid)
	assert.True(t, ok)
	_, _, ok = l.take("k", mid)
	assert.False(t, ok)

	// After two idle windows the history is gone.
	left, _, ok := l.take("k", base.Add(5*time.Minute))
	assert.True(t, ok)
	assert.Equal(t, 3, left)
}

func TestLimiter_Evict(t *testing.T) {
	l := newLimiter(1, time.Second)
	now := time.Now()
	l.take("a", now)
	l.take("b", now.Add(1500*time.Millisecond))

	l.evict(now.Add(2500 * time.Millisecond))
	assert.NotContains(t, l.clients, "a")
	assert.Contains(t, l.clients, "b")
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "1.1.1.1, 2.2.2.2"}, "9.9.9.9:1", "1.1.1.1"},
		{"real ip", map[string]string{"X-Real-IP": "3.3.3.3"}, "9.9.9.9:1", "3.3.3.3"},
		{"remote addr", nil, "9.9.9.9:1", "9.9.9.9"},
		{"remote without port", nil, "9.9.9.9", "9.9.9.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}
