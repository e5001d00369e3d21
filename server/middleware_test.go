package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCronAuthHeader(t *testing.T) {
	h := cronAuth("s3cret", okHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/highlights", nil)
	req.Header.Set("X-Cron-Secret", "s3cret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCronAuthQueryParam(t *testing.T) {
	h := cronAuth("s3cret", okHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/highlights?secret=s3cret", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCronAuthRejectsWrongSecret(t *testing.T) {
	h := cronAuth("s3cret", okHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/highlights", nil)
	req.Header.Set("X-Cron-Secret", "nope")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Body.String(); got != `{"error":"Unauthorized"}` {
		t.Errorf("body = %q", got)
	}
}

func TestCronAuthRejectsMissingSecret(t *testing.T) {
	h := cronAuth("s3cret", okHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/highlights", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCronAuthEmptyConfiguredSecretRejectsAll(t *testing.T) {
	h := cronAuth("", okHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/highlights", nil)
	req.Header.Set("X-Cron-Secret", "")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("empty configured secret must reject, got %d", rec.Code)
	}
}

func TestRateLimiterAllowsWithinBudget(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := newIPRateLimiter(ctx, &rateLimiterConfig{enabled: true, requestsPerIP: 3, window: time.Minute})
	for i := 0; i < 3; i++ {
		if !rl.allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if rl.allow("1.2.3.4") {
		t.Fatal("fourth request should be denied")
	}
	// another IP has its own budget
	if !rl.allow("5.6.7.8") {
		t.Fatal("distinct IP should be allowed")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := newIPRateLimiter(ctx, &rateLimiterConfig{enabled: false, requestsPerIP: 1, window: time.Minute})
	for i := 0; i < 10; i++ {
		if !rl.allow("1.2.3.4") {
			t.Fatal("disabled limiter should always allow")
		}
	}
}

func TestRateLimitMiddlewareUsesForwardedFor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := newIPRateLimiter(ctx, &rateLimiterConfig{enabled: true, requestsPerIP: 1, window: time.Minute})
	h := rateLimitMiddleware(okHandler(), rl)

	req := httptest.NewRequest(http.MethodGet, "/api/clip", nil)
	req.Header.Set("X-Forwarded-For", "9.9.9.9, 10.0.0.1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
}

func TestIsOriginAllowed(t *testing.T) {
	allowed := []string{"https://app.example.com", "*.wild.org"}
	cases := []struct {
		origin string
		want   bool
	}{
		{"https://app.example.com", true},
		{"https://other.example.com", false},
		{"https://sub.wild.org", true},
		{"https://wild.org", true},
		{"https://notwild.org", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := isOriginAllowed(tc.origin, allowed); got != tc.want {
			t.Errorf("isOriginAllowed(%q) = %v, want %v", tc.origin, got, tc.want)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	h := withCORSConfig(okHandler(), &corsConfig{permissive: true})
	req := httptest.NewRequest(http.MethodOptions, "/api/clip", nil)
	req.Header.Set("Origin", "https://anything.test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("allow-origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestCORSRestrictedBlocksUnknownOrigin(t *testing.T) {
	h := withCORSConfig(okHandler(), &corsConfig{allowedOrigins: []string{"https://app.example.com"}})
	req := httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil)
	req.Header.Set("Origin", "https://evil.test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allow-origin %q", got)
	}
}
