package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/opcc-pilot/complaint-intake/internal/log"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := newRateLimiter(0.001, 2) // effectively no refill during the test

	if !rl.allow("1.2.3.4") || !rl.allow("1.2.3.4") {
		t.Fatal("burst tokens must be granted")
	}
	if rl.allow("1.2.3.4") {
		t.Error("third request must be rejected")
	}
	if !rl.allow("5.6.7.8") {
		t.Error("limits are per IP")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := newRateLimiter(0.001, 1)
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := rateLimitMiddleware(rl, false, log.NewNop())(inner)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "9.9.9.9:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Error("Retry-After header missing")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xRealIP    string
		xff        string
		trustProxy bool
		want       string
	}{
		{"remote addr only", "10.0.0.1:5000", "", "", false, "10.0.0.1"},
		{"headers ignored without trust", "10.0.0.1:5000", "1.2.3.4", "", false, "10.0.0.1"},
		{"x-real-ip trusted", "10.0.0.1:5000", "1.2.3.4", "", true, "1.2.3.4"},
		{"xff first ip", "10.0.0.1:5000", "", "1.2.3.4, 5.6.7.8", true, "1.2.3.4"},
		{"invalid header falls through", "10.0.0.1:5000", "not-an-ip", "also-bad", true, "10.0.0.1"},
		{"no port", "10.0.0.1", "", "", false, "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xRealIP != "" {
				req.Header.Set("X-Real-IP", tt.xRealIP)
			}
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := clientIP(req, tt.trustProxy); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
