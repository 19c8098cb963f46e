package ratelimit

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newTestLimiter returns a limiter driven by a manual clock.
func newTestLimiter(t *testing.T, limit int, d time.Duration) (*Limiter, *time.Time) {
	t.Helper()
	l := New(limit, d)
	t.Cleanup(l.Stop)
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }
	return l, &clock
}

func TestAllow_FixedWindow(t *testing.T) {
	l, clock := newTestLimiter(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("1.2.3.4") {
		t.Error("4th request in the window should be blocked")
	}
	if !l.Allow("5.6.7.8") {
		t.Error("other keys have their own window")
	}

	*clock = clock.Add(time.Minute)
	if !l.Allow("1.2.3.4") {
		t.Error("a new window should start after the duration elapses")
	}
}

func TestRemainingAndRetryAfter(t *testing.T) {
	l, clock := newTestLimiter(t, 2, time.Minute)

	if got := l.Remaining("k"); got != 2 {
		t.Errorf("Remaining before any request = %d, want 2", got)
	}
	l.Allow("k")
	*clock = clock.Add(20 * time.Second)
	if got := l.Remaining("k"); got != 1 {
		t.Errorf("Remaining = %d, want 1", got)
	}
	if got := l.RetryAfter("k"); got != 40*time.Second {
		t.Errorf("RetryAfter = %v, want 40s", got)
	}

	l.Reset("k")
	if got := l.RetryAfter("k"); got != 0 {
		t.Errorf("RetryAfter after Reset = %v, want 0", got)
	}
}

func trustProxies(t *testing.T, list ...string) {
	t.Helper()
	if err := SetTrustedProxies(list); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = SetTrustedProxies(nil) })
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		xff     string
		xri     string
		remote  string
		want    string
	}{
		{"untrusted peer ignores forwarded", nil, "9.9.9.9", "8.8.8.8", "203.0.113.9:1234", "203.0.113.9"},
		{"remote with port", nil, "", "", "7.7.7.7:5555", "7.7.7.7"},
		{"remote without port", nil, "", "", "7.7.7.7", "7.7.7.7"},
		{"trusted peer, first untrusted hop from the right", []string{"10.0.0.0/8"}, "1.2.3.4, 9.9.9.9, 10.0.0.1", "", "10.0.0.2:1234", "9.9.9.9"},
		{"trusted peer, real ip fallback", []string{"10.0.0.2"}, "", "8.8.8.8", "10.0.0.2:1234", "8.8.8.8"},
		{"trusted peer, no headers", []string{"10.0.0.2"}, "", "", "10.0.0.2:1234", "10.0.0.2"},
		{"peer outside trusted range", []string{"10.0.0.0/8"}, "9.9.9.9", "", "192.0.2.1:1234", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trustProxies(t, tt.trusted...)
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	got, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 192.0.2.7 ", "", "::1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[1].Bits() != 32 || got[2].Bits() != 128 {
		t.Errorf("prefixes = %v", got)
	}
	for _, bad := range []string{"10.0.0.0/99", "not-an-ip"} {
		if _, err := ParseTrustedProxies([]string{bad}); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestMiddleware_ForwardedHeaderDoesNotBypassLimit(t *testing.T) {
	trustProxies(t)
	l, _ := newTestLimiter(t, 2, time.Minute)
	h := Middleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	allowed := 0
	for i := 0; i < 10; i++ {
		r := httptest.NewRequest("GET", "/api/pins", nil)
		r.RemoteAddr = "203.0.113.9:4000"
		r.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		r.Header.Set("X-Real-IP", fmt.Sprintf("10.1.0.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		if rec.Code == http.StatusOK {
			allowed++
		}
	}
	if allowed != 2 {
		t.Errorf("allowed = %d, want 2", allowed)
	}
}

func TestLoginLimiter_ForwardedHeaderDoesNotBypassIPLimit(t *testing.T) {
	trustProxies(t)
	ll := NewLoginLimiterWithConfig(3, time.Minute, 100, time.Minute)
	t.Cleanup(ll.Stop)

	blocked := false
	for i := 0; i < 5; i++ {
		r := httptest.NewRequest("POST", "/api/auth/login", nil)
		r.RemoteAddr = "203.0.113.9:4000"
		r.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		if ok, _, _ := ll.Check(r, fmt.Sprintf("user%d@example.com", i)); !ok {
			blocked = true
		}
	}
	if !blocked {
		t.Error("rotating X-Forwarded-For should not escape the per-IP login limit")
	}
}

func TestMiddleware_Returns429WithRetryAfter(t *testing.T) {
	l, _ := newTestLimiter(t, 1, time.Minute)
	h := Middleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest("GET", "/api/pins", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: got %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", rec.Header().Get("Retry-After"))
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("X-RateLimit-Remaining = %q", rec.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestLoginLimiter_EmailLimit(t *testing.T) {
	ll := NewLoginLimiterWithConfig(100, time.Minute, 2, time.Minute)
	t.Cleanup(ll.Stop)

	r := httptest.NewRequest("POST", "/api/auth/login", nil)
	for i := 0; i < 2; i++ {
		if ok, _, _ := ll.Check(r, "A@example.com"); !ok {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	ok, reason, retry := ll.Check(r, " a@example.com ")
	if ok || reason == "" || retry <= 0 {
		t.Errorf("third attempt for the same email should be blocked: ok=%v reason=%q retry=%v", ok, reason, retry)
	}

	ll.ResetEmail("a@example.com")
	if ok, _, _ := ll.Check(r, "a@example.com"); !ok {
		t.Error("ResetEmail should clear the email window")
	}
}
