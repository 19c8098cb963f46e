// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limiter is a fixed-window request counter keyed by client (usually IP).
// Counters are per process; nothing is shared between server instances.
// It is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int           // max requests per window
	duration time.Duration // window length
	now      func() time.Time
	stop     chan struct{}
}

type window struct {
	count     int
	expiresAt time.Time
}

// New creates a limiter allowing limit requests per duration per key.
// A background goroutine drops expired windows until Stop is called.
func New(limit int, duration time.Duration) *Limiter {
	l := &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go l.cleanupLoop(duration * 2)
	return l
}

// Limit returns the configured requests per window.
func (l *Limiter) Limit() int { return l.limit }

// Allow records a request for key and reports whether it is within the limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, exists := l.windows[key]

	// No window yet, or the old one ended: start a new window.
	if !exists || !now.Before(w.expiresAt) {
		l.windows[key] = &window{
			count:     1,
			expiresAt: now.Add(l.duration),
		}
		return true
	}

	if w.count >= l.limit {
		return false
	}

	w.count++
	return true
}

// Remaining returns how many requests are left for key in the current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, exists := l.windows[key]
	if !exists || !l.now().Before(w.expiresAt) {
		return l.limit
	}

	remaining := l.limit - w.count
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RetryAfter returns how long until key's window resets (0 if no window is active).
func (l *Limiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, exists := l.windows[key]
	if !exists {
		return 0
	}
	d := w.expiresAt.Sub(l.now())
	if d < 0 {
		return 0
	}
	return d
}

// Reset clears the window for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// Stop ends the cleanup goroutine.
func (l *Limiter) Stop() {
	select {
	case <-l.stop:
	default:
		close(l.stop)
	}
}

func (l *Limiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			now := l.now()
			for key, w := range l.windows {
				if !now.Before(w.expiresAt) {
					delete(l.windows, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// LoginLimiter rate limits login attempts by client IP and by target email,
// covering both many-accounts-from-one-IP and one-account-from-many-IPs.
type LoginLimiter struct {
	ipLimiter    *Limiter
	emailLimiter *Limiter
}

// NewLoginLimiter creates a limiter with the default login limits:
// 10 attempts per IP per minute, 5 attempts per email per 5 minutes.
func NewLoginLimiter() *LoginLimiter {
	return NewLoginLimiterWithConfig(10, time.Minute, 5, 5*time.Minute)
}

// NewLoginLimiterWithConfig creates a login limiter with custom limits.
func NewLoginLimiterWithConfig(ipLimit int, ipDuration time.Duration, emailLimit int, emailDuration time.Duration) *LoginLimiter {
	return &LoginLimiter{
		ipLimiter:    New(ipLimit, ipDuration),
		emailLimiter: New(emailLimit, emailDuration),
	}
}

// Check records a login attempt and reports whether it may proceed.
// When blocked, reason is a client-safe message and retry is the wait time.
func (ll *LoginLimiter) Check(r *http.Request, email string) (ok bool, reason string, retry time.Duration) {
	ip := ClientIP(r)
	if !ll.ipLimiter.Allow(ip) {
		return false, "Too many login attempts. Please wait a minute before trying again.", ll.ipLimiter.RetryAfter(ip)
	}

	if key := emailKey(email); key != "" {
		if !ll.emailLimiter.Allow(key) {
			return false, "Too many login attempts for this account. Please wait a few minutes.", ll.emailLimiter.RetryAfter(key)
		}
	}

	return true, "", 0
}

// ResetEmail clears the email window after a successful login.
func (ll *LoginLimiter) ResetEmail(email string) {
	if key := emailKey(email); key != "" {
		ll.emailLimiter.Reset(key)
	}
}

// Stop ends both cleanup goroutines.
func (ll *LoginLimiter) Stop() {
	ll.ipLimiter.Stop()
	ll.emailLimiter.Stop()
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
