// Package timeouts provides the deadlines handlers put on database work.
//
// Handlers wrap r.Context() with one of these before calling a store:
//   - Ping: health checks
//   - Short: single-document reads and writes
//   - Medium: list and feed queries
//   - Long: transactions touching several collections (cascading deletes)
//
// Values may be overridden once at startup with Configure.
package timeouts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
)

var (
	mu     sync.RWMutex
	ping   = DefaultPing
	short  = DefaultShort
	medium = DefaultMedium
	long   = DefaultLong
)

func Ping() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return ping
}

func Short() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return short
}

func Medium() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return medium
}

func Long() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return long
}

// Config holds override values. Zero fields keep the current value.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// Configure applies non-zero overrides.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		ping = cfg.Ping
	}
	if cfg.Short > 0 {
		short = cfg.Short
	}
	if cfg.Medium > 0 {
		medium = cfg.Medium
	}
	if cfg.Long > 0 {
		long = cfg.Long
	}
}

// Reset restores the defaults. Used by tests.
func Reset() {
	Configure(Config{Ping: DefaultPing, Short: DefaultShort, Medium: DefaultMedium, Long: DefaultLong})
}

// Current returns the active values, for startup logging.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return Config{Ping: ping, Short: short, Medium: medium, Long: long}
}

// WithTimeout is context.WithTimeout whose cancel func logs a warning when
// the deadline was hit, naming operation.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete board")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
