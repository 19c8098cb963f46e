// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework side (ports, TLS, log level, env); everything here is PinHub's.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Bearer tokens
	TokenSecret string        // HS256 signing secret (32+ chars in production)
	TokenIssuer string        // iss claim
	TokenTTL    time.Duration // token lifetime (default 7 days)

	// Rate limiting
	RateLimitWindow   time.Duration // fixed window for /api/*
	RateLimitMax      int           // requests per client IP per window
	LoginRateLimitMax int           // login attempts per client IP per minute

	// Login history retention; zero keeps records forever.
	LoginHistoryRetention time.Duration

	// Uploads
	UploadDir      string // directory holding uploaded images
	UploadURL      string // URL prefix the directory is served under
	UploadMaxBytes int64

	// CORS
	CORSOrigins []string // allowed origins; empty allows any

	// Proxies whose X-Forwarded-For / X-Real-IP are believed; empty trusts none.
	TrustedProxies []string

	// Timeout overrides; zero keeps the built-in default.
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}
