// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/pinhub/internal/app/system/ratelimit"
	"github.com/dalemusser/pinhub/internal/app/system/uploads"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

const minProdSecretLen = 32

// appConfigKeys defines the configuration keys for PinHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, token_secret, etc.
//   - Environment variables: PINHUB_MONGO_URI, PINHUB_TOKEN_SECRET, etc.
//   - Command-line flags: --mongo_uri, --token_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "pinhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Bearer tokens
	{Name: "token_secret", Default: "", Desc: "HS256 token signing secret (required; 32+ chars in prod)"},
	{Name: "token_issuer", Default: "pinhub", Desc: "Token issuer claim"},
	{Name: "token_ttl", Default: "168h", Desc: "Token lifetime (e.g., 168h, 24h)"},

	// Rate limiting
	{Name: "rate_limit_window", Default: "15m", Desc: "Rate limit window for /api/*"},
	{Name: "rate_limit_max", Default: 100, Desc: "Requests per client IP per window"},
	{Name: "login_rate_limit_max", Default: 10, Desc: "Login attempts per client IP per minute"},

	{Name: "login_history_retention", Default: "2160h", Desc: "How long login history is kept (0 keeps forever)"},

	// Uploads
	{Name: "upload_dir", Default: "./uploads", Desc: "Directory for uploaded images"},
	{Name: "upload_url", Default: "/uploads", Desc: "URL prefix uploads are served under"},
	{Name: "upload_max_bytes", Default: int(uploads.DefaultMaxBytes), Desc: "Maximum upload size in bytes"},

	// CORS
	{Name: "cors_origins", Default: "", Desc: "Comma-separated allowed origins (blank allows any)"},
	{Name: "trusted_proxies", Default: "", Desc: "Comma-separated proxy IPs or CIDRs allowed to set X-Forwarded-For"},

	// Timeouts
	{Name: "timeout_short", Default: "", Desc: "Override for short DB operations (e.g., 5s)"},
	{Name: "timeout_medium", Default: "", Desc: "Override for medium DB operations"},
	{Name: "timeout_long", Default: "", Desc: "Override for long DB operations (cascading deletes)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, PINHUB_* for app) and flags,
// merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "PINHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		TokenSecret: appValues.String("token_secret"),
		TokenIssuer: appValues.String("token_issuer"),
		TokenTTL:    appValues.Duration("token_ttl", 7*24*time.Hour),

		RateLimitWindow:   appValues.Duration("rate_limit_window", 15*time.Minute),
		RateLimitMax:      appValues.Int("rate_limit_max"),
		LoginRateLimitMax: appValues.Int("login_rate_limit_max"),

		LoginHistoryRetention: appValues.Duration("login_history_retention", 90*24*time.Hour),

		UploadDir:      appValues.String("upload_dir"),
		UploadURL:      appValues.String("upload_url"),
		UploadMaxBytes: int64(appValues.Int("upload_max_bytes")),

		CORSOrigins:    splitList(appValues.String("cors_origins")),
		TrustedProxies: splitList(appValues.String("trusted_proxies")),

		TimeoutShort:  appValues.Duration("timeout_short", 0),
		TimeoutMedium: appValues.Duration("timeout_medium", 0),
		TimeoutLong:   appValues.Duration("timeout_long", 0),
	}

	return coreCfg, appCfg, nil
}

// splitList parses a comma-separated config value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateApp(coreCfg.Env, appCfg)
}

func validateApp(env string, appCfg AppConfig) error {
	if appCfg.TokenSecret == "" {
		return errors.New("token_secret is required (set PINHUB_TOKEN_SECRET)")
	}
	if env == "prod" && len(appCfg.TokenSecret) < minProdSecretLen {
		return fmt.Errorf("token_secret must be at least %d characters in prod", minProdSecretLen)
	}
	if appCfg.TokenTTL <= 0 {
		return errors.New("token_ttl must be positive")
	}
	if appCfg.RateLimitMax <= 0 || appCfg.RateLimitWindow <= 0 {
		return errors.New("rate_limit_max and rate_limit_window must be positive")
	}
	if appCfg.LoginRateLimitMax <= 0 {
		return errors.New("login_rate_limit_max must be positive")
	}
	if appCfg.UploadDir == "" || !strings.HasPrefix(appCfg.UploadURL, "/") {
		return errors.New("upload_dir is required and upload_url must start with /")
	}
	if _, err := ratelimit.ParseTrustedProxies(appCfg.TrustedProxies); err != nil {
		return err
	}
	return nil
}
