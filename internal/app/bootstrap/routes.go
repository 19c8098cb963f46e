// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"sync"
	"time"

	accountfeature "github.com/dalemusser/pinhub/internal/app/features/account"
	boardsfeature "github.com/dalemusser/pinhub/internal/app/features/boards"
	errorsfeature "github.com/dalemusser/pinhub/internal/app/features/errors"
	feedfeature "github.com/dalemusser/pinhub/internal/app/features/feed"
	healthfeature "github.com/dalemusser/pinhub/internal/app/features/health"
	pinsfeature "github.com/dalemusser/pinhub/internal/app/features/pins"
	profilefeature "github.com/dalemusser/pinhub/internal/app/features/profile"
	settingsfeature "github.com/dalemusser/pinhub/internal/app/features/settings"
	uploadsfeature "github.com/dalemusser/pinhub/internal/app/features/uploads"
	metricsstore "github.com/dalemusser/pinhub/internal/app/store/metrics"
	userstore "github.com/dalemusser/pinhub/internal/app/store/users"
	"github.com/dalemusser/pinhub/internal/app/system/auth"
	"github.com/dalemusser/pinhub/internal/app/system/metrics"
	"github.com/dalemusser/pinhub/internal/app/system/ratelimit"
	"github.com/dalemusser/pinhub/internal/app/system/uploads"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// loginEmailLimit and loginEmailWindow bound attempts against one account
// regardless of source IP.
const (
	loginEmailLimit  = 5
	loginEmailWindow = 5 * time.Minute
)

var (
	bgMu   sync.Mutex
	bgStop []func()
)

func onShutdown(fn func()) {
	bgMu.Lock()
	defer bgMu.Unlock()
	bgStop = append(bgStop, fn)
}

// stopBackground stops the workers and limiter cleanup loops started by
// Startup and BuildHandler.
func stopBackground() {
	bgMu.Lock()
	defer bgMu.Unlock()
	for _, fn := range bgStop {
		fn()
	}
	bgStop = nil
}

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. PinHub builds the token manager,
// limiters, metrics registry and upload store here, then mounts the JSON API
// under /api with the health, metrics and upload file routes beside it.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	tokens, err := auth.NewTokenManager(appCfg.TokenSecret, appCfg.TokenIssuer, appCfg.TokenTTL, logger)
	if err != nil {
		logger.Error("token manager init failed", zap.Error(err))
		return nil, err
	}
	// Fresh user data on each request, so deleted accounts lose access at once.
	tokens.SetUserFetcher(userstore.NewFetcher(db))

	store, err := uploads.NewLocal(appCfg.UploadDir, appCfg.UploadURL)
	if err != nil {
		logger.Error("upload store init failed", zap.Error(err), zap.String("dir", appCfg.UploadDir))
		return nil, err
	}
	uploader := uploads.New(store, appCfg.UploadMaxBytes)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)
	if err := metrics.RegisterCounts(reg, metricsstore.CountFunc(db)); err != nil {
		return nil, err
	}

	apiLimiter := ratelimit.New(appCfg.RateLimitMax, appCfg.RateLimitWindow)
	loginLimiter := ratelimit.NewLoginLimiterWithConfig(appCfg.LoginRateLimitMax, time.Minute, loginEmailLimit, loginEmailWindow)
	onShutdown(apiLimiter.Stop)
	onShutdown(loginLimiter.Stop)

	errLog := errorsfeature.NewErrorLogger(logger)
	errLog.Detail = coreCfg.Env == "dev"

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("X-Content-Type-Options", "nosniff"))
	r.Use(middleware.SetHeader("X-Frame-Options", "DENY"))
	r.Use(middleware.SetHeader("Referrer-Policy", "strict-origin-when-cross-origin"))
	r.Use(corsHandler(appCfg.CORSOrigins))
	r.Use(collector.Middleware)

	r.NotFound(errLog.NotFound)
	r.MethodNotAllowed(errLog.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, db, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Handle("/metrics", metrics.Handler(reg))

	// Uploaded images
	r.Handle(appCfg.UploadURL+"/*", fileserver.Handler(appCfg.UploadURL, appCfg.UploadDir))

	r.Route("/api", func(api chi.Router) {
		api.Use(ratelimit.Middleware(apiLimiter))
		// Loads the caller when a token is present; routes decide whether one is required.
		api.Use(tokens.LoadUser)

		accountHandler := accountfeature.NewHandler(db, tokens, loginLimiter, collector, errLog, logger)
		api.Mount("/auth", accountfeature.Routes(accountHandler))

		uploadsHandler := uploadsfeature.NewHandler(uploader, errLog, logger)
		api.Mount("/uploads", uploadsfeature.Routes(uploadsHandler))

		pinsHandler := pinsfeature.NewHandler(db, uploader, collector, errLog, logger)
		api.Mount("/pins", pinsfeature.Routes(pinsHandler))

		boardsHandler := boardsfeature.NewHandler(db, errLog, logger)
		api.Mount("/boards", boardsfeature.Routes(boardsHandler))

		feedHandler := feedfeature.NewHandler(db, errLog, logger)
		api.Mount("/feed", feedfeature.Routes(feedHandler))

		settingsHandler := settingsfeature.NewHandler(db, errLog, logger)
		api.Mount("/settings", settingsfeature.Routes(settingsHandler))

		profileHandler := profilefeature.NewHandler(db, collector, errLog, logger)
		api.Mount("/profile", profilefeature.Routes(profileHandler))
	})

	return r, nil
}

// corsHandler allows browser and mobile clients to send bearer tokens in
// either Authorization or x-auth-token.
func corsHandler(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "x-auth-token"},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}
