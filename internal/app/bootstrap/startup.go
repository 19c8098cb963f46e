// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"time"

	loginstore "github.com/dalemusser/pinhub/internal/app/store/logins"
	"github.com/dalemusser/pinhub/internal/app/system/ratelimit"
	"github.com/dalemusser/pinhub/internal/app/system/timeouts"
	"github.com/dalemusser/pinhub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

const loginPruneInterval = time.Hour

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It applies
// timeout overrides and starts background workers; Shutdown stops them.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})
	cur := timeouts.Current()
	logger.Info("db timeouts",
		zap.Duration("short", cur.Short),
		zap.Duration("medium", cur.Medium),
		zap.Duration("long", cur.Long))

	if err := ratelimit.SetTrustedProxies(appCfg.TrustedProxies); err != nil {
		return err
	}
	if len(appCfg.TrustedProxies) > 0 {
		logger.Info("trusting forwarded client IPs", zap.Strings("proxies", appCfg.TrustedProxies))
	}

	if appCfg.LoginHistoryRetention > 0 {
		prune := workers.NewLoginPrune(loginstore.New(deps.MongoDatabase), logger, loginPruneInterval, appCfg.LoginHistoryRetention)
		prune.Start()
		onShutdown(prune.Stop)
	}
	return nil
}
