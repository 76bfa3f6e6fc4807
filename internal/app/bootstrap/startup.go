// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	notificationsfeature "github.com/dalemusser/dormhub/internal/app/features/notifications"
	transfersfeature "github.com/dalemusser/dormhub/internal/app/features/transfers"
	"github.com/dalemusser/dormhub/internal/app/features/workerimport"
	"github.com/dalemusser/dormhub/internal/app/features/workerimport/importutil"
	notificationstore "github.com/dalemusser/dormhub/internal/app/store/notifications"
	userstore "github.com/dalemusser/dormhub/internal/app/store/users"
	"github.com/dalemusser/dormhub/internal/app/system/metrics"
	"github.com/dalemusser/dormhub/internal/app/system/retry"
	"github.com/dalemusser/dormhub/internal/app/system/tasks"
	"github.com/dalemusser/dormhub/internal/app/system/timeouts"
	"github.com/dalemusser/dormhub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
//
// It seeds the superadmin, loads the import header aliases, and starts
// the live notification hub and the background jobs.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.svc == nil {
		return errors.New("startup: DBDeps not created by ConnectDB")
	}
	retry.SetDefault(retry.Config{Attempts: appCfg.RetryAttempts, BaseDelay: appCfg.RetryBaseDelay})

	if err := ensureSuperAdmin(ctx, deps, appCfg.SuperAdminEmail, appCfg.SuperAdminPassword, logger); err != nil {
		return err
	}

	aliases, err := loadAliases(appCfg.ImportAliasFile)
	if err != nil {
		logger.Error("import alias file", zap.String("path", appCfg.ImportAliasFile), zap.Error(err))
		return err
	}

	db := deps.MongoDatabase
	m := metrics.New()
	m.WatchStore(db, timeouts.Medium())

	hub := notificationsfeature.NewHub(notificationstore.New(db), m, logger, appCfg.LivePollInterval)
	hub.Start()

	runner := workers.NewRunner(logger, m, timeouts.Batch(),
		tasks.TransferExpiryJob(transfersfeature.NewService(db, m, logger), logger, appCfg.TransferExpiry),
		tasks.NotificationRetentionJob(notificationstore.New(db), logger, appCfg.NotificationRetention),
		tasks.ImportPreviewCleanupJob(workerimport.NewPreviewStore(db), logger),
	)
	runner.Start()

	*deps.svc = services{metrics: m, hub: hub, runner: runner, aliases: aliases}
	logger.Info("background services started",
		zap.Duration("transfer_expiry", appCfg.TransferExpiry),
		zap.Duration("notification_retention", appCfg.NotificationRetention))
	return nil
}

// ensureSuperAdmin creates the configured superadmin when no user has
// that email yet. An empty email skips the step.
func ensureSuperAdmin(ctx context.Context, deps DBDeps, email, password string, logger *zap.Logger) error {
	if email == "" {
		logger.Info("superadmin_email not set; skipping superadmin bootstrap")
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	created, err := userstore.New(deps.MongoDatabase).EnsureSuperAdmin(ctx, email, password)
	if err != nil {
		return fmt.Errorf("ensure superadmin: %w", err)
	}
	if created {
		if password == "" {
			logger.Warn("superadmin created without a password; set one before signing in",
				zap.String("email", email))
		} else {
			logger.Info("superadmin created", zap.String("email", email))
		}
	}
	return nil
}

// loadAliases returns the built-in header aliases, extended by the
// YAML file at path when one is configured.
func loadAliases(path string) (importutil.Aliases, error) {
	return importutil.LoadAliases(path)
}
