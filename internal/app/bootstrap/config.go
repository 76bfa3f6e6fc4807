// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// minSessionKeyLen is the shortest session key accepted in production.
const minSessionKeyLen = 32

// appConfigKeys defines the configuration keys for DormHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: DORMHUB_MONGO_URI, DORMHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "dormhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "dormhub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	// SuperAdmin bootstrap
	{Name: "superadmin_email", Default: "", Desc: "Email of the superadmin created on startup when missing"},
	{Name: "superadmin_password", Default: "", Desc: "Initial password of that superadmin"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Worker import
	{Name: "import_alias_file", Default: "", Desc: "YAML file of extra column header aliases for worker imports"},
	{Name: "import_min_age", Default: 18, Desc: "Youngest age accepted by worker imports"},
	{Name: "import_max_age", Default: 65, Desc: "Oldest age accepted by worker imports"},

	// Background jobs
	{Name: "transfer_expiry", Default: "168h", Desc: "Cancel transfers left open longer than this (e.g., 72h)"},
	{Name: "notification_retention", Default: "720h", Desc: "Purge read notifications older than this"},

	// Retries
	{Name: "retry_attempts", Default: 3, Desc: "Attempts for retryable database errors"},
	{Name: "retry_base_delay", Default: "100ms", Desc: "First backoff delay between attempts"},

	// Live notifications
	{Name: "live_poll_interval", Default: "2s", Desc: "Polling interval when change streams are unavailable"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges .env files, config files,
// environment variables (WAFFLE_* for core, DORMHUB_* for the app) and
// flags, with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "DORMHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),

		SuperAdminEmail:    appValues.String("superadmin_email"),
		SuperAdminPassword: appValues.String("superadmin_password"),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		ImportAliasFile: appValues.String("import_alias_file"),
		ImportMinAge:    appValues.Int("import_min_age"),
		ImportMaxAge:    appValues.Int("import_max_age"),

		TransferExpiry:        appValues.Duration("transfer_expiry", 7*24*time.Hour),
		NotificationRetention: appValues.Duration("notification_retention", 30*24*time.Hour),

		RetryAttempts:  appValues.Int("retry_attempts"),
		RetryBaseDelay: appValues.Duration("retry_base_delay", 100*time.Millisecond),

		LivePollInterval: appValues.Duration("live_poll_interval", 2*time.Second),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// The MongoDB URI is checked before any connection attempt. Production
// refuses short session keys, and the import age window must not be empty.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateApp(coreCfg.Env, appCfg)
}

func validateApp(env string, appCfg AppConfig) error {
	if env == "prod" && len(appCfg.SessionKey) < minSessionKeyLen {
		return fmt.Errorf("session_key must be at least %d bytes in production", minSessionKeyLen)
	}
	if appCfg.ImportMinAge >= appCfg.ImportMaxAge {
		return fmt.Errorf("import_min_age (%d) must be lower than import_max_age (%d)",
			appCfg.ImportMinAge, appCfg.ImportMaxAge)
	}
	if appCfg.MongoMinPoolSize > appCfg.MongoMaxPoolSize {
		return errors.New("mongo_min_pool_size must not exceed mongo_max_pool_size")
	}
	for _, mode := range []string{appCfg.AuditLogAuth, appCfg.AuditLogAdmin} {
		switch mode {
		case "all", "db", "log", "off":
		default:
			return fmt.Errorf("audit log mode %q must be 'all', 'db', 'log' or 'off'", mode)
		}
	}
	return nil
}
