// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds DormHub-specific configuration.
//
// These values come from environment variables (DORMHUB_*), configuration
// files, or command-line flags, loaded in LoadConfig. WAFFLE's CoreConfig
// carries the framework-level settings (ports, TLS, logging, CORS, body
// limits); everything the dormitory service itself needs lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: dormhub-session)
	SessionDomain string // Cookie domain (blank means current host)

	// SuperAdmin bootstrap
	SuperAdminEmail    string
	SuperAdminPassword string

	// Audit logging: "all", "db", "log" or "off"
	AuditLogAuth  string
	AuditLogAdmin string

	// Worker import
	ImportAliasFile string // optional YAML file with extra column header spellings
	ImportMinAge    int
	ImportMaxAge    int

	// Background jobs
	TransferExpiry        time.Duration // open transfers older than this are cancelled
	NotificationRetention time.Duration // read notifications older than this are purged

	// Database retries
	RetryAttempts  int
	RetryBaseDelay time.Duration

	// Live notifications fall back to polling at this interval when the
	// deployment has no change streams.
	LivePollInterval time.Duration
}
