// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	articlesfeature "github.com/dalemusser/dormhub/internal/app/features/articles"
	auditlogfeature "github.com/dalemusser/dormhub/internal/app/features/auditlog"
	conflictsfeature "github.com/dalemusser/dormhub/internal/app/features/conflicts"
	dashboardfeature "github.com/dalemusser/dormhub/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/dormhub/internal/app/features/errors"
	farmsfeature "github.com/dalemusser/dormhub/internal/app/features/farms"
	healthfeature "github.com/dalemusser/dormhub/internal/app/features/health"
	loginfeature "github.com/dalemusser/dormhub/internal/app/features/login"
	logoutfeature "github.com/dalemusser/dormhub/internal/app/features/logout"
	notificationsfeature "github.com/dalemusser/dormhub/internal/app/features/notifications"
	roomsfeature "github.com/dalemusser/dormhub/internal/app/features/rooms"
	securitycodesfeature "github.com/dalemusser/dormhub/internal/app/features/securitycodes"
	stockfeature "github.com/dalemusser/dormhub/internal/app/features/stock"
	supervisorsfeature "github.com/dalemusser/dormhub/internal/app/features/supervisors"
	transfersfeature "github.com/dalemusser/dormhub/internal/app/features/transfers"
	usersfeature "github.com/dalemusser/dormhub/internal/app/features/users"
	"github.com/dalemusser/dormhub/internal/app/features/workerimport"
	workersfeature "github.com/dalemusser/dormhub/internal/app/features/workers"
	"github.com/dalemusser/dormhub/internal/app/store/audit"
	userstore "github.com/dalemusser/dormhub/internal/app/store/users"
	"github.com/dalemusser/dormhub/internal/app/system/auditlog"
	"github.com/dalemusser/dormhub/internal/app/system/auth"
	"github.com/dalemusser/dormhub/internal/app/system/respond"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for DormHub.
//
// WAFFLE calls this after configuration, DB connections, schema setup and
// Startup have completed. Every route answers JSON; the session middleware
// runs globally so handlers can read the current user with
// auth.CurrentUser(r).
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	if deps.svc == nil || deps.svc.metrics == nil {
		return nil, errors.New("build handler: Startup has not run")
	}
	svc := deps.svc
	db := deps.MongoDatabase

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// LoadSessionUser refreshes the user from the database on each request
	// so role changes and disabled accounts take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))

	errLog := errorsfeature.NewErrorLogger(logger)
	auditLog := auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	r := chi.NewRouter()
	r.Use(sessionMgr.LoadSessionUser)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, http.StatusNotFound, "Not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, http.StatusMethodNotAllowed, "Method not allowed.")
	})

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", svc.metrics.Handler())

	// Authentication
	loginHandler := loginfeature.NewHandler(db, sessionMgr, errLog, auditLog, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))
	r.Mount("/me", loginfeature.MeRoutes(loginHandler, sessionMgr))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, auditLog, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	// Accounts and reference data
	usersHandler := usersfeature.NewHandler(db, errLog, auditLog, logger)
	r.Mount("/users", usersfeature.Routes(usersHandler, sessionMgr))

	articlesHandler := articlesfeature.NewHandler(db, errLog, auditLog, logger)
	r.Mount("/article-names", articlesfeature.Routes(articlesHandler, sessionMgr))

	codesHandler := securitycodesfeature.NewHandler(db, errLog, auditLog, logger)
	r.Mount("/security-codes", securitycodesfeature.Routes(codesHandler, sessionMgr))

	// Farms and what lives on them. The nested mounts take precedence
	// over /farms/{id} for their own prefixes.
	farmsHandler := farmsfeature.NewHandler(db, errLog, auditLog, logger)
	r.Mount("/farms", farmsfeature.Routes(farmsHandler, sessionMgr))

	roomsHandler := roomsfeature.NewHandler(db, errLog, auditLog, logger)
	r.Mount("/farms/{farmID}/rooms", roomsfeature.Routes(roomsHandler, sessionMgr))

	workersHandler := workersfeature.NewHandler(db, errLog, auditLog, logger)
	r.Mount("/farms/{farmID}/workers", workersfeature.Routes(workersHandler, sessionMgr))

	stockHandler := stockfeature.NewHandler(db, errLog, auditLog, logger)
	r.Mount("/farms/{farmID}/stock", stockfeature.Routes(stockHandler, sessionMgr))

	supervisorsHandler := supervisorsfeature.NewHandler(db, errLog, auditLog, logger)
	r.Mount("/farms/{farmID}/supervisors", supervisorsfeature.Routes(supervisorsHandler, sessionMgr))

	importHandler := workerimport.NewHandler(db, svc.metrics, errLog, auditLog, logger)
	importHandler.Aliases = svc.aliases
	importHandler.MinAge = appCfg.ImportMinAge
	importHandler.MaxAge = appCfg.ImportMaxAge
	r.Mount("/farms/{farmID}/imports", workerimport.Routes(importHandler, sessionMgr))

	// Cross-farm workflows
	transfersHandler := transfersfeature.NewHandler(transfersfeature.NewService(db, svc.metrics, logger), errLog, auditLog, logger)
	r.Mount("/transfers", transfersfeature.Routes(transfersHandler, sessionMgr))

	conflictsHandler := conflictsfeature.NewHandler(db, svc.metrics, errLog, auditLog, logger)
	r.Mount("/conflicts", conflictsfeature.Routes(conflictsHandler, sessionMgr))

	notificationsHandler := notificationsfeature.NewHandler(db, svc.hub, errLog, logger)
	r.Mount("/notifications", notificationsfeature.Routes(notificationsHandler, sessionMgr))

	// Reporting
	dashboardHandler := dashboardfeature.NewHandler(db, errLog, logger)
	r.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler, sessionMgr))

	auditHandler := auditlogfeature.NewHandler(db, errLog, logger)
	r.Mount("/audit", auditlogfeature.Routes(auditHandler, sessionMgr))

	return r, nil
}
