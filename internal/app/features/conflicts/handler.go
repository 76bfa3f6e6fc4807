// internal/app/features/conflicts/handler.go
package conflicts

import (
	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	farmstore "github.com/dalemusser/dormhub/internal/app/store/farms"
	notificationstore "github.com/dalemusser/dormhub/internal/app/store/notifications"
	roomstore "github.com/dalemusser/dormhub/internal/app/store/rooms"
	securitycodestore "github.com/dalemusser/dormhub/internal/app/store/securitycodes"
	workerstore "github.com/dalemusser/dormhub/internal/app/store/workers"
	"github.com/dalemusser/dormhub/internal/app/system/auditlog"
	"github.com/dalemusser/dormhub/internal/app/system/metrics"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the cross-farm conflict report and its resolution.
type Handler struct {
	DB       *mongo.Database
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Log      *zap.Logger
	Metrics  *metrics.Metrics

	workers *workerstore.Store
	rooms   *roomstore.Store
	farms   *farmstore.Store
	codes   *securitycodestore.Store
	notify  *notificationstore.Store
}

func NewHandler(db *mongo.Database, m *metrics.Metrics, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		ErrLog:   errLog,
		AuditLog: audit,
		Log:      logger,
		Metrics:  m,
		workers:  workerstore.New(db),
		rooms:    roomstore.New(db),
		farms:    farmstore.New(db),
		codes:    securitycodestore.New(db),
		notify:   notificationstore.New(db),
	}
}
