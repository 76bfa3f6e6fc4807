// internal/app/features/farms/handler.go
package farms

import (
	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	farmstore "github.com/dalemusser/dormhub/internal/app/store/farms"
	"github.com/dalemusser/dormhub/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level entry point for Farms.
type Handler struct {
	DB       *mongo.Database
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Log      *zap.Logger
	farms    *farmstore.Store
}

// NewHandler constructs a new Farms handler bound to a DB and logger.
func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		ErrLog:   errLog,
		AuditLog: audit,
		Log:      logger,
		farms:    farmstore.New(db),
	}
}
