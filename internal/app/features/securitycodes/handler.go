// internal/app/features/securitycodes/handler.go
package securitycodes

import (
	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	farmstore "github.com/dalemusser/dormhub/internal/app/store/farms"
	securitycodestore "github.com/dalemusser/dormhub/internal/app/store/securitycodes"
	"github.com/dalemusser/dormhub/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler manages the codes that authorize destructive operations.
type Handler struct {
	DB       *mongo.Database
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Log      *zap.Logger
	codes    *securitycodestore.Store
	farms    *farmstore.Store
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		ErrLog:   errLog,
		AuditLog: audit,
		Log:      logger,
		codes:    securitycodestore.New(db),
		farms:    farmstore.New(db),
	}
}
