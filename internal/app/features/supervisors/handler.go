// internal/app/features/supervisors/handler.go
package supervisors

import (
	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	roomstore "github.com/dalemusser/dormhub/internal/app/store/rooms"
	supervisorstore "github.com/dalemusser/dormhub/internal/app/store/supervisors"
	"github.com/dalemusser/dormhub/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB          *mongo.Database
	ErrLog      *uierrors.ErrorLogger
	AuditLog    *auditlog.Logger
	Log         *zap.Logger
	supervisors *supervisorstore.Store
	rooms       *roomstore.Store
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:          db,
		ErrLog:      errLog,
		AuditLog:    audit,
		Log:         logger,
		supervisors: supervisorstore.New(db),
		rooms:       roomstore.New(db),
	}
}
