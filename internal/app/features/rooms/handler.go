// internal/app/features/rooms/handler.go
package rooms

import (
	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	roomstore "github.com/dalemusser/dormhub/internal/app/store/rooms"
	supervisorstore "github.com/dalemusser/dormhub/internal/app/store/supervisors"
	workerstore "github.com/dalemusser/dormhub/internal/app/store/workers"
	"github.com/dalemusser/dormhub/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the rooms of one farm.
type Handler struct {
	DB          *mongo.Database
	ErrLog      *uierrors.ErrorLogger
	AuditLog    *auditlog.Logger
	Log         *zap.Logger
	rooms       *roomstore.Store
	supervisors *supervisorstore.Store
	workers     *workerstore.Store
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:          db,
		ErrLog:      errLog,
		AuditLog:    audit,
		Log:         logger,
		rooms:       roomstore.New(db),
		supervisors: supervisorstore.New(db),
		workers:     workerstore.New(db),
	}
}
