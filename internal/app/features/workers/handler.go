// internal/app/features/workers/handler.go
package workers

import (
	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	farmstore "github.com/dalemusser/dormhub/internal/app/store/farms"
	roomstore "github.com/dalemusser/dormhub/internal/app/store/rooms"
	securitycodestore "github.com/dalemusser/dormhub/internal/app/store/securitycodes"
	transferstore "github.com/dalemusser/dormhub/internal/app/store/transfers"
	workerstore "github.com/dalemusser/dormhub/internal/app/store/workers"
	"github.com/dalemusser/dormhub/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Default accepted age range for new workers.
const (
	DefaultMinAge = 18
	DefaultMaxAge = 65
)

// Handler serves the workers of one farm.
type Handler struct {
	DB       *mongo.Database
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Log      *zap.Logger

	// MinAge and MaxAge bound the age of workers at their entry date.
	MinAge int
	MaxAge int

	workers   *workerstore.Store
	rooms     *roomstore.Store
	farms     *farmstore.Store
	codes     *securitycodestore.Store
	transfers *transferstore.Store
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:        db,
		ErrLog:    errLog,
		AuditLog:  audit,
		Log:       logger,
		MinAge:    DefaultMinAge,
		MaxAge:    DefaultMaxAge,
		workers:   workerstore.New(db),
		rooms:     roomstore.New(db),
		farms:     farmstore.New(db),
		codes:     securitycodestore.New(db),
		transfers: transferstore.New(db),
	}
}
