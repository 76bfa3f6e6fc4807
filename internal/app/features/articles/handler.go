// internal/app/features/articles/handler.go
package articles

import (
	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	articlestore "github.com/dalemusser/dormhub/internal/app/store/articles"
	"github.com/dalemusser/dormhub/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the global article catalogue.
type Handler struct {
	DB       *mongo.Database
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Log      *zap.Logger
	articles *articlestore.Store
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		ErrLog:   errLog,
		AuditLog: audit,
		Log:      logger,
		articles: articlestore.New(db),
	}
}
