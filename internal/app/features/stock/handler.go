// internal/app/features/stock/handler.go
package stock

import (
	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	articlestore "github.com/dalemusser/dormhub/internal/app/store/articles"
	stockstore "github.com/dalemusser/dormhub/internal/app/store/stock"
	"github.com/dalemusser/dormhub/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the stock of one farm.
type Handler struct {
	DB       *mongo.Database
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Log      *zap.Logger
	stock    *stockstore.Store
	articles *articlestore.Store
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		ErrLog:   errLog,
		AuditLog: audit,
		Log:      logger,
		stock:    stockstore.New(db),
		articles: articlestore.New(db),
	}
}
