// internal/app/features/workerimport/handler.go
package workerimport

import (
	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	"github.com/dalemusser/dormhub/internal/app/features/workerimport/importutil"
	farmstore "github.com/dalemusser/dormhub/internal/app/store/farms"
	notificationstore "github.com/dalemusser/dormhub/internal/app/store/notifications"
	roomstore "github.com/dalemusser/dormhub/internal/app/store/rooms"
	stockstore "github.com/dalemusser/dormhub/internal/app/store/stock"
	workerstore "github.com/dalemusser/dormhub/internal/app/store/workers"
	"github.com/dalemusser/dormhub/internal/app/system/auditlog"
	"github.com/dalemusser/dormhub/internal/app/system/metrics"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves spreadsheet imports of workers into one farm.
type Handler struct {
	DB       *mongo.Database
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Log      *zap.Logger
	Metrics  *metrics.Metrics

	// Aliases are the header spellings used to recognise columns.
	Aliases importutil.Aliases
	MinAge  int
	MaxAge  int

	previews *PreviewStore
	workers  *workerstore.Store
	rooms    *roomstore.Store
	stock    *stockstore.Store
	farms    *farmstore.Store
	notify   *notificationstore.Store
}

func NewHandler(db *mongo.Database, m *metrics.Metrics, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		ErrLog:   errLog,
		AuditLog: audit,
		Log:      logger,
		Metrics:  m,
		Aliases:  importutil.DefaultAliases(),
		MinAge:   importutil.DefaultMinAge,
		MaxAge:   importutil.DefaultMaxAge,
		previews: NewPreviewStore(db),
		workers:  workerstore.New(db),
		rooms:    roomstore.New(db),
		stock:    stockstore.New(db),
		farms:    farmstore.New(db),
		notify:   notificationstore.New(db),
	}
}
