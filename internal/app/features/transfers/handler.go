// internal/app/features/transfers/handler.go
package transfers

import (
	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	"github.com/dalemusser/dormhub/internal/app/system/auditlog"
	"go.uber.org/zap"
)

type Handler struct {
	Svc      *Service
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(svc *Service, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, ErrLog: errLog, AuditLog: audit, Log: logger}
}
