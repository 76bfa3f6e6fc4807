// internal/app/features/notifications/handler.go
package notifications

import (
	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	notificationstore "github.com/dalemusser/dormhub/internal/app/store/notifications"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the signed-in user's own notifications.
type Handler struct {
	DB     *mongo.Database
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
	// Hub may be nil, which disables /live.
	Hub *Hub

	store *notificationstore.Store
}

func NewHandler(db *mongo.Database, hub *Hub, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:     db,
		ErrLog: errLog,
		Log:    logger,
		Hub:    hub,
		store:  notificationstore.New(db),
	}
}
