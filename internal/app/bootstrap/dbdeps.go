// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	notificationsfeature "github.com/dalemusser/dormhub/internal/app/features/notifications"
	"github.com/dalemusser/dormhub/internal/app/features/workerimport/importutil"
	"github.com/dalemusser/dormhub/internal/app/system/metrics"
	"github.com/dalemusser/dormhub/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// svc is filled by Startup and read by BuildHandler and Shutdown.
	svc *services
}

// services are the long-lived components shared by the HTTP handlers
// and the background workers.
type services struct {
	metrics *metrics.Metrics
	hub     *notificationsfeature.Hub
	runner  *workers.Runner
	aliases importutil.Aliases
}
