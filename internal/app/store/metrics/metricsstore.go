package metricsstore

import (
	"context"

	"github.com/dalemusser/dormhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Counts is the set of totals exported as gauges on /metrics.
type Counts struct {
	Farms         int64
	Rooms         int64
	ActiveWorkers int64
	OpenTransfers int64
	Unread        int64
}

// FetchCounts returns the high-level counts of the deployment.
// Tolerant: on error it returns 0 for that counter.
func FetchCounts(ctx context.Context, db *mongo.Database) Counts {
	var out Counts
	count := func(coll string, filter bson.M) int64 {
		n, err := db.Collection(coll).CountDocuments(ctx, filter)
		if err != nil {
			return 0
		}
		return n
	}

	out.Farms = count("farms", bson.M{"status": models.StatusActive})
	out.Rooms = count("rooms", bson.M{})
	out.ActiveWorkers = count("workers", bson.M{"status": models.WorkerActive})
	out.OpenTransfers = count("transfers", bson.M{"status": bson.M{"$in": bson.A{
		models.TransferPending, models.TransferRoomsAssigned,
	}}})
	out.Unread = count("notifications", bson.M{"read": false})
	return out
}
