// internal/app/features/dashboard/snapshot.go
package dashboard

import (
	"context"
	"time"

	farmstore "github.com/dalemusser/dormhub/internal/app/store/farms"
	roomstore "github.com/dalemusser/dormhub/internal/app/store/rooms"
	stockstore "github.com/dalemusser/dormhub/internal/app/store/stock"
	transferstore "github.com/dalemusser/dormhub/internal/app/store/transfers"
	workerstore "github.com/dalemusser/dormhub/internal/app/store/workers"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

// Loader reads dashboard snapshots.
type Loader struct {
	farms     *farmstore.Store
	rooms     *roomstore.Store
	workers   *workerstore.Store
	stock     *stockstore.Store
	transfers *transferstore.Store
}

func NewLoader(db *mongo.Database) *Loader {
	return &Loader{
		farms:     farmstore.New(db),
		rooms:     roomstore.New(db),
		workers:   workerstore.New(db),
		stock:     stockstore.New(db),
		transfers: transferstore.New(db),
	}
}

// Load reads the five collections in parallel. farm restricts every
// collection to one farm; transfers are kept when either end is farm.
// Workers are limited to active ones and those that arrived or left
// after since.
func (l *Loader) Load(ctx context.Context, farm *primitive.ObjectID, since time.Time) (Snapshot, error) {
	scope := func(filter bson.M) bson.M {
		if farm != nil {
			filter["farm_id"] = *farm
		}
		return filter
	}

	var s Snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		filter := bson.M{}
		if farm != nil {
			filter["_id"] = *farm
		}
		var err error
		s.Farms, err = l.farms.Find(ctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		s.Rooms, err = l.rooms.Find(ctx, scope(bson.M{}))
		return err
	})
	g.Go(func() error {
		var err error
		s.Workers, err = l.workers.Find(ctx, scope(bson.M{"$or": bson.A{
			bson.M{"status": models.WorkerActive},
			bson.M{"entry_date": bson.M{"$gte": since}},
			bson.M{"exit_date": bson.M{"$gte": since}},
		}}))
		return err
	})
	g.Go(func() error {
		var err error
		s.Stock, err = l.stock.Find(ctx, scope(bson.M{}))
		return err
	})
	g.Go(func() error {
		filter := bson.M{"status": bson.M{"$in": bson.A{models.TransferPending, models.TransferRoomsAssigned}}}
		if farm != nil {
			filter["$or"] = bson.A{bson.M{"from_farm_id": *farm}, bson.M{"to_farm_id": *farm}}
		}
		var err error
		s.Transfers, err = l.transfers.Find(ctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}
