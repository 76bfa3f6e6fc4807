// internal/app/store/workers/workerstore.go
package workerstore

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/dalemusser/dormhub/internal/app/system/normalize"
	"github.com/dalemusser/dormhub/internal/app/system/paging"
	"github.com/dalemusser/dormhub/internal/app/system/retry"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrNotFound = errors.New("worker not found")
	// ErrStale is returned when the worker changed since it was read.
	ErrStale = errors.New("worker was modified concurrently")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("workers")}
}

// now is truncated to what BSON dates can hold so values read back compare equal.
func now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

// Prepare normalizes the identity fields of a new worker and opens its
// first stay when it has no history. It does not touch the database.
func Prepare(w models.Worker, reason string) models.Worker {
	t := now()
	if w.ID.IsZero() {
		w.ID = primitive.NewObjectID()
	}
	w.FullName = normalize.Name(w.FullName)
	w.FullNameCI = text.Fold(w.FullName)
	w.CIN = normalize.CIN(w.CIN)
	w.Phone = normalize.Phone(w.Phone)
	if w.Status == "" {
		w.Status = models.WorkerActive
	}
	if w.EntryDate.IsZero() {
		w.EntryDate = t
	}
	if len(w.History) == 0 {
		w.History = []models.Stay{{FarmID: w.FarmID, RoomID: w.RoomID, Start: w.EntryDate, Reason: reason}}
	}
	w.CreatedAt = t
	w.UpdatedAt = t
	return w
}

// Insert stores a prepared worker.
func (s *Store) Insert(ctx context.Context, w models.Worker) error {
	_, err := s.c.InsertOne(ctx, w)
	return err
}

// InsertMany stores prepared workers in one round trip.
func (s *Store) InsertMany(ctx context.Context, ws []models.Worker) error {
	if len(ws) == 0 {
		return nil
	}
	docs := make([]any, len(ws))
	for i := range ws {
		docs[i] = ws[i]
	}
	_, err := s.c.InsertMany(ctx, docs)
	return err
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.Worker, error) {
	var w models.Worker
	err := retry.DoDefault(ctx, func(ctx context.Context) error {
		return s.c.FindOne(ctx, filter).Decode(&w)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Worker{}, ErrNotFound
	}
	return w, err
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Worker, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetOnFarm loads a worker currently recorded on farmID.
func (s *Store) GetOnFarm(ctx context.Context, farmID, id primitive.ObjectID) (models.Worker, error) {
	return s.findOne(ctx, bson.M{"_id": id, "farm_id": farmID})
}

// GetByIDs loads workers by id in no particular order.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Worker, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

// ActiveByCINs returns the active workers holding any of cins.
func (s *Store) ActiveByCINs(ctx context.Context, cins []string) ([]models.Worker, error) {
	if len(cins) == 0 {
		return nil, nil
	}
	return s.Find(ctx, bson.M{"status": models.WorkerActive, "cin": bson.M{"$in": cins}})
}

// Active returns every active worker, optionally restricted to farmID.
func (s *Store) Active(ctx context.Context, farmID *primitive.ObjectID) ([]models.Worker, error) {
	filter := bson.M{"status": models.WorkerActive}
	if farmID != nil {
		filter["farm_id"] = *farmID
	}
	return s.Find(ctx, filter)
}

// Find returns all workers matching filter ordered by name.
func (s *Store) Find(ctx context.Context, filter bson.M) ([]models.Worker, error) {
	opts := options.Find().SetSort(bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}})
	var out []models.Worker
	err := retry.DoDefault(ctx, func(ctx context.Context) error {
		cur, err := s.c.Find(ctx, filter, opts)
		if err != nil {
			return err
		}
		out = nil
		return cur.All(ctx, &out)
	})
	return out, err
}

// ListFilter narrows List. Zero values mean "any".
type ListFilter struct {
	FarmID primitive.ObjectID
	Status string
	Gender string
	RoomID *primitive.ObjectID
	Search string
}

// List returns one keyset page of the workers of a farm ordered by name.
// Search matches a name prefix or an exact CIN.
func (s *Store) List(ctx context.Context, f ListFilter, pg paging.Request) ([]models.Worker, paging.Page, error) {
	filter := bson.M{"farm_id": f.FarmID}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Gender != "" {
		filter["gender"] = f.Gender
	}
	if f.RoomID != nil {
		filter["room_id"] = *f.RoomID
	}
	if q := text.Fold(f.Search); q != "" {
		filter["$or"] = bson.A{
			bson.M{"full_name_ci": bson.M{"$regex": "^" + regexp.QuoteMeta(q)}},
			bson.M{"cin": normalize.CIN(f.Search)},
		}
	}
	if w := pg.Window("full_name_ci"); w != nil {
		filter = bson.M{"$and": bson.A{filter, w}}
	}

	var rows []models.Worker
	err := retry.DoDefault(ctx, func(ctx context.Context) error {
		cur, err := s.c.Find(ctx, filter, pg.FindOptions("full_name_ci"))
		if err != nil {
			return err
		}
		rows = nil
		return cur.All(ctx, &rows)
	})
	if err != nil {
		return nil, paging.Page{}, err
	}
	rows, page := paging.Finish(pg, rows,
		func(w models.Worker) string { return w.FullNameCI },
		func(w models.Worker) primitive.ObjectID { return w.ID })
	return rows, page, nil
}

// Replace writes w over the stored document if it has not been modified
// since it was read with updated_at == w.UpdatedAt. On success the new
// UpdatedAt is returned in the worker.
func (s *Store) Replace(ctx context.Context, w models.Worker) (models.Worker, error) {
	prev := w.UpdatedAt
	w.FullNameCI = text.Fold(w.FullName)
	w.UpdatedAt = now()
	if !w.UpdatedAt.After(prev) {
		w.UpdatedAt = prev.Add(time.Millisecond)
	}
	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": w.ID, "updated_at": prev}, w)
	if err != nil {
		return models.Worker{}, err
	}
	if res.MatchedCount > 0 {
		return w, nil
	}
	if _, err := s.GetByID(ctx, w.ID); err != nil {
		return models.Worker{}, err
	}
	return models.Worker{}, ErrStale
}

// Delete removes a worker from farmID.
func (s *Store) Delete(ctx context.Context, farmID, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "farm_id": farmID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// CountActive returns the number of active workers on farmID.
func (s *Store) CountActive(ctx context.Context, farmID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"farm_id": farmID, "status": models.WorkerActive})
}
