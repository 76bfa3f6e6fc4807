// internal/app/store/transfers/transferstore.go
package transferstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/dormhub/internal/app/system/retry"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrNotFound          = errors.New("transfer not found")
	ErrInvalidTransition = errors.New("transfer cannot move to this status")
	// ErrStale is returned when the transfer changed since it was read.
	ErrStale = errors.New("transfer was modified concurrently")
)

// Directions for List, relative to a farm.
const (
	Incoming = "incoming"
	Outgoing = "outgoing"
)

var allStatuses = []string{
	models.TransferPending,
	models.TransferRoomsAssigned,
	models.TransferCompleted,
	models.TransferRejected,
	models.TransferCancelled,
}

var openStatuses = bson.A{models.TransferPending, models.TransferRoomsAssigned}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("transfers")}
}

// Create inserts a new pending transfer.
func (s *Store) Create(ctx context.Context, t models.Transfer) (models.Transfer, error) {
	now := time.Now().UTC()
	t.ID = primitive.NewObjectID()
	t.Status = models.TransferPending
	t.CreatedAt = now
	t.UpdatedAt = now
	t.CompletedAt = nil
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.Transfer{}, err
	}
	return t, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Transfer, error) {
	var t models.Transfer
	err := retry.DoDefault(ctx, func(ctx context.Context) error {
		return s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Transfer{}, ErrNotFound
	}
	return t, err
}

// Filter narrows List. A nil FarmID lists every farm's transfers.
type Filter struct {
	FarmID    *primitive.ObjectID
	Direction string
	Status    string
	Limit     int64
}

// List returns transfers newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]models.Transfer, error) {
	filter := bson.M{}
	if f.FarmID != nil {
		switch f.Direction {
		case Incoming:
			filter["to_farm_id"] = *f.FarmID
		case Outgoing:
			filter["from_farm_id"] = *f.FarmID
		default:
			filter["$or"] = bson.A{bson.M{"to_farm_id": *f.FarmID}, bson.M{"from_farm_id": *f.FarmID}}
		}
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	return s.find(ctx, filter, opts)
}

// Find returns every transfer matching filter.
func (s *Store) Find(ctx context.Context, filter bson.M) ([]models.Transfer, error) {
	return s.find(ctx, filter, options.Find())
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Transfer, error) {
	var out []models.Transfer
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

// OpenForWorkers returns open transfers that include any of workerIDs,
// ignoring the transfer except (if non-zero).
func (s *Store) OpenForWorkers(ctx context.Context, workerIDs []primitive.ObjectID, except primitive.ObjectID) ([]models.Transfer, error) {
	if len(workerIDs) == 0 {
		return nil, nil
	}
	filter := bson.M{
		"status":          bson.M{"$in": openStatuses},
		"items.worker_id": bson.M{"$in": workerIDs},
	}
	if !except.IsZero() {
		filter["_id"] = bson.M{"$ne": except}
	}
	return s.Find(ctx, filter)
}

// StaleOpen returns open transfers created before cutoff.
func (s *Store) StaleOpen(ctx context.Context, cutoff time.Time) ([]models.Transfer, error) {
	return s.Find(ctx, bson.M{
		"status":     bson.M{"$in": openStatuses},
		"created_at": bson.M{"$lt": cutoff},
	})
}

// Transition moves a transfer to status to, applying set alongside, if its
// current status allows it. The status check is part of the update filter.
func (s *Store) Transition(ctx context.Context, id primitive.ObjectID, to string, set bson.M) (models.Transfer, error) {
	return s.transition(ctx, id, to, set, nil)
}

// transition is Transition restricted to the version read at updatedAt
// when updatedAt is non-nil. A version mismatch yields ErrStale.
func (s *Store) transition(ctx context.Context, id primitive.ObjectID, to string, set bson.M, updatedAt *time.Time) (models.Transfer, error) {
	var from bson.A
	for _, st := range allStatuses {
		if models.CanTransition(st, to) {
			from = append(from, st)
		}
	}
	if len(from) == 0 {
		return models.Transfer{}, ErrInvalidTransition
	}
	upd := bson.M{"status": to, "updated_at": time.Now().UTC()}
	for k, v := range set {
		upd[k] = v
	}
	filter := bson.M{"_id": id, "status": bson.M{"$in": from}}
	if updatedAt != nil {
		filter["updated_at"] = *updatedAt
	}

	var out models.Transfer
	err := s.c.FindOneAndUpdate(ctx,
		filter,
		bson.M{"$set": upd},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Transfer{}, err
	}
	cur, gerr := s.GetByID(ctx, id)
	if gerr != nil {
		return models.Transfer{}, gerr
	}
	if updatedAt != nil && models.CanTransition(cur.Status, to) {
		return models.Transfer{}, ErrStale
	}
	return models.Transfer{}, ErrInvalidTransition
}

// AssignRooms stores the room chosen for each item.
func (s *Store) AssignRooms(ctx context.Context, id primitive.ObjectID, items []models.TransferItem) (models.Transfer, error) {
	return s.Transition(ctx, id, models.TransferRoomsAssigned, bson.M{"items": items})
}

// Complete marks the transfer as committed, provided it is still the
// version last updated at updatedAt.
func (s *Store) Complete(ctx context.Context, id primitive.ObjectID, updatedAt, at time.Time) (models.Transfer, error) {
	return s.transition(ctx, id, models.TransferCompleted, bson.M{"completed_at": at}, &updatedAt)
}

// Close rejects or cancels a transfer with a reason.
func (s *Store) Close(ctx context.Context, id primitive.ObjectID, status, reason string) (models.Transfer, error) {
	if status != models.TransferRejected && status != models.TransferCancelled {
		return models.Transfer{}, ErrInvalidTransition
	}
	return s.Transition(ctx, id, status, bson.M{"reason": reason})
}
