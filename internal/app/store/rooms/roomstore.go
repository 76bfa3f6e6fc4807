// internal/app/store/rooms/roomstore.go
package roomstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/dormhub/internal/app/system/retry"
	"github.com/dalemusser/dormhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrNotFound        = errors.New("room not found")
	ErrDuplicateNumber = errors.New("a room with this number already exists on the farm")
	ErrRoomFull        = errors.New("room is full")
	ErrOccupied        = errors.New("room is occupied")
	ErrBelowOccupants  = errors.New("capacity cannot be lower than the current number of occupants")
	ErrGenderMismatch  = errors.New("room gender does not match")
	ErrBadGender       = errors.New(`gender must be "male"|"female"|"mixed"`)
	ErrBadCapacity     = errors.New("capacity must be at least 1")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("rooms")}
}

func validGender(g string) bool {
	return g == models.RoomMale || g == models.RoomFemale || g == models.RoomMixed
}

// NormalizeNumber trims and upper-cases a room number ("a 1" -> "A 1").
func NormalizeNumber(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

func (s *Store) Create(ctx context.Context, r models.Room) (models.Room, error) {
	if !validGender(r.Gender) {
		return models.Room{}, ErrBadGender
	}
	if r.Capacity < 1 {
		return models.Room{}, ErrBadCapacity
	}
	now := time.Now().UTC()
	r.ID = primitive.NewObjectID()
	r.Number = NormalizeNumber(r.Number)
	r.OccupantIDs = []primitive.ObjectID{}
	if r.Status == "" {
		r.Status = models.StatusActive
	}
	r.CreatedAt = now
	r.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Room{}, ErrDuplicateNumber
		}
		return models.Room{}, err
	}
	return r, nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.Room, error) {
	var r models.Room
	err := retry.DoDefault(ctx, func(ctx context.Context) error {
		return s.c.FindOne(ctx, filter).Decode(&r)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Room{}, ErrNotFound
	}
	return r, err
}

// GetByID loads a room regardless of farm.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Room, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetOnFarm loads a room that must belong to farmID.
func (s *Store) GetOnFarm(ctx context.Context, farmID, id primitive.ObjectID) (models.Room, error) {
	return s.findOne(ctx, bson.M{"_id": id, "farm_id": farmID})
}

// GetByNumber loads a room by its number on farmID.
func (s *Store) GetByNumber(ctx context.Context, farmID primitive.ObjectID, number string) (models.Room, error) {
	return s.findOne(ctx, bson.M{"farm_id": farmID, "number": NormalizeNumber(number)})
}

// ListByFarm returns every room on farmID ordered by number.
func (s *Store) ListByFarm(ctx context.Context, farmID primitive.ObjectID) ([]models.Room, error) {
	return s.Find(ctx, bson.M{"farm_id": farmID})
}

// Find returns rooms matching filter ordered by farm and number.
func (s *Store) Find(ctx context.Context, filter bson.M) ([]models.Room, error) {
	opts := options.Find().SetSort(bson.D{{Key: "farm_id", Value: 1}, {Key: "number", Value: 1}})
	var rooms []models.Room
	err := retry.DoDefault(ctx, func(ctx context.Context) error {
		cur, err := s.c.Find(ctx, filter, opts)
		if err != nil {
			return err
		}
		rooms = nil
		return cur.All(ctx, &rooms)
	})
	return rooms, err
}

// Update holds the mutable fields of a room.
type Update struct {
	Number       string
	Gender       string
	Capacity     int
	SupervisorID *primitive.ObjectID
	Status       string
}

// Update replaces the mutable fields of a room on farmID.
//
// Capacity may not drop below the current occupant count, and an occupied
// room may only change gender to mixed. Both checks are part of the update
// filter, not read beforehand.
func (s *Store) Update(ctx context.Context, farmID, id primitive.ObjectID, upd Update) error {
	if !validGender(upd.Gender) {
		return ErrBadGender
	}
	if upd.Capacity < 1 {
		return ErrBadCapacity
	}
	filter := bson.M{
		"_id":     id,
		"farm_id": farmID,
		"$expr":   bson.M{"$lte": bson.A{bson.M{"$size": "$occupant_ids"}, upd.Capacity}},
	}
	if upd.Gender != models.RoomMixed {
		filter["$or"] = bson.A{
			bson.M{"gender": upd.Gender},
			bson.M{"occupant_ids": bson.M{"$size": 0}},
		}
	}
	set := bson.M{
		"number":     NormalizeNumber(upd.Number),
		"gender":     upd.Gender,
		"capacity":   upd.Capacity,
		"updated_at": time.Now().UTC(),
	}
	if upd.Status != "" {
		set["status"] = upd.Status
	}
	update := bson.M{"$set": set}
	if upd.SupervisorID != nil {
		set["supervisor_id"] = *upd.SupervisorID
	} else {
		update["$unset"] = bson.M{"supervisor_id": ""}
	}

	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateNumber
		}
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	cur, err := s.GetOnFarm(ctx, farmID, id)
	if err != nil {
		return err
	}
	if len(cur.OccupantIDs) > upd.Capacity {
		return ErrBelowOccupants
	}
	return ErrGenderMismatch
}

// Delete removes an empty room from farmID.
func (s *Store) Delete(ctx context.Context, farmID, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{
		"_id":          id,
		"farm_id":      farmID,
		"occupant_ids": bson.M{"$size": 0},
	})
	if err != nil {
		return err
	}
	if res.DeletedCount > 0 {
		return nil
	}
	if _, err := s.GetOnFarm(ctx, farmID, id); err != nil {
		return err
	}
	return ErrOccupied
}

// AddOccupant puts workerID into the room if a bed is free. Adding a
// worker who is already an occupant is a no-op.
func (s *Store) AddOccupant(ctx context.Context, roomID, workerID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id": roomID,
			"$or": bson.A{
				bson.M{"occupant_ids": workerID},
				bson.M{"$expr": bson.M{"$lt": bson.A{bson.M{"$size": "$occupant_ids"}, "$capacity"}}},
			},
		},
		bson.M{
			"$addToSet": bson.M{"occupant_ids": workerID},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if _, err := s.GetByID(ctx, roomID); err != nil {
		return err
	}
	return ErrRoomFull
}

// RemoveOccupant takes workerID out of the room.
func (s *Store) RemoveOccupant(ctx context.Context, roomID, workerID primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": roomID}, bson.M{
		"$pull": bson.M{"occupant_ids": workerID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// RemoveFromAll takes workerID out of whichever rooms list it.
func (s *Store) RemoveFromAll(ctx context.Context, workerID primitive.ObjectID) error {
	_, err := s.c.UpdateMany(ctx, bson.M{"occupant_ids": workerID}, bson.M{
		"$pull": bson.M{"occupant_ids": workerID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// ClearSupervisor unsets supervisorID from every room that references it.
func (s *Store) ClearSupervisor(ctx context.Context, supervisorID primitive.ObjectID) error {
	_, err := s.c.UpdateMany(ctx, bson.M{"supervisor_id": supervisorID}, bson.M{
		"$unset": bson.M{"supervisor_id": ""},
		"$set":   bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}
