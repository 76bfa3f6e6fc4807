// internal/app/features/transfers/service.go
package transfers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	farmstore "github.com/dalemusser/dormhub/internal/app/store/farms"
	notificationstore "github.com/dalemusser/dormhub/internal/app/store/notifications"
	roomstore "github.com/dalemusser/dormhub/internal/app/store/rooms"
	transferstore "github.com/dalemusser/dormhub/internal/app/store/transfers"
	workerstore "github.com/dalemusser/dormhub/internal/app/store/workers"
	"github.com/dalemusser/dormhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/dormhub/internal/app/system/metrics"
	"github.com/dalemusser/dormhub/internal/app/system/txn"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ReasonExpired is recorded on transfers cancelled by the expiry job.
const ReasonExpired = "expired"

// maxTextLen bounds notes and reasons after markup is stripped.
const maxTextLen = 500

// RuleError is a refusal caused by the state of farms, workers or rooms
// rather than by a malformed request.
type RuleError struct {
	Msg     string
	Details []string
}

func (e *RuleError) Error() string {
	if len(e.Details) == 0 {
		return e.Msg
	}
	return e.Msg + ": " + strings.Join(e.Details, "; ")
}

var (
	ErrSameFarm            = &RuleError{Msg: "destination must differ from origin"}
	ErrDestinationInactive = &RuleError{Msg: "destination farm is not active"}
	ErrNoWorkers           = &RuleError{Msg: "at least one worker is required"}
	ErrNotAssigned         = &RuleError{Msg: "every worker needs a room before the transfer can be committed"}
)

// Service implements the transfer workflow. Notifications and metrics
// are optional.
type Service struct {
	DB      *mongo.Database
	Log     *zap.Logger
	Metrics *metrics.Metrics

	transfers *transferstore.Store
	workers   *workerstore.Store
	rooms     *roomstore.Store
	farms     *farmstore.Store
	notify    *notificationstore.Store
}

func NewService(db *mongo.Database, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		DB:        db,
		Log:       logger,
		Metrics:   m,
		transfers: transferstore.New(db),
		workers:   workerstore.New(db),
		rooms:     roomstore.New(db),
		farms:     farmstore.New(db),
		notify:    notificationstore.New(db),
	}
}

// Get loads a transfer.
func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (models.Transfer, error) {
	return s.transfers.GetByID(ctx, id)
}

// List returns transfers newest first.
func (s *Service) List(ctx context.Context, f transferstore.Filter) ([]models.Transfer, error) {
	return s.transfers.List(ctx, f)
}

// Create opens a pending transfer of workerIDs from one farm to another
// and tells the destination's admins.
func (s *Service) Create(ctx context.Context, actor, from, to primitive.ObjectID, workerIDs []primitive.ObjectID, note string) (models.Transfer, error) {
	if from == to {
		return models.Transfer{}, ErrSameFarm
	}
	ids := dedupe(workerIDs)
	if len(ids) == 0 {
		return models.Transfer{}, ErrNoWorkers
	}
	dest, err := s.farms.GetByID(ctx, to)
	if err != nil {
		return models.Transfer{}, err
	}
	if dest.Status != models.StatusActive {
		return models.Transfer{}, ErrDestinationInactive
	}

	found, err := s.workers.GetByIDs(ctx, ids)
	if err != nil {
		return models.Transfer{}, err
	}
	byID := make(map[primitive.ObjectID]models.Worker, len(found))
	for _, w := range found {
		byID[w.ID] = w
	}
	var problems []string
	items := make([]models.TransferItem, 0, len(ids))
	for _, id := range ids {
		w, ok := byID[id]
		switch {
		case !ok:
			problems = append(problems, id.Hex()+": not found")
		case w.FarmID != from || !w.IsActive():
			problems = append(problems, w.FullName+": not active on the origin farm")
		default:
			items = append(items, models.TransferItem{WorkerID: w.ID, FullName: w.FullName, CIN: w.CIN, Gender: w.Gender})
		}
	}
	if len(problems) > 0 {
		return models.Transfer{}, &RuleError{Msg: "some workers cannot be transferred", Details: problems}
	}

	open, err := s.transfers.OpenForWorkers(ctx, ids, primitive.NilObjectID)
	if err != nil {
		return models.Transfer{}, err
	}
	if len(open) > 0 {
		busy := map[primitive.ObjectID]bool{}
		for _, t := range open {
			for _, it := range t.Items {
				busy[it.WorkerID] = true
			}
		}
		for _, it := range items {
			if busy[it.WorkerID] {
				problems = append(problems, it.FullName+": already in an open transfer")
			}
		}
		return models.Transfer{}, &RuleError{Msg: "some workers cannot be transferred", Details: problems}
	}

	t, err := s.transfers.Create(ctx, models.Transfer{
		FromFarmID: from,
		ToFarmID:   to,
		Items:      items,
		Note:       htmlsanitize.PlainTextMax(note, maxTextLen),
		CreatedBy:  actor,
	})
	if err != nil {
		return models.Transfer{}, err
	}
	s.Metrics.Transfer(models.TransferPending)

	names := s.farmNames(ctx, from)
	s.send(ctx, to, notificationstore.Message{
		Type:    models.NotifyTransferRequested,
		Title:   "Incoming transfer",
		Message: fmt.Sprintf("%d worker(s) from %s are waiting for rooms.", len(items), names[from]),
		Link:    "/transfers/" + t.ID.Hex(),
	}, actor)
	return t, nil
}

// Assignment puts one worker of a transfer into a destination room.
type Assignment struct {
	WorkerID primitive.ObjectID
	RoomID   primitive.ObjectID
}

// Assign records a destination room for every worker. Rooms must be on
// the destination farm, accept the worker's gender, and hold their
// current occupants plus every worker assigned to them here.
func (s *Service) Assign(ctx context.Context, id primitive.ObjectID, assignments []Assignment) (models.Transfer, error) {
	t, err := s.transfers.GetByID(ctx, id)
	if err != nil {
		return models.Transfer{}, err
	}
	if !models.CanTransition(t.Status, models.TransferRoomsAssigned) {
		return models.Transfer{}, transferstore.ErrInvalidTransition
	}

	roomOf := make(map[primitive.ObjectID]primitive.ObjectID, len(assignments))
	for _, a := range assignments {
		roomOf[a.WorkerID] = a.RoomID
	}
	if len(roomOf) != len(assignments) || len(roomOf) != len(t.Items) {
		return models.Transfer{}, &RuleError{Msg: "every worker needs exactly one room"}
	}

	rooms := map[primitive.ObjectID]models.Room{}
	demand := map[primitive.ObjectID]int{}
	var problems []string
	items := make([]models.TransferItem, len(t.Items))
	for i, it := range t.Items {
		items[i] = it
		roomID, ok := roomOf[it.WorkerID]
		if !ok {
			problems = append(problems, it.FullName+": no room given")
			continue
		}
		room, seen := rooms[roomID]
		if !seen {
			room, err = s.rooms.GetOnFarm(ctx, t.ToFarmID, roomID)
			if errors.Is(err, roomstore.ErrNotFound) {
				problems = append(problems, it.FullName+": room is not on the destination farm")
				continue
			}
			if err != nil {
				return models.Transfer{}, err
			}
			rooms[roomID] = room
		}
		if room.Status == models.StatusDisabled {
			problems = append(problems, it.FullName+": room "+room.Number+" is disabled")
			continue
		}
		if !room.Accepts(it.Gender) {
			problems = append(problems, it.FullName+": room "+room.Number+" does not accept "+it.Gender+" workers")
			continue
		}
		demand[roomID]++
		if len(room.OccupantIDs)+demand[roomID] > room.Capacity {
			problems = append(problems, it.FullName+": room "+room.Number+" is full")
			continue
		}
		rid := roomID
		items[i].RoomID = &rid
	}
	if len(problems) > 0 {
		return models.Transfer{}, &RuleError{Msg: "rooms cannot be assigned", Details: problems}
	}

	t, err = s.transfers.AssignRooms(ctx, id, items)
	if err != nil {
		return models.Transfer{}, err
	}
	s.Metrics.Transfer(models.TransferRoomsAssigned)
	return t, nil
}

// Commit moves every worker to its assigned room in one transaction:
// the old bed is freed, the new one taken under the capacity guard, the
// open stay closed and a new stay opened on the destination. Origin
// admins are told once it is done.
func (s *Service) Commit(ctx context.Context, actor, id primitive.ObjectID) (models.Transfer, error) {
	t, err := s.transfers.GetByID(ctx, id)
	if err != nil {
		return models.Transfer{}, err
	}
	if err := committable(t); err != nil {
		return models.Transfer{}, err
	}

	var done models.Transfer
	err = txn.Run(ctx, s.DB, s.Log, func(ctx context.Context) error {
		// Re-read so the rooms moved into are the ones Complete records.
		cur, err := s.transfers.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := committable(cur); err != nil {
			return err
		}
		now := time.Now().UTC().Truncate(time.Millisecond)
		for _, it := range cur.Items {
			if err := s.move(ctx, cur, it, now); err != nil {
				return err
			}
		}
		done, err = s.transfers.Complete(ctx, cur.ID, cur.UpdatedAt, now)
		return err
	})
	if errors.Is(err, transferstore.ErrStale) {
		return models.Transfer{}, &RuleError{Msg: "transfer is out of date", Details: []string{"rooms were reassigned while committing"}}
	}
	if err != nil {
		return models.Transfer{}, err
	}
	s.Metrics.Transfer(models.TransferCompleted)

	names := s.farmNames(ctx, done.ToFarmID)
	s.send(ctx, done.FromFarmID, notificationstore.Message{
		Type:    models.NotifyTransferCompleted,
		Title:   "Transfer completed",
		Message: fmt.Sprintf("%d worker(s) are now housed at %s.", len(done.Items), names[done.ToFarmID]),
		Link:    "/transfers/" + done.ID.Hex(),
	}, actor)
	return done, nil
}

func committable(t models.Transfer) error {
	if !models.CanTransition(t.Status, models.TransferCompleted) {
		return transferstore.ErrInvalidTransition
	}
	for _, it := range t.Items {
		if it.RoomID == nil {
			return ErrNotAssigned
		}
	}
	return nil
}

func (s *Service) move(ctx context.Context, t models.Transfer, it models.TransferItem, now time.Time) error {
	w, err := s.workers.GetByID(ctx, it.WorkerID)
	if err != nil {
		return err
	}
	if !w.IsActive() || w.FarmID != t.FromFarmID {
		return &RuleError{Msg: "transfer is out of date", Details: []string{w.FullName + ": no longer active on the origin farm"}}
	}
	room, err := s.rooms.GetOnFarm(ctx, t.ToFarmID, *it.RoomID)
	if err != nil {
		return err
	}
	if room.Status == models.StatusDisabled {
		return &RuleError{Msg: "transfer is out of date", Details: []string{"room " + room.Number + " is disabled"}}
	}
	if !room.Accepts(w.Gender) {
		return &RuleError{Msg: "transfer is out of date", Details: []string{"room " + room.Number + " does not accept " + w.Gender + " workers"}}
	}
	if w.RoomID != nil {
		if err := s.rooms.RemoveOccupant(ctx, *w.RoomID, w.ID); err != nil {
			return err
		}
	}
	if err := s.rooms.AddOccupant(ctx, room.ID, w.ID); err != nil {
		if errors.Is(err, roomstore.ErrRoomFull) {
			return &RuleError{Msg: "transfer is out of date", Details: []string{"room " + room.Number + " is full"}}
		}
		return err
	}

	w.History = append([]models.Stay(nil), w.History...)
	for i := range w.History {
		if w.History[i].Open() {
			end := now
			if end.Before(w.History[i].Start) {
				end = w.History[i].Start
			}
			w.History[i].End = &end
		}
	}
	tid := t.ID
	rid := room.ID
	w.History = append(w.History, models.Stay{
		FarmID:     t.ToFarmID,
		RoomID:     &rid,
		Start:      now,
		Reason:     models.ReasonTransfer,
		TransferID: &tid,
	})
	w.FarmID = t.ToFarmID
	w.RoomID = &rid
	w.RoomNumber = room.Number
	_, err = s.workers.Replace(ctx, w)
	return err
}

// Reject closes a transfer from the destination side and tells the origin.
func (s *Service) Reject(ctx context.Context, actor, id primitive.ObjectID, reason string) (models.Transfer, error) {
	reason = htmlsanitize.PlainTextMax(reason, maxTextLen)
	t, err := s.transfers.Close(ctx, id, models.TransferRejected, reason)
	if err != nil {
		return models.Transfer{}, err
	}
	s.Metrics.Transfer(models.TransferRejected)
	names := s.farmNames(ctx, t.ToFarmID)
	s.send(ctx, t.FromFarmID, notificationstore.Message{
		Type:    models.NotifyTransferRejected,
		Title:   "Transfer rejected",
		Message: fmt.Sprintf("%s rejected the transfer of %d worker(s): %s", names[t.ToFarmID], len(t.Items), reason),
		Link:    "/transfers/" + t.ID.Hex(),
	}, actor)
	return t, nil
}

// Cancel closes a transfer from the origin side and tells the destination.
func (s *Service) Cancel(ctx context.Context, actor, id primitive.ObjectID, reason string) (models.Transfer, error) {
	reason = htmlsanitize.PlainTextMax(reason, maxTextLen)
	t, err := s.transfers.Close(ctx, id, models.TransferCancelled, reason)
	if err != nil {
		return models.Transfer{}, err
	}
	s.Metrics.Transfer(models.TransferCancelled)
	s.cancelled(ctx, t, actor)
	return t, nil
}

func (s *Service) cancelled(ctx context.Context, t models.Transfer, actor primitive.ObjectID) {
	names := s.farmNames(ctx, t.FromFarmID)
	msg := fmt.Sprintf("The transfer of %d worker(s) from %s was cancelled.", len(t.Items), names[t.FromFarmID])
	if t.Reason == ReasonExpired {
		msg = fmt.Sprintf("The transfer of %d worker(s) from %s expired.", len(t.Items), names[t.FromFarmID])
	}
	s.send(ctx, t.ToFarmID, notificationstore.Message{
		Type:    models.NotifyTransferCancelled,
		Title:   "Transfer cancelled",
		Message: msg,
		Link:    "/transfers/" + t.ID.Hex(),
	}, actor)
}

// ExpireStale cancels every open transfer created before cutoff and
// returns how many were cancelled. Transfers decided concurrently are
// skipped.
func (s *Service) ExpireStale(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.transfers.StaleOpen(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, t := range stale {
		closed, err := s.transfers.Close(ctx, t.ID, models.TransferCancelled, ReasonExpired)
		if errors.Is(err, transferstore.ErrInvalidTransition) || errors.Is(err, transferstore.ErrNotFound) {
			continue
		}
		if err != nil {
			return n, err
		}
		n++
		s.Metrics.Transfer(models.TransferCancelled)
		s.cancelled(ctx, closed, primitive.NilObjectID)
		s.send(ctx, closed.FromFarmID, notificationstore.Message{
			Type:    models.NotifyTransferCancelled,
			Title:   "Transfer expired",
			Message: fmt.Sprintf("The transfer of %d worker(s) was not completed in time and has been cancelled.", len(closed.Items)),
			Link:    "/transfers/" + closed.ID.Hex(),
		}, primitive.NilObjectID)
	}
	return n, nil
}

// send notifies the admins of farmID. Failures are logged, never returned:
// the transfer itself has already been stored.
func (s *Service) send(ctx context.Context, farmID primitive.ObjectID, msg notificationstore.Message, actor primitive.ObjectID) {
	var skip []primitive.ObjectID
	if !actor.IsZero() {
		skip = append(skip, actor)
	}
	b, err := s.notify.SendToFarm(ctx, farmID, msg, skip...)
	if err != nil {
		s.Log.Warn("transfer notification failed",
			zap.String("type", msg.Type),
			zap.String("farm_id", farmID.Hex()),
			zap.Error(err))
		return
	}
	s.Metrics.NotificationsSent(msg.Type, len(b.Notifications))
}

func (s *Service) farmNames(ctx context.Context, ids ...primitive.ObjectID) map[primitive.ObjectID]string {
	names, err := s.farms.Names(ctx, ids)
	if err != nil {
		s.Log.Warn("load farm names failed", zap.Error(err))
		names = map[primitive.ObjectID]string{}
	}
	for _, id := range ids {
		if names[id] == "" {
			names[id] = "another farm"
		}
	}
	return names
}

func dedupe(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if id.IsZero() || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
