// internal/app/features/notifications/hub.go
package notifications

import (
	"context"
	"errors"
	"sync"
	"time"

	notificationstore "github.com/dalemusser/dormhub/internal/app/store/notifications"
	"github.com/dalemusser/dormhub/internal/app/system/metrics"
	"github.com/dalemusser/dormhub/internal/app/system/txn"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	// SubscriberBuffer is the number of notifications queued per
	// subscriber before new ones are dropped.
	SubscriberBuffer = 16

	// DefaultPollInterval is used when NewHub gets a zero interval.
	DefaultPollInterval = 2 * time.Second

	pollBatch = 500
)

// Source feeds the hub with newly inserted notifications.
// *notificationstore.Store implements it.
type Source interface {
	WatchInserts(ctx context.Context, resumeAfter bson.Raw) (*mongo.ChangeStream, error)
	After(ctx context.Context, c notificationstore.Cursor, limit int64) ([]models.Notification, error)
}

// Hub fans inserted notifications out to the live subscribers of their
// recipient. It follows a change stream on the notifications collection
// and falls back to polling by created_at when the deployment has no
// change streams. A reopened stream resumes from its last token; without
// one, notifications inserted while it was down are read back from the
// collection.
type Hub struct {
	src     Source
	log     *zap.Logger
	metrics *metrics.Metrics
	poll    time.Duration

	mu   sync.Mutex
	subs map[primitive.ObjectID]map[*Subscription]struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once

	// Owned by the run goroutine.
	last   notificationstore.Cursor
	resume bson.Raw
}

// Subscription receives the notifications of one recipient.
type Subscription struct {
	hub       *Hub
	recipient primitive.ObjectID
	ch        chan models.Notification
	closed    bool
}

func NewHub(src Source, m *metrics.Metrics, logger *zap.Logger, poll time.Duration) *Hub {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Hub{
		src:     src,
		log:     logger,
		metrics: m,
		poll:    poll,
		subs:    map[primitive.ObjectID]map[*Subscription]struct{}{},
	}
}

// Start begins following the source.
func (h *Hub) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.last = notificationstore.Cursor{CreatedAt: time.Now().UTC().Truncate(time.Millisecond)}
	h.wg.Add(1)
	go h.run(ctx)
	h.log.Info("notification hub started")
}

// Stop ends the source loop and closes every subscription.
func (h *Hub) Stop() {
	h.once.Do(func() {
		if h.cancel != nil {
			h.cancel()
		}
		h.wg.Wait()

		h.mu.Lock()
		for _, set := range h.subs {
			for s := range set {
				h.closeLocked(s)
			}
		}
		h.mu.Unlock()
		h.log.Info("notification hub stopped")
	})
}

// Subscribe registers a live subscriber for recipient.
func (h *Hub) Subscribe(recipient primitive.ObjectID) *Subscription {
	s := &Subscription{hub: h, recipient: recipient, ch: make(chan models.Notification, SubscriberBuffer)}
	h.mu.Lock()
	set := h.subs[recipient]
	if set == nil {
		set = map[*Subscription]struct{}{}
		h.subs[recipient] = set
	}
	set[s] = struct{}{}
	h.mu.Unlock()
	h.metrics.LiveSubscribers(1)
	return s
}

// C delivers notifications until the subscription is closed.
func (s *Subscription) C() <-chan models.Notification { return s.ch }

// Close unregisters the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	s.hub.closeLocked(s)
	s.hub.mu.Unlock()
}

func (h *Hub) closeLocked(s *Subscription) {
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
	if set := h.subs[s.recipient]; set != nil {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.recipient)
		}
	}
	h.metrics.LiveSubscribers(-1)
}

// Subscribers returns the number of live subscribers of recipient.
func (h *Hub) Subscribers(recipient primitive.ObjectID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[recipient])
}

// Publish delivers n to its recipient's subscribers without blocking.
// A subscriber whose buffer is full misses n.
func (h *Hub) Publish(n models.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[n.RecipientID] {
		select {
		case s.ch <- n:
		default:
			h.metrics.LiveDropped()
		}
	}
}

func (h *Hub) run(ctx context.Context) {
	defer h.wg.Done()
	reopened := false
	for {
		err := h.watch(ctx, reopened)
		if ctx.Err() != nil {
			return
		}
		if streamsUnsupported(err) {
			h.log.Info("change streams unavailable, polling notifications", zap.Duration("interval", h.poll))
			h.pollLoop(ctx)
			return
		}
		if h.resume != nil && resumeLost(err) {
			h.log.Warn("notification resume token no longer valid, reading back from the collection", zap.Error(err))
			h.resume = nil
		} else {
			h.log.Warn("notification change stream ended, reopening", zap.Error(err))
		}
		reopened = true
		if !sleep(ctx, h.poll) {
			return
		}
	}
}

func (h *Hub) watch(ctx context.Context, reopened bool) error {
	cs, err := h.src.WatchInserts(ctx, h.resume)
	if err != nil {
		return err
	}
	defer cs.Close(context.Background())

	var seen map[primitive.ObjectID]bool
	if reopened && h.resume == nil {
		seen = h.catchUp(ctx)
	}
	for cs.Next(ctx) {
		h.resume = cs.ResumeToken()
		var ev struct {
			Doc models.Notification `bson:"fullDocument"`
		}
		if err := cs.Decode(&ev); err != nil {
			h.log.Warn("decode notification change failed", zap.Error(err))
			continue
		}
		if seen[ev.Doc.ID] {
			continue
		}
		h.deliver(ev.Doc)
	}
	return cs.Err()
}

// catchUp publishes what was inserted after the last delivered
// notification and returns the ids it published.
func (h *Hub) catchUp(ctx context.Context) map[primitive.ObjectID]bool {
	seen := map[primitive.ObjectID]bool{}
	for {
		batch, err := h.src.After(ctx, h.last, pollBatch)
		if err != nil {
			if ctx.Err() == nil {
				h.log.Warn("read back notifications failed", zap.Error(err))
			}
			return seen
		}
		for _, n := range batch {
			seen[n.ID] = true
			h.deliver(n)
		}
		if len(batch) < pollBatch {
			return seen
		}
	}
}

func (h *Hub) deliver(n models.Notification) {
	if h.last.Newer(n) {
		h.last = notificationstore.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	}
	h.Publish(n)
}

func (h *Hub) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(h.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		h.catchUp(ctx)
	}
}

// resumeLost reports whether err means the stream cannot continue from
// its resume token (oplog rolled past it, or the token is unusable).
func resumeLost(err error) bool {
	var se mongo.ServerError
	if !errors.As(err, &se) {
		return false
	}
	return se.HasErrorCode(286) || se.HasErrorCode(280) || se.HasErrorCode(260)
}

// streamsUnsupported reports whether err means the deployment (a
// standalone server) cannot open change streams.
func streamsUnsupported(err error) bool {
	if err == nil {
		return false
	}
	var se mongo.ServerError
	if errors.As(err, &se) && (se.HasErrorCode(40573) || se.HasErrorCode(136)) {
		return true
	}
	return txn.IsNotSupported(err)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
