package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	notificationstore "github.com/dalemusser/dormhub/internal/app/store/notifications"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

// pollOnly behaves like a standalone server: no change streams, and
// After hands out whatever was queued since the last call.
type pollOnly struct {
	mu    sync.Mutex
	queue []models.Notification
}

func (p *pollOnly) WatchInserts(context.Context, bson.Raw) (*mongo.ChangeStream, error) {
	return nil, mongo.CommandError{Code: 40573, Message: "The $changeStream stage is only supported on replica sets"}
}

func (p *pollOnly) After(_ context.Context, _ notificationstore.Cursor, _ int64) ([]models.Notification, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.queue
	p.queue = nil
	return out, nil
}

func (p *pollOnly) push(ns ...models.Notification) {
	p.mu.Lock()
	p.queue = append(p.queue, ns...)
	p.mu.Unlock()
}

// outage loses its connection once, after the test has inserted rows,
// and then turns out to be a standalone server. After honours the cursor.
type outage struct {
	failed  chan struct{}
	release chan struct{}

	mu      sync.Mutex
	watches int
	stored  []models.Notification
}

func (o *outage) WatchInserts(ctx context.Context, _ bson.Raw) (*mongo.ChangeStream, error) {
	o.mu.Lock()
	o.watches++
	first := o.watches == 1
	o.mu.Unlock()
	if !first {
		return nil, mongo.CommandError{Code: 40573}
	}
	select {
	case <-o.release:
	case <-ctx.Done():
	}
	close(o.failed)
	return nil, errors.New("connection reset by peer")
}

func (o *outage) After(_ context.Context, c notificationstore.Cursor, _ int64) ([]models.Notification, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []models.Notification
	for _, n := range o.stored {
		if c.Newer(n) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (o *outage) insert(n models.Notification) {
	o.mu.Lock()
	o.stored = append(o.stored, n)
	o.mu.Unlock()
}

func note(to primitive.ObjectID, title string) models.Notification {
	return models.Notification{ID: primitive.NewObjectID(), RecipientID: to, Title: title, CreatedAt: time.Now().UTC()}
}

func TestHub_PollFallbackDeliversToRecipient(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := &pollOnly{}
	hub := NewHub(src, nil, zap.NewNop(), 5*time.Millisecond)
	hub.Start()

	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()
	sub := hub.Subscribe(alice)
	src.push(note(bob, "for bob"), note(alice, "for alice"))

	select {
	case n := <-sub.C():
		if n.Title != "for alice" {
			t.Errorf("got %q, want the notification addressed to alice", n.Title)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no notification delivered")
	}

	hub.Stop()
	if _, ok := <-sub.C(); ok {
		t.Error("subscription should be closed after Stop")
	}
	sub.Close()
	hub.Stop()
}

func TestHub_DeliversWhatWasInsertedWhileDisconnected(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := &outage{failed: make(chan struct{}), release: make(chan struct{})}
	hub := NewHub(src, nil, zap.NewNop(), 5*time.Millisecond)
	hub.Start()
	defer hub.Stop()

	alice := primitive.NewObjectID()
	sub := hub.Subscribe(alice)
	src.insert(note(alice, "during outage"))
	close(src.release)
	<-src.failed

	select {
	case n := <-sub.C():
		if n.Title != "during outage" {
			t.Errorf("got %q", n.Title)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("notification inserted before the fallback was never delivered")
	}
	select {
	case n := <-sub.C():
		t.Errorf("delivered twice: %q", n.Title)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_SlowSubscriberDrops(t *testing.T) {
	hub := NewHub(nil, nil, zap.NewNop(), 0)
	alice := primitive.NewObjectID()
	slow := hub.Subscribe(alice)
	fast := hub.Subscribe(alice)
	defer slow.Close()

	for i := 0; i < SubscriberBuffer+3; i++ {
		hub.Publish(note(alice, "n"))
		if i < 2 {
			<-fast.C()
		}
	}
	if got := len(slow.C()); got != SubscriberBuffer {
		t.Errorf("slow buffer = %d, want %d", got, SubscriberBuffer)
	}

	fast.Close()
	fast.Close()
	if got := hub.Subscribers(alice); got != 1 {
		t.Errorf("Subscribers = %d, want 1", got)
	}
}

func TestStreamsUnsupported(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"standalone", mongo.CommandError{Code: 40573}, true},
		{"wrapped", errors.Join(errors.New("watch"), mongo.CommandError{Code: 40573}), true},
		{"other command error", mongo.CommandError{Code: 11000}, false},
		{"plain", errors.New("connection reset"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := streamsUnsupported(tc.err); got != tc.want {
				t.Errorf("streamsUnsupported(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestResumeLost(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"history lost", mongo.CommandError{Code: 286}, true},
		{"fatal", mongo.CommandError{Code: 280}, true},
		{"invalid token", mongo.CommandError{Code: 260}, true},
		{"network", errors.New("connection reset"), false},
		{"other command error", mongo.CommandError{Code: 11000}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := resumeLost(tc.err); got != tc.want {
				t.Errorf("resumeLost(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestCursorNewer(t *testing.T) {
	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	low, high := primitive.NewObjectIDFromTimestamp(at), primitive.NewObjectIDFromTimestamp(at.Add(time.Second))
	c := notificationstore.Cursor{CreatedAt: at, ID: low}
	cases := []struct {
		name string
		n    models.Notification
		want bool
	}{
		{"later", models.Notification{CreatedAt: at.Add(time.Millisecond), ID: low}, true},
		{"earlier", models.Notification{CreatedAt: at.Add(-time.Millisecond), ID: high}, false},
		{"same instant, higher id", models.Notification{CreatedAt: at, ID: high}, true},
		{"same position", models.Notification{CreatedAt: at, ID: low}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.Newer(tc.n); got != tc.want {
				t.Errorf("Newer = %v, want %v", got, tc.want)
			}
		})
	}
}
