package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("bad input"), false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"net timeout", timeoutErr{}, true},
		{"transient label", mongo.CommandError{Code: 112, Labels: []string{"TransientTransactionError"}}, true},
		{"not primary", mongo.CommandError{Code: 10107}, true},
		{"duplicate key", mongo.CommandError{Code: 11000}, false},
		{"no documents", mongo.ErrNoDocuments, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	for n := 0; n < 4; n++ {
		want := base << n
		lo := time.Duration(float64(want) * 0.8)
		hi := time.Duration(float64(want) * 1.2)
		for i := 0; i < 50; i++ {
			got := Backoff(base, n)
			if got < lo || got > hi {
				t.Fatalf("Backoff(%v, %d) = %v, want within [%v, %v]", base, n, got, lo, hi)
			}
		}
	}
	if got := Backoff(time.Second, 10); got > MaxDelay {
		t.Errorf("Backoff exceeded cap: %v", got)
	}
}

func TestDo_RetriesTransientErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Config{Attempts: 4, BaseDelay: time.Millisecond}, func(context.Context) error {
		calls++
		if calls < 3 {
			return timeoutErr{}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	calls := 0
	perm := errors.New("validation")
	err := Do(context.Background(), Config{Attempts: 5, BaseDelay: time.Millisecond}, func(context.Context) error {
		calls++
		return perm
	})
	if !errors.Is(err, perm) || calls != 1 {
		t.Errorf("err=%v calls=%d, want perm after 1 call", err, calls)
	}
}

func TestDo_GivesUpAfterAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Config{Attempts: 3, BaseDelay: time.Millisecond}, func(context.Context) error {
		calls++
		return timeoutErr{}
	})
	if err == nil || calls != 3 {
		t.Errorf("err=%v calls=%d, want error after 3 calls", err, calls)
	}
}

func TestDo_HonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Config{Attempts: 10, BaseDelay: time.Second}, func(context.Context) error {
		calls++
		cancel()
		return timeoutErr{}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
