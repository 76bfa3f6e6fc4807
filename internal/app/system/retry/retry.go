// internal/app/system/retry/retry.go
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// MaxDelay caps a single backoff sleep.
const MaxDelay = 5 * time.Second

// Config controls Do. Zero values fall back to 3 attempts and 100ms.
type Config struct {
	Attempts  int
	BaseDelay time.Duration
}

var defaultConfig = Config{Attempts: 3, BaseDelay: 100 * time.Millisecond}

// SetDefault replaces the configuration used by DoDefault.
func SetDefault(cfg Config) {
	if cfg.Attempts > 0 {
		defaultConfig.Attempts = cfg.Attempts
	}
	if cfg.BaseDelay > 0 {
		defaultConfig.BaseDelay = cfg.BaseDelay
	}
}

// Default returns the configuration used by DoDefault.
func Default() Config { return defaultConfig }

// DoDefault is Do with the process-wide configuration.
func DoDefault(ctx context.Context, fn func(ctx context.Context) error) error {
	return Do(ctx, defaultConfig, fn)
}

// Do calls fn until it succeeds, returns a non-retryable error, the
// attempts are exhausted, or ctx is done. Sleeps grow as base*2^n with
// ±20% jitter, capped at MaxDelay.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	base := cfg.BaseDelay
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	var err error
	for n := 0; n < attempts; n++ {
		if err = fn(ctx); err == nil || !IsRetryable(err) {
			return err
		}
		if n == attempts-1 {
			break
		}
		t := time.NewTimer(Backoff(base, n))
		select {
		case <-ctx.Done():
			t.Stop()
			return errors.Join(err, ctx.Err())
		case <-t.C:
		}
	}
	return err
}

// Backoff returns the jittered delay before retry n (0-based).
func Backoff(base time.Duration, n int) time.Duration {
	d := base << n
	if d <= 0 || d > MaxDelay {
		d = MaxDelay
	}
	jitter := 0.8 + rand.Float64()*0.4
	d = time.Duration(float64(d) * jitter)
	if d > MaxDelay {
		d = MaxDelay
	}
	return d
}

// IsRetryable reports whether err is a transient driver failure:
// network errors, server selection or socket timeouts, and errors
// labelled TransientTransactionError or RetryableWriteError.
// Context cancellation is never retryable.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}
	var le mongo.LabeledError
	if errors.As(err, &le) {
		if le.HasErrorLabel("TransientTransactionError") || le.HasErrorLabel("RetryableWriteError") {
			return true
		}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var ss mongo.ServerError
	if errors.As(err, &ss) {
		for _, code := range []int{6, 7, 89, 91, 189, 9001, 10107, 11600, 11602, 13435, 13436} {
			if ss.HasErrorCode(code) {
				return true
			}
		}
	}
	return false
}
