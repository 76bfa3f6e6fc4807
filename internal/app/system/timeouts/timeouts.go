// Package timeouts holds the deadlines handlers and workers put on
// database calls.
//
//   - Ping: health checks
//   - Short: single-document reads and writes
//   - Medium: lists and simple multi-document writes
//   - Long: transactions touching several collections (transfers, conflicts)
//   - Batch: import commits and full-collection snapshots
package timeouts

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
	DefaultBatch  = 90 * time.Second
)

var ping, short, medium, long, batch atomic.Int64

func init() { Reset() }

func Ping() time.Duration   { return time.Duration(ping.Load()) }
func Short() time.Duration  { return time.Duration(short.Load()) }
func Medium() time.Duration { return time.Duration(medium.Load()) }
func Long() time.Duration   { return time.Duration(long.Load()) }
func Batch() time.Duration  { return time.Duration(batch.Load()) }

// Config overrides the defaults. Zero fields keep the current value.
type Config struct {
	Ping, Short, Medium, Long, Batch time.Duration
}

// Configure applies cfg. Call it once during startup.
func Configure(cfg Config) {
	set := func(dst *atomic.Int64, d time.Duration) {
		if d > 0 {
			dst.Store(int64(d))
		}
	}
	set(&ping, cfg.Ping)
	set(&short, cfg.Short)
	set(&medium, cfg.Medium)
	set(&long, cfg.Long)
	set(&batch, cfg.Batch)
}

// Current returns the values in effect.
func Current() Config {
	return Config{Ping: Ping(), Short: Short(), Medium: Medium(), Long: Long(), Batch: Batch()}
}

// Reset restores the defaults.
func Reset() {
	ping.Store(int64(DefaultPing))
	short.Store(int64(DefaultShort))
	medium.Store(int64(DefaultMedium))
	long.Store(int64(DefaultLong))
	batch.Store(int64(DefaultBatch))
}

// WithTimeout is context.WithTimeout whose cancel func logs a warning
// when the deadline was hit.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "import commit")
//	defer cancel()
func WithTimeout(parent context.Context, d time.Duration, log *zap.Logger, op string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, d)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out", zap.String("operation", op), zap.Duration("timeout", d))
		}
		cancel()
	}
}
