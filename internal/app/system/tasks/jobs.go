// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Job is a named unit of periodic background work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// TransferExpirer cancels open transfers created before a cutoff.
type TransferExpirer interface {
	ExpireStale(ctx context.Context, cutoff time.Time) (int, error)
}

// NotificationPurger removes read notifications created before a cutoff.
type NotificationPurger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PreviewCleaner removes expired import previews.
type PreviewCleaner interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// TransferExpiryJob cancels transfers left open longer than maxAge.
func TransferExpiryJob(exp TransferExpirer, logger *zap.Logger, maxAge time.Duration) Job {
	return Job{
		Name:     "transfer-expiry",
		Interval: 15 * time.Minute,
		Run: func(ctx context.Context) error {
			n, err := exp.ExpireStale(ctx, time.Now().UTC().Add(-maxAge))
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("expired open transfers",
					zap.Int("count", n),
					zap.Duration("max_age", maxAge))
			}
			return nil
		},
	}
}

// NotificationRetentionJob purges read notifications older than retention.
func NotificationRetentionJob(p NotificationPurger, logger *zap.Logger, retention time.Duration) Job {
	return Job{
		Name:     "notification-retention",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			n, err := p.PurgeOlderThan(ctx, time.Now().UTC().Add(-retention))
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("purged read notifications",
					zap.Int64("count", n),
					zap.Duration("retention", retention))
			}
			return nil
		},
	}
}

// ImportPreviewCleanupJob removes expired previews.
// This is a backup for when MongoDB's TTL monitor is delayed.
func ImportPreviewCleanupJob(c PreviewCleaner, logger *zap.Logger) Job {
	return Job{
		Name:     "import-preview-cleanup",
		Interval: 10 * time.Minute,
		Run: func(ctx context.Context) error {
			n, err := c.DeleteExpired(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Debug("cleaned up expired import previews", zap.Int64("count", n))
			}
			return nil
		},
	}
}
