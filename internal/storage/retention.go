package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const retentionBatch = 500

// ArchivePruner removes archived day files older than a cutoff.
type ArchivePruner interface {
	Prune(cutoff time.Time) (int, error)
}

// SummaryInvalidator drops cached per-device summaries.
type SummaryInvalidator interface {
	Invalidate(ctx context.Context, deviceID string) error
}

// RetentionJob deletes readings older than MaxAge.
type RetentionJob struct {
	storage   *SQLStorage
	archive   ArchivePruner
	summaries SummaryInvalidator
	maxAge    time.Duration
	log       *zap.Logger
	now       func() time.Time
}

// NewRetentionJob builds the job. archive may be nil.
func NewRetentionJob(s *SQLStorage, archive ArchivePruner, maxAge time.Duration, log *zap.Logger) *RetentionJob {
	return &RetentionJob{storage: s, archive: archive, maxAge: maxAge, log: log, now: time.Now}
}

// WithSummaries makes every run invalidate the cached summaries of the
// devices that lost readings.
func (j *RetentionJob) WithSummaries(c SummaryInvalidator) *RetentionJob {
	j.summaries = c
	return j
}

// Start runs RunOnce every interval until ctx is done.
func (j *RetentionJob) Start(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				j.log.Info("retention job stopped")
				return
			case <-ticker.C:
				if _, err := j.RunOnce(ctx); err != nil {
					j.log.Error("retention job failed", zap.Error(err))
				}
			}
		}
	}()
}

// RunOnce deletes in batches until a batch removes nothing, then prunes the
// archive. It returns the number of deleted readings.
func (j *RetentionJob) RunOnce(ctx context.Context) (int64, error) {
	cutoff := j.now().Add(-j.maxAge)

	var affected []uuid.UUID
	if j.summaries != nil {
		var err error
		if affected, err = j.storage.DevicesWithReadingsBefore(ctx, cutoff); err != nil {
			return 0, err
		}
	}

	var total int64
	for {
		n, err := j.storage.DeleteReadingsBefore(ctx, cutoff, retentionBatch)
		if err != nil {
			return total, err
		}
		total += n
		if n == 0 {
			break
		}
	}

	if total > 0 {
		for _, id := range affected {
			if err := j.summaries.Invalidate(ctx, id.String()); err != nil {
				j.log.Warn("summary invalidation failed", zap.String("device_id", id.String()), zap.Error(err))
			}
		}
	}

	files := 0
	if j.archive != nil {
		var err error
		if files, err = j.archive.Prune(cutoff); err != nil {
			return total, err
		}
	}
	j.log.Info("retention run finished",
		zap.Int64("deleted_readings", total),
		zap.Int("deleted_archive_files", files),
		zap.Time("cutoff", cutoff))
	return total, nil
}
