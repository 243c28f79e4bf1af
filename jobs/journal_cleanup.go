package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-admin/internal/jobs"
)

// JournalCleaner deletes journal entries older than a cutoff.
type JournalCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Time) (int64, error)
}

// JournalCleanupJob enforces save journal retention.
type JournalCleanupJob struct {
	Journal   JournalCleaner
	Retention time.Duration
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewJournalCleanupJob wires dependencies for the cleanup handler.
func NewJournalCleanupJob(journal JournalCleaner, retention time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *JournalCleanupJob {
	return &JournalCleanupJob{
		Journal:   journal,
		Retention: retention,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes journal cleanup tasks.
func (j *JournalCleanupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Journal == nil {
		return errors.New("journal cleanup: handler not configured")
	}
	var payload JournalCleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	retention := j.Retention
	if payload.Retention > 0 {
		retention = payload.Retention
	}
	if retention <= 0 {
		return asynq.SkipRetry
	}

	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskJournalCleanup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("job", TaskJournalCleanup))

	cutoff := j.now().Add(-retention)
	removed, err := j.Journal.Cleanup(ctx, cutoff)
	if err != nil {
		logger.Error("cleanup save journal", slog.Any("error", err))
		return err
	}
	metrics.AddItems(TaskJournalCleanup, int(removed))
	logger.Info("completed journal cleanup", slog.Time("cutoff", cutoff), slog.Int64("removed", removed))
	return nil
}

func (j *JournalCleanupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
