package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-admin/internal/jobs"
	"github.com/odyssey-erp/odyssey-admin/internal/limits"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// LimitsLoader is the part of the limits service the warmup drives.
type LimitsLoader interface {
	LoadPages(ctx context.Context, q limits.Query, pages int) (limits.Result, error)
	Invalidate(ctx context.Context) error
}

// LimitsWarmupJob preloads grouped limit pages into the cache.
type LimitsWarmupJob struct {
	Limits  LimitsLoader
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewLimitsWarmupJob wires dependencies for the warmup handler.
func NewLimitsWarmupJob(loader LimitsLoader, logger *slog.Logger, metrics *jobmetrics.Metrics) *LimitsWarmupJob {
	return &LimitsWarmupJob{
		Limits:  loader,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes limits warmup tasks.
func (j *LimitsWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Limits == nil {
		return errors.New("limits warmup: handler not configured")
	}
	var payload LimitsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Year == 0 {
		payload.Year = j.now().Year()
	}
	if payload.Pages <= 0 {
		payload.Pages = 1
	}

	metrics := j.metrics()
	tracker := metrics.Track(TaskLimitsWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int("year", payload.Year), slog.Int("pages", payload.Pages))
	if len(payload.InsuredIDs) == 0 {
		logger.Info("no insured persons configured for warmup")
		return nil
	}
	if payload.Refresh {
		if err := j.Limits.Invalidate(ctx); err != nil {
			logger.Error("invalidate limits cache", slog.Any("error", err))
			return err
		}
	}

	started := j.now()
	warmed := 0
	for _, insured := range payload.InsuredIDs {
		// bound each person so one slow backend answer does not stall the run
		scopeCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
		result, err := j.Limits.LoadPages(scopeCtx, limits.Query{InsuredID: insured, Year: payload.Year}, payload.Pages)
		cancel()
		if err != nil {
			logger.Error("warm limits", slog.String("insured_id", insured), slog.Any("error", err))
			return err
		}
		warmed += result.Pages
	}
	metrics.AddItems(TaskLimitsWarmup, warmed)
	logger.Info("completed limits warmup", slog.Int("insured", len(payload.InsuredIDs)), slog.Int("pages_warmed", warmed),
		slog.Duration("duration", j.now().Sub(started)))
	return nil
}

func (j *LimitsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLimitsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskLimitsWarmup))
}

func (j *LimitsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *LimitsWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
