package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/odyssey-admin/internal/jobs"
	"github.com/odyssey-erp/odyssey-admin/internal/limits"
)

type stubLoader struct {
	queries     []limits.Query
	pages       []int
	invalidated int
	err         error
}

func (s *stubLoader) LoadPages(_ context.Context, q limits.Query, pages int) (limits.Result, error) {
	s.queries = append(s.queries, q)
	s.pages = append(s.pages, pages)
	if s.err != nil {
		return limits.Result{}, s.err
	}
	return limits.Result{Pages: pages}, nil
}

func (s *stubLoader) Invalidate(context.Context) error {
	s.invalidated++
	return nil
}

type stubCleaner struct {
	cutoff time.Time
	err    error
}

func (s *stubCleaner) Cleanup(_ context.Context, olderThan time.Time) (int64, error) {
	s.cutoff = olderThan
	return 4, s.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMetrics() *jobmetrics.Metrics {
	return jobmetrics.NewMetrics(prometheus.NewRegistry())
}

var fixedNow = time.Date(2025, 2, 14, 3, 0, 0, 0, time.UTC)

func TestLimitsWarmupLoadsEveryInsured(t *testing.T) {
	loader := &stubLoader{}
	job := NewLimitsWarmupJob(loader, quietLogger(), testMetrics())
	job.clock = func() time.Time { return fixedNow }

	task, err := NewLimitsWarmupTask(LimitsWarmupPayload{InsuredIDs: []string{"a", "b"}, Pages: 3, Refresh: true})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Equal(t, 1, loader.invalidated)
	require.Len(t, loader.queries, 2)
	assert.Equal(t, limits.Query{InsuredID: "a", Year: 2025}, loader.queries[0])
	assert.Equal(t, []int{3, 3}, loader.pages)
}

func TestLimitsWarmupDefaultsAndEmptyList(t *testing.T) {
	loader := &stubLoader{}
	job := NewLimitsWarmupJob(loader, quietLogger(), testMetrics())

	task, err := NewLimitsWarmupTask(LimitsWarmupPayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Empty(t, loader.queries)
	assert.Zero(t, loader.invalidated)
}

func TestLimitsWarmupPropagatesFailure(t *testing.T) {
	loader := &stubLoader{err: errors.New("backend down")}
	job := NewLimitsWarmupJob(loader, quietLogger(), testMetrics())

	task, err := NewLimitsWarmupTask(LimitsWarmupPayload{InsuredIDs: []string{"a", "b"}})
	require.NoError(t, err)
	assert.EqualError(t, job.Handle(context.Background(), task), "backend down")
	assert.Len(t, loader.queries, 1)
}

func TestLimitsWarmupSkipsMalformedPayload(t *testing.T) {
	job := NewLimitsWarmupJob(&stubLoader{}, quietLogger(), testMetrics())
	err := job.Handle(context.Background(), asynq.NewTask(TaskLimitsWarmup, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestJournalCleanupUsesRetention(t *testing.T) {
	cleaner := &stubCleaner{}
	job := NewJournalCleanupJob(cleaner, 30*24*time.Hour, quietLogger(), testMetrics())
	job.clock = func() time.Time { return fixedNow }

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskJournalCleanup, nil)))
	assert.Equal(t, fixedNow.Add(-30*24*time.Hour), cleaner.cutoff)

	task, err := NewJournalCleanupTask(JournalCleanupPayload{Retention: time.Hour})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, fixedNow.Add(-time.Hour), cleaner.cutoff)
}

func TestJournalCleanupWithoutRetentionSkips(t *testing.T) {
	cleaner := &stubCleaner{}
	job := NewJournalCleanupJob(cleaner, 0, quietLogger(), testMetrics())

	err := job.Handle(context.Background(), asynq.NewTask(TaskJournalCleanup, nil))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.True(t, cleaner.cutoff.IsZero())
}

func TestNewWorkerRequiresHandlers(t *testing.T) {
	_, err := NewWorker(WorkerConfig{RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"}, Logger: quietLogger()})
	assert.Error(t, err)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestHealthReportsQueue(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 2, Failed: 1}}, quietLogger()).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body queueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, queueHealth{Queue: QueueDefault, Pending: 2, Failed: 1}, body)

	r = chi.NewRouter()
	NewHandler(stubInspector{err: errors.New("redis down")}, quietLogger()).MountRoutes(r)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
