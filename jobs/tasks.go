package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLimitsWarmup refreshes cached copayment-limit pages.
	TaskLimitsWarmup = "limits:warmup"
	// TaskJournalCleanup purges old save journal entries.
	TaskJournalCleanup = "csc:journal_cleanup"
)

// LimitsWarmupPayload selects the insured persons whose first pages are preloaded.
type LimitsWarmupPayload struct {
	InsuredIDs []string `json:"insuredIds"`
	Year       int      `json:"year,omitempty"`
	Pages      int      `json:"pages,omitempty"`
	Refresh    bool     `json:"refresh,omitempty"`
}

// JournalCleanupPayload overrides the configured retention when set.
type JournalCleanupPayload struct {
	Retention time.Duration `json:"retention,omitempty"`
}

// NewLimitsWarmupTask constructs a limits warmup task.
func NewLimitsWarmupTask(payload LimitsWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLimitsWarmup, data), nil
}

// NewJournalCleanupTask constructs a journal cleanup task.
func NewJournalCleanupTask(payload JournalCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskJournalCleanup, data), nil
}
