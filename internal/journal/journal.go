// Package journal keeps a durable record of draft save outcomes.
package journal

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const table = "csc_save_journal"

// Save kinds.
const (
	KindRows      = "rows"
	KindStructure = "structure"
)

// Entry is one recorded save attempt.
type Entry struct {
	ID            uuid.UUID `json:"id"`
	UserID        int64     `json:"userId"`
	SessionKey    string    `json:"sessionKey"`
	CodeListID    string    `json:"codeListId"`
	DraftID       string    `json:"draftId"`
	Kind          string    `json:"kind"`
	State         string    `json:"state"`
	Batches       int       `json:"batches"`
	Sent          int       `json:"sent"`
	FailedBatch   int       `json:"failedBatch"`
	Error         string    `json:"error,omitempty"`
	RollbackError string    `json:"rollbackError,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Filter narrows List results.
type Filter struct {
	CodeListID string    `validate:"omitempty,max=64"`
	DraftID    string    `validate:"omitempty,max=64"`
	Kind       string    `validate:"omitempty,oneof=rows structure"`
	State      string    `validate:"omitempty,max=32"`
	Before     time.Time `validate:"-"`
	Limit      int       `validate:"gte=0,lte=500"`
}

// Querier is the subset of pgx used by the repository.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var columns = []string{
	"id", "user_id", "session_key", "codelist_id", "draft_id", "kind", "state",
	"batches", "sent", "failed_batch", "error", "rollback_error", "created_at",
}

// Repository persists entries in Postgres.
type Repository struct {
	db  Querier
	now func() time.Time
}

// NewRepository constructs a Repository.
func NewRepository(db Querier) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Record inserts entry, assigning an ID and timestamp when missing.
func (r *Repository) Record(ctx context.Context, entry Entry) (Entry, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now().UTC()
	}
	query, args, err := insertQuery(entry).ToSql()
	if err != nil {
		return Entry{}, err
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return Entry{}, fmt.Errorf("journal: record: %w", err)
	}
	return entry, nil
}

// List returns entries newest first.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Entry, error) {
	query, args, err := listQuery(filter).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.SessionKey, &e.CodeListID, &e.DraftID, &e.Kind, &e.State,
			&e.Batches, &e.Sent, &e.FailedBatch, &e.Error, &e.RollbackError, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Cleanup deletes entries created before olderThan and reports how many were removed.
func (r *Repository) Cleanup(ctx context.Context, olderThan time.Time) (int64, error) {
	query, args, err := psql.Delete(table).Where(sq.Lt{"created_at": olderThan}).ToSql()
	if err != nil {
		return 0, err
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("journal: cleanup: %w", err)
	}
	return tag.RowsAffected(), nil
}

func insertQuery(e Entry) sq.InsertBuilder {
	return psql.Insert(table).Columns(columns...).Values(
		e.ID, e.UserID, e.SessionKey, e.CodeListID, e.DraftID, e.Kind, e.State,
		e.Batches, e.Sent, e.FailedBatch, e.Error, e.RollbackError, e.CreatedAt,
	)
}

func listQuery(f Filter) sq.SelectBuilder {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	q := psql.Select(columns...).From(table).OrderBy("created_at DESC").Limit(uint64(limit))
	if f.CodeListID != "" {
		q = q.Where(sq.Eq{"codelist_id": f.CodeListID})
	}
	if f.DraftID != "" {
		q = q.Where(sq.Eq{"draft_id": f.DraftID})
	}
	if f.Kind != "" {
		q = q.Where(sq.Eq{"kind": f.Kind})
	}
	if f.State != "" {
		q = q.Where(sq.Eq{"state": f.State})
	}
	if !f.Before.IsZero() {
		q = q.Where(sq.Lt{"created_at": f.Before})
	}
	return q
}
