package csc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/odyssey-admin/internal/journal"
	"github.com/odyssey-erp/odyssey-admin/internal/messages"
	"github.com/odyssey-erp/odyssey-admin/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-admin/internal/platform/restclient"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
	"github.com/odyssey-erp/odyssey-admin/internal/state"
)

type call struct {
	op      string
	payload any
}

type stubBackend struct {
	mu          sync.Mutex
	calls       []call
	failOn      string
	failErr     error
	rollbackErr error
	fields      []Field
}

func (b *stubBackend) record(op string, payload any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call{op: op, payload: payload})
	if op == b.failOn {
		return b.failErr
	}
	if op == "rollback" {
		return b.rollbackErr
	}
	return nil
}

func (b *stubBackend) ops() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.calls))
	for _, c := range b.calls {
		out = append(out, c.op)
	}
	return out
}

func (b *stubBackend) AddRows(_ context.Context, _ DraftRef, rows []map[string]any) error {
	return b.record("add_rows", rows)
}

func (b *stubBackend) UpdateRows(_ context.Context, _ DraftRef, rows map[string]map[string]any) error {
	return b.record("update_rows", rows)
}

func (b *stubBackend) DeleteRows(_ context.Context, _ DraftRef, ids []string) error {
	return b.record("delete_rows", ids)
}

func (b *stubBackend) AddColumns(_ context.Context, _ DraftRef, fields []Field) error {
	return b.record("add_columns", fields)
}

func (b *stubBackend) RemoveColumns(_ context.Context, _ DraftRef, indexes []int) error {
	return b.record("remove_columns", indexes)
}

func (b *stubBackend) Rollback(_ context.Context, _ DraftRef) error {
	return b.record("rollback", nil)
}

func (b *stubBackend) Columns(context.Context, DraftRef) ([]Field, error) {
	return b.fields, nil
}

type stubJournal struct {
	mu      sync.Mutex
	entries []journal.Entry
	err     error
}

func (j *stubJournal) Record(_ context.Context, e journal.Entry) (journal.Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return e, j.err
}

type stubMetrics struct {
	states []string
}

func (m *stubMetrics) ObserveSave(kind, state string, _ time.Duration) {
	m.states = append(m.states, kind+":"+state)
}

type fixture struct {
	svc     *Service
	backend *stubBackend
	journal *stubJournal
	metrics *stubMetrics
	ref     DraftRef
	key     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	localizer, err := messages.Default()
	require.NoError(t, err)

	f := &fixture{
		backend: &stubBackend{},
		journal: &stubJournal{},
		metrics: &stubMetrics{},
		ref:     DraftRef{CodeListID: "cl-1", DraftID: "d-1"},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := NewSessionStore(state.NewManager(client, time.Hour))
	f.svc = NewService(f.backend, sessions, f.journal, localizer, f.metrics, logger)

	sess, err := f.svc.Open(context.Background(), 7, f.ref)
	require.NoError(t, err)
	f.key = sess.ID
	return f
}

func TestOpenValidatesRef(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Open(context.Background(), 7, DraftRef{CodeListID: "cl-1"})
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Equal(t, "7:cl-1:d-1", f.key)
}

func TestEditsRequireOpenedSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AddRow(context.Background(), "7:cl-1:other", "r1", nil)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestAddColumnValidatesField(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AddColumn(context.Background(), f.key, Field{Index: 0, Name: "", Type: FieldString})
	assert.ErrorIs(t, err, httpx.ErrValidation)
	_, err = f.svc.AddColumn(context.Background(), f.key, Field{Index: 0, Name: "A", Type: "blob"})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestStructureEditsPersistAcrossLoads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddColumn(ctx, f.key, Field{Index: 1, Name: "A", Type: FieldString})
	require.NoError(t, err)
	_, err = f.svc.AddColumn(ctx, f.key, Field{Index: 1, Name: "B", Type: FieldString})
	require.NoError(t, err)
	updated, err := f.svc.UpdateColumn(ctx, f.key, 1, "CODE_B", "x", nil)
	require.NoError(t, err)
	assert.True(t, updated)
	updated, err = f.svc.UpdateColumn(ctx, f.key, 9, "NOPE", "", nil)
	require.NoError(t, err)
	assert.False(t, updated)

	sess, err := f.svc.Session(ctx, f.key)
	require.NoError(t, err)
	require.Equal(t, 1, sess.Structure.Len())
	field := sess.Structure.Actions()[0].Field
	assert.Equal(t, "B", field.Name)
	assert.Equal(t, "CODE_B", field.Code)
}

func TestSaveRowsSendsBatchesInOrderAndClearsQueue(t *testing.T) {
	f := newFixture(t)
	ctx := messages.WithLanguage(context.Background(), language.English)

	_, err := f.svc.AddRow(ctx, f.key, "r1", map[string]any{"name": "a"})
	require.NoError(t, err)
	_, err = f.svc.AddRow(ctx, f.key, "r2", map[string]any{"name": "b"})
	require.NoError(t, err)
	_, err = f.svc.UpdateRow(ctx, f.key, "r1", map[string]any{"name": "c"})
	require.NoError(t, err)
	_, err = f.svc.DeleteRow(ctx, f.key, "r0")
	require.NoError(t, err)

	out, err := f.svc.SaveRows(ctx, f.key)
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, out.State)
	assert.Equal(t, 3, out.Batches)
	assert.Equal(t, []string{"add_rows", "update_rows", "delete_rows"}, f.backend.ops())
	require.Len(t, out.Notices, 1)
	assert.Equal(t, shared.Notice{Kind: shared.NoticeSuccess, Code: messages.CodeSaveSucceeded, Message: "Changes were saved."}, out.Notices[0])

	sess, err := f.svc.Session(ctx, f.key)
	require.NoError(t, err)
	assert.Zero(t, sess.Rows.Len())

	require.Len(t, f.journal.entries, 1)
	entry := f.journal.entries[0]
	assert.Equal(t, journal.KindRows, entry.Kind)
	assert.Equal(t, "succeeded", entry.State)
	assert.EqualValues(t, 7, entry.UserID)
	assert.Equal(t, []string{"rows:succeeded"}, f.metrics.states)
}

func TestSaveRowsFailureRollsBackAndKeepsQueue(t *testing.T) {
	f := newFixture(t)
	f.backend.failOn = "update_rows"
	f.backend.failErr = &restclient.APIError{Method: http.MethodPatch, Status: http.StatusConflict, Code: "ROW_LOCKED"}
	ctx := messages.WithLanguage(context.Background(), language.English)

	_, err := f.svc.AddRow(ctx, f.key, "r1", map[string]any{"name": "a"})
	require.NoError(t, err)
	_, err = f.svc.UpdateRow(ctx, f.key, "r1", map[string]any{"name": "b"})
	require.NoError(t, err)
	_, err = f.svc.DeleteRow(ctx, f.key, "r2")
	require.NoError(t, err)

	out, err := f.svc.SaveRows(ctx, f.key)
	require.NoError(t, err)

	assert.Equal(t, StateRolledBack, out.State)
	assert.Equal(t, 1, out.FailedBatch)
	assert.Equal(t, []string{"add_rows", "update_rows", "rollback"}, f.backend.ops())
	require.Len(t, out.Notices, 2)
	assert.Equal(t, "ROW_LOCKED", out.Notices[0].Code)
	assert.Equal(t, "The row is being edited by another user.", out.Notices[0].Message)
	assert.Equal(t, shared.NoticeWarning, out.Notices[1].Kind)

	sess, err := f.svc.Session(ctx, f.key)
	require.NoError(t, err)
	assert.Equal(t, 3, sess.Rows.Len())
	assert.Equal(t, "rolled_back", f.journal.entries[0].State)
}

func TestSaveRowsRollbackFailureRaisesSecondNotice(t *testing.T) {
	f := newFixture(t)
	f.backend.failOn = "add_rows"
	f.backend.failErr = errors.New("connection reset")
	f.backend.rollbackErr = errors.New("still down")

	_, err := f.svc.AddRow(context.Background(), f.key, "r1", map[string]any{"name": "a"})
	require.NoError(t, err)

	out, err := f.svc.SaveRows(context.Background(), f.key)
	require.NoError(t, err)

	assert.Equal(t, StateRollbackFailed, out.State)
	require.Len(t, out.Notices, 2)
	assert.Equal(t, messages.CodeSaveFailed, out.Notices[0].Code)
	assert.Equal(t, messages.CodeRollbackFailed, out.Notices[1].Code)
	assert.NotEqual(t, out.Notices[0].Message, out.Notices[1].Message)
	assert.Equal(t, "Zmeny sa nepodarilo uložiť.", out.Notices[0].Message)
	assert.Contains(t, f.journal.entries[0].RollbackError, "still down")
}

func TestSaveStructureHasNoRollback(t *testing.T) {
	f := newFixture(t)
	f.backend.failOn = "remove_columns"
	f.backend.failErr = &restclient.APIError{Status: http.StatusUnprocessableEntity, Code: "COLUMN_IN_USE"}
	ctx := context.Background()

	_, err := f.svc.AddColumn(ctx, f.key, Field{Index: 1, Name: "A", Type: FieldString})
	require.NoError(t, err)
	_, err = f.svc.AddColumn(ctx, f.key, Field{Index: 2, Name: "B", Type: FieldString})
	require.NoError(t, err)
	require.NoError(t, f.svc.RemoveColumns(ctx, f.key, 3))
	_, err = f.svc.AddColumn(ctx, f.key, Field{Index: 4, Name: "D", Type: FieldString})
	require.NoError(t, err)

	out, err := f.svc.SaveStructure(ctx, f.key)
	require.NoError(t, err)

	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, 3, out.Batches)
	assert.Equal(t, 1, out.FailedBatch)
	assert.Equal(t, []string{"add_columns", "remove_columns"}, f.backend.ops())
	require.Len(t, out.Notices, 1)
	assert.Equal(t, "COLUMN_IN_USE", out.Notices[0].Code)

	sess, err := f.svc.Session(ctx, f.key)
	require.NoError(t, err)
	assert.Equal(t, 4, sess.Structure.Len())
}

func TestSaveStructureSendsFieldsAndIndexes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddColumn(ctx, f.key, Field{Index: 1, Name: "A", Type: FieldString})
	require.NoError(t, err)
	require.NoError(t, f.svc.RemoveColumns(ctx, f.key, 0, 2))

	out, err := f.svc.SaveStructure(ctx, f.key)
	require.NoError(t, err)
	require.True(t, out.Succeeded())
	assert.Equal(t, messages.CodeStructureSaved, out.Notices[0].Code)

	require.Len(t, f.backend.calls, 2)
	fields := f.backend.calls[0].payload.([]Field)
	require.Len(t, fields, 1)
	assert.Equal(t, "A", fields[0].Name)
	assert.Equal(t, []int{0, 2}, f.backend.calls[1].payload)
}

func TestSaveWithEmptyQueue(t *testing.T) {
	f := newFixture(t)
	out, err := f.svc.SaveRows(context.Background(), f.key)
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, out.State)
	assert.Empty(t, out.Notices)
	assert.Empty(t, f.backend.ops())
	assert.Empty(t, f.journal.entries)
}

func TestJournalFailureDoesNotFailSave(t *testing.T) {
	f := newFixture(t)
	f.journal.err = errors.New("db down")
	_, err := f.svc.DeleteRow(context.Background(), f.key, "r1")
	require.NoError(t, err)

	out, err := f.svc.SaveRows(context.Background(), f.key)
	require.NoError(t, err)
	assert.True(t, out.Succeeded())
}

func TestDiscardResetsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.AddRow(ctx, f.key, "r1", nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.Discard(ctx, f.key))

	sess, err := f.svc.Session(ctx, f.key)
	require.NoError(t, err)
	assert.False(t, sess.Pending())
	_, err = f.svc.SaveRows(ctx, f.key)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestRemoveColumnsValidation(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.svc.RemoveColumns(context.Background(), f.key), httpx.ErrValidation)
	assert.ErrorIs(t, f.svc.RemoveColumns(context.Background(), f.key, -1), httpx.ErrValidation)
}
