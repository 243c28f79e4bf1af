package csc

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/odyssey-admin/internal/journal"
	"github.com/odyssey-erp/odyssey-admin/internal/messages"
	"github.com/odyssey-erp/odyssey-admin/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-admin/internal/platform/restclient"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// Journal records save outcomes.
type Journal interface {
	Record(ctx context.Context, entry journal.Entry) (journal.Entry, error)
}

// Notifier renders localized notice text.
type Notifier interface {
	Notice(lang language.Tag, code, fallback string) string
	Fallback() language.Tag
}

// Recorder observes finished saves.
type Recorder interface {
	ObserveSave(kind, state string, elapsed time.Duration)
}

// Service queues draft edits per session and saves them through the backend.
type Service struct {
	backend  Backend
	sessions *SessionStore
	journal  Journal
	notices  Notifier
	metrics  Recorder
	logger   *slog.Logger
	validate *validator.Validate
}

// NewService wires the save pipeline. journal and metrics may be nil.
func NewService(backend Backend, sessions *SessionStore, j Journal, notices Notifier, metrics Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		backend:  backend,
		sessions: sessions,
		journal:  j,
		notices:  notices,
		metrics:  metrics,
		logger:   logger,
		validate: validator.New(),
	}
}

// Session returns the persisted session for key.
func (s *Service) Session(ctx context.Context, key string) (Session, error) {
	return s.sessions.Get(ctx, key)
}

// Open returns the edit session of userID on a draft, creating it when missing.
func (s *Service) Open(ctx context.Context, userID int64, ref DraftRef) (Session, error) {
	if err := s.validate.Struct(ref); err != nil {
		return Session{}, fmt.Errorf("csc: %v: %w", err, httpx.ErrValidation)
	}
	key := SessionKey(userID, ref)
	return s.sessions.Update(ctx, key, func(sess *Session) error {
		sess.ID = key
		sess.UserID = userID
		sess.CodeListID = ref.CodeListID
		sess.DraftID = ref.DraftID
		sess.UpdatedAt = time.Now().UTC()
		return nil
	})
}

// Columns reads the saved column structure of the session's draft.
func (s *Service) Columns(ctx context.Context, key string) ([]Field, error) {
	sess, err := s.opened(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.backend.Columns(ctx, sess.Ref())
}

// AddColumn queues a new column definition.
func (s *Service) AddColumn(ctx context.Context, key string, field Field) (StructureAction, error) {
	if err := s.validate.Struct(field); err != nil {
		return StructureAction{}, fmt.Errorf("csc: field: %v: %w", err, httpx.ErrValidation)
	}
	var action StructureAction
	err := s.edit(ctx, key, func(sess *Session) {
		action = sess.Structure.AddColumn(field)
	})
	return action, err
}

// UpdateColumn refines a column added in this session. It reports false when no add is queued.
func (s *Service) UpdateColumn(ctx context.Context, key string, index int, code, defaultValue string, validations []Validation) (bool, error) {
	for _, v := range validations {
		if err := s.validate.Struct(v); err != nil {
			return false, fmt.Errorf("csc: validation rule: %v: %w", err, httpx.ErrValidation)
		}
	}
	var updated bool
	err := s.edit(ctx, key, func(sess *Session) {
		updated = sess.Structure.UpdateAction(index, code, defaultValue, validations)
	})
	return updated, err
}

// RemoveColumns queues column removals.
func (s *Service) RemoveColumns(ctx context.Context, key string, indexes ...int) error {
	if len(indexes) == 0 {
		return fmt.Errorf("csc: no column indexes: %w", httpx.ErrValidation)
	}
	if slices.ContainsFunc(indexes, func(i int) bool { return i < 0 }) {
		return fmt.Errorf("csc: negative column index: %w", httpx.ErrValidation)
	}
	return s.edit(ctx, key, func(sess *Session) {
		sess.Structure.RemoveColumns(indexes...)
	})
}

// AddRow queues a new row.
func (s *Service) AddRow(ctx context.Context, key, rowID string, values map[string]any) (RowAction, error) {
	if rowID == "" {
		rowID = uuid.NewString()
	}
	var action RowAction
	err := s.edit(ctx, key, func(sess *Session) {
		action = sess.Rows.Add(rowID, values)
	})
	return action, err
}

// UpdateRow queues changed values of an existing row.
func (s *Service) UpdateRow(ctx context.Context, key, rowID string, values map[string]any) (RowAction, error) {
	if rowID == "" || len(values) == 0 {
		return RowAction{}, fmt.Errorf("csc: row update needs an id and values: %w", httpx.ErrValidation)
	}
	var action RowAction
	err := s.edit(ctx, key, func(sess *Session) {
		action = sess.Rows.Update(rowID, values)
	})
	return action, err
}

// DeleteRow queues a row removal.
func (s *Service) DeleteRow(ctx context.Context, key, rowID string) (RowAction, error) {
	if rowID == "" {
		return RowAction{}, fmt.Errorf("csc: row id required: %w", httpx.ErrValidation)
	}
	var action RowAction
	err := s.edit(ctx, key, func(sess *Session) {
		action = sess.Rows.Delete(rowID)
	})
	return action, err
}

// SaveRows sends the queued row edits. Accepted edits leave the queue; after a failure
// the queue is kept so the user can retry or discard.
func (s *Service) SaveRows(ctx context.Context, key string) (Outcome, error) {
	sess, err := s.opened(ctx, key)
	if err != nil {
		return Outcome{}, err
	}
	actions := sess.Rows.Actions()
	steps := rowSteps(s.backend, sess.Ref(), GroupRowActions(actions))
	rollback := func(ctx context.Context) error { return s.backend.Rollback(ctx, sess.Ref()) }

	out := s.run(ctx, sess, journal.KindRows, steps, rollback)
	if out.Succeeded() && len(actions) > 0 {
		sent := actionIDs(actions, func(a RowAction) uuid.UUID { return a.ID })
		if err := s.edit(ctx, key, func(sess *Session) {
			sess.Rows.Items = slices.DeleteFunc(sess.Rows.Items, func(a RowAction) bool { return sent[a.ID] })
		}); err != nil {
			return out, err
		}
	}
	return out, nil
}

// SaveStructure sends the queued column edits. There is no rollback for structure saves.
func (s *Service) SaveStructure(ctx context.Context, key string) (Outcome, error) {
	sess, err := s.opened(ctx, key)
	if err != nil {
		return Outcome{}, err
	}
	actions := sess.Structure.Actions()
	steps := structureSteps(s.backend, sess.Ref(), GroupStructureActions(actions))

	out := s.run(ctx, sess, journal.KindStructure, steps, nil)
	if out.Succeeded() && len(actions) > 0 {
		sent := actionIDs(actions, func(a StructureAction) uuid.UUID { return a.ID })
		if err := s.edit(ctx, key, func(sess *Session) {
			sess.Structure.Items = slices.DeleteFunc(sess.Structure.Items, func(a StructureAction) bool { return sent[a.ID] })
		}); err != nil {
			return out, err
		}
	}
	return out, nil
}

// Discard drops every queued edit of the session.
func (s *Service) Discard(ctx context.Context, key string) error {
	return s.sessions.Reset(ctx, key)
}

func (s *Service) run(ctx context.Context, sess Session, kind string, steps []Step, rollback func(context.Context) error) Outcome {
	started := time.Now()
	logger := s.logger.With(slog.String("session", sess.ID), slog.String("kind", kind))
	saga := Saga{OnTransition: func(state State, index int) {
		logger.Debug("csc save transition", slog.String("state", state.String()), slog.Int("batch", index))
	}}

	out := saga.Run(ctx, steps, rollback)
	out.Notices = s.noticesFor(ctx, kind, out)

	switch out.State {
	case StateSucceeded:
		logger.Info("csc save succeeded", slog.Int("batches", out.Batches))
	case StateRollbackFailed:
		logger.Error("csc save rollback failed", slog.Int("failed_batch", out.FailedBatch),
			slog.Any("error", out.Err), slog.Any("rollback_error", out.RollbackErr))
	default:
		logger.Warn("csc save failed", slog.String("state", out.State.String()),
			slog.Int("failed_batch", out.FailedBatch), slog.Any("error", out.Err))
	}

	if s.metrics != nil {
		s.metrics.ObserveSave(kind, out.State.String(), time.Since(started))
	}
	if s.journal != nil && out.Batches > 0 {
		if _, err := s.journal.Record(ctx, entryFor(sess, kind, out)); err != nil {
			logger.Error("csc record save journal", slog.Any("error", err))
		}
	}
	return out
}

func (s *Service) noticesFor(ctx context.Context, kind string, out Outcome) []shared.Notice {
	if s.notices == nil || out.Batches == 0 {
		return nil
	}
	lang, ok := messages.LanguageFrom(ctx)
	if !ok {
		lang = s.notices.Fallback()
	}
	notice := func(kind, code, fallbackCode string) shared.Notice {
		text := s.notices.Notice(lang, code, s.notices.Notice(lang, fallbackCode, ""))
		return shared.Notice{Kind: kind, Code: code, Message: text}
	}

	if out.Succeeded() {
		code := messages.CodeSaveSucceeded
		if kind == journal.KindStructure {
			code = messages.CodeStructureSaved
		}
		return []shared.Notice{notice(shared.NoticeSuccess, code, code)}
	}

	code := restclient.CodeOf(out.Err)
	if code == "" {
		code = messages.CodeSaveFailed
	}
	notices := []shared.Notice{notice(shared.NoticeError, code, messages.CodeSaveFailed)}
	switch out.State {
	case StateRolledBack:
		notices = append(notices, notice(shared.NoticeWarning, messages.CodeRollbackSucceeded, messages.CodeRollbackSucceeded))
	case StateRollbackFailed:
		notices = append(notices, notice(shared.NoticeError, messages.CodeRollbackFailed, messages.CodeRollbackFailed))
	}
	return notices
}

func (s *Service) opened(ctx context.Context, key string) (Session, error) {
	sess, ok, err := s.sessions.Lookup(ctx, key)
	if err != nil {
		return Session{}, err
	}
	if !ok || sess.CodeListID == "" || sess.DraftID == "" {
		return Session{}, fmt.Errorf("csc: session %s is not bound to a draft: %w", key, httpx.ErrNotFound)
	}
	return sess, nil
}

func (s *Service) edit(ctx context.Context, key string, fn func(*Session)) error {
	if _, err := s.opened(ctx, key); err != nil {
		return err
	}
	_, err := s.sessions.Update(ctx, key, func(sess *Session) error {
		fn(sess)
		sess.UpdatedAt = time.Now().UTC()
		return nil
	})
	return err
}

func entryFor(sess Session, kind string, out Outcome) journal.Entry {
	entry := journal.Entry{
		UserID:      sess.UserID,
		SessionKey:  sess.ID,
		CodeListID:  sess.CodeListID,
		DraftID:     sess.DraftID,
		Kind:        kind,
		State:       out.State.String(),
		Batches:     out.Batches,
		Sent:        out.Sent,
		FailedBatch: out.FailedBatch,
	}
	if out.Err != nil {
		entry.Error = out.Err.Error()
	}
	if out.RollbackErr != nil {
		entry.RollbackError = out.RollbackErr.Error()
	}
	return entry
}

func actionIDs[A any](actions []A, id func(A) uuid.UUID) map[uuid.UUID]bool {
	set := make(map[uuid.UUID]bool, len(actions))
	for _, a := range actions {
		set[id(a)] = true
	}
	return set
}
