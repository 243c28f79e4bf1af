package csc

import (
	"fmt"
	"time"

	"github.com/odyssey-erp/odyssey-admin/internal/state"
)

// Session is the persisted edit state of one user on one draft.
type Session struct {
	ID         string         `json:"id"`
	UserID     int64          `json:"userId"`
	CodeListID string         `json:"codeListId"`
	DraftID    string         `json:"draftId"`
	Structure  StructureQueue `json:"structure"`
	Rows       RowQueue       `json:"rows"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// Ref returns the draft the session edits.
func (s Session) Ref() DraftRef {
	return DraftRef{CodeListID: s.CodeListID, DraftID: s.DraftID}
}

// Pending reports whether any edit is queued.
func (s Session) Pending() bool {
	return s.Structure.Len() > 0 || s.Rows.Len() > 0
}

// SessionStore persists sessions in client state.
type SessionStore = state.Store[Session]

// NewSessionStore builds the typed state store for edit sessions.
func NewSessionStore(manager *state.Manager) *SessionStore {
	return state.NewStore[Session](manager, "csc", nil)
}

// SessionKey scopes an edit session to a user and a draft.
func SessionKey(userID int64, ref DraftRef) string {
	return fmt.Sprintf("%d:%s:%s", userID, ref.CodeListID, ref.DraftID)
}
