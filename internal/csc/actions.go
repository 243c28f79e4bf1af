package csc

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// StructureActionType tags a structure edit.
type StructureActionType string

// Structure edit kinds.
const (
	StructureAdd    StructureActionType = "add"
	StructureRemove StructureActionType = "remove"
)

// StructureAction is a queued column edit. Add carries Field, remove carries Index.
type StructureAction struct {
	ID        uuid.UUID           `json:"id"`
	Type      StructureActionType `json:"type"`
	Field     *Field              `json:"field,omitempty"`
	Index     int                 `json:"index"`
	CreatedAt time.Time           `json:"createdAt"`
}

// RowActionType tags a row edit.
type RowActionType string

// Row edit kinds.
const (
	RowAdd    RowActionType = "add"
	RowUpdate RowActionType = "update"
	RowDelete RowActionType = "delete"
)

// RowAction is a queued data-grid edit.
type RowAction struct {
	ID        uuid.UUID      `json:"id"`
	Type      RowActionType  `json:"type"`
	RowID     string         `json:"rowId"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

func newStructureAction(kind StructureActionType, field *Field, index int) StructureAction {
	return StructureAction{ID: uuid.New(), Type: kind, Field: field, Index: index, CreatedAt: time.Now().UTC()}
}

func newRowAction(kind RowActionType, rowID string, payload map[string]any) RowAction {
	return RowAction{ID: uuid.New(), Type: kind, RowID: rowID, Payload: maps.Clone(payload), CreatedAt: time.Now().UTC()}
}
