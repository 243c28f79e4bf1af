package csc

import "maps"

// Batch is a run of consecutive actions sharing one type.
type Batch[K comparable, A any] struct {
	Type    K   `json:"type"`
	Actions []A `json:"actions"`
}

// RowBatch groups consecutive row actions.
type RowBatch = Batch[RowActionType, RowAction]

// StructureBatch groups consecutive structure actions.
type StructureBatch = Batch[StructureActionType, StructureAction]

// GroupActions splits actions into contiguous runs, starting a new batch whenever the
// type changes. Same-type actions separated by another type stay in separate batches.
func GroupActions[K comparable, A any](actions []A, kindOf func(A) K) []Batch[K, A] {
	var batches []Batch[K, A]
	for _, action := range actions {
		kind := kindOf(action)
		if n := len(batches); n > 0 && batches[n-1].Type == kind {
			batches[n-1].Actions = append(batches[n-1].Actions, action)
			continue
		}
		batches = append(batches, Batch[K, A]{Type: kind, Actions: []A{action}})
	}
	return batches
}

// GroupRowActions batches row edits in queue order.
func GroupRowActions(actions []RowAction) []RowBatch {
	return GroupActions(actions, func(a RowAction) RowActionType { return a.Type })
}

// GroupStructureActions batches structure edits in queue order.
func GroupStructureActions(actions []StructureAction) []StructureBatch {
	return GroupActions(actions, func(a StructureAction) StructureActionType { return a.Type })
}

// AddRowsPayload returns the rows of an add batch, each carrying its row id.
func AddRowsPayload(b RowBatch) []map[string]any {
	rows := make([]map[string]any, 0, len(b.Actions))
	for _, a := range b.Actions {
		row := maps.Clone(a.Payload)
		if row == nil {
			row = make(map[string]any, 1)
		}
		if a.RowID != "" {
			row["id"] = a.RowID
		}
		rows = append(rows, row)
	}
	return rows
}

// UpdateRowsPayload keys an update batch by row id. Later edits of the same row
// overwrite earlier values column by column.
func UpdateRowsPayload(b RowBatch) map[string]map[string]any {
	out := make(map[string]map[string]any, len(b.Actions))
	for _, a := range b.Actions {
		values, ok := out[a.RowID]
		if !ok {
			values = make(map[string]any, len(a.Payload))
			out[a.RowID] = values
		}
		maps.Copy(values, a.Payload)
	}
	return out
}

// DeleteRowsPayload lists the row ids of a delete batch.
func DeleteRowsPayload(b RowBatch) []string {
	ids := make([]string, 0, len(b.Actions))
	for _, a := range b.Actions {
		ids = append(ids, a.RowID)
	}
	return ids
}

// AddColumnsPayload collects the field definitions of an add batch.
func AddColumnsPayload(b StructureBatch) []Field {
	fields := make([]Field, 0, len(b.Actions))
	for _, a := range b.Actions {
		if a.Field != nil {
			fields = append(fields, a.Field.clone())
		}
	}
	return fields
}

// RemoveColumnsPayload collects the column indexes of a remove batch.
func RemoveColumnsPayload(b StructureBatch) []int {
	indexes := make([]int, 0, len(b.Actions))
	for _, a := range b.Actions {
		indexes = append(indexes, a.Index)
	}
	return indexes
}
