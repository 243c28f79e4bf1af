package csc

import "slices"

// StructureQueue accumulates column edits for one draft.
type StructureQueue struct {
	Items []StructureAction `json:"items"`
}

// AddColumn queues an add for field.Index, replacing any add already queued for it.
func (q *StructureQueue) AddColumn(field Field) StructureAction {
	q.Items = slices.DeleteFunc(q.Items, func(a StructureAction) bool {
		return a.Type == StructureAdd && a.Field != nil && a.Field.Index == field.Index
	})
	f := field.clone()
	action := newStructureAction(StructureAdd, &f, field.Index)
	q.Items = append(q.Items, action)
	return action
}

// UpdateAction refines a queued add in place. Columns without a pending add are left alone.
func (q *StructureQueue) UpdateAction(index int, code, defaultValue string, validations []Validation) bool {
	for i := range q.Items {
		a := &q.Items[i]
		if a.Type != StructureAdd || a.Field == nil || a.Field.Index != index {
			continue
		}
		a.Field.Code = code
		a.Field.DefaultValue = defaultValue
		a.Field.Validations = append([]Validation(nil), validations...)
		return true
	}
	return false
}

// RemoveColumns queues one remove per index. Pending adds for the same index stay queued.
func (q *StructureQueue) RemoveColumns(indexes ...int) {
	for _, index := range indexes {
		q.Items = append(q.Items, newStructureAction(StructureRemove, nil, index))
	}
}

// Actions returns a copy of the queue in insertion order.
func (q *StructureQueue) Actions() []StructureAction {
	return slices.Clone(q.Items)
}

// Len reports the number of queued actions.
func (q *StructureQueue) Len() int {
	return len(q.Items)
}

// Reset empties the queue.
func (q *StructureQueue) Reset() {
	q.Items = nil
}

// RowQueue accumulates data-grid edits for one draft.
type RowQueue struct {
	Items []RowAction `json:"items"`
}

// Add queues a new row.
func (q *RowQueue) Add(rowID string, payload map[string]any) RowAction {
	action := newRowAction(RowAdd, rowID, payload)
	q.Items = append(q.Items, action)
	return action
}

// Update queues changed values of a row.
func (q *RowQueue) Update(rowID string, payload map[string]any) RowAction {
	action := newRowAction(RowUpdate, rowID, payload)
	q.Items = append(q.Items, action)
	return action
}

// Delete queues a row removal.
func (q *RowQueue) Delete(rowID string) RowAction {
	action := newRowAction(RowDelete, rowID, nil)
	q.Items = append(q.Items, action)
	return action
}

// Actions returns a copy of the queue in insertion order.
func (q *RowQueue) Actions() []RowAction {
	return slices.Clone(q.Items)
}

// Len reports the number of queued actions.
func (q *RowQueue) Len() int {
	return len(q.Items)
}

// Reset empties the queue.
func (q *RowQueue) Reset() {
	q.Items = nil
}
