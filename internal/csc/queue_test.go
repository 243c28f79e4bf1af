package csc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddColumnReplacesQueuedAdd(t *testing.T) {
	var q StructureQueue
	q.AddColumn(Field{Index: 1, Name: "A", Type: FieldString})
	q.AddColumn(Field{Index: 2, Name: "Other", Type: FieldString})
	q.AddColumn(Field{Index: 1, Name: "B", Type: FieldString})

	var forOne []StructureAction
	for _, a := range q.Actions() {
		if a.Type == StructureAdd && a.Field.Index == 1 {
			forOne = append(forOne, a)
		}
	}
	require.Len(t, forOne, 1)
	assert.Equal(t, "B", forOne[0].Field.Name)
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, 2, q.Actions()[0].Field.Index)
}

func TestUpdateActionRefinesQueuedAdd(t *testing.T) {
	var q StructureQueue
	q.AddColumn(Field{Index: 3, Name: "Amount", Type: FieldNumber})

	ok := q.UpdateAction(3, "AMT", "0", []Validation{{Type: "min", Value: "0"}})
	require.True(t, ok)
	f := q.Actions()[0].Field
	assert.Equal(t, "AMT", f.Code)
	assert.Equal(t, "0", f.DefaultValue)
	assert.Equal(t, []Validation{{Type: "min", Value: "0"}}, f.Validations)
	assert.Equal(t, "Amount", f.Name)
}

func TestUpdateActionWithoutQueuedAddIsNoop(t *testing.T) {
	var q StructureQueue
	q.RemoveColumns(3)
	assert.False(t, q.UpdateAction(3, "X", "", nil))
	assert.False(t, q.UpdateAction(7, "X", "", nil))
	assert.Equal(t, 1, q.Len())
}

func TestRemoveColumnsDoesNotCancelAdd(t *testing.T) {
	var q StructureQueue
	q.AddColumn(Field{Index: 5, Name: "Tmp", Type: FieldString})
	q.RemoveColumns(5, 6)

	actions := q.Actions()
	require.Len(t, actions, 3)
	assert.Equal(t, StructureAdd, actions[0].Type)
	assert.Equal(t, StructureRemove, actions[1].Type)
	assert.Equal(t, 5, actions[1].Index)
	assert.Equal(t, 6, actions[2].Index)
}

func TestQueueActionsAreCopies(t *testing.T) {
	var q RowQueue
	q.Add("r1", nil)
	actions := q.Actions()
	actions[0].RowID = "changed"
	assert.Equal(t, "r1", q.Items[0].RowID)

	q.Reset()
	assert.Zero(t, q.Len())
	assert.Empty(t, q.Actions())
}

func TestRowQueueClonesPayload(t *testing.T) {
	var q RowQueue
	payload := map[string]any{"name": "x"}
	q.Update("r1", payload)
	payload["name"] = "mutated"
	assert.Equal(t, "x", q.Items[0].Payload["name"])
}
