package csc

import (
	"context"
	"fmt"
)

func rowSteps(backend Backend, ref DraftRef, batches []RowBatch) []Step {
	steps := make([]Step, 0, len(batches))
	for _, batch := range batches {
		step := Step{Name: string(batch.Type)}
		switch batch.Type {
		case RowAdd:
			rows := AddRowsPayload(batch)
			step.Send = func(ctx context.Context) error { return backend.AddRows(ctx, ref, rows) }
		case RowUpdate:
			rows := UpdateRowsPayload(batch)
			step.Send = func(ctx context.Context) error { return backend.UpdateRows(ctx, ref, rows) }
		case RowDelete:
			ids := DeleteRowsPayload(batch)
			step.Send = func(ctx context.Context) error { return backend.DeleteRows(ctx, ref, ids) }
		default:
			step.Send = unknownBatch(string(batch.Type))
		}
		steps = append(steps, step)
	}
	return steps
}

func structureSteps(backend Backend, ref DraftRef, batches []StructureBatch) []Step {
	steps := make([]Step, 0, len(batches))
	for _, batch := range batches {
		step := Step{Name: string(batch.Type)}
		switch batch.Type {
		case StructureAdd:
			fields := AddColumnsPayload(batch)
			step.Send = func(ctx context.Context) error { return backend.AddColumns(ctx, ref, fields) }
		case StructureRemove:
			indexes := RemoveColumnsPayload(batch)
			step.Send = func(ctx context.Context) error { return backend.RemoveColumns(ctx, ref, indexes) }
		default:
			step.Send = unknownBatch(string(batch.Type))
		}
		steps = append(steps, step)
	}
	return steps
}

func unknownBatch(kind string) func(context.Context) error {
	return func(context.Context) error {
		return fmt.Errorf("csc: unknown batch type %q", kind)
	}
}
