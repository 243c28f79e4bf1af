// Package csc manages edits to code-list drafts: queued structure and row actions,
// batching and the save saga that sends them to the code-list backend.
package csc

// Column types accepted by the backend.
const (
	FieldString  = "string"
	FieldNumber  = "number"
	FieldDate    = "date"
	FieldBoolean = "boolean"
)

// Validation is one rule attached to a column.
type Validation struct {
	Type  string `json:"type" validate:"required,oneof=required min max length regex"`
	Value string `json:"value,omitempty" validate:"max=256"`
}

// Field describes a code-list column.
type Field struct {
	Index        int          `json:"index" validate:"gte=0"`
	Name         string       `json:"name" validate:"required,max=128"`
	Code         string       `json:"code" validate:"omitempty,max=64"`
	Type         string       `json:"type" validate:"required,oneof=string number date boolean"`
	DefaultValue string       `json:"defaultValue,omitempty" validate:"max=256"`
	Validations  []Validation `json:"validations,omitempty" validate:"omitempty,dive"`
}

func (f Field) clone() Field {
	if f.Validations != nil {
		f.Validations = append([]Validation(nil), f.Validations...)
	}
	return f
}
