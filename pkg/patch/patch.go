// Package patch provides tri-state fields for partial updates, so a request
// can distinguish "field omitted" from "field explicitly cleared".
package patch

import (
	"bytes"
	"encoding/json"
)

// Field wraps a value that may be absent, null, or set in a JSON document.
// The zero value means the field was not present in the payload.
type Field[T any] struct {
	Present bool
	Null    bool
	Value   T
}

var nullBytes = []byte("null")

func (f *Field[T]) UnmarshalJSON(b []byte) error {
	f.Present = true
	if bytes.Equal(b, nullBytes) {
		f.Null = true
		return nil
	}
	return json.Unmarshal(b, &f.Value)
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Present || f.Null {
		return nullBytes, nil
	}
	return json.Marshal(f.Value)
}

// IsSet reports the field carried an actual value.
func (f Field[T]) IsSet() bool { return f.Present && !f.Null }

// IsClear reports the field was present as an explicit null.
func (f Field[T]) IsClear() bool { return f.Present && f.Null }

// Set builds a present field carrying v.
func Set[T any](v T) Field[T] {
	return Field[T]{Present: true, Value: v}
}

// Clear builds a present field carrying an explicit null.
func Clear[T any]() Field[T] {
	return Field[T]{Present: true, Null: true}
}
