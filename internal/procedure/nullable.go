package procedure

import (
	"bytes"
	"encoding/json"
)

// Nullable distinguishes an omitted JSON key (Set == false) from an explicit
// null (Set == true, Value == nil).
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// Null returns a present-but-null value.
func Null[T any]() Nullable[T] { return Nullable[T]{Set: true} }

// Of returns a present value.
func Of[T any](v T) Nullable[T] { return Nullable[T]{Set: true, Value: &v} }

// UnmarshalJSON is only invoked for keys present in the document.
func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// MarshalJSON renders the value or null.
func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}
