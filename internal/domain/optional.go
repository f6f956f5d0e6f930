package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Optional carries a field of a partial update. The zero value means the
// field was absent and must be left untouched. A present field is either a
// value or an explicit null.
//
// Decoding from JSON distinguishes the two: a missing key never calls
// UnmarshalJSON, so Set stays false; a literal null sets Set and Null.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns a present, non-null Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// NullOf returns a present Optional holding an explicit null.
func NullOf[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

// HasValue reports whether the field is present and not null.
func (o Optional[T]) HasValue() bool {
	return o.Set && !o.Null
}

// Or returns the carried value when present and not null, else fallback.
func (o Optional[T]) Or(fallback T) T {
	if o.HasValue() {
		return o.Value
	}
	return fallback
}

// Provided returns the trimmed text when the field is present, non-null and
// not blank. Absent, null and blank all mean "leave unchanged".
func Provided[S ~string](o Optional[S]) (S, bool) {
	if !o.HasValue() {
		return "", false
	}
	v := S(strings.TrimSpace(string(o.Value)))
	return v, v != ""
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.HasValue() {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}
