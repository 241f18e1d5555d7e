package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CanonicalJSON encodes v so that equal values always produce equal bytes.
// Object keys are sorted at every depth; numbers keep their literal form.
// Values must be JSON-serializable.
func CanonicalJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}

	// encoding/json sorts map keys on output
	return json.Marshal(generic)
}

// StableKey builds a cache key from a function identity and its call
// arguments. Argument order is significant; key order inside maps and
// structs is not.
func StableKey(name string, args ...interface{}) (string, error) {
	if len(args) == 0 {
		return name, nil
	}

	encoded, err := CanonicalJSON(args)
	if err != nil {
		return "", fmt.Errorf("failed to serialize arguments for %s: %w", name, err)
	}

	return name + ":" + string(encoded), nil
}

// DecodeJSON decodes raw into a fresh value of type T.
func DecodeJSON[T any](raw []byte) (T, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

// CloneJSON returns a deep copy of v made by a JSON round-trip.
// Unexported fields and non-JSON types are not preserved.
func CloneJSON[T any](v T) (T, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		var zero T
		return zero, err
	}
	return DecodeJSON[T](raw)
}
