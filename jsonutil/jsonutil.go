// Package jsonutil holds JSON helpers for code outside the event envelope.
// Every failure wraps errors.ErrSerializationFailed.
package jsonutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"

	berr "github.com/next-trace/scg-contracts/contract/errors"
)

// api is encoding/json compatible: sorted map keys, HTML escaping, unknown fields ignored.
var api = sonic.ConfigStd

// ToJSON encodes v as a string.
func ToJSON(v any) (string, error) {
	b, err := ToBytes(v)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// ToPrettyJSON encodes v indented by two spaces.
func ToPrettyJSON(v any) (string, error) {
	b, err := api.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", wrap("encode", err)
	}

	return string(b), nil
}

// ToBytes encodes v.
func ToBytes(v any) ([]byte, error) {
	b, err := api.Marshal(v)
	if err != nil {
		return nil, wrap("encode", err)
	}

	return b, nil
}

// FromJSON decodes s into a new T.
func FromJSON[T any](s string) (T, error) { return FromBytes[T]([]byte(s)) }

// FromBytes decodes data into a new T.
func FromBytes[T any](data []byte) (T, error) {
	var v T
	if err := api.Unmarshal(data, &v); err != nil {
		var zero T
		return zero, wrap("decode", err)
	}

	return v, nil
}

// ToMap decodes a JSON object.
func ToMap(s string) (map[string]any, error) { return FromJSON[map[string]any](s) }

// Convert re-encodes src as a T, e.g. a map into a struct.
func Convert[T any](src any) (T, error) {
	b, err := ToBytes(src)
	if err != nil {
		var zero T
		return zero, err
	}

	return FromBytes[T](b)
}

// IsValid reports whether s is non-blank, well-formed JSON.
func IsValid(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}

	return api.Valid([]byte(s))
}

// ToJSONOr encodes v, returning fallback on failure.
func ToJSONOr(v any, fallback string) string {
	s, err := ToJSON(v)
	if err != nil {
		return fallback
	}

	return s
}

// FromJSONOK decodes s, reporting success instead of an error.
func FromJSONOK[T any](s string) (T, bool) {
	v, err := FromJSON[T](s)
	return v, err == nil
}

func wrap(op string, err error) error {
	return fmt.Errorf("json %s: %w", op, errors.Join(berr.ErrSerializationFailed, err))
}
