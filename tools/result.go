package tools

import (
	"bytes"
	"encoding/json"
	"slices"
)

// Status values of the result envelope.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusFailed  = "failed"
)

type field struct {
	key   string
	value any
}

// Result is the envelope every tool call returns:
// {"status": ..., "error": ..., <payload keys in insertion order>}.
type Result struct {
	Status string
	Error  string
	fields []field
}

// Success returns an empty success envelope.
func Success() Result {
	return Result{Status: StatusSuccess}
}

// Failure returns a failure envelope carrying err's message.
func Failure(err error) Result {
	return Result{Status: StatusFailure, Error: errorText(err)}
}

// Failed is Failure with the "failed" status used by post creation.
func Failed(err error) Result {
	return Result{Status: StatusFailed, Error: errorText(err)}
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// With returns a copy of r with key set to value. Setting an existing key
// replaces its value in place.
func (r Result) With(key string, value any) Result {
	fields := slices.Clone(r.fields)
	for i := range fields {
		if fields[i].key == key {
			fields[i].value = value
			r.fields = fields
			return r
		}
	}
	r.fields = append(fields, field{key: key, value: value})
	return r
}

// Value returns the payload value stored under key.
func (r Result) Value(key string) (any, bool) {
	for _, f := range r.fields {
		if f.key == key {
			return f.value, true
		}
	}
	return nil, false
}

// Keys returns the payload keys in insertion order.
func (r Result) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.key
	}
	return keys
}

// OK reports whether the call succeeded.
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// MarshalJSON encodes the envelope as a single object, status first.
func (r Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeKV := func(key string, value any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	if err := writeKV("status", r.Status); err != nil {
		return nil, err
	}
	if r.Error != "" {
		if err := writeKV("error", r.Error); err != nil {
			return nil, err
		}
	}
	for _, f := range r.fields {
		if f.key == "status" || f.key == "error" {
			continue
		}
		if err := writeKV(f.key, f.value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// JSON returns the envelope as a JSON string. Payload values that cannot be
// encoded turn the result into a failure envelope.
func (r Result) JSON() string {
	b, err := r.MarshalJSON()
	if err != nil {
		b, _ = Failure(err).MarshalJSON()
	}
	return string(b)
}
