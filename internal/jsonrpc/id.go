package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// RequestID is a JSON-RPC id that may be a string or a number. Responses
// must echo the id exactly as received, so the raw JSON form is preserved.
type RequestID struct {
	raw json.RawMessage
}

// NewRequestID builds a RequestID from a string or integer value.
func NewRequestID(value any) *RequestID {
	b, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	return &RequestID{raw: b}
}

// String renders the id for logging. String ids are returned without quotes.
func (id *RequestID) String() string {
	if id == nil || len(id.raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(id.raw, &s); err == nil {
		return s
	}
	return string(id.raw)
}

// MarshalJSON implements json.Marshaler.
func (id RequestID) MarshalJSON() ([]byte, error) {
	if len(id.raw) == 0 {
		return []byte("null"), nil
	}
	return id.raw, nil
}

// UnmarshalJSON implements json.Unmarshaler. Only strings, numbers, and
// null are accepted per the JSON-RPC 2.0 spec.
func (id *RequestID) UnmarshalJSON(data []byte) error {
	var probe any
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	switch probe.(type) {
	case string, float64, nil:
		id.raw = append(json.RawMessage(nil), data...)
		return nil
	default:
		return fmt.Errorf("jsonrpc: id must be a string or number, got %T", probe)
	}
}
