// Package parse turns kiosk payloads from the broker into typed records.
//
// Decode is the only place untyped input is accepted. Validate converts a
// RawMessage into a Message or reports the first rule it breaks, and
// Transform maps a Message onto the database's identifiers and formats.
package parse

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

// RawMessage is a decoded payload before validation. A field is present
// when its raw JSON is non-empty; an explicit null counts as present.
type RawMessage struct {
	At   json.RawMessage `json:"at"`
	Site json.RawMessage `json:"site"`
	Val  json.RawMessage `json:"val"`
	Type json.RawMessage `json:"type"`

	payload []byte
}

// Has reports whether the named key was present in the payload.
func (m RawMessage) Has(key string) bool {
	switch key {
	case FieldAt:
		return len(m.At) > 0
	case FieldSite:
		return len(m.Site) > 0
	case FieldVal:
		return len(m.Val) > 0
	case FieldType:
		return len(m.Type) > 0
	}
	return false
}

// String returns the payload as received, for logging.
func (m RawMessage) String() string {
	return string(m.payload)
}

// Decode parses a broker payload: UTF-8 text holding one JSON object.
func Decode(payload []byte) (RawMessage, error) {
	if !utf8.Valid(payload) {
		return RawMessage{payload: payload}, &DecodeError{Payload: payload, Err: errInvalidUTF8}
	}
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return RawMessage{payload: payload}, &DecodeError{Payload: payload, Err: errNotObject}
	}

	msg := RawMessage{payload: payload}
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		return RawMessage{payload: payload}, &DecodeError{Payload: payload, Err: err}
	}
	return msg, nil
}

// DecodeError is returned when a payload is not a UTF-8 JSON object.
type DecodeError struct {
	Payload []byte
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode payload: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
