package parse

import (
	"math"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// RequestValue is the kiosk value used for assistance and emergency buttons.
const RequestValue = -1

const (
	minValue = RequestValue
	maxValue = 4
	maxSite  = '5'
)

// Type codes carried alongside RequestValue.
const (
	TypeAssistance = 0
	TypeEmergency  = 1
)

// timestamp layouts accepted for "at", most specific first.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-0700",
}

// Message is a RawMessage that passed validation.
type Message struct {
	At   time.Time
	Site byte
	Val  int
	// Type is set only when Val is RequestValue and the payload carried a type.
	Type *int
}

// Validate checks a RawMessage rule by rule and returns the first failure:
// presence of at/site/val, then site, then val, then type, then the timestamp.
func Validate(raw RawMessage) (Message, error) {
	for _, key := range []string{FieldAt, FieldSite, FieldVal} {
		if !raw.Has(key) {
			return Message{}, &ValidationError{Reason: ReasonMissingField, Field: key}
		}
	}

	site, ok := siteDigit(raw.Site)
	if !ok {
		return Message{}, &ValidationError{Reason: ReasonInvalidSite, Field: FieldSite, Detail: string(raw.Site)}
	}

	val, ok := integer(raw.Val)
	if !ok || val < minValue || val > maxValue {
		return Message{}, &ValidationError{Reason: ReasonInvalidValue, Field: FieldVal, Detail: string(raw.Val)}
	}

	msg := Message{Site: site, Val: val}

	if val == RequestValue && raw.Has(FieldType) {
		typ, ok := integer(raw.Type)
		if !ok || (typ != TypeAssistance && typ != TypeEmergency) {
			return Message{}, &ValidationError{Reason: ReasonInvalidType, Field: FieldType, Detail: string(raw.Type)}
		}
		msg.Type = &typ
	}

	at, ok := timestamp(raw.At)
	if !ok {
		return Message{}, &ValidationError{Reason: ReasonInvalidTimestamp, Field: FieldAt, Detail: string(raw.At)}
	}
	msg.At = at

	return msg, nil
}

func siteDigit(raw json.RawMessage) (byte, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	if len(s) != 1 || s[0] < '0' || s[0] > maxSite {
		return 0, false
	}
	return s[0], true
}

// integer accepts a JSON number equal to an integer, such as 4 or 4.0.
func integer(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 || raw[0] == '"' || raw[0] == 't' || raw[0] == 'f' || raw[0] == 'n' {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func timestamp(raw json.RawMessage) (time.Time, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
