package parse

import (
	"errors"
	"fmt"
)

// Payload keys.
const (
	FieldAt   = "at"
	FieldSite = "site"
	FieldVal  = "val"
	FieldType = "type"
)

// Reason identifies which validation rule rejected a message.
type Reason string

const (
	ReasonMissingField     Reason = "missing_field"
	ReasonInvalidSite      Reason = "invalid_site"
	ReasonInvalidValue     Reason = "invalid_value"
	ReasonInvalidType      Reason = "invalid_type"
	ReasonInvalidTimestamp Reason = "invalid_timestamp"
)

var (
	errInvalidUTF8 = errors.New("payload is not valid UTF-8")
	errNotObject   = errors.New("payload is not a JSON object")
)

// ValidationError reports the first rule a RawMessage failed.
type ValidationError struct {
	Reason Reason
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Reason, e.Field)
	}
	return fmt.Sprintf("%s: %s: %s", e.Reason, e.Field, e.Detail)
}

// Is lets callers match on the reason alone, e.g.
// errors.Is(err, &ValidationError{Reason: ReasonInvalidSite}).
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	if !ok {
		return false
	}
	return t.Reason == e.Reason && (t.Field == "" || t.Field == e.Field)
}
