package parse

import (
	"fmt"
	"time"
)

// TimeLayout is the MM/DD/YY HH:MM:SS text form the database expects.
const TimeLayout = "01/02/06 15:04:05"

// Kind sub-classifies a request (val == -1).
type Kind int

const (
	KindNone Kind = iota
	KindAssistance
	KindEmergency
)

func (k Kind) String() string {
	switch k {
	case KindAssistance:
		return "assistance"
	case KindEmergency:
		return "emergency"
	}
	return "none"
}

// Record is a validated message mapped onto database identifiers.
type Record struct {
	Timestamp    time.Time
	ExhibitionID string
	Value        int
	Kind         Kind
}

// IsRequest reports whether the record is an assistance/emergency request rather than a vote.
func (r Record) IsRequest() bool {
	return r.Value == RequestValue
}

// Time returns the timestamp in TimeLayout.
func (r Record) Time() string {
	return r.Timestamp.Format(TimeLayout)
}

func (r Record) String() string {
	if r.IsRequest() {
		return fmt.Sprintf("at=%s exhibition=%s val=%d kind=%s", r.Time(), r.ExhibitionID, r.Value, r.Kind)
	}
	return fmt.Sprintf("at=%s exhibition=%s val=%d", r.Time(), r.ExhibitionID, r.Value)
}

// ExhibitionID maps a site digit onto the Exhibition table key.
func ExhibitionID(site byte) string {
	return "EXH_0" + string(site)
}

// Transform maps a validated Message onto a Record. It cannot fail.
func Transform(msg Message) Record {
	rec := Record{
		Timestamp:    msg.At.UTC(),
		ExhibitionID: ExhibitionID(msg.Site),
		Value:        msg.Val,
		Kind:         KindNone,
	}
	if msg.Val == RequestValue && msg.Type != nil {
		switch *msg.Type {
		case TypeAssistance:
			rec.Kind = KindAssistance
		case TypeEmergency:
			rec.Kind = KindEmergency
		}
	}
	return rec
}
