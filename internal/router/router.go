// Package router picks the destination table for a normalized record and
// writes it, one committed transaction per record.
package router

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"museum-stream-backend/internal/model"
	"museum-stream-backend/internal/parse"
)

// Destination tables.
const (
	TableVote       = "vote"
	TableAssistance = "assistance"
	TableEmergency  = "emergency"
)

// ErrNoDestination is returned for a request that carries no kind.
var ErrNoDestination = errors.New("no destination table for request without type")

// WriteError wraps a failed insert.
type WriteError struct {
	Table string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("insert into %s: %v", e.Table, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// IsFatal reports whether err means the database connection is gone for good.
func IsFatal(err error) bool {
	var connectErr *pgconn.ConnectError
	return errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.As(err, &connectErr)
}

// RatingLookup resolves a kiosk rating value to its RatingID.
type RatingLookup interface {
	RatingID(ctx context.Context, value int) (int64, error)
}

// Writer performs the three parameterized inserts.
type Writer interface {
	InsertVote(ctx context.Context, vote *model.Vote) error
	InsertAssistance(ctx context.Context, req *model.Assistance) error
	InsertEmergency(ctx context.Context, req *model.Emergency) error
}

// Alerter is told about requests once they are committed.
type Alerter interface {
	Dispatch(alert Alert) bool
}

// Alert describes a committed assistance or emergency request.
type Alert struct {
	Kind         parse.Kind
	ExhibitionID string
	At           string
}

// Router routes records to their table.
type Router struct {
	ratings RatingLookup
	writer  Writer
	alerter Alerter
}

// New creates a Router. alerter may be nil.
func New(ratings RatingLookup, writer Writer, alerter Alerter) *Router {
	return &Router{ratings: ratings, writer: writer, alerter: alerter}
}

// Route writes rec to the table chosen by (Value, Kind) and returns that table.
// Lookup misses come back unwrapped so callers can tell them from write failures.
func (r *Router) Route(ctx context.Context, rec parse.Record) (string, error) {
	at := rec.Time()

	if !rec.IsRequest() {
		ratingID, err := r.ratings.RatingID(ctx, rec.Value)
		if err != nil {
			return TableVote, err
		}
		vote := &model.Vote{ExhibitionID: rec.ExhibitionID, VoteTime: at, RatingID: ratingID}
		if err := r.writer.InsertVote(ctx, vote); err != nil {
			return TableVote, &WriteError{Table: TableVote, Err: err}
		}
		return TableVote, nil
	}

	switch rec.Kind {
	case parse.KindAssistance:
		req := &model.Assistance{ExhibitionID: rec.ExhibitionID, AssistanceTime: at}
		if err := r.writer.InsertAssistance(ctx, req); err != nil {
			return TableAssistance, &WriteError{Table: TableAssistance, Err: err}
		}
		r.alert(rec, at)
		return TableAssistance, nil
	case parse.KindEmergency:
		req := &model.Emergency{ExhibitionID: rec.ExhibitionID, EmergencyTime: at}
		if err := r.writer.InsertEmergency(ctx, req); err != nil {
			return TableEmergency, &WriteError{Table: TableEmergency, Err: err}
		}
		r.alert(rec, at)
		return TableEmergency, nil
	}
	return "", ErrNoDestination
}

func (r *Router) alert(rec parse.Record, at string) {
	if r.alerter == nil {
		return
	}
	r.alerter.Dispatch(Alert{Kind: rec.Kind, ExhibitionID: rec.ExhibitionID, At: at})
}
