// Package consumer runs the live ingestion loop: poll the broker, then decode,
// validate, transform and route each message, one at a time.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"museum-stream-backend/config"
	"museum-stream-backend/internal/broker"
	"museum-stream-backend/internal/lookup"
	"museum-stream-backend/internal/metrics"
	"museum-stream-backend/internal/parse"
	"museum-stream-backend/internal/router"
)

const (
	closeTimeout = 5 * time.Second
	pingTimeout  = 5 * time.Second
)

// Drop reasons that are not validation rules.
const (
	reasonDecode        = "decode_error"
	reasonLookupMiss    = "lookup_miss"
	reasonLookupError   = "lookup_error"
	reasonNoDestination = "no_destination"
	reasonWrite         = "write_error"
)

// Source is the broker subscription.
type Source interface {
	Poll(ctx context.Context) (broker.Batch, error)
	Commit(msg broker.Message)
	Close(ctx context.Context) error
}

// Router writes a record to its destination table.
type Router interface {
	Route(ctx context.Context, rec parse.Record) (string, error)
}

// RatingRefresher loads the rating lookup.
type RatingRefresher interface {
	Refresh(ctx context.Context) (map[int]int64, error)
}

// Database is the connection pool the router writes through.
type Database interface {
	PingContext(ctx context.Context) error
	Close() error
}

// Deps are the collaborators a Service drives. DB is closed on shutdown.
type Deps struct {
	Source  Source
	Router  Router
	Ratings RatingRefresher
	DB      Database
	Log     zerolog.Logger
	// Echo receives one line per accepted message.
	Echo io.Writer
}

// Service owns the broker subscription and the database connection for the run.
type Service struct {
	cfg   *config.Config
	deps  Deps
	log   zerolog.Logger
	state atomic.Int32
}

// NewService creates the consumer. Nothing is started until Run.
func NewService(cfg *config.Config, deps Deps) *Service {
	if deps.Echo == nil {
		deps.Echo = io.Discard
	}
	return &Service{
		cfg:  cfg,
		deps: deps,
		log:  deps.Log.With().Str("component", "consumer").Str("topic", cfg.Broker.Topic).Logger(),
	}
}

// Run consumes until ctx is cancelled, which returns nil after the
// subscription and connection are closed. A fatal broker or database error
// is returned after the same cleanup.
func (s *Service) Run(ctx context.Context) (err error) {
	s.setState(StateStarting)
	defer func() {
		s.release()
		if err != nil {
			s.setState(StateCrashed)
			s.log.Error().Err(err).Msg("consumer crashed")
			return
		}
		s.setState(StateStopped)
	}()

	ratings, err := s.deps.Ratings.Refresh(ctx)
	if err != nil {
		if ctx.Err() != nil {
			s.setState(StateDraining)
			return nil
		}
		return fmt.Errorf("load rating lookup: %w", err)
	}
	s.log.Info().Int("ratings", len(ratings)).Msg("rating lookup loaded")

	s.setState(StateRunning)
	for {
		if ctx.Err() != nil {
			s.setState(StateDraining)
			return nil
		}

		batch, err := s.deps.Source.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.setState(StateDraining)
				return nil
			}
			return fmt.Errorf("poll: %w", err)
		}

		for _, fe := range batch.Errors {
			metrics.BrokerErrors.Inc()
			s.log.Error().Err(fe.Err).Str("fetch_topic", fe.Topic).Int32("partition", fe.Partition).Msg("broker error")
		}

		for _, msg := range batch.Messages {
			if ctx.Err() != nil {
				s.setState(StateDraining)
				return nil
			}
			// The in-flight message either commits fully or is never written.
			if err := s.Handle(context.WithoutCancel(ctx), msg); err != nil {
				return err
			}
			s.deps.Source.Commit(msg)
		}
	}
}

func (s *Service) release() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	if err := s.deps.Source.Close(ctx); err != nil {
		s.log.Warn().Err(err).Msg("closing broker subscription")
	} else {
		s.log.Info().Msg("broker subscription closed")
	}
	if s.deps.DB == nil {
		return
	}
	if err := s.deps.DB.Close(); err != nil {
		s.log.Warn().Err(err).Msg("closing database connection")
	} else {
		s.log.Info().Msg("database connection closed")
	}
}

// Handle processes one message. Only fatal errors are returned; every other
// failure is logged and the message is dropped.
func (s *Service) Handle(ctx context.Context, msg broker.Message) error {
	metrics.MessagesReceived.Inc()
	start := time.Now()

	raw, err := parse.Decode(msg.Value)
	if err != nil {
		s.reject(msg, reasonDecode, err).Msg("message dropped")
		return nil
	}

	valid, err := parse.Validate(raw)
	if err != nil {
		var vErr *parse.ValidationError
		reason := "invalid"
		if errors.As(err, &vErr) {
			reason = string(vErr.Reason)
		}
		s.reject(msg, reason, err).Msg("message dropped")
		return nil
	}

	rec := parse.Transform(valid)

	table, err := s.deps.Router.Route(ctx, rec)
	if err != nil {
		return s.routeFailed(ctx, msg, rec, err)
	}

	metrics.RowsWritten.WithLabelValues(table).Inc()
	metrics.MessageDuration.Observe(float64(time.Since(start).Microseconds()) / 1000)
	fmt.Fprintf(s.deps.Echo, "%s table=%s\n", rec, table)
	return nil
}

func (s *Service) routeFailed(ctx context.Context, msg broker.Message, rec parse.Record, err error) error {
	var writeErr *router.WriteError
	switch {
	case errors.Is(err, router.ErrNoDestination):
		s.reject(msg, reasonNoDestination, err).Str("record", rec.String()).Msg("message dropped")
	case errors.Is(err, lookup.ErrRatingNotFound):
		s.rejectLevel(zerolog.ErrorLevel, msg, reasonLookupMiss, err).Str("record", rec.String()).Msg("reference data missing, message dropped")
	case router.IsFatal(err):
		return fmt.Errorf("database unusable: %w", err)
	case errors.As(err, &writeErr):
		if pingErr := s.ping(ctx); pingErr != nil {
			return fmt.Errorf("database unusable after %w: %w", err, pingErr)
		}
		s.rejectLevel(zerolog.ErrorLevel, msg, reasonWrite, err).Str("table", writeErr.Table).Str("record", rec.String()).Msg("write failed, message dropped")
	default:
		s.rejectLevel(zerolog.ErrorLevel, msg, reasonLookupError, err).Str("record", rec.String()).Msg("rating lookup failed, message dropped")
	}
	return nil
}

// ping checks that a failed write was about the row and not the connection.
func (s *Service) ping(ctx context.Context) error {
	if s.deps.DB == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return s.deps.DB.PingContext(ctx)
}

func (s *Service) reject(msg broker.Message, reason string, err error) *zerolog.Event {
	return s.rejectLevel(zerolog.WarnLevel, msg, reason, err)
}

func (s *Service) rejectLevel(level zerolog.Level, msg broker.Message, reason string, err error) *zerolog.Event {
	metrics.MessagesRejected.WithLabelValues(reason).Inc()
	return s.log.WithLevel(level).
		Err(err).
		Str("reason", reason).
		Int32("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Bytes("payload", msg.Value)
}
