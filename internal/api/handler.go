package api

import (
	"context"

	"github.com/SherClockHolmes/webpush-go"

	"museum-stream-backend/internal/consumer"
	"museum-stream-backend/internal/model"
	"museum-stream-backend/internal/store"
)

// StateSource reports the consumer lifecycle state.
type StateSource interface {
	State() consumer.State
}

// RatingView exposes the rating lookup cache.
type RatingView interface {
	Snapshot(ctx context.Context) ([]model.Rating, error)
	Refresh(ctx context.Context) (map[int]int64, error)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	ratings RatingView
	state   StateSource
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, ratings RatingView, state StateSource, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:   s,
		ratings: ratings,
		state:   state,
		webpush: webpushOptions,
	}
}
