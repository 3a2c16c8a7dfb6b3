// Package notification pushes committed assistance and emergency requests to
// subscribed staff devices.
package notification

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"museum-stream-backend/internal/metrics"
	"museum-stream-backend/internal/model"
	"museum-stream-backend/internal/parse"
	"museum-stream-backend/internal/router"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// SubscriptionStore is the part of the store the pool reads and prunes.
type SubscriptionStore interface {
	StaffSubscriptions(ctx context.Context, kind string) ([]model.StaffSubscription, error)
	DeleteStaffSubscription(ctx context.Context, endpoint string) error
}

// Payload is the JSON body delivered to staff devices.
type Payload struct {
	Title      string `json:"title"`
	Body       string `json:"body"`
	Kind       string `json:"kind"`
	Exhibition string `json:"exhibition"`
	At         string `json:"at"`
}

// WorkerPool manages a pool of workers for sending staff alerts.
type WorkerPool struct {
	size    int
	jobs    chan router.Alert
	store   SubscriptionStore
	webpush *webpush.Options
	sender  NotificationSender
	log     zerolog.Logger
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewWorkerPool creates a new worker pool with a queue of queueSize alerts.
func NewWorkerPool(size, queueSize int, s SubscriptionStore, webpushOptions *webpush.Options, log zerolog.Logger) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan router.Alert, queueSize),
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     log.With().Str("component", "notification").Logger(),
	}
}

// Start launches the worker goroutines. They exit when ctx is done or, after
// Close, once the queue is empty.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Wait blocks until every worker has exited.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	wp.log.Debug().Int("worker", id).Msg("worker started")
	for {
		select {
		case alert, ok := <-wp.jobs:
			if !ok {
				wp.log.Debug().Int("worker", id).Msg("queue drained")
				return
			}
			wp.sendAlert(ctx, alert)
		case <-ctx.Done():
			wp.log.Debug().Int("worker", id).Msg("worker shutting down")
			return
		}
	}
}

// Dispatch queues an alert without blocking. It reports false when the queue
// is full and the alert was dropped.
func (wp *WorkerPool) Dispatch(alert router.Alert) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		metrics.AlertsDispatched.WithLabelValues(alert.Kind.String(), "dropped").Inc()
		wp.log.Warn().Str("kind", alert.Kind.String()).Str("exhibition", alert.ExhibitionID).Msg("alert pool closed, alert dropped")
		return false
	}
	select {
	case wp.jobs <- alert:
		return true
	default:
		metrics.AlertsDispatched.WithLabelValues(alert.Kind.String(), "dropped").Inc()
		wp.log.Warn().Str("kind", alert.Kind.String()).Str("exhibition", alert.ExhibitionID).Msg("alert queue full, alert dropped")
		return false
	}
}

// Close stops accepting alerts. Workers finish what is queued, then exit.
func (wp *WorkerPool) Close() {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if !wp.closed {
		wp.closed = true
		close(wp.jobs)
	}
}

func (wp *WorkerPool) sendAlert(ctx context.Context, alert router.Alert) {
	kind := alert.Kind.String()
	subs, err := wp.store.StaffSubscriptions(ctx, kind)
	if err != nil {
		wp.log.Error().Err(err).Str("kind", kind).Msg("error fetching staff subscriptions")
		return
	}
	if len(subs) == 0 {
		return
	}

	payload, err := json.Marshal(newPayload(alert))
	if err != nil {
		wp.log.Error().Err(err).Msg("error encoding alert payload")
		return
	}

	wp.log.Info().Str("kind", kind).Str("exhibition", alert.ExhibitionID).Int("devices", len(subs)).Msg("sending staff alert")
	for _, sub := range subs {
		wp.sendNotification(ctx, sub, kind, payload)
	}
}

func newPayload(alert router.Alert) Payload {
	title := "Assistance requested"
	if alert.Kind == parse.KindEmergency {
		title = "Emergency"
	}
	return Payload{
		Title:      title,
		Body:       fmt.Sprintf("%s at %s", alert.ExhibitionID, alert.At),
		Kind:       alert.Kind.String(),
		Exhibition: alert.ExhibitionID,
		At:         alert.At,
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.StaffSubscription, kind string, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		metrics.AlertsDispatched.WithLabelValues(kind, "failed").Inc()
		wp.log.Error().Err(err).Str("endpoint", sub.Endpoint).Msg("error sending notification")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		metrics.AlertsDispatched.WithLabelValues(kind, "expired").Inc()
		wp.log.Info().Str("endpoint", sub.Endpoint).Msg("subscription expired, deleting")
		if err := wp.store.DeleteStaffSubscription(ctx, sub.Endpoint); err != nil {
			wp.log.Error().Err(err).Str("endpoint", sub.Endpoint).Msg("failed to delete expired subscription")
		}
		return
	}
	metrics.AlertsDispatched.WithLabelValues(kind, "sent").Inc()
}
