package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kiosk_messages_received_total",
		Help: "Total number of messages read from the broker.",
	})

	MessagesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiosk_messages_rejected_total",
		Help: "Total number of messages dropped, labelled by reason.",
	}, []string{"reason"})

	RowsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiosk_rows_written_total",
		Help: "Total number of rows committed, labelled by table.",
	}, []string{"table"})

	BrokerErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kiosk_broker_errors_total",
		Help: "Total number of non-fatal errors reported while polling the broker.",
	})

	AlertsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiosk_alerts_total",
		Help: "Total number of staff alerts, labelled by kind and status.",
	}, []string{"kind", "status"})

	MessageDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kiosk_message_duration_ms",
		Help:    "Time from decode to commit for one message in milliseconds.",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})

	ConsumerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "kiosk_consumer_state",
		Help: "1 for the consumer loop's current state, 0 for the others.",
	}, []string{"state"})
)
