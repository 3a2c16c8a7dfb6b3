// Package broker subscribes to the kiosk topic on Kafka.
package broker

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl/plain"

	"museum-stream-backend/config"
)

// ErrClosed is returned by Poll once the client can no longer fetch.
var ErrClosed = errors.New("broker client closed")

// Message is one record read from the topic.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Value     []byte

	record *kgo.Record
}

// FetchError is a non-fatal error reported for a topic partition during a poll.
type FetchError struct {
	Topic     string
	Partition int32
	Err       error
}

func (e FetchError) Error() string {
	return fmt.Sprintf("fetch %s[%d]: %v", e.Topic, e.Partition, e.Err)
}

func (e FetchError) Unwrap() error { return e.Err }

// Batch is the result of one bounded poll. Both slices may be empty.
type Batch struct {
	Messages []Message
	Errors   []FetchError
}

// Client is a consumer-group member subscribed to a single topic.
// Offsets are committed only for messages passed to Commit.
type Client struct {
	cl          *kgo.Client
	topic       string
	pollTimeout time.Duration
	maxRecords  int
	log         zerolog.Logger
}

// New creates the client and joins the consumer group.
func New(cfg *config.BrokerConfig, log zerolog.Logger) (*Client, error) {
	opts, err := clientOptions(cfg, log)
	if err != nil {
		return nil, err
	}
	cl, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Client{
		cl:          cl,
		topic:       cfg.Topic,
		pollTimeout: cfg.PollTimeout,
		maxRecords:  cfg.MaxPollRecords,
		log:         log,
	}, nil
}

func clientOptions(cfg *config.BrokerConfig, log zerolog.Logger) ([]kgo.Opt, error) {
	reset := kgo.NewOffset().AtEnd()
	switch cfg.OffsetReset {
	case "", "latest":
	case "earliest":
		reset = kgo.NewOffset().AtStart()
	default:
		return nil, fmt.Errorf("unknown offset reset policy %q", cfg.OffsetReset)
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumeResetOffset(reset),
		kgo.AutoCommitMarks(),
		kgo.WithLogger(newLogger(log)),
	}
	if cfg.TLS {
		opts = append(opts, kgo.DialTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}))
	}
	switch cfg.SASL.Mechanism {
	case "":
	case "PLAIN":
		opts = append(opts, kgo.SASL(plain.Auth{
			User: cfg.SASL.Username,
			Pass: cfg.SASL.Password,
		}.AsMechanism()))
	default:
		return nil, fmt.Errorf("unsupported SASL mechanism %q", cfg.SASL.Mechanism)
	}
	return opts, nil
}

// Ping checks that at least one seed broker is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.cl.Ping(ctx)
}

// Poll waits up to the configured poll timeout for messages. An empty batch
// is not an error. ErrClosed is returned when the client has been closed.
func (c *Client) Poll(ctx context.Context) (Batch, error) {
	pollCtx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	fetches := c.cl.PollRecords(pollCtx, c.maxRecords)
	if fetches.IsClientClosed() {
		return Batch{}, ErrClosed
	}

	var batch Batch
	for _, fe := range fetches.Errors() {
		if errors.Is(fe.Err, context.DeadlineExceeded) || errors.Is(fe.Err, context.Canceled) {
			continue
		}
		batch.Errors = append(batch.Errors, FetchError{Topic: fe.Topic, Partition: fe.Partition, Err: fe.Err})
	}
	fetches.EachRecord(func(r *kgo.Record) {
		batch.Messages = append(batch.Messages, Message{
			Topic:     r.Topic,
			Partition: r.Partition,
			Offset:    r.Offset,
			Value:     r.Value,
			record:    r,
		})
	})
	return batch, nil
}

// Commit marks msg as processed; marked offsets are committed in the background and on Close.
func (c *Client) Commit(msg Message) {
	if msg.record != nil {
		c.cl.MarkCommitRecords(msg.record)
	}
}

// Close commits marked offsets, leaves the group and closes all connections.
func (c *Client) Close(ctx context.Context) error {
	err := c.cl.CommitMarkedOffsets(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("final offset commit failed")
	}
	c.cl.Close()
	return err
}
