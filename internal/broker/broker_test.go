package broker

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kfake"
	"github.com/twmb/franz-go/pkg/kgo"

	"museum-stream-backend/config"
)

func TestClientOptions(t *testing.T) {
	base := config.BrokerConfig{
		Brokers:     []string{"localhost:9092"},
		Topic:       "lmnh",
		Group:       "museum-data-consumer-group",
		OffsetReset: "latest",
	}

	testCases := []struct {
		name      string
		mutate    func(c *config.BrokerConfig)
		extraOpts int
		expectErr bool
	}{
		{name: "Plaintext", mutate: func(c *config.BrokerConfig) {}},
		{name: "Earliest", mutate: func(c *config.BrokerConfig) { c.OffsetReset = "earliest" }},
		{
			name: "SASL over TLS",
			mutate: func(c *config.BrokerConfig) {
				c.TLS = true
				c.SASL = config.SASLConfig{Mechanism: "PLAIN", Username: "u", Password: "p"}
			},
			extraOpts: 2,
		},
		{name: "Unknown reset", mutate: func(c *config.BrokerConfig) { c.OffsetReset = "middle" }, expectErr: true},
		{name: "Unknown mechanism", mutate: func(c *config.BrokerConfig) { c.SASL.Mechanism = "GSSAPI" }, expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)

			opts, err := clientOptions(&cfg, zerolog.Nop())
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, opts, 6+tc.extraOpts)
		})
	}
}

func TestKgoLogger(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(zerolog.New(&buf).Level(zerolog.WarnLevel))

	assert.Equal(t, kgo.LogLevelWarn, l.Level())

	l.Log(kgo.LogLevelWarn, "unable to join group", "group", "museum-data-consumer-group", "err", "timeout")
	assert.Contains(t, buf.String(), `"component":"kafka"`)
	assert.Contains(t, buf.String(), `"group":"museum-data-consumer-group"`)
	assert.Contains(t, buf.String(), `"message":"unable to join group"`)
}

func newTestCluster(t *testing.T) []string {
	cluster, err := kfake.NewCluster(kfake.NumBrokers(1), kfake.SeedTopics(1, "lmnh"))
	require.NoError(t, err)
	t.Cleanup(cluster.Close)
	return cluster.ListenAddrs()
}

func produce(t *testing.T, addrs []string, values ...string) {
	producer, err := kgo.NewClient(kgo.SeedBrokers(addrs...), kgo.DefaultProduceTopic("lmnh"))
	require.NoError(t, err)
	defer producer.Close()

	records := make([]*kgo.Record, 0, len(values))
	for _, v := range values {
		records = append(records, &kgo.Record{Value: []byte(v)})
	}
	require.NoError(t, producer.ProduceSync(context.Background(), records...).FirstErr())
}

func newTestClient(t *testing.T, addrs []string) *Client {
	c, err := New(&config.BrokerConfig{
		Brokers:        addrs,
		Topic:          "lmnh",
		Group:          "museum-data-consumer-group",
		OffsetReset:    "earliest",
		PollTimeout:    200 * time.Millisecond,
		MaxPollRecords: 100,
	}, zerolog.Nop())
	require.NoError(t, err)
	return c
}

// pollN polls until n messages arrived or the deadline passes.
func pollN(t *testing.T, c *Client, n int) []Message {
	var got []Message
	deadline := time.Now().Add(10 * time.Second)
	for len(got) < n && time.Now().Before(deadline) {
		batch, err := c.Poll(context.Background())
		require.NoError(t, err)
		assert.Empty(t, batch.Errors)
		got = append(got, batch.Messages...)
	}
	require.Len(t, got, n)
	return got
}

func TestClient_PollCommitClose(t *testing.T) {
	addrs := newTestCluster(t)
	produce(t, addrs, "m0", "m1", "m2")

	c := newTestClient(t, addrs)
	msgs := pollN(t, c, 3)
	for i, m := range msgs {
		assert.Equal(t, "lmnh", m.Topic)
		assert.Equal(t, int64(i), m.Offset)
		assert.Equal(t, fmt.Sprintf("m%d", i), string(m.Value))
	}

	// Nothing left: the poll deadline passes without a broker error.
	batch, err := c.Poll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, batch.Messages)
	assert.Empty(t, batch.Errors)

	// Only the first two are handled before shutdown.
	c.Commit(msgs[0])
	c.Commit(msgs[1])
	require.NoError(t, c.Close(context.Background()))

	_, err = c.Poll(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	// The group resumes after the last marked record.
	next := newTestClient(t, addrs)
	defer next.Close(context.Background())
	resumed := pollN(t, next, 1)
	assert.Equal(t, int64(2), resumed[0].Offset)
	assert.Equal(t, "m2", string(resumed[0].Value))
}

func TestClient_PollCancelled(t *testing.T) {
	c := newTestClient(t, newTestCluster(t))
	defer c.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch, err := c.Poll(ctx)
	require.NoError(t, err)
	assert.Empty(t, batch.Messages)
	assert.Empty(t, batch.Errors, "cancellation is not reported as a broker error")
}
