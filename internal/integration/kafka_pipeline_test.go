//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/anm-alert-map/internal/adapter/kafka"
	"github.com/couchcryptid/anm-alert-map/internal/card"
	"github.com/couchcryptid/anm-alert-map/internal/config"
	"github.com/couchcryptid/anm-alert-map/internal/domain"
	"github.com/couchcryptid/anm-alert-map/internal/mapcache"
	"github.com/couchcryptid/anm-alert-map/internal/observability"
	"github.com/couchcryptid/anm-alert-map/internal/pipeline"
	"github.com/couchcryptid/anm-alert-map/internal/statestore"
)

const (
	testSourceTopic = "test-states"
	testSinkTopic   = "test-frames"
	testEntity      = "sensor.harta_avertizari_anm"

	testMap = `<svg xmlns="http://www.w3.org/2000/svg">` +
		`<path id="RO-TM" class="judet cod0" data-judet="TM"/>` +
		`<path id="RO-CJ" class="judet cod0" data-judet="CJ"/>` +
		`</svg>`
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker and returns its bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("anm-map-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func testConfig(broker, group string) *config.Config {
	return &config.Config{
		CardEntity:         testEntity,
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
		BatchFlushInterval: 2 * time.Second,
	}
}

func publishStates(ctx context.Context, t *testing.T, broker string, states ...domain.EntityState) {
	t.Helper()
	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })

	msgs := make([]kafkago.Message, 0, len(states))
	for _, st := range states {
		out, err := domain.SerializeState(st)
		require.NoError(t, err)
		msg := kafkago.Message{Key: out.Key, Value: out.Value, Time: st.LastUpdated}
		for k, v := range out.Headers {
			msg.Headers = append(msg.Headers, kafkago.Header{Key: k, Value: []byte(v)})
		}
		msgs = append(msgs, msg)
	}
	require.NoError(t, producer.WriteMessages(ctx, msgs...))
}

func alertState(t *testing.T, at time.Time, attrs map[string]any) domain.EntityState {
	t.Helper()
	data, err := json.Marshal(attrs)
	require.NoError(t, err)
	return domain.EntityState{EntityID: testEntity, State: "active", Attributes: data, LastUpdated: at}
}

// publishedFrame holds a frame read back from the sink topic.
type publishedFrame struct {
	Frame   card.Frame
	Key     string
	Headers map[string]string
}

func readFrame(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedFrame {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var f card.Frame
	require.NoError(t, json.Unmarshal(msg.Value, &f), "unmarshal frame")
	return publishedFrame{Frame: f, Key: string(msg.Key), Headers: headers}
}

func newSinkConsumer(broker string) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
}

// newCard builds a card whose template is read from a temporary map file.
func newCard(ctx context.Context, t *testing.T, metrics *observability.Metrics) *card.Card {
	t.Helper()
	path := filepath.Join(t.TempDir(), "harta.svg")
	require.NoError(t, os.WriteFile(path, []byte(testMap), 0o600))

	loader := mapcache.NewLoader(mapcache.NewFetcher(path, time.Second), discardLogger(), metrics)
	c := card.New(loader, discardLogger(), metrics)
	t.Cleanup(c.Close)
	require.NoError(t, c.Configure(ctx, card.Config{Entity: testEntity}))
	return c
}

// TestKafkaReader verifies that kafka.Reader round-trips a state message
// published with domain.SerializeState.
func TestKafkaReader(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)

	at := time.Date(2024, time.July, 1, 9, 0, 0, 0, time.UTC)
	st := alertState(t, at, map[string]any{"shapes": []map[string]any{{"id": "TM", "culoare": "2"}}})
	publishStates(ctx, t, broker, st)

	reader := kafka.NewReader(testConfig(broker, "test-reader"), discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	batch, err := reader.ExtractBatch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, batch, 1)

	raw := batch[0]
	assert.Equal(t, []byte(testEntity), raw.Key)
	assert.Equal(t, testSourceTopic, raw.Topic)
	assert.Equal(t, testEntity, raw.Headers["entity_id"])
	assert.Equal(t, "active", raw.Headers["state"])
	require.NotNil(t, raw.Commit, "commit callback should be set")
	require.NoError(t, raw.Commit(ctx))

	got, err := pipeline.NewTransformer(discardLogger(), testEntity).Transform(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, testEntity, got.EntityID)
	assert.True(t, at.Equal(got.LastUpdated))
	assert.JSONEq(t, string(st.Attributes), string(got.Attributes))
}

// TestPipelineEndToEnd wires Reader → Transformer → Store → Card → Writer with
// a real broker and verifies that rendered frames reach the sink topic.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := testConfig(broker, "test-pipeline")
	metrics := observability.NewMetricsForTesting()

	c := newCard(ctx, t, metrics)
	store := statestore.New(discardLogger(), c)

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger(), metrics)
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(reader, pipeline.NewTransformer(discardLogger(), testEntity), store, discardLogger(), metrics, 50)

	runCtx, runCancel := context.WithCancel(ctx)
	frames, unsubscribe := c.Subscribe()
	defer unsubscribe()
	errCh := make(chan error, 2)
	go func() { errCh <- p.Run(runCtx) }()
	go func() { errCh <- writer.Run(runCtx, frames) }()

	at := time.Date(2024, time.July, 1, 9, 0, 0, 0, time.UTC)
	publishStates(ctx, t, broker,
		domain.EntityState{EntityID: "sensor.other", State: "on", LastUpdated: at},
		alertState(t, at, map[string]any{
			"maps": []map[string]any{
				{
					"shapes": []map[string]any{{"id": "TM", "culoare": "2"}},
					"meta":   map[string]any{"tip_mesaj": "COD PORTOCALIU", "mesaj": "Canicula"},
				},
				{"shapes": []map[string]any{{"id": "CJ", "culoare": 1}}},
			},
		}),
	)

	consumer := newSinkConsumer(broker)
	t.Cleanup(func() { _ = consumer.Close() })

	pf := readFrame(ctx, t, consumer)
	runCancel()
	require.NoError(t, <-errCh)
	require.NoError(t, <-errCh)

	assert.Equal(t, testEntity, pf.Key)
	assert.Equal(t, pf.Frame.ID, pf.Headers["frame_id"])
	assert.Equal(t, "0", pf.Headers["map_index"])
	_, err := time.Parse(time.RFC3339Nano, pf.Headers["rendered_at"])
	assert.NoError(t, err, "rendered_at should be RFC3339")

	assert.Equal(t, 2, pf.Frame.Count)
	assert.Equal(t, "Harta 1 / 2", pf.Frame.Label)
	require.NotNil(t, pf.Frame.Meta)
	assert.Equal(t, "COD PORTOCALIU", pf.Frame.Meta.TipMesaj)
	assert.Contains(t, pf.Frame.SVG, `class="judet cod2" data-judet="TM"`)
	assert.Contains(t, pf.Frame.SVG, `class="judet cod0" data-judet="CJ"`)

	assert.Equal(t, 1, store.Len(), "unwatched entities never reach the store")
}

// TestPipelineMalformedState verifies that an undecodable message is skipped
// and the next valid state still renders.
func TestPipelineMalformedState(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)

	cfg := testConfig(broker, "test-poison")
	metrics := observability.NewMetricsForTesting()

	c := newCard(ctx, t, metrics)
	store := statestore.New(discardLogger(), c)
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	p := pipeline.New(reader, pipeline.NewTransformer(discardLogger(), testEntity), store, discardLogger(), metrics, 50)

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{Key: []byte(testEntity), Value: []byte("not-json{{{")},
	))
	publishStates(ctx, t, broker, alertState(t, time.Date(2024, time.July, 1, 9, 0, 0, 0, time.UTC),
		map[string]any{"shapes": []map[string]any{{"id": "CJ", "culoare": "3"}}}))

	frames, unsubscribe := c.Subscribe()
	defer unsubscribe()

	runCtx, runCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(runCtx) }()

	select {
	case f := <-frames:
		assert.Contains(t, f.SVG, `class="judet cod3" data-judet="CJ"`)
		assert.Equal(t, 0, f.Count)
	case <-ctx.Done():
		t.Fatal("timed out waiting for a rendered frame")
	}

	runCancel()
	require.NoError(t, <-errCh)
}
