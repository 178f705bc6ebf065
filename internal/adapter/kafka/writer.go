package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/anm-alert-map/internal/card"
	"github.com/couchcryptid/anm-alert-map/internal/config"
	"github.com/couchcryptid/anm-alert-map/internal/observability"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer the Writer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes rendered frames to the sink topic, keyed by entity.
type Writer struct {
	writer  messageWriter
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger, metrics: metrics}
}

// Publish serializes and writes frames in a single WriteMessages call.
func (w *Writer) Publish(ctx context.Context, frames ...*card.Frame) error {
	if len(frames) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(frames))
	for i, f := range frames {
		msg, err := serializeFrame(f)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		w.metrics.FramePublishErrs.Add(float64(len(frames)))
		return fmt.Errorf("publish frames: %w", err)
	}
	w.metrics.FramesPublished.Add(float64(len(frames)))
	return nil
}

// Run publishes every frame received until ctx ends or frames is closed.
// Publish failures are logged; the next frame supersedes the lost one.
func (w *Writer) Run(ctx context.Context, frames <-chan *card.Frame) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case f, ok := <-frames:
			if !ok {
				return nil
			}
			if err := w.Publish(ctx, f); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.logger.Error("frame publish failed", "error", err, "frame_id", f.ID, "entity", f.Entity)
			}
		}
	}
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeFrame marshals a rendered frame into a Kafka message.
func serializeFrame(f *card.Frame) (kafkago.Message, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize frame: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(f.Entity),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "frame_id", Value: []byte(f.ID)},
			{Key: "map_index", Value: []byte(strconv.Itoa(f.Index))},
			{Key: "rendered_at", Value: []byte(f.RenderedAt.Format(time.RFC3339))},
		},
	}, nil
}
