package kafka

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/anm-alert-map/internal/config"
	"github.com/couchcryptid/anm-alert-map/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Reader consumes host entity states from the source topic.
// It implements pipeline.BatchExtractor.
type Reader struct {
	reader        *kafkago.Reader
	logger        *slog.Logger
	flushInterval time.Duration
}

// NewReader creates a consumer-group reader for the configured source topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.KafkaGroupID,
		Topic:    cfg.KafkaSourceTopic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Reader{reader: r, logger: logger, flushInterval: cfg.BatchFlushInterval}
}

// ExtractBatch blocks for the first message, then collects up to batchSize
// messages or until the flush interval elapses, whichever comes first. Each
// returned state carries a Commit callback for its offset.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawState, error) {
	first, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	batch := make([]domain.RawState, 0, batchSize)
	batch = append(batch, r.toRawState(first))

	flushCtx, cancel := context.WithTimeout(ctx, r.flushInterval)
	defer cancel()

	for len(batch) < batchSize {
		msg, err := r.reader.FetchMessage(flushCtx)
		if err != nil {
			if ctx.Err() == nil && flushCtx.Err() == nil {
				r.logger.Warn("fetch during batch failed", "error", err, "collected", len(batch))
			}
			break
		}
		batch = append(batch, r.toRawState(msg))
	}
	return batch, nil
}

func (r *Reader) toRawState(msg kafkago.Message) domain.RawState {
	raw := mapMessageToRawState(msg)
	raw.Commit = func(ctx context.Context) error {
		return r.reader.CommitMessages(ctx, msg)
	}
	return raw
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

// mapMessageToRawState copies a Kafka message into the domain representation.
func mapMessageToRawState(msg kafkago.Message) domain.RawState {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.RawState{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
	}
}
