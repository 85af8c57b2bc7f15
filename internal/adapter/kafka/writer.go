package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/couchcryptid/obs-seq-etl/internal/config"
	"github.com/couchcryptid/obs-seq-etl/internal/obsseq"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces decoded observation records to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, clock: clockwork.NewRealClock(), logger: logger}
}

// SetClock swaps the time source used for the processed_at header. Tests
// inject a fake clock for deterministic output.
func (w *Writer) SetClock(c clockwork.Clock) {
	w.clock = c
}

// LoadBatch serializes and publishes one batch of observation rows to the
// sink topic in a single WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, sourceFile string, rows []obsseq.Row) error {
	if len(rows) == 0 {
		return nil
	}
	now := w.clock.Now().UTC()
	msgs := make([]kafkago.Message, len(rows))
	for i, row := range rows {
		msg, err := serializeToMessage(sourceFile, row, now)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals one observation row into a Kafka message. The
// key combines the source file base name and the record's sequence number,
// so republishing the same file produces the same keys.
func serializeToMessage(sourceFile string, row obsseq.Row, processedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize observation row: %w", err)
	}

	base := filepath.Base(sourceFile)
	obsType, _ := row["type"].(string)
	return kafkago.Message{
		Key:   fmt.Appendf(nil, "%s-%v", base, row["obs_num"]),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "obs_type", Value: []byte(obsType)},
			{Key: "source_file", Value: []byte(base)},
			{Key: "processed_at", Value: []byte(processedAt.Format(time.RFC3339))},
		},
	}, nil
}
