//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	fsadapter "github.com/couchcryptid/obs-seq-etl/internal/adapter/fs"
	"github.com/couchcryptid/obs-seq-etl/internal/adapter/kafka"
	"github.com/couchcryptid/obs-seq-etl/internal/config"
	"github.com/couchcryptid/obs-seq-etl/internal/observability"
	"github.com/couchcryptid/obs-seq-etl/internal/obsseq"
	"github.com/couchcryptid/obs-seq-etl/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSinkTopic = "test-observation-records"

// sinkMessage holds a deserialized message read from the sink topic.
type sinkMessage struct {
	Row     map[string]any
	Key     string
	Headers map[string]string
}

// readSink reads a single message from the sink consumer and deserializes it.
func readSink(ctx context.Context, t *testing.T, consumer *kafkago.Reader) sinkMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var row map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &row), "unmarshal sink message")

	return sinkMessage{
		Row:     row,
		Key:     string(msg.Key),
		Headers: headers,
	}
}

// TestKafkaWriter verifies that the loader round-trips a parsed table
// through a real broker with the expected key and headers.
func TestKafkaWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:   []string{broker},
		KafkaSinkTopic: testSinkTopic,
	}

	dir := t.TempDir()
	path := writeSequenceFixture(t, dir)

	table, err := obsseq.ParseFile(path, obsseq.Options{})
	require.NoError(t, err)
	require.Equal(t, 3, table.Len())

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	require.NoError(t, writer.LoadBatch(ctx, path, table.Rows()))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	sm := readSink(ctx, t, consumer)
	assert.Equal(t, "obs_seq.final-1", sm.Key)
	assert.Equal(t, "RADIOSONDE_U_WIND_COMPONENT", sm.Headers["obs_type"])
	assert.Equal(t, "obs_seq.final", sm.Headers["source_file"])
	_, err = time.Parse(time.RFC3339, sm.Headers["processed_at"])
	assert.NoError(t, err, "processed_at should be valid RFC3339")

	assert.Equal(t, float64(1), sm.Row["obs_num"])
	assert.InDelta(t, 3.0, sm.Row["observation"], 1e-9)
}

// TestPipelineEndToEnd wires the full pipeline (directory source, parser,
// Kafka loader) against a real broker and verifies every decoded row lands
// on the sink topic.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	dir := t.TempDir()
	writeSequenceFixture(t, dir)

	cfg := &config.Config{
		InputDir:       dir,
		FilePattern:    "obs_seq*",
		PollInterval:   500 * time.Millisecond,
		KafkaBrokers:   []string{broker},
		KafkaSinkTopic: testSinkTopic,
		BatchSize:      100,
	}

	source := fsadapter.NewSource(cfg, discardLogger())
	transformer := pipeline.NewSequenceTransformer(obsseq.Options{}, nil)
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(source, transformer, writer, discardLogger(), metrics, nil, cfg.PollInterval, cfg.BatchSize)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	received := make([]sinkMessage, 0, 3)
	for len(received) < 3 {
		received = append(received, readSink(ctx, t, consumer))
	}

	typeCounts := map[string]int{}
	for _, sm := range received {
		typ, _ := sm.Row["type"].(string)
		typeCounts[typ]++

		assert.NotEmpty(t, sm.Headers["obs_type"], "missing obs_type header")
		assert.Equal(t, "obs_seq.final", sm.Headers["source_file"])
		_, err := time.Parse(time.RFC3339, sm.Headers["processed_at"])
		assert.NoError(t, err, "invalid processed_at format")
	}
	assert.Equal(t, 1, typeCounts["RADIOSONDE_U_WIND_COMPONENT"])
	assert.Equal(t, 1, typeCounts["RADIOSONDE_V_WIND_COMPONENT"])
	assert.Equal(t, 1, typeCounts["RADIOSONDE_TEMPERATURE"])

	// The pipeline reports readiness only after its first full file.
	require.NoError(t, p.CheckReadiness(ctx))
	stats, ok := p.LastFileStats()
	require.True(t, ok)
	assert.Equal(t, 3, stats.Records)
	assert.Equal(t, 1, stats.QCFailed)

	// A malformed file dropped in later must not reach the sink.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "obs_seq.broken"),
		[]byte("not an observation sequence\n"), 0o644))

	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no message from the malformed file")

	pipelineCancel()
	require.NoError(t, <-errCh)
}
