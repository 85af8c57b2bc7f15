//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

// startKafka launches a single-node Kafka container and returns its broker
// address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-cluster"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve broker address")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic on the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "resolve controller")

	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeSequenceFixture writes a small observation-sequence file with one
// U/V wind pair and one temperature observation into dir.
func writeSequenceFixture(t *testing.T, dir string) string {
	t.Helper()

	var b strings.Builder
	b.WriteString(" obs_sequence\n")
	b.WriteString("obs_kind_definitions\n")
	b.WriteString("           3\n")
	b.WriteString("          5 RADIOSONDE_U_WIND_COMPONENT\n")
	b.WriteString("          6 RADIOSONDE_V_WIND_COMPONENT\n")
	b.WriteString("          14 RADIOSONDE_TEMPERATURE\n")
	b.WriteString("  num_copies:            3  num_qc:            1\n")
	b.WriteString("  num_obs:            3  max_num_obs:            3\n")
	b.WriteString("observation\n")
	b.WriteString("prior ensemble mean\n")
	b.WriteString("prior ensemble spread\n")
	b.WriteString("DART quality control\n")
	b.WriteString("  first:            1  last:            3\n")

	writeObs := func(num int, value float64, kind string, qc float64) {
		fmt.Fprintf(&b, " OBS            %d\n", num)
		fmt.Fprintf(&b, "   %.14f\n", value)
		fmt.Fprintf(&b, "   %.14f\n", value+0.5)
		b.WriteString("   0.25000000000000\n")
		fmt.Fprintf(&b, "   %.14f\n", qc)
		b.WriteString("obdef\n")
		b.WriteString("loc3d\n")
		b.WriteString("     120.00000000000000        45.00000000000000         85000.00000000000000      2\n")
		b.WriteString("kind\n")
		fmt.Fprintf(&b, "           %s\n", kind)
		b.WriteString(" 3600     148880\n")
		b.WriteString("   1.00000000000000\n")
	}
	writeObs(1, 3.0, "5", 0)
	writeObs(2, 4.0, "6", 0)
	writeObs(3, 265.0, "14", 7)

	path := filepath.Join(dir, "obs_seq.final")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}
