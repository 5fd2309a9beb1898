// pkg/kafka/producer/producer.go
package producer

import (
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"

	"github.com/YaganovValera/kafka-sandbox/pkg/backoff"
)

// -----------------------------------------------------------------------------
// Prometheus metrics
// -----------------------------------------------------------------------------

var producerMetrics = struct {
	ConnectAttempts prometheus.Counter
	ConnectErrors   prometheus.Counter
	PublishSuccess  *prometheus.CounterVec
	PublishErrors   *prometheus.CounterVec
	PublishLatency  prometheus.Histogram
}{
	ConnectAttempts: promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sandbox", Subsystem: "kafka_producer", Name: "connect_attempts_total",
			Help: "Kafka producer connect attempts",
		},
	),
	ConnectErrors: promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sandbox", Subsystem: "kafka_producer", Name: "connect_errors_total",
			Help: "Kafka producer connect errors",
		},
	),
	PublishSuccess: promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sandbox", Subsystem: "kafka_producer", Name: "publish_success_total",
			Help: "Successful publishes",
		},
		[]string{"mode"},
	),
	PublishErrors: promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sandbox", Subsystem: "kafka_producer", Name: "publish_errors_total",
			Help: "Publish errors",
		},
		[]string{"mode"},
	),
	PublishLatency: promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sandbox", Subsystem: "kafka_producer", Name: "publish_latency_seconds",
			Help:    "Blocking publish latency (seconds)",
			Buckets: prometheus.DefBuckets,
		},
	),
}

var tracer = otel.Tracer("kafka-producer")

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config groups all tunables for a sandbox Kafka producer.
//
// Zero values are replaced with sane defaults by applyDefaults().
type Config struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string

	// RequiredAcks selects the broker acknowledgment strategy:
	//   "all" (default) | "leader" | "none".
	RequiredAcks string

	// Timeout caps how long the broker may take to ack one send.
	Timeout time.Duration

	// Compression: "none" (default), "gzip", "snappy", "lz4", "zstd".
	Compression string

	// FlushFrequency periodically flushes the producer buffer. Zero disables it.
	FlushFrequency time.Duration

	// FlushMessages is the message-count flush threshold. Zero disables it.
	FlushMessages int

	// Partition, when non-nil, pins every record to a fixed partition
	// instead of key-based routing.
	Partition *int32

	// Backoff controls connect retries.
	Backoff backoff.Config
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.RequiredAcks == "" {
		c.RequiredAcks = "all"
	}
	if c.Compression == "" {
		c.Compression = "none"
	}
}

func (c Config) validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka producer: brokers required")
	}
	if c.Partition != nil && *c.Partition < 0 {
		return fmt.Errorf("kafka producer: partition must be >= 0")
	}
	return nil
}

// -----------------------------------------------------------------------------
// Private helpers
// -----------------------------------------------------------------------------

func buildSaramaConfig(c Config) (*sarama.Config, error) {
	sc := sarama.NewConfig()

	switch strings.ToLower(c.RequiredAcks) {
	case "all":
		sc.Producer.RequiredAcks = sarama.WaitForAll
	case "leader":
		sc.Producer.RequiredAcks = sarama.WaitForLocal
	case "none":
		sc.Producer.RequiredAcks = sarama.NoResponse
	default:
		return nil, fmt.Errorf("kafka producer: invalid RequiredAcks %q", c.RequiredAcks)
	}

	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	sc.Producer.Timeout = c.Timeout

	if c.FlushFrequency > 0 {
		sc.Producer.Flush.Frequency = c.FlushFrequency
	}
	if c.FlushMessages > 0 {
		sc.Producer.Flush.Messages = c.FlushMessages
	}

	switch strings.ToLower(c.Compression) {
	case "none":
		sc.Producer.Compression = sarama.CompressionNone
	case "gzip":
		sc.Producer.Compression = sarama.CompressionGZIP
	case "snappy":
		sc.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		sc.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		sc.Producer.Compression = sarama.CompressionZSTD
	default:
		return nil, fmt.Errorf("kafka producer: invalid Compression %q", c.Compression)
	}

	if c.Partition != nil {
		// Pinned partition: the record carries the target explicitly.
		sc.Producer.Partitioner = sarama.NewManualPartitioner
	}

	return sc, nil
}

// buildMessage assembles one record. An empty key means "no key": the
// broker-side default partitioning applies.
func buildMessage(cfg Config, topic, key string, value []byte) *sarama.ProducerMessage {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(value),
	}
	if key != "" {
		msg.Key = sarama.StringEncoder(key)
	}
	if cfg.Partition != nil {
		msg.Partition = *cfg.Partition
	}
	return msg
}
