// pkg/kafka/consumer/consumer.go
package consumer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/YaganovValera/kafka-sandbox/pkg/backoff"
	"github.com/YaganovValera/kafka-sandbox/pkg/kafka"
	"github.com/YaganovValera/kafka-sandbox/pkg/logger"
)

// -----------------------------------------------------------------------------
// Prometheus metrics
// -----------------------------------------------------------------------------

var consumerMetrics = struct {
	ConnectAttempts prometheus.Counter
	ConnectErrors   prometheus.Counter
	ConsumeErrors   prometheus.Counter
}{
	ConnectAttempts: promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sandbox", Subsystem: "kafka_consumer", Name: "connect_attempts_total",
			Help: "Kafka consumer group connect attempts",
		},
	),
	ConnectErrors: promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sandbox", Subsystem: "kafka_consumer", Name: "connect_errors_total",
			Help: "Kafka consumer connect errors",
		},
	),
	ConsumeErrors: promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sandbox", Subsystem: "kafka_consumer", Name: "consume_errors_total",
			Help: "Errors during consumption sessions",
		},
	),
}

var tracer = otel.Tracer("kafka-consumer")

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config holds the Kafka ConsumerGroup parameters.
type Config struct {
	// Brokers is the list of broker addresses.
	Brokers []string
	// GroupID identifies the consumer group.
	GroupID string
	// Version is the Kafka protocol version string (e.g. "2.8.0").
	Version string
	// InitialOffset: "newest" (default) or "oldest".
	InitialOffset string
	// Backoff controls connect and inter-session retries.
	Backoff backoff.Config
}

func (c *Config) applyDefaults() {
	if c.Version == "" {
		c.Version = "2.8.0"
	}
	if c.InitialOffset == "" {
		c.InitialOffset = "newest"
	}
}

func (c Config) validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka consumer: brokers required")
	}
	if c.GroupID == "" {
		return fmt.Errorf("kafka consumer: GroupID required")
	}
	switch strings.ToLower(c.InitialOffset) {
	case "newest", "oldest":
	default:
		return fmt.Errorf("kafka consumer: invalid InitialOffset %q", c.InitialOffset)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Consumer implementation
// -----------------------------------------------------------------------------

type kafkaConsumerGroup struct {
	group      sarama.ConsumerGroup
	log        *logger.Logger
	backoffCfg backoff.Config
}

// New creates and connects a ConsumerGroup with retries.
func New(ctx context.Context, cfg Config, log *logger.Logger) (kafka.Consumer, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log = log.Named("kafka-consumer")

	version, err := sarama.ParseKafkaVersion(cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: invalid Version %q: %w", cfg.Version, err)
	}
	sarCfg := sarama.NewConfig()
	sarCfg.Version = version
	sarCfg.Consumer.Return.Errors = true
	if strings.ToLower(cfg.InitialOffset) == "oldest" {
		sarCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		sarCfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}

	var group sarama.ConsumerGroup
	connectOp := func(ctx context.Context) error {
		consumerMetrics.ConnectAttempts.Inc()
		g, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, sarCfg)
		if err != nil {
			consumerMetrics.ConnectErrors.Inc()
			return err
		}
		group = g
		return nil
	}

	ctxConn, span := tracer.Start(ctx, "Connect",
		trace.WithAttributes(attribute.StringSlice("brokers", cfg.Brokers), attribute.String("group", cfg.GroupID)))
	if err := backoff.Execute(ctxConn, cfg.Backoff, log, connectOp); err != nil {
		span.RecordError(err)
		span.End()
		return nil, fmt.Errorf("kafka consumer: connect failed: %w", err)
	}
	span.End()

	log.Info("kafka consumer group connected",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("group", cfg.GroupID),
	)
	return &kafkaConsumerGroup{group: group, log: log, backoffCfg: cfg.Backoff}, nil
}

// Consume reads the topics until ctx is cancelled, wrapping failed
// sessions in a back-off pause.
func (kc *kafkaConsumerGroup) Consume(
	ctx context.Context,
	topics []string,
	handler func(msg *kafka.Message) error,
) error {
	h := &consumerGroupHandler{handler: handler, log: kc.log}
	for {
		ctxSess, span := tracer.Start(ctx, "ConsumeSession",
			trace.WithAttributes(attribute.StringSlice("topics", topics)))
		err := kc.group.Consume(ctxSess, topics, h)
		span.End()

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			consumerMetrics.ConsumeErrors.Inc()
			kc.log.Error("consume session error", zap.Error(err))

			pause := func(ctx context.Context) error {
				select {
				case <-time.After(100 * time.Millisecond):
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			if berr := backoff.Execute(ctx, kc.backoffCfg, kc.log, pause); berr != nil {
				return fmt.Errorf("kafka consumer: pause between sessions failed: %w", berr)
			}
			continue
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Close shuts the ConsumerGroup down.
func (kc *kafkaConsumerGroup) Close() error {
	return kc.group.Close()
}

// -----------------------------------------------------------------------------
// Internal handler
// -----------------------------------------------------------------------------

type consumerGroupHandler struct {
	handler func(msg *kafka.Message) error
	log     *logger.Logger
}

func (h *consumerGroupHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *consumerGroupHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

func (h *consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for m := range claim.Messages() {
		_, span := tracer.Start(sess.Context(), "HandleMessage",
			trace.WithAttributes(
				attribute.String("topic", m.Topic),
				attribute.Int64("offset", m.Offset),
			),
		)

		msg := &kafka.Message{
			Key:       m.Key,
			Value:     m.Value,
			Topic:     m.Topic,
			Partition: m.Partition,
			Offset:    m.Offset,
			Timestamp: m.Timestamp,
		}

		if err := h.handler(msg); err != nil {
			span.RecordError(err)
			h.log.Error("handler error", zap.Error(err))
		} else {
			sess.MarkMessage(m, "")
		}
		span.End()
	}
	return nil
}
