// pkg/kafka/producer/sync.go
package producer

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/dnwe/otelsarama"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/YaganovValera/kafka-sandbox/pkg/backoff"
	"github.com/YaganovValera/kafka-sandbox/pkg/kafka"
	"github.com/YaganovValera/kafka-sandbox/pkg/logger"
)

// SyncProducer waits for the broker acknowledgment of every send before
// returning. One long-lived client handle, owned by the caller, closed
// exactly once via Close.
type SyncProducer struct {
	prod   sarama.SyncProducer
	client sarama.Client
	cfg    Config
	log    *logger.Logger
}

// NewSync connects a SyncProducer with back-off retries.
func NewSync(ctx context.Context, cfg Config, log *logger.Logger) (*SyncProducer, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log = log.Named("kafka-producer")

	sc, err := buildSaramaConfig(cfg)
	if err != nil {
		return nil, err
	}

	client, err := sarama.NewClient(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: new client: %w", err)
	}

	var syncProd sarama.SyncProducer
	connect := func(ctx context.Context) error {
		producerMetrics.ConnectAttempts.Inc()
		p, err := sarama.NewSyncProducerFromClient(client)
		if err != nil {
			producerMetrics.ConnectErrors.Inc()
			return err
		}
		syncProd = p
		return nil
	}

	ctxConn, span := tracer.Start(ctx, "Connect",
		trace.WithAttributes(attribute.StringSlice("brokers", cfg.Brokers)))
	if err := backoff.Execute(ctxConn, cfg.Backoff, log, connect); err != nil {
		span.RecordError(err)
		span.End()
		_ = client.Close()
		log.Error("kafka producer connect failed", zap.Error(err))
		return nil, fmt.Errorf("kafka producer: connect: %w", err)
	}
	span.End()

	log.Info("kafka sync producer ready", zap.Strings("brokers", cfg.Brokers))
	return &SyncProducer{
		prod:   otelsarama.WrapSyncProducer(sc, syncProd),
		client: client,
		cfg:    cfg,
		log:    log,
	}, nil
}

// Send publishes one record and blocks until the broker acks or rejects it.
// There is no per-message retry: a failure is terminal to that one record.
func (p *SyncProducer) Send(ctx context.Context, topic, key string, value []byte) (kafka.Outcome, error) {
	_, span := tracer.Start(ctx, "Send", trace.WithAttributes(attribute.String("topic", topic)))
	defer span.End()

	msg := buildMessage(p.cfg, topic, key, value)

	start := time.Now()
	partition, offset, err := p.prod.SendMessage(msg)
	producerMetrics.PublishLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		producerMetrics.PublishErrors.WithLabelValues("blocking").Inc()
		span.RecordError(err)
		return kafka.Outcome{}, fmt.Errorf("kafka producer: send: %w", err)
	}

	producerMetrics.PublishSuccess.WithLabelValues("blocking").Inc()
	out := kafka.Outcome{
		Topic:     topic,
		Partition: partition,
		Offset:    offset,
		Timestamp: msg.Timestamp,
	}
	p.log.Debug("message ack",
		zap.Int64("offset", out.Offset),
		zap.Time("timestamp", out.Timestamp),
		zap.String("topic", out.Topic),
		zap.Int32("partition", out.Partition),
	)
	return out, nil
}

// Ping refreshes client metadata, verifying the cluster is reachable.
func (p *SyncProducer) Ping(_ context.Context) error {
	return p.client.RefreshMetadata()
}

// Close releases the producer and its client handle.
func (p *SyncProducer) Close() error {
	if err := p.prod.Close(); err != nil {
		p.log.Error("producer close failed", zap.Error(err))
		return err
	}
	if err := p.client.Close(); err != nil {
		p.log.Error("client close failed", zap.Error(err))
		return err
	}
	p.log.Info("kafka sync producer closed")
	return nil
}
