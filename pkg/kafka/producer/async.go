// pkg/kafka/producer/async.go
package producer

import (
	"context"
	"fmt"
	"sync"

	"github.com/IBM/sarama"
	"github.com/dnwe/otelsarama"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/YaganovValera/kafka-sandbox/pkg/backoff"
	"github.com/YaganovValera/kafka-sandbox/pkg/logger"
)

// AsyncProducer enqueues records and returns without waiting for the
// broker. Acks and failures arrive later on the client's own I/O
// goroutines and are drained here purely for diagnostics: they are
// logged and counted, never propagated back to the sender.
type AsyncProducer struct {
	prod   sarama.AsyncProducer
	client sarama.Client
	cfg    Config
	log    *logger.Logger
	wg     sync.WaitGroup
}

// NewAsync connects an AsyncProducer with back-off retries and starts
// the ack/error drain goroutines.
func NewAsync(ctx context.Context, cfg Config, log *logger.Logger) (*AsyncProducer, error) {
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

	var asyncProd sarama.AsyncProducer
	connect := func(ctx context.Context) error {
		producerMetrics.ConnectAttempts.Inc()
		p, err := sarama.NewAsyncProducerFromClient(client)
		if err != nil {
			producerMetrics.ConnectErrors.Inc()
			return err
		}
		asyncProd = p
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

	a := &AsyncProducer{
		prod:   otelsarama.WrapAsyncProducer(sc, asyncProd),
		client: client,
		cfg:    cfg,
		log:    log,
	}
	a.drain()

	log.Info("kafka async producer ready", zap.Strings("brokers", cfg.Brokers))
	return a, nil
}

// newAsyncFromProducer wires an existing sarama.AsyncProducer. Used by tests.
func newAsyncFromProducer(prod sarama.AsyncProducer, cfg Config, log *logger.Logger) *AsyncProducer {
	a := &AsyncProducer{prod: prod, cfg: cfg, log: log}
	a.drain()
	return a
}

// drain consumes the Successes and Errors channels until the producer
// is closed. Runs on separate goroutines; zap is safe for concurrent use.
func (a *AsyncProducer) drain() {
	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		for msg := range a.prod.Successes() {
			producerMetrics.PublishSuccess.WithLabelValues("nonblocking").Inc()
			a.log.Debug("async message ack",
				zap.Int64("offset", msg.Offset),
				zap.Time("timestamp", msg.Timestamp),
				zap.String("topic", msg.Topic),
				zap.Int32("partition", msg.Partition),
			)
		}
	}()
	go func() {
		defer a.wg.Done()
		for perr := range a.prod.Errors() {
			producerMetrics.PublishErrors.WithLabelValues("nonblocking").Inc()
			a.log.Error("async send failed",
				zap.String("topic", perr.Msg.Topic),
				zap.Error(perr.Err),
			)
		}
	}()
}

// Send enqueues one record. It returns as soon as the record is accepted
// into the producer's buffer, before any broker acknowledgment.
func (a *AsyncProducer) Send(ctx context.Context, topic, key string, value []byte) error {
	msg := buildMessage(a.cfg, topic, key, value)
	select {
	case a.prod.Input() <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes buffered records, waits for the last acks to be drained,
// then releases the client handle.
func (a *AsyncProducer) Close() error {
	if err := a.prod.Close(); err != nil {
		a.log.Error("producer close failed", zap.Error(err))
		return err
	}
	a.wg.Wait()
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			a.log.Error("client close failed", zap.Error(err))
			return err
		}
	}
	a.log.Info("kafka async producer closed")
	return nil
}
