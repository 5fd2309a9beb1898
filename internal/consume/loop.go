// internal/consume/loop.go
package consume

import (
	"context"
	"errors"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/YaganovValera/kafka-sandbox/internal/metrics"
	"github.com/YaganovValera/kafka-sandbox/pkg/kafka"
	"github.com/YaganovValera/kafka-sandbox/pkg/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Handler receives every decoded message.
type Handler[T any] func(msg T)

// Loop reads one topic, decodes JSON payloads into T and hands them to
// the handler. Malformed payloads are logged, counted and skipped, so a
// poison message can never wedge the group. The consumer is closed
// exactly once when the loop exits.
type Loop[T any] struct {
	consumer  kafka.Consumer
	topic     string
	handler   Handler[T]
	log       *logger.Logger
	closeOnce sync.Once
}

// NewLoop wires a consumer loop for one topic.
func NewLoop[T any](consumer kafka.Consumer, topic string, handler Handler[T], log *logger.Logger) *Loop[T] {
	return &Loop[T]{
		consumer: consumer,
		topic:    topic,
		handler:  handler,
		log:      log.Named("consume-loop"),
	}
}

// Run consumes until ctx is cancelled. Cancellation is the expected
// termination path and is not reported as an error.
func (l *Loop[T]) Run(ctx context.Context) error {
	l.log.Info("start consumer loop", zap.String("topic", l.topic))

	err := l.consumer.Consume(ctx, []string{l.topic}, l.handle)
	if err != nil && !errors.Is(err, context.Canceled) {
		l.log.Error("consume failed", zap.Error(err))
	} else {
		err = nil
	}

	l.log.Info("closing consumer")
	var closeErr error
	l.closeOnce.Do(func() { closeErr = l.consumer.Close() })
	if err != nil {
		return err
	}
	return closeErr
}

// handle decodes one record. A decode failure returns nil so the offset
// is still committed: re-reading a malformed payload would fail again.
func (l *Loop[T]) handle(msg *kafka.Message) error {
	var v T
	if err := json.Unmarshal(msg.Value, &v); err != nil {
		metrics.DecodeErrors.Inc()
		l.log.Warn("skipping malformed payload",
			zap.String("topic", msg.Topic),
			zap.Int32("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return nil
	}
	metrics.MessagesConsumed.Inc()
	l.handler(v)
	return nil
}
