// internal/produce/loop.go
package produce

import (
	"context"
	"errors"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/YaganovValera/kafka-sandbox/internal/metrics"
	"github.com/YaganovValera/kafka-sandbox/pkg/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Supplier produces the next domain value on demand. It may block; it
// must honour ctx cancellation and return ctx.Err() in that case.
type Supplier[T any] func(ctx context.Context) (T, error)

// KeyFunc derives the routing key for a value. Empty string means no
// key: the broker's default partitioning applies.
type KeyFunc[T any] func(T) string

// Loop owns the producer client handle for its whole lifetime: it pulls
// values, derives keys, serializes to JSON and dispatches via the Sender
// chosen at construction, until the context is cancelled. The Sender is
// closed exactly once when the loop exits.
type Loop[T any] struct {
	supplier  Supplier[T]
	keyFn     KeyFunc[T]
	sender    Sender
	log       *logger.Logger
	closeOnce sync.Once
}

// NewLoop wires a producer loop. keyFn may be nil for unkeyed topics.
func NewLoop[T any](supplier Supplier[T], keyFn KeyFunc[T], sender Sender, log *logger.Logger) *Loop[T] {
	if keyFn == nil {
		keyFn = func(T) string { return "" }
	}
	return &Loop[T]{
		supplier: supplier,
		keyFn:    keyFn,
		sender:   sender,
		log:      log.Named("produce-loop"),
	}
}

// Run sends as fast as the supplier yields values, until ctx is
// cancelled. A failed pull, encode or send is terminal to that one
// message only: it is logged and the loop proceeds to the next pull.
func (l *Loop[T]) Run(ctx context.Context) error {
	l.log.Info("start producer loop")

	for ctx.Err() == nil {
		msg, err := l.supplier(ctx)
		if err != nil {
			if isCancellation(err) {
				break
			}
			metrics.SupplierErrors.Inc()
			l.log.Error("supplier failed", zap.Error(err))
			continue
		}
		metrics.MessagesSupplied.Inc()

		key := l.keyFn(msg)

		value, err := json.Marshal(msg)
		if err != nil {
			metrics.SerializeErrors.Inc()
			l.log.Error("message not serializable, dropped", zap.Error(err))
			continue
		}

		if err := l.sender.Send(ctx, key, value); err != nil {
			if isCancellation(err) {
				break
			}
			l.log.Error("unexpected error when sending to kafka", zap.Error(err))
		}
	}

	l.log.Info("closing producer")
	var closeErr error
	l.closeOnce.Do(func() { closeErr = l.sender.Close() })
	return closeErr
}

// isCancellation reports whether err is the expected shutdown signal
// rather than a real failure.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
