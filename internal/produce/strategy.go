// internal/produce/strategy.go
package produce

import (
	"context"
	"fmt"

	"github.com/YaganovValera/kafka-sandbox/pkg/kafka/producer"
	"github.com/YaganovValera/kafka-sandbox/pkg/logger"
)

// SendMode selects how delivery of one message is confirmed. The mode is
// fixed at construction: the hot path never branches on it.
type SendMode int

const (
	// ModeNonBlocking fires the record and returns immediately; the ack
	// arrives later on the client's own goroutine and is only logged.
	ModeNonBlocking SendMode = iota
	// ModeBlocking waits for the broker acknowledgment of every record.
	ModeBlocking
)

func (m SendMode) String() string {
	switch m {
	case ModeBlocking:
		return "blocking"
	case ModeNonBlocking:
		return "nonblocking"
	default:
		return fmt.Sprintf("SendMode(%d)", int(m))
	}
}

// ParseSendMode maps a config string to a SendMode.
func ParseSendMode(s string) (SendMode, error) {
	switch s {
	case "blocking":
		return ModeBlocking, nil
	case "nonblocking", "":
		return ModeNonBlocking, nil
	default:
		return ModeNonBlocking, fmt.Errorf("produce: invalid send mode %q", s)
	}
}

// Sender dispatches one serialized record to the broker. A Send failure
// is terminal to that one record, never to the loop. Close releases the
// underlying client handle.
type Sender interface {
	Send(ctx context.Context, key string, value []byte) error
	Close() error
}

// -----------------------------------------------------------------------------
// Blocking sender
// -----------------------------------------------------------------------------

type blockingSender struct {
	prod  *producer.SyncProducer
	topic string
	log   *logger.Logger
}

// NewBlockingSender binds a SyncProducer to one topic.
func NewBlockingSender(prod *producer.SyncProducer, topic string, log *logger.Logger) Sender {
	return &blockingSender{prod: prod, topic: topic, log: log.Named("send-blocking")}
}

func (s *blockingSender) Send(ctx context.Context, key string, value []byte) error {
	s.log.Debug("send blocking")
	if _, err := s.prod.Send(ctx, s.topic, key, value); err != nil {
		return fmt.Errorf("blocking send to %q: %w", s.topic, err)
	}
	return nil
}

func (s *blockingSender) Close() error { return s.prod.Close() }

// -----------------------------------------------------------------------------
// Non-blocking sender
// -----------------------------------------------------------------------------

type nonBlockingSender struct {
	prod  *producer.AsyncProducer
	topic string
	log   *logger.Logger
}

// NewNonBlockingSender binds an AsyncProducer to one topic. Outcomes are
// logged by the producer's drain goroutines and never reach the caller.
func NewNonBlockingSender(prod *producer.AsyncProducer, topic string, log *logger.Logger) Sender {
	return &nonBlockingSender{prod: prod, topic: topic, log: log.Named("send-nonblocking")}
}

func (s *nonBlockingSender) Send(ctx context.Context, key string, value []byte) error {
	s.log.Debug("send non-blocking")
	if err := s.prod.Send(ctx, s.topic, key, value); err != nil {
		return fmt.Errorf("non-blocking send to %q: %w", s.topic, err)
	}
	return nil
}

func (s *nonBlockingSender) Close() error { return s.prod.Close() }

// NewSender constructs the Sender matching the mode.
func NewSender(ctx context.Context, mode SendMode, cfg producer.Config, topic string, log *logger.Logger) (Sender, error) {
	switch mode {
	case ModeBlocking:
		prod, err := producer.NewSync(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return NewBlockingSender(prod, topic, log), nil
	case ModeNonBlocking:
		prod, err := producer.NewAsync(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return NewNonBlockingSender(prod, topic, log), nil
	default:
		return nil, fmt.Errorf("produce: unknown send mode %v", mode)
	}
}
