// pkg/kafka/interface.go
//
// Package kafka defines the minimal messaging contracts used by the
// sandbox. It does not pull in Sarama and does not depend on any
// concrete driver.
package kafka

import (
	"context"
	"time"
)

// Message represents a record received from Kafka.
type Message struct {
	Key       []byte    // record key (may be nil)
	Value     []byte    // payload
	Topic     string    // topic name
	Partition int32     // partition
	Offset    int64     // offset
	Timestamp time.Time // broker-assigned timestamp
}

// Outcome is the broker acknowledgment metadata for one produced record.
// It is observed for diagnostics only and never persisted.
type Outcome struct {
	Topic     string
	Partition int32
	Offset    int64
	Timestamp time.Time
}

// Consumer reads one or more topics.
//
//	Consume(ctx, topics, handler) blocks until:
//	  - the context is cancelled;
//	  - or an unrecoverable error occurs, which the method returns.
//	handler is invoked for every message; if it returns an error the
//	message is not committed.
type Consumer interface {
	Consume(ctx context.Context, topics []string, handler func(msg *Message) error) error
	Close() error
}
