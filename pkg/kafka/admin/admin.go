// pkg/kafka/admin/admin.go
package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/YaganovValera/kafka-sandbox/pkg/backoff"
	"github.com/YaganovValera/kafka-sandbox/pkg/logger"
)

// Config holds the ClusterAdmin parameters.
type Config struct {
	// Brokers is the list of broker addresses.
	Brokers []string
	// Version is the Kafka protocol version string (e.g. "2.8.0").
	Version string
	// Timeout caps each admin request.
	Timeout time.Duration
	// Backoff controls connect retries.
	Backoff backoff.Config
}

func (c *Config) applyDefaults() {
	if c.Version == "" {
		c.Version = "2.8.0"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}

func (c Config) validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka admin: brokers required")
	}
	return nil
}

// Admin wraps a sarama ClusterAdmin for topic management.
type Admin struct {
	admin sarama.ClusterAdmin
	log   *logger.Logger
}

// New connects a ClusterAdmin with back-off retries.
func New(ctx context.Context, cfg Config, log *logger.Logger) (*Admin, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log = log.Named("kafka-admin")

	version, err := sarama.ParseKafkaVersion(cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("kafka admin: invalid Version %q: %w", cfg.Version, err)
	}
	sc := sarama.NewConfig()
	sc.Version = version
	sc.Admin.Timeout = cfg.Timeout

	var ca sarama.ClusterAdmin
	connect := func(ctx context.Context) error {
		a, err := sarama.NewClusterAdmin(cfg.Brokers, sc)
		if err != nil {
			return err
		}
		ca = a
		return nil
	}
	if err := backoff.Execute(ctx, cfg.Backoff, log, connect); err != nil {
		return nil, fmt.Errorf("kafka admin: connect: %w", err)
	}

	log.Info("kafka admin connected", zap.Strings("brokers", cfg.Brokers))
	return &Admin{admin: ca, log: log}, nil
}

// Create makes a new topic with the given partition count and a
// replication factor of 1 (the sandbox runs against a single broker).
func (a *Admin) Create(topic string, partitions int32) error {
	if topic == "" {
		return fmt.Errorf("kafka admin: topic required")
	}
	if partitions < 1 {
		return fmt.Errorf("kafka admin: partitions must be >= 1")
	}
	detail := &sarama.TopicDetail{
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	}
	if err := a.admin.CreateTopic(topic, detail, false); err != nil {
		var topicErr *sarama.TopicError
		if errors.As(err, &topicErr) && topicErr.Err == sarama.ErrTopicAlreadyExists {
			return fmt.Errorf("kafka admin: topic %q already exists", topic)
		}
		return fmt.Errorf("kafka admin: create topic %q: %w", topic, err)
	}
	a.log.Info("topic created",
		zap.String("topic", topic),
		zap.Int32("partitions", partitions),
	)
	return nil
}

// Delete removes a topic.
func (a *Admin) Delete(topic string) error {
	if topic == "" {
		return fmt.Errorf("kafka admin: topic required")
	}
	if err := a.admin.DeleteTopic(topic); err != nil {
		return fmt.Errorf("kafka admin: delete topic %q: %w", topic, err)
	}
	a.log.Info("topic deleted", zap.String("topic", topic))
	return nil
}

// List returns the topics known to the cluster.
func (a *Admin) List() (map[string]sarama.TopicDetail, error) {
	topics, err := a.admin.ListTopics()
	if err != nil {
		return nil, fmt.Errorf("kafka admin: list topics: %w", err)
	}
	return topics, nil
}

// Close releases the admin connection.
func (a *Admin) Close() error {
	return a.admin.Close()
}
