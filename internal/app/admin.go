// internal/app/admin.go
package app

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/YaganovValera/kafka-sandbox/internal/config"
	"github.com/YaganovValera/kafka-sandbox/pkg/kafka/admin"
	"github.com/YaganovValera/kafka-sandbox/pkg/logger"
)

// CreateTopic creates a topic with the given partition count.
func CreateTopic(ctx context.Context, cfg *config.Config, topic string, partitions int32, log *logger.Logger) error {
	return withAdmin(ctx, cfg, log, func(a *admin.Admin) error {
		if err := a.Create(topic, partitions); err != nil {
			return fmt.Errorf("create topic %q: %w", topic, err)
		}
		log.Info("topic created", zap.String("topic", topic), zap.Int32("partitions", partitions))
		return nil
	})
}

// DeleteTopic removes a topic.
func DeleteTopic(ctx context.Context, cfg *config.Config, topic string, log *logger.Logger) error {
	return withAdmin(ctx, cfg, log, func(a *admin.Admin) error {
		if err := a.Delete(topic); err != nil {
			return fmt.Errorf("delete topic %q: %w", topic, err)
		}
		log.Info("topic deleted", zap.String("topic", topic))
		return nil
	})
}

// ListTopics logs every topic the cluster knows about.
func ListTopics(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	return withAdmin(ctx, cfg, log, func(a *admin.Admin) error {
		topics, err := a.List()
		if err != nil {
			return fmt.Errorf("list topics: %w", err)
		}
		names := make([]string, 0, len(topics))
		for name := range topics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			log.Info("topic",
				zap.String("name", name),
				zap.Int32("partitions", topics[name].NumPartitions),
			)
		}
		return nil
	})
}

func withAdmin(ctx context.Context, cfg *config.Config, log *logger.Logger, fn func(*admin.Admin) error) error {
	a, err := admin.New(ctx, cfg.AdminKafka(), log)
	if err != nil {
		return fmt.Errorf("admin init: %w", err)
	}
	defer shutdownSafe("kafka-admin", a.Close, log)
	return fn(a)
}
