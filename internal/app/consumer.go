// internal/app/consumer.go
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/YaganovValera/kafka-sandbox/internal/config"
	"github.com/YaganovValera/kafka-sandbox/internal/consume"
	"github.com/YaganovValera/kafka-sandbox/pkg/kafka/consumer"
	"github.com/YaganovValera/kafka-sandbox/pkg/logger"
)

// ConsumerOptions carries the per-command knobs of a consumer run.
type ConsumerOptions struct {
	// Topic to subscribe to.
	Topic string
	// Group overrides the configured consumer group when non-empty.
	Group string
}

// RunConsumer drives one Kafka-to-handler loop until the context is
// cancelled.
func RunConsumer[T any](ctx context.Context, cfg *config.Config, opts ConsumerOptions, handler consume.Handler[T], log *logger.Logger) error {
	cleanup, err := setupEnv(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	cons, err := consumer.New(ctx, cfg.ConsumerKafka(opts.Group), log)
	if err != nil {
		return fmt.Errorf("consumer init: %w", err)
	}

	log.Info("consumer started",
		zap.String("topic", opts.Topic),
		zap.String("group", cfg.ConsumerKafka(opts.Group).GroupID),
	)

	loop := consume.NewLoop(cons, opts.Topic, handler, log)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	if err := startMetricsServer(ctx, g, cfg, func() error { return nil }, log); err != nil {
		return err
	}
	g.Go(func() error {
		defer cancel()
		return runWithGrace(ctx, ShutdownGrace, loop.Run, log)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("consumer stopped")
	return nil
}
