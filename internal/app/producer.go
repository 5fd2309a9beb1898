// internal/app/producer.go
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/YaganovValera/kafka-sandbox/internal/config"
	"github.com/YaganovValera/kafka-sandbox/internal/produce"
	"github.com/YaganovValera/kafka-sandbox/pkg/logger"
)

// ProducerOptions carries the per-command knobs of a producer run.
type ProducerOptions struct {
	// Topic to publish to.
	Topic string
	// Mode selects the blocking or fire-and-forget send path.
	Mode produce.SendMode
	// Partition, when non-nil, pins every record to that partition.
	Partition *int32
}

// RunProducer drives one supplier-to-Kafka loop until the context is
// cancelled, then shuts the sender down within the grace period.
func RunProducer[T any](ctx context.Context, cfg *config.Config, opts ProducerOptions, supplier produce.Supplier[T], keyFn produce.KeyFunc[T], log *logger.Logger) error {
	cleanup, err := setupEnv(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	sender, err := produce.NewSender(ctx, opts.Mode, cfg.ProducerKafka(opts.Partition), opts.Topic, log)
	if err != nil {
		return fmt.Errorf("sender init: %w", err)
	}

	log.Info("producer started",
		zap.String("topic", opts.Topic),
		zap.Stringer("mode", opts.Mode),
	)

	loop := produce.NewLoop(supplier, keyFn, sender, log)

	// The loop may also end on its own (stdin EOF); cancelling here
	// lets the metrics server follow it down.
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
	log.Info("producer stopped")
	return nil
}
