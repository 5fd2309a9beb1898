// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/YaganovValera/kafka-sandbox/internal/config"
	"github.com/YaganovValera/kafka-sandbox/internal/metrics"
	"github.com/YaganovValera/kafka-sandbox/pkg/httpserver"
	"github.com/YaganovValera/kafka-sandbox/pkg/logger"
	"github.com/YaganovValera/kafka-sandbox/pkg/telemetry"
)

// ShutdownGrace bounds how long a loop may keep running after the
// stop signal before the process gives up on a clean exit.
const ShutdownGrace = 2 * time.Second

// setupEnv wires the ambient pieces every command shares: metrics
// registration, optional tracing, optional /metrics server. The
// returned cleanup must run after the command's own shutdown.
func setupEnv(ctx context.Context, cfg *config.Config, log *logger.Logger) (cleanup func(), err error) {
	metrics.Register(nil)

	shutdownTracer := func(context.Context) error { return nil }
	if cfg.Telemetry.Endpoint != "" {
		shutdownTracer, err = telemetry.InitTracer(ctx, cfg.TracerConfig(), log)
		if err != nil {
			return nil, fmt.Errorf("init tracer: %w", err)
		}
	}

	return func() {
		shutdownSafe("telemetry", func() error { return shutdownTracer(ctx) }, log)
	}, nil
}

// startMetricsServer adds the /metrics server to the group when the
// http port is configured. Port 0 keeps the demo binary silent.
func startMetricsServer(ctx context.Context, g *errgroup.Group, cfg *config.Config, ready httpserver.ReadyChecker, log *logger.Logger) error {
	if cfg.HTTP.Port == 0 {
		return nil
	}
	srv, err := httpserver.New(cfg.HTTPServerConfig(), ready, log.Named("http"))
	if err != nil {
		return fmt.Errorf("httpserver init: %w", err)
	}
	g.Go(func() error { return srv.Run(ctx) })
	return nil
}

// runWithGrace runs fn until it returns on its own or the context is
// cancelled. After cancellation fn gets the grace period to finish;
// an overrun is logged and abandoned rather than waited out forever.
func runWithGrace(ctx context.Context, grace time.Duration, fn func(context.Context) error, log *logger.Logger) error {
	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		log.Warn("loop did not stop within grace period", zap.Duration("grace", grace))
		return nil
	}
}

// shutdownSafe wraps a Close/Shutdown call with logging.
func shutdownSafe(name string, fn func() error, log *logger.Logger) {
	log.Info(fmt.Sprintf("%s: shutting down", name))
	if err := fn(); err != nil {
		log.Error(fmt.Sprintf("%s shutdown error", name), zap.Error(err))
	} else {
		log.Info(fmt.Sprintf("%s: shutdown complete", name))
	}
}
