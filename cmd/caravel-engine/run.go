package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/caravelhq/caravel/pkg/cmd"
	"github.com/caravelhq/caravel/pkg/engine"
	"github.com/caravelhq/caravel/pkg/eventbus"
	"github.com/caravelhq/caravel/pkg/events"
	"github.com/caravelhq/caravel/pkg/gates"
	"github.com/caravelhq/caravel/pkg/otelhelper"
	"github.com/caravelhq/caravel/pkg/protocol"
	cli "github.com/urfave/cli/v3"
)

// run wires the headless engine: execution workers, the maintenance sweep,
// and an event bus subscription that mirrors execution lifecycle events into
// the log. It blocks until SIGINT or SIGTERM.
func run(ctx context.Context, logger *slog.Logger, engineID string, command *cli.Command) error {
	if command.Bool("tracing") {
		if _, err := otelhelper.NewTracer(ctx, "caravel-engine"); err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}
	}

	store := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	defer func() {
		if err := store.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	bus := cmd.NewEventBus(command.String("event-bus"), engineID, command.String("kafka-brokers"), logger)
	defer func() {
		if err := bus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	var gate protocol.SecurityGate

	if redisURL := command.String("redis-url"); redisURL != "" {
		redisGate, err := gates.NewRedisSecurityGateFromURL(redisURL, logger)
		if err != nil {
			return err
		}

		gate = redisGate
	} else {
		logger.WarnContext(ctx, "No redis-url configured, every execution will be authorized")

		gate = gates.NewAllowAllSecurityGate()
	}

	eng := engine.New(engine.Config{
		Logger:      logger,
		Persistence: store,
		Registry:    cmd.NewRegistry(logger),
		Gate:        gate,
		Audit:       gates.NewLogAuditSink(logger),
		Analytics:   gates.NewStoreAnalyticsSink(store.ExecutionRepository(), logger),
		Publisher:   bus,
		QueueSize:   command.Int("queue-size"),
		Workers:     command.Int("workers"),
	})

	eng.Start(ctx)
	defer eng.Stop()

	maintenance := engine.NewMaintenance(eng, command.Duration("sweep-interval"), logger)
	if err := maintenance.Start(ctx); err != nil {
		return err
	}
	defer maintenance.Stop()

	if err := subscribeLifecycleEvents(ctx, logger, bus); err != nil {
		return err
	}

	logger.InfoContext(ctx, "Caravel engine running")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.InfoContext(ctx, "Shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	return nil
}

func subscribeLifecycleEvents(ctx context.Context, logger *slog.Logger, bus eventbus.EventSubscriber) error {
	logEvent := func(ctx context.Context, event any) error {
		switch e := event.(type) {
		case *events.ExecutionCompleted:
			logger.InfoContext(ctx, "Observed execution completed", "execution_id", e.ExecutionID, "duration", e.Duration)
		case *events.ExecutionFailed:
			logger.WarnContext(ctx, "Observed execution failed", "execution_id", e.ExecutionID, "error", e.Error)
		case *events.ExecutionCancelled:
			logger.InfoContext(ctx, "Observed execution cancelled", "execution_id", e.ExecutionID, "reason", e.Reason)
		}

		return nil
	}

	for _, eventType := range []events.EventType{
		events.ExecutionCompletedEvent,
		events.ExecutionFailedEvent,
		events.ExecutionCancelledEvent,
	} {
		if err := bus.Handle(eventType, logEvent); err != nil {
			return err
		}
	}

	return bus.Subscribe(ctx)
}
