// Package main provides the Caravel API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/caravelhq/caravel/pkg/cmd"
	"github.com/caravelhq/caravel/pkg/engine"
	"github.com/caravelhq/caravel/pkg/gates"
	"github.com/caravelhq/caravel/pkg/protocol"
	"github.com/caravelhq/caravel/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	cli "github.com/urfave/cli/v3"
)

// API hosts the HTTP surface together with an in-process engine and its
// maintenance loop.
type API struct {
	logger      *slog.Logger
	app         *fiber.App
	engine      *engine.Engine
	maintenance *engine.Maintenance
}

// NewAPI wires persistence, event bus, security gate, engine and HTTP
// handlers from the command flags. The returned cleanup closes everything in
// reverse order.
func NewAPI(ctx context.Context, logger *slog.Logger, command *cli.Command) (*API, func(context.Context), error) {
	store := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	reg := cmd.NewRegistry(logger)
	bus := cmd.NewEventBus(command.String("event-bus"), "caravel-api", command.String("kafka-brokers"), logger)

	var gate protocol.SecurityGate

	if redisURL := command.String("redis-url"); redisURL != "" {
		redisGate, err := gates.NewRedisSecurityGateFromURL(redisURL, logger)
		if err != nil {
			return nil, nil, err
		}

		gate = redisGate
	} else {
		logger.WarnContext(ctx, "No redis-url configured, every execution will be authorized")

		gate = gates.NewAllowAllSecurityGate()
	}

	eng := engine.New(engine.Config{
		Logger:      logger,
		Persistence: store,
		Registry:    reg,
		Gate:        gate,
		Audit:       gates.NewLogAuditSink(logger),
		Analytics:   gates.NewStoreAnalyticsSink(store.ExecutionRepository(), logger),
		Publisher:   bus,
		QueueSize:   command.Int("queue-size"),
		Workers:     command.Int("workers"),
	})
	eng.Start(ctx)

	maintenance := engine.NewMaintenance(eng, command.Duration("sweep-interval"), logger)
	if err := maintenance.Start(ctx); err != nil {
		eng.Stop()

		return nil, nil, err
	}

	handlers := web.NewAPIHandlers(eng, store, validator.New(validator.WithRequiredStructEnabled()))

	api := &API{
		logger:      logger,
		app:         web.NewApp(handlers),
		engine:      eng,
		maintenance: maintenance,
	}

	cleanup := func(ctx context.Context) {
		maintenance.Stop()
		eng.Stop()

		if err := bus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}

		if err := store.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}

	return api, cleanup, nil
}

func (a *API) Start(port int) error {
	return a.app.Listen(":" + strconv.Itoa(port))
}
