package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepInterval is how often the maintenance loop runs.
const DefaultSweepInterval = 5 * time.Minute

// timeoutCancelReason is recorded on executions cancelled by the sweep.
const timeoutCancelReason = "Execution timeout"

// Maintenance periodically evicts terminal executions from the running set
// and cancels executions past their deadline.
type Maintenance struct {
	engine   *Engine
	interval time.Duration
	cron     *cron.Cron
	logger   *slog.Logger
}

func NewMaintenance(engine *Engine, interval time.Duration, logger *slog.Logger) *Maintenance {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	return &Maintenance{
		engine:   engine,
		interval: interval,
		cron:     cron.New(),
		logger:   logger.With("module", "maintenance"),
	}
}

func (m *Maintenance) Start(ctx context.Context) error {
	_, err := m.cron.AddFunc(fmt.Sprintf("@every %s", m.interval), func() {
		m.engine.Sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule maintenance sweep: %w", err)
	}

	m.cron.Start()
	m.logger.InfoContext(ctx, "Maintenance loop started", "interval", m.interval)

	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (m *Maintenance) Stop() {
	<-m.cron.Stop().Done()
}

// Sweep runs one maintenance pass: terminal executions leave the running set,
// and every tracked execution past its deadline is cancelled with the timeout
// reason. Each cancel runs in its own goroutine so one slow store call does
// not hold up the rest; a pass over already-swept executions is a no-op.
func (e *Engine) Sweep(ctx context.Context) {
	now := time.Now()
	snapshot := e.running.Snapshot()

	e.logger.DebugContext(ctx, "Maintenance sweep", "tracked", len(snapshot))

	var wg sync.WaitGroup

	for executionID, timeoutAt := range snapshot {
		execution, err := e.executions.GetExecution(ctx, executionID)
		if err != nil {
			e.logger.WarnContext(ctx, "Sweep could not load tracked execution", "execution_id", executionID, "error", err)

			continue
		}

		if execution.IsTerminal() {
			e.running.Remove(executionID)

			continue
		}

		if !now.After(timeoutAt) {
			continue
		}

		wg.Add(1)

		go func(id string) {
			defer wg.Done()

			cancelled, err := e.CancelExecution(ctx, id, timeoutCancelReason)
			if err != nil {
				e.logger.ErrorContext(ctx, "Sweep failed to cancel timed out execution", "execution_id", id, "error", err)

				return
			}

			if cancelled {
				e.logger.InfoContext(ctx, "Cancelled timed out execution", "execution_id", id)
			}
		}(executionID)
	}

	wg.Wait()
}
