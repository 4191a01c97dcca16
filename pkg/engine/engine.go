// Package engine implements the workflow execution engine: starting,
// resuming and cancelling executions, running the activity loop, and the
// periodic maintenance sweep.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/caravelhq/caravel/pkg/eventbus"
	"github.com/caravelhq/caravel/pkg/events"
	"github.com/caravelhq/caravel/pkg/models"
	"github.com/caravelhq/caravel/pkg/persistence"
	"github.com/caravelhq/caravel/pkg/protocol"
	"github.com/caravelhq/caravel/pkg/registry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultQueueSize bounds the dispatch queue between the public
	// operations and the worker pool.
	DefaultQueueSize = 128

	// DefaultWorkers is the number of goroutines draining the queue.
	DefaultWorkers = 4
)

// Config wires the engine's collaborators. Persistence, Registry and
// SecurityGate are required; the sinks and publisher may be nil.
type Config struct {
	Logger      *slog.Logger
	Persistence persistence.Persistence
	Registry    *registry.Registry
	Gate        protocol.SecurityGate
	Audit       protocol.AuditSink
	Analytics   protocol.AnalyticsSink
	Publisher   eventbus.EventPublisher
	QueueSize   int
	Workers     int
}

// Engine owns the execution state machine. All public operations are safe
// for concurrent use.
type Engine struct {
	logger     *slog.Logger
	workflows  persistence.WorkflowRepository
	executions persistence.ExecutionRepository
	registry   *registry.Registry
	gate       protocol.SecurityGate
	audit      protocol.AuditSink
	analytics  protocol.AnalyticsSink
	publisher  eventbus.EventPublisher
	tracer     trace.Tracer

	running *runningSet
	queue   *dispatchQueue
	workers int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config) *Engine {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}

	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	return &Engine{
		logger:     cfg.Logger.With("module", "engine"),
		workflows:  cfg.Persistence.WorkflowRepository(),
		executions: cfg.Persistence.ExecutionRepository(),
		registry:   cfg.Registry,
		gate:       cfg.Gate,
		audit:      cfg.Audit,
		analytics:  cfg.Analytics,
		publisher:  cfg.Publisher,
		tracer:     otel.Tracer("github.com/caravelhq/caravel/pkg/engine"),
		running:    newRunningSet(),
		queue:      newDispatchQueue(cfg.QueueSize),
		workers:    cfg.Workers,
	}
}

// Start launches the worker pool draining the dispatch queue.
func (e *Engine) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel

	for range e.workers {
		e.wg.Add(1)

		go e.worker(runCtx)
	}

	e.logger.InfoContext(ctx, "Engine started", "workers", e.workers, "queue_size", cap(e.queue.jobs))
}

// Stop halts the worker pool and waits for in-flight work to settle.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}

	e.wg.Wait()
}

func (e *Engine) worker(ctx context.Context) {
	defer e.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case executionID := <-e.queue.jobs:
			e.queue.release()
			e.continueExecution(ctx, executionID)
		}
	}
}

// StartExecution authorizes, creates and persists a new execution, then hands
// it to the worker pool. The returned execution reflects the persisted
// running state; activities run asynchronously.
func (e *Engine) StartExecution(ctx context.Context, tenantID, workflowID string, initialData map[string]any, trigger models.WorkflowTrigger) (*models.WorkflowExecution, error) {
	ctx, span := e.tracer.Start(ctx, "engine.start_execution", trace.WithAttributes(
		attribute.String("caravel.tenant_id", tenantID),
		attribute.String("caravel.workflow_id", workflowID),
	))
	defer span.End()

	if !e.queue.reserve() {
		return nil, NewOperationError("Start", "", ErrQueueFull)
	}

	dispatched := false
	defer func() {
		if !dispatched {
			e.queue.unreserve()
		}
	}()

	allowed, err := e.gate.CanExecute(ctx, tenantID, workflowID)
	if err != nil {
		return nil, NewOperationError("Start", "", fmt.Errorf("security gate: %w", err))
	}

	if !allowed {
		return nil, NewOperationError("Start", "", persistence.ErrPermissionDenied)
	}

	workflow, err := e.workflows.GetWorkflow(ctx, tenantID, workflowID)
	if err != nil {
		return nil, NewOperationError("Start", "", err)
	}

	if !workflow.IsExecutable() {
		return nil, NewOperationError("Start", "", persistence.ErrWorkflowNotActive)
	}

	now := time.Now().UTC()
	execution := &models.WorkflowExecution{
		ID:              "exec-" + uuid.New().String(),
		TenantID:        tenantID,
		WorkflowID:      workflowID,
		WorkflowVersion: workflow.Version,
		Status:          models.ExecutionStatusRunning,
		Data:            maps.Clone(initialData),
		Trigger:         trigger,
		Context: models.ExecutionContext{
			TenantID:      tenantID,
			UserID:        trigger.UserID,
			CorrelationID: uuid.New().String(),
			TimeoutAt:     now.Add(workflow.ExecutionTimeout()),
		},
		StartedAt:      now,
		LastActivityAt: now,
	}

	if execution.Data == nil {
		execution.Data = make(map[string]any)
	}

	if err := e.executions.SaveExecution(ctx, execution); err != nil {
		return nil, NewOperationError("Start", execution.ID, err)
	}

	span.SetAttributes(attribute.String("caravel.execution_id", execution.ID))

	e.running.Add(execution.ID, execution.Context.TimeoutAt)

	if e.audit != nil {
		e.audit.LogStarted(ctx, execution)
	}

	e.publish(ctx, events.ExecutionStarted{
		BaseEvent:     events.NewBaseEvent(events.ExecutionStartedEvent, execution),
		TriggerType:   trigger.Type,
		CorrelationID: execution.Context.CorrelationID,
	})

	e.queue.send(execution.ID)

	dispatched = true

	return execution, nil
}

// ResumeExecution completes the named waiting activity with the supplied
// result, moves the execution back to running and re-dispatches it. The
// execution must be waiting on exactly that activity; anything else is
// rejected without mutation.
func (e *Engine) ResumeExecution(ctx context.Context, executionID, activityID string, result map[string]any) (*models.WorkflowExecution, error) {
	ctx, span := e.tracer.Start(ctx, "engine.resume_execution", trace.WithAttributes(
		attribute.String("caravel.execution_id", executionID),
		attribute.String("caravel.activity_id", activityID),
	))
	defer span.End()

	if !e.queue.reserve() {
		return nil, NewOperationError("Resume", executionID, ErrQueueFull)
	}

	dispatched := false
	defer func() {
		if !dispatched {
			e.queue.unreserve()
		}
	}()

	execution, err := e.executions.GetExecution(ctx, executionID)
	if err != nil {
		return nil, NewOperationError("Resume", executionID, err)
	}

	if execution.Status != models.ExecutionStatusWaiting {
		return nil, NewOperationError("Resume", executionID,
			fmt.Errorf("%w: execution is %s, not waiting", persistence.ErrInvalidExecutionState, execution.Status))
	}

	waiting, ok := execution.WaitingActivity()
	if !ok || waiting.ActivityID != activityID {
		return nil, NewOperationError("Resume", executionID,
			fmt.Errorf("%w: no waiting activity %s", persistence.ErrInvalidExecutionState, activityID))
	}

	now := time.Now().UTC()

	waiting.Status = models.ActivityStatusCompleted
	waiting.Output = result
	waiting.CompletedAt = &now

	execution.MergeData(result)
	execution.Status = models.ExecutionStatusRunning
	execution.LastActivityAt = now

	if err := e.executions.SaveExecution(ctx, execution); err != nil {
		return nil, NewOperationError("Resume", executionID, err)
	}

	e.running.Add(execution.ID, execution.Context.TimeoutAt)

	e.publish(ctx, events.ExecutionResumed{
		BaseEvent:  events.NewBaseEvent(events.ExecutionResumedEvent, execution),
		ActivityID: activityID,
	})

	e.queue.send(execution.ID)

	dispatched = true

	return execution, nil
}

// CancelExecution moves a non-terminal execution to cancelled, recording the
// reason. Returns false without error when the execution is missing or
// already terminal, so repeated cancels are safe.
func (e *Engine) CancelExecution(ctx context.Context, executionID, reason string) (bool, error) {
	ctx, span := e.tracer.Start(ctx, "engine.cancel_execution", trace.WithAttributes(
		attribute.String("caravel.execution_id", executionID),
	))
	defer span.End()

	// A concurrent activity-loop save can win the version race; reload and
	// retry once before giving up.
	for attempt := 0; attempt < 2; attempt++ {
		execution, err := e.executions.GetExecution(ctx, executionID)
		if err != nil {
			if persistence.IsExecutionNotFound(err) {
				return false, nil
			}

			return false, NewOperationError("Cancel", executionID, err)
		}

		if execution.IsTerminal() {
			e.running.Remove(executionID)

			return false, nil
		}

		now := time.Now().UTC()

		execution.Status = models.ExecutionStatusCancelled
		execution.ErrorMessage = reason
		execution.CompletedAt = &now
		execution.LastActivityAt = now

		for _, activity := range execution.Activities {
			if activity.Status.IsTerminal() {
				continue
			}

			activity.Status = models.ActivityStatusCancelled
			activity.ErrorMessage = "Workflow cancelled"
			activity.CompletedAt = &now
		}

		err = e.executions.SaveExecution(ctx, execution)
		if persistence.IsVersionConflict(err) {
			continue
		}

		if err != nil {
			return false, NewOperationError("Cancel", executionID, err)
		}

		e.running.Remove(executionID)

		if e.audit != nil {
			e.audit.LogCancelled(ctx, execution, reason)
		}

		if e.analytics != nil {
			e.analytics.RecordCancelled(ctx, execution)
		}

		e.publish(ctx, events.ExecutionCancelled{
			BaseEvent: events.NewBaseEvent(events.ExecutionCancelledEvent, execution),
			Reason:    reason,
		})

		return true, nil
	}

	return false, NewOperationError("Cancel", executionID, persistence.ErrVersionConflict)
}

// ListExecutions returns the tenant's executions narrowed by the filter,
// sorted by start time descending.
func (e *Engine) ListExecutions(ctx context.Context, tenantID string, filter persistence.ExecutionFilter) ([]*models.WorkflowExecution, error) {
	return e.executions.ListExecutionsByTenant(ctx, tenantID, filter)
}

// GetAnalytics summarizes executions of one workflow over a time window.
func (e *Engine) GetAnalytics(ctx context.Context, tenantID, workflowID string, start, end time.Time) (*models.Analytics, error) {
	if e.analytics == nil {
		return nil, fmt.Errorf("analytics sink not configured")
	}

	return e.analytics.GetAnalytics(ctx, tenantID, workflowID, start, end)
}

func (e *Engine) publish(ctx context.Context, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, string(event.GetType()), event); err != nil {
		e.logger.WarnContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

// NewOperationError wraps an engine operation failure with context.
func NewOperationError(op, executionID string, err error) error {
	return persistence.NewExecutionError(op, executionID, err)
}
