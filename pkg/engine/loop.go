package engine

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/caravelhq/caravel/pkg/events"
	"github.com/caravelhq/caravel/pkg/models"
	"github.com/caravelhq/caravel/pkg/persistence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const timedOutMessage = "Workflow execution timed out"

// continueExecution drives one execution forward until it parks (waiting) or
// reaches a terminal status. It is the only writer while the execution runs;
// out-of-band cancels surface as version conflicts on save.
func (e *Engine) continueExecution(ctx context.Context, executionID string) {
	ctx, span := e.tracer.Start(ctx, "engine.continue_execution", trace.WithAttributes(
		attribute.String("caravel.execution_id", executionID),
	))
	defer span.End()

	logger := e.logger.With("execution_id", executionID)

	execution, err := e.executions.GetExecution(ctx, executionID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load execution for dispatch", "error", err)

		return
	}

	if execution.Status != models.ExecutionStatusRunning {
		logger.InfoContext(ctx, "Skipping dispatch, execution not running", "status", execution.Status)

		return
	}

	workflow, err := e.workflows.GetWorkflow(ctx, execution.TenantID, execution.WorkflowID)
	if err != nil {
		e.failExecution(ctx, execution, fmt.Sprintf("workflow definition unavailable: %v", err), logger)

		return
	}

	activity, err := e.resumePoint(execution, workflow)
	if err != nil {
		e.failExecution(ctx, execution, err.Error(), logger)

		return
	}

	e.runActivityLoop(ctx, execution, workflow, activity, logger)
}

// resumePoint determines which activity to run next for an execution entering
// the loop: the first activity for a fresh execution, or the successor of the
// last completed one after a resume.
func (e *Engine) resumePoint(execution *models.WorkflowExecution, workflow *models.WorkflowDefinition) (*models.Activity, error) {
	if len(execution.Activities) == 0 {
		return workflow.FirstActivity(), nil
	}

	last := execution.Activities[len(execution.Activities)-1]
	if last.Status != models.ActivityStatusCompleted {
		return nil, fmt.Errorf("cannot continue from activity %s in status %s", last.ActivityID, last.Status)
	}

	definition, ok := workflow.FindActivity(last.ActivityID)
	if !ok {
		return nil, fmt.Errorf("activity %s not found in workflow %s", last.ActivityID, workflow.ID)
	}

	return e.nextActivity(definition, workflow, execution.Data)
}

// nextActivity routes from the current activity: a static next pointer wins,
// otherwise the first conditional transition whose condition holds against
// the data bag. Nil means the workflow is done.
func (e *Engine) nextActivity(current *models.Activity, workflow *models.WorkflowDefinition, data map[string]any) (*models.Activity, error) {
	if current.NextActivityID != nil && *current.NextActivityID != "" {
		next, ok := workflow.FindActivity(*current.NextActivityID)
		if !ok {
			return nil, fmt.Errorf("next activity %s not found in workflow %s", *current.NextActivityID, workflow.ID)
		}

		return next, nil
	}

	for _, transition := range current.Transitions {
		matched, err := models.EvaluateCondition(transition.Condition, data)
		if err != nil {
			return nil, fmt.Errorf("evaluate transition condition of activity %s: %w", current.ID, err)
		}

		if matched {
			next, ok := workflow.FindActivity(transition.NextActivityID)
			if !ok {
				return nil, fmt.Errorf("transition target %s not found in workflow %s", transition.NextActivityID, workflow.ID)
			}

			return next, nil
		}
	}

	return nil, nil
}

func (e *Engine) runActivityLoop(ctx context.Context, execution *models.WorkflowExecution, workflow *models.WorkflowDefinition, activity *models.Activity, logger *slog.Logger) {
	for {
		if execution.TimedOut(time.Now()) {
			e.failExecution(ctx, execution, timedOutMessage, logger)

			return
		}

		if activity == nil {
			e.completeExecution(ctx, execution, logger)

			return
		}

		now := time.Now().UTC()
		record := &models.ActivityExecution{
			ID:         uuid.New().String(),
			ActivityID: activity.ID,
			Type:       activity.Type,
			Status:     models.ActivityStatusRunning,
			Input:      activityInput(execution.Data, activity.Configuration),
			StartedAt:  now,
		}

		execution.Activities = append(execution.Activities, record)
		execution.LastActivityAt = now

		if stop := e.saveProgress(ctx, execution, logger); stop {
			return
		}

		result := e.executeActivity(ctx, execution, activity, logger)

		finished := time.Now().UTC()
		execution.LastActivityAt = finished

		switch result.Status {
		case models.ActivityResultWaiting:
			record.Status = models.ActivityStatusWaiting
			execution.Status = models.ExecutionStatusWaiting

			if stop := e.saveProgress(ctx, execution, logger); stop {
				return
			}

			logger.InfoContext(ctx, "Execution parked waiting", "activity_id", activity.ID)

			e.publish(ctx, events.ExecutionWaiting{
				BaseEvent:  events.NewBaseEvent(events.ExecutionWaitingEvent, execution),
				ActivityID: activity.ID,
			})

			return

		case models.ActivityResultFailed:
			record.Status = models.ActivityStatusFailed
			record.ErrorMessage = result.ErrorMessage
			record.CompletedAt = &finished

			e.publish(ctx, events.ActivityFailed{
				BaseEvent:    events.NewBaseEvent(events.ActivityFailedEvent, execution),
				ActivityID:   activity.ID,
				ActivityType: activity.Type,
				Error:        result.ErrorMessage,
			})

			e.failExecution(ctx, execution, result.ErrorMessage, logger)

			return

		default:
			// Waiting and failed are the only statuses that stop the loop;
			// any other result advances the workflow.
			record.Status = models.ActivityStatusCompleted
			record.Output = result.Data
			record.CompletedAt = &finished

			execution.MergeData(result.Data)

			if stop := e.saveProgress(ctx, execution, logger); stop {
				return
			}

			e.publish(ctx, events.ActivityCompleted{
				BaseEvent:    events.NewBaseEvent(events.ActivityCompletedEvent, execution),
				ActivityID:   activity.ID,
				ActivityType: activity.Type,
				Duration:     finished.Sub(record.StartedAt),
			})

			next, err := e.nextActivity(activity, workflow, execution.Data)
			if err != nil {
				e.failExecution(ctx, execution, err.Error(), logger)

				return
			}

			activity = next
		}
	}
}

// executeActivity builds and runs one activity, converting construction
// errors, execution errors and panics into failed results.
func (e *Engine) executeActivity(ctx context.Context, execution *models.WorkflowExecution, activity *models.Activity, logger *slog.Logger) (result *models.ActivityResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "Activity panicked", "activity_id", activity.ID, "panic", r)
			result = models.FailedResult(fmt.Sprintf("activity %s panicked: %v", activity.ID, r))
		}
	}()

	instance, err := e.registry.CreateActivity(ctx, activity.Type, activity.Configuration)
	if err != nil {
		return models.FailedResult(err.Error())
	}

	activityCtx := models.ActivityContext{
		ExecutionID:   execution.ID,
		ActivityID:    activity.ID,
		TenantID:      execution.TenantID,
		UserID:        execution.Context.UserID,
		CorrelationID: execution.Context.CorrelationID,
		Data:          maps.Clone(execution.Data),
		Configuration: activity.Configuration,
	}

	activityLogger := logger.With("activity_id", activity.ID, "activity_type", activity.Type)

	res, err := instance.Execute(ctx, activityCtx, activityLogger)
	if err != nil {
		return models.FailedResult(err.Error())
	}

	if res == nil {
		return models.CompletedResult(nil)
	}

	return res
}

// activityInput snapshots the data bag plus the activity configuration under
// a "config." prefix, so the run record shows exactly what the activity saw.
func activityInput(data, config map[string]any) map[string]any {
	input := make(map[string]any, len(data)+len(config))
	maps.Copy(input, data)

	for key, value := range config {
		input["config."+key] = value
	}

	return input
}

// saveProgress persists the execution mid-loop. A version conflict means a
// concurrent writer (usually a cancel) superseded this run; the loop stops
// without overwriting.
func (e *Engine) saveProgress(ctx context.Context, execution *models.WorkflowExecution, logger *slog.Logger) bool {
	err := e.executions.SaveExecution(ctx, execution)
	if err == nil {
		return false
	}

	if persistence.IsVersionConflict(err) {
		latest, getErr := e.executions.GetExecution(ctx, execution.ID)
		if getErr == nil && latest.IsTerminal() {
			logger.InfoContext(ctx, "Execution superseded by concurrent terminal transition", "status", latest.Status)
			e.running.Remove(execution.ID)

			return true
		}
	}

	logger.ErrorContext(ctx, "Failed to persist execution progress", "error", err)

	return true
}

func (e *Engine) completeExecution(ctx context.Context, execution *models.WorkflowExecution, logger *slog.Logger) {
	now := time.Now().UTC()

	execution.Status = models.ExecutionStatusCompleted
	execution.CompletedAt = &now
	execution.LastActivityAt = now

	if stop := e.saveProgress(ctx, execution, logger); stop {
		return
	}

	e.running.Remove(execution.ID)

	logger.InfoContext(ctx, "Execution completed", "duration", now.Sub(execution.StartedAt).Round(time.Millisecond))

	if e.audit != nil {
		e.audit.LogCompleted(ctx, execution)
	}

	if e.analytics != nil {
		e.analytics.RecordExecution(ctx, execution)
	}

	e.publish(ctx, events.ExecutionCompleted{
		BaseEvent: events.NewBaseEvent(events.ExecutionCompletedEvent, execution),
		Duration:  now.Sub(execution.StartedAt),
	})
}

func (e *Engine) failExecution(ctx context.Context, execution *models.WorkflowExecution, message string, logger *slog.Logger) {
	now := time.Now().UTC()

	execution.Status = models.ExecutionStatusFailed
	execution.ErrorMessage = message
	execution.CompletedAt = &now
	execution.LastActivityAt = now

	if stop := e.saveProgress(ctx, execution, logger); stop {
		return
	}

	e.running.Remove(execution.ID)

	logger.WarnContext(ctx, "Execution failed", "error", message)

	if e.audit != nil {
		e.audit.LogCompleted(ctx, execution)
	}

	if e.analytics != nil {
		e.analytics.RecordExecution(ctx, execution)
	}

	e.publish(ctx, events.ExecutionFailed{
		BaseEvent: events.NewBaseEvent(events.ExecutionFailedEvent, execution),
		Error:     message,
		Duration:  now.Sub(execution.StartedAt),
	})
}
