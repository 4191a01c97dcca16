package models

import (
	"maps"
	"time"
)

// ExecutionStatus defines the possible states of a workflow execution.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusWaiting   ExecutionStatus = "waiting"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// executionTransitions is the allowed edge set for execution statuses.
// Completed, failed and cancelled are terminal.
var executionTransitions = map[ExecutionStatus][]ExecutionStatus{
	ExecutionStatusRunning: {
		ExecutionStatusWaiting,
		ExecutionStatusCompleted,
		ExecutionStatusFailed,
		ExecutionStatusCancelled,
	},
	ExecutionStatusWaiting: {
		ExecutionStatusRunning,
		ExecutionStatusCancelled,
	},
}

// IsTerminal reports whether the status admits no further transitions.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed || s == ExecutionStatusCancelled
}

// CanTransitionTo reports whether moving to target is a legal edge.
func (s ExecutionStatus) CanTransitionTo(target ExecutionStatus) bool {
	for _, allowed := range executionTransitions[s] {
		if allowed == target {
			return true
		}
	}

	return false
}

// ActivityStatus defines the possible states of one activity run.
type ActivityStatus string

const (
	ActivityStatusRunning   ActivityStatus = "running"
	ActivityStatusWaiting   ActivityStatus = "waiting"
	ActivityStatusCompleted ActivityStatus = "completed"
	ActivityStatusFailed    ActivityStatus = "failed"
	ActivityStatusCancelled ActivityStatus = "cancelled"
)

var activityTransitions = map[ActivityStatus][]ActivityStatus{
	ActivityStatusRunning: {
		ActivityStatusWaiting,
		ActivityStatusCompleted,
		ActivityStatusFailed,
		ActivityStatusCancelled,
	},
	// A waiting activity is the only kind resumption may complete.
	ActivityStatusWaiting: {
		ActivityStatusCompleted,
		ActivityStatusCancelled,
	},
}

// IsTerminal reports whether the activity status admits no further transitions.
func (s ActivityStatus) IsTerminal() bool {
	return s == ActivityStatusCompleted || s == ActivityStatusFailed || s == ActivityStatusCancelled
}

// CanTransitionTo reports whether moving to target is a legal edge.
func (s ActivityStatus) CanTransitionTo(target ActivityStatus) bool {
	for _, allowed := range activityTransitions[s] {
		if allowed == target {
			return true
		}
	}

	return false
}

// ExecutionContext carries the identity and deadline an execution runs under.
type ExecutionContext struct {
	TenantID      string    `json:"tenant_id"`
	UserID        string    `json:"user_id,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	TimeoutAt     time.Time `json:"timeout_at"`
}

// WorkflowTrigger records who or what started an execution.
type WorkflowTrigger struct {
	Type   string         `json:"type"`
	Source string         `json:"source,omitempty"`
	UserID string         `json:"user_id,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}

// WorkflowExecution is one running instance of a workflow definition. The
// engine mutates an in-memory copy; the execution store holds the durable one.
type WorkflowExecution struct {
	ID              string               `json:"id"`
	TenantID        string               `json:"tenant_id"`
	WorkflowID      string               `json:"workflow_id"`
	WorkflowVersion int                  `json:"workflow_version"`
	Status          ExecutionStatus      `json:"status"`
	Data            map[string]any       `json:"data"`
	Activities      []*ActivityExecution `json:"activities"`
	Context         ExecutionContext     `json:"context"`
	Trigger         WorkflowTrigger      `json:"trigger"`
	ErrorMessage    string               `json:"error_message,omitempty"`
	StartedAt       time.Time            `json:"started_at"`
	LastActivityAt  time.Time            `json:"last_activity_at"`
	CompletedAt     *time.Time           `json:"completed_at,omitempty"`

	// Version is a monotonically increasing stamp bumped on every save.
	// Conditional saves reject concurrent writers (lost-update guard).
	Version int64 `json:"version"`
}

// ActivityExecution is the runtime record of one activity's run.
type ActivityExecution struct {
	ID           string         `json:"id"`
	ActivityID   string         `json:"activity_id"`
	Type         string         `json:"type"`
	Status       ActivityStatus `json:"status"`
	Input        map[string]any `json:"input,omitempty"`
	Output       map[string]any `json:"output,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// IsTerminal reports whether the execution reached a terminal status.
func (e *WorkflowExecution) IsTerminal() bool {
	return e.Status.IsTerminal()
}

// TimedOut reports whether the execution deadline has passed at the given
// instant. TimeoutAt is fixed at start time and never recomputed.
func (e *WorkflowExecution) TimedOut(now time.Time) bool {
	return now.After(e.Context.TimeoutAt)
}

// MergeData merges activity output into the data bag. Later writes overwrite
// earlier ones; keys are never deleted during a run.
func (e *WorkflowExecution) MergeData(data map[string]any) {
	if len(data) == 0 {
		return
	}

	if e.Data == nil {
		e.Data = make(map[string]any, len(data))
	}

	maps.Copy(e.Data, data)
}

// WaitingActivity returns the single activity execution currently parked in
// waiting state, if any. The loop halts on the first waiting result, so at
// most one exists.
func (e *WorkflowExecution) WaitingActivity() (*ActivityExecution, bool) {
	for _, activity := range e.Activities {
		if activity.Status == ActivityStatusWaiting {
			return activity, true
		}
	}

	return nil, false
}

// FindActivityExecution returns the most recent run record for the given
// activity definition id.
func (e *WorkflowExecution) FindActivityExecution(activityID string) (*ActivityExecution, bool) {
	for i := len(e.Activities) - 1; i >= 0; i-- {
		if e.Activities[i].ActivityID == activityID {
			return e.Activities[i], true
		}
	}

	return nil, false
}
