// Package models defines the core domain models for workflow orchestration.
package models

import "time"

// DefaultExecutionTimeout is applied when a definition does not set its own.
const DefaultExecutionTimeout = 24 * time.Hour

// WorkflowStatus represents the lifecycle state of a workflow definition.
type WorkflowStatus string

const (
	WorkflowStatusDraft      WorkflowStatus = "draft"      // Editable, not executable
	WorkflowStatusActive     WorkflowStatus = "active"     // Current version, executable
	WorkflowStatusInactive   WorkflowStatus = "inactive"   // Disabled, not executable
	WorkflowStatusDeprecated WorkflowStatus = "deprecated" // Historical, not executable
)

// WorkflowDefinition is the immutable (per version) activity graph the engine
// executes. The engine only reads definitions; authoring is owned elsewhere.
type WorkflowDefinition struct {
	ID          string         `json:"id"          validate:"required"`
	TenantID    string         `json:"tenant_id"   validate:"required"`
	Name        string         `json:"name"        validate:"required,min=3"`
	Description string         `json:"description"`
	Version     int            `json:"version"     validate:"min=1"`
	Status      WorkflowStatus `json:"status"      validate:"required"`
	Activities  []*Activity    `json:"activities"`
	Timeout     time.Duration  `json:"timeout,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Activity is one node in the definition graph. Routing is either a static
// NextActivityID or the first conditional transition whose condition holds.
type Activity struct {
	ID             string                   `json:"id"   validate:"required"`
	Type           string                   `json:"type" validate:"required"`
	Name           string                   `json:"name"`
	Configuration  map[string]any           `json:"configuration,omitempty"`
	NextActivityID *string                  `json:"next_activity_id,omitempty"`
	Transitions    []*ConditionalTransition `json:"transitions,omitempty"`
}

// ConditionalTransition routes to NextActivityID when Condition evaluates
// true against the execution data bag.
type ConditionalTransition struct {
	Condition      string `json:"condition"        validate:"required"`
	NextActivityID string `json:"next_activity_id" validate:"required"`
}

// IsExecutable reports whether executions may be started from this definition.
func (w *WorkflowDefinition) IsExecutable() bool {
	return w.Status == WorkflowStatusActive
}

// ExecutionTimeout returns the definition timeout, falling back to the
// 24 hour default when unset.
func (w *WorkflowDefinition) ExecutionTimeout() time.Duration {
	if w.Timeout <= 0 {
		return DefaultExecutionTimeout
	}

	return w.Timeout
}

// FirstActivity returns the entry activity of the definition, or nil when the
// definition has no activities.
func (w *WorkflowDefinition) FirstActivity() *Activity {
	if len(w.Activities) == 0 {
		return nil
	}

	return w.Activities[0]
}

// FindActivity looks up an activity by its definition id.
func (w *WorkflowDefinition) FindActivity(activityID string) (*Activity, bool) {
	for _, activity := range w.Activities {
		if activity.ID == activityID {
			return activity, true
		}
	}

	return nil, false
}
