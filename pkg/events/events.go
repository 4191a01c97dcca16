// Package events defines event types for execution lifecycle notifications.
package events

import (
	"time"

	"github.com/caravelhq/caravel/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every execution lifecycle event.
const Topic = "caravel.executions"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionCancelledEvent EventType = "execution.cancelled"
	ExecutionWaitingEvent   EventType = "execution.waiting"
	ExecutionResumedEvent   EventType = "execution.resumed"
	ActivityCompletedEvent  EventType = "activity.completed"
	ActivityFailedEvent     EventType = "activity.failed"
)

type BaseEvent struct {
	ID          string         `json:"id"`
	Type        EventType      `json:"type"`
	Timestamp   time.Time      `json:"timestamp"`
	TenantID    string         `json:"tenant_id"`
	WorkflowID  string         `json:"workflow_id"`
	ExecutionID string         `json:"execution_id"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent builds the shared envelope for an execution event.
func NewBaseEvent(eventType EventType, execution *models.WorkflowExecution) BaseEvent {
	return BaseEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		TenantID:    execution.TenantID,
		WorkflowID:  execution.WorkflowID,
		ExecutionID: execution.ID,
	}
}

type ExecutionStarted struct {
	BaseEvent

	TriggerType   string `json:"trigger_type,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

func (e ExecutionStarted) GetType() EventType { return ExecutionStartedEvent }

type ExecutionCompleted struct {
	BaseEvent

	Duration time.Duration `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType { return ExecutionCompletedEvent }

type ExecutionFailed struct {
	BaseEvent

	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

func (e ExecutionFailed) GetType() EventType { return ExecutionFailedEvent }

type ExecutionCancelled struct {
	BaseEvent

	Reason string `json:"reason"`
}

func (e ExecutionCancelled) GetType() EventType { return ExecutionCancelledEvent }

type ExecutionWaiting struct {
	BaseEvent

	ActivityID string `json:"activity_id"`
}

func (e ExecutionWaiting) GetType() EventType { return ExecutionWaitingEvent }

type ExecutionResumed struct {
	BaseEvent

	ActivityID string `json:"activity_id"`
}

func (e ExecutionResumed) GetType() EventType { return ExecutionResumedEvent }

type ActivityCompleted struct {
	BaseEvent

	ActivityID   string        `json:"activity_id"`
	ActivityType string        `json:"activity_type"`
	Duration     time.Duration `json:"duration"`
}

func (e ActivityCompleted) GetType() EventType { return ActivityCompletedEvent }

type ActivityFailed struct {
	BaseEvent

	ActivityID   string `json:"activity_id"`
	ActivityType string `json:"activity_type"`
	Error        string `json:"error"`
}

func (e ActivityFailed) GetType() EventType { return ActivityFailedEvent }
