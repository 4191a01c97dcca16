package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExecutionStatus_Transitions(t *testing.T) {
	tests := []struct {
		from    ExecutionStatus
		to      ExecutionStatus
		allowed bool
	}{
		{ExecutionStatusRunning, ExecutionStatusWaiting, true},
		{ExecutionStatusRunning, ExecutionStatusCompleted, true},
		{ExecutionStatusRunning, ExecutionStatusFailed, true},
		{ExecutionStatusRunning, ExecutionStatusCancelled, true},
		{ExecutionStatusWaiting, ExecutionStatusRunning, true},
		{ExecutionStatusWaiting, ExecutionStatusCancelled, true},
		{ExecutionStatusWaiting, ExecutionStatusCompleted, false},
		{ExecutionStatusWaiting, ExecutionStatusFailed, false},
		{ExecutionStatusCompleted, ExecutionStatusRunning, false},
		{ExecutionStatusFailed, ExecutionStatusRunning, false},
		{ExecutionStatusCancelled, ExecutionStatusRunning, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestActivityStatus_Transitions(t *testing.T) {
	assert.True(t, ActivityStatusRunning.CanTransitionTo(ActivityStatusCompleted))
	assert.True(t, ActivityStatusRunning.CanTransitionTo(ActivityStatusWaiting))
	assert.True(t, ActivityStatusRunning.CanTransitionTo(ActivityStatusFailed))
	assert.True(t, ActivityStatusRunning.CanTransitionTo(ActivityStatusCancelled))
	assert.True(t, ActivityStatusWaiting.CanTransitionTo(ActivityStatusCompleted))
	assert.True(t, ActivityStatusWaiting.CanTransitionTo(ActivityStatusCancelled))

	assert.False(t, ActivityStatusWaiting.CanTransitionTo(ActivityStatusFailed))
	assert.False(t, ActivityStatusCompleted.CanTransitionTo(ActivityStatusRunning))
	assert.False(t, ActivityStatusFailed.CanTransitionTo(ActivityStatusCompleted))
}

func TestExecutionStatus_IsTerminal(t *testing.T) {
	assert.False(t, ExecutionStatusRunning.IsTerminal())
	assert.False(t, ExecutionStatusWaiting.IsTerminal())
	assert.True(t, ExecutionStatusCompleted.IsTerminal())
	assert.True(t, ExecutionStatusFailed.IsTerminal())
	assert.True(t, ExecutionStatusCancelled.IsTerminal())
}

func TestWorkflowExecution_MergeData(t *testing.T) {
	execution := &WorkflowExecution{Data: map[string]any{"x": "first", "keep": 1}}

	execution.MergeData(map[string]any{"x": "second", "y": true})

	// Later writes overwrite earlier ones; keys are never deleted.
	assert.Equal(t, "second", execution.Data["x"])
	assert.Equal(t, 1, execution.Data["keep"])
	assert.Equal(t, true, execution.Data["y"])
}

func TestWorkflowExecution_MergeDataIntoNilBag(t *testing.T) {
	execution := &WorkflowExecution{}

	execution.MergeData(map[string]any{"a": 1})

	assert.Equal(t, 1, execution.Data["a"])
}

func TestWorkflowExecution_WaitingActivity(t *testing.T) {
	execution := &WorkflowExecution{
		Activities: []*ActivityExecution{
			{ID: "run-1", ActivityID: "a", Status: ActivityStatusCompleted},
			{ID: "run-2", ActivityID: "b", Status: ActivityStatusWaiting},
		},
	}

	waiting, ok := execution.WaitingActivity()
	assert.True(t, ok)
	assert.Equal(t, "b", waiting.ActivityID)

	execution.Activities[1].Status = ActivityStatusCompleted

	_, ok = execution.WaitingActivity()
	assert.False(t, ok)
}

func TestWorkflowExecution_TimedOut(t *testing.T) {
	now := time.Now().UTC()
	execution := &WorkflowExecution{
		Context: ExecutionContext{TimeoutAt: now.Add(time.Hour)},
	}

	assert.False(t, execution.TimedOut(now))
	assert.True(t, execution.TimedOut(now.Add(2*time.Hour)))
}

func TestWorkflowDefinition_ExecutionTimeout(t *testing.T) {
	definition := &WorkflowDefinition{}
	assert.Equal(t, DefaultExecutionTimeout, definition.ExecutionTimeout())

	definition.Timeout = time.Hour
	assert.Equal(t, time.Hour, definition.ExecutionTimeout())
}
