// Package web provides HTTP request and response types for the execution API.
package web

import "time"

// StartExecutionRequest represents the request body for starting an execution.
type StartExecutionRequest struct {
	TenantID      string         `json:"tenant_id"      validate:"required"`
	WorkflowID    string         `json:"workflow_id"    validate:"required"`
	Data          map[string]any `json:"data,omitempty"`
	TriggerType   string         `json:"trigger_type,omitempty"`
	TriggerSource string         `json:"trigger_source,omitempty"`
	UserID        string         `json:"user_id,omitempty"`
}

// ResumeExecutionRequest represents the request body for resuming a waiting
// execution.
type ResumeExecutionRequest struct {
	ActivityID string         `json:"activity_id" validate:"required"`
	Result     map[string]any `json:"result,omitempty"`
}

// CancelExecutionRequest represents the request body for cancelling an
// execution.
type CancelExecutionRequest struct {
	Reason string `json:"reason,omitempty"`
}

// CancelExecutionResponse reports whether the cancel changed anything.
type CancelExecutionResponse struct {
	Cancelled bool `json:"cancelled"`
}

// AnalyticsQuery carries the parsed window for the analytics endpoint.
type AnalyticsQuery struct {
	TenantID   string    `validate:"required"`
	WorkflowID string    `validate:"required"`
	Start      time.Time `validate:"required"`
	End        time.Time `validate:"required,gtfield=Start"`
}
