package models

import "time"

// Analytics summarizes executions of one workflow over a time window.
type Analytics struct {
	TenantID      string                    `json:"tenant_id"`
	WorkflowID    string                    `json:"workflow_id"`
	StartDate     time.Time                 `json:"start_date"`
	EndDate       time.Time                 `json:"end_date"`
	Total         int64                     `json:"total"`
	ByStatus      map[ExecutionStatus]int64 `json:"by_status"`
	AvgDurationMs int64                     `json:"avg_duration_ms"`
}
