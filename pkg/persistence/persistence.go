// Package persistence provides the storage abstraction layer for workflow
// definitions and executions.
package persistence

import (
	"context"
	"time"

	"github.com/caravelhq/caravel/pkg/models"
)

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow definitions. The engine only reads them.
type WorkflowRepository interface {
	GetWorkflow(ctx context.Context, tenantID, workflowID string) (*models.WorkflowDefinition, error)
	SaveWorkflow(ctx context.Context, workflow *models.WorkflowDefinition) error
	ListWorkflows(ctx context.Context, tenantID string) ([]*models.WorkflowDefinition, error)
}

// ExecutionRepository stores workflow executions. SaveExecution is
// conditional on the execution's prior version stamp: a save with a stale
// version fails with ErrVersionConflict and writes nothing.
type ExecutionRepository interface {
	GetExecution(ctx context.Context, executionID string) (*models.WorkflowExecution, error)
	SaveExecution(ctx context.Context, execution *models.WorkflowExecution) error
	ListExecutionsByTenant(ctx context.Context, tenantID string, filter ExecutionFilter) ([]*models.WorkflowExecution, error)
}

// ExecutionFilter narrows and pages execution listings. Results are always
// sorted by start time descending.
type ExecutionFilter struct {
	WorkflowID    string
	Status        *models.ExecutionStatus
	StartedAfter  *time.Time
	StartedBefore *time.Time
	Skip          int
	Take          int
}

// Matches reports whether the execution passes the filter predicates
// (pagination excluded).
func (f ExecutionFilter) Matches(execution *models.WorkflowExecution) bool {
	if f.WorkflowID != "" && execution.WorkflowID != f.WorkflowID {
		return false
	}

	if f.Status != nil && execution.Status != *f.Status {
		return false
	}

	if f.StartedAfter != nil && execution.StartedAt.Before(*f.StartedAfter) {
		return false
	}

	if f.StartedBefore != nil && execution.StartedAt.After(*f.StartedBefore) {
		return false
	}

	return true
}

// Page applies skip/take to an already sorted result set.
func (f ExecutionFilter) Page(executions []*models.WorkflowExecution) []*models.WorkflowExecution {
	if f.Skip > 0 {
		if f.Skip >= len(executions) {
			return nil
		}

		executions = executions[f.Skip:]
	}

	if f.Take > 0 && f.Take < len(executions) {
		executions = executions[:f.Take]
	}

	return executions
}
