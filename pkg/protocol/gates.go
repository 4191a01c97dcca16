package protocol

import (
	"context"
	"time"

	"github.com/caravelhq/caravel/pkg/models"
)

// SecurityGate is consulted before any execution is created. A false return
// must leave no trace: no execution persisted, no audit or analytics call.
type SecurityGate interface {
	CanExecute(ctx context.Context, tenantID, workflowID string) (bool, error)
}

// AuditSink receives execution lifecycle notifications after state
// transitions have been persisted.
type AuditSink interface {
	LogStarted(ctx context.Context, execution *models.WorkflowExecution)
	LogCompleted(ctx context.Context, execution *models.WorkflowExecution)
	LogCancelled(ctx context.Context, execution *models.WorkflowExecution, reason string)
}

// AnalyticsSink records terminal executions and answers analytics queries.
type AnalyticsSink interface {
	RecordExecution(ctx context.Context, execution *models.WorkflowExecution)
	RecordCancelled(ctx context.Context, execution *models.WorkflowExecution)
	GetAnalytics(ctx context.Context, tenantID, workflowID string, start, end time.Time) (*models.Analytics, error)
}
