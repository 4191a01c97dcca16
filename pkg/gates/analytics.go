package gates

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/caravelhq/caravel/pkg/models"
	"github.com/caravelhq/caravel/pkg/persistence"
)

// StoreAnalyticsSink answers analytics queries by aggregating the execution
// store. Terminal executions are already durable when Record* fires, so the
// sink only has to count.
type StoreAnalyticsSink struct {
	executions persistence.ExecutionRepository
	logger     *slog.Logger
}

func NewStoreAnalyticsSink(executions persistence.ExecutionRepository, logger *slog.Logger) *StoreAnalyticsSink {
	return &StoreAnalyticsSink{
		executions: executions,
		logger:     logger.With("module", "analytics"),
	}
}

func (s *StoreAnalyticsSink) RecordExecution(ctx context.Context, execution *models.WorkflowExecution) {
	s.logger.DebugContext(ctx, "Recorded terminal execution",
		"execution_id", execution.ID,
		"tenant_id", execution.TenantID,
		"workflow_id", execution.WorkflowID,
		"status", execution.Status,
	)
}

func (s *StoreAnalyticsSink) RecordCancelled(ctx context.Context, execution *models.WorkflowExecution) {
	s.logger.DebugContext(ctx, "Recorded cancelled execution",
		"execution_id", execution.ID,
		"tenant_id", execution.TenantID,
		"workflow_id", execution.WorkflowID,
	)
}

// GetAnalytics aggregates executions of one workflow whose start time falls
// inside [start, end].
func (s *StoreAnalyticsSink) GetAnalytics(ctx context.Context, tenantID, workflowID string, start, end time.Time) (*models.Analytics, error) {
	executions, err := s.executions.ListExecutionsByTenant(ctx, tenantID, persistence.ExecutionFilter{
		WorkflowID:    workflowID,
		StartedAfter:  &start,
		StartedBefore: &end,
	})
	if err != nil {
		return nil, fmt.Errorf("list executions for analytics: %w", err)
	}

	analytics := &models.Analytics{
		TenantID:   tenantID,
		WorkflowID: workflowID,
		StartDate:  start,
		EndDate:    end,
		ByStatus:   make(map[models.ExecutionStatus]int64),
	}

	var (
		totalDuration time.Duration
		finished      int64
	)

	for _, execution := range executions {
		analytics.Total++
		analytics.ByStatus[execution.Status]++

		if execution.CompletedAt != nil {
			totalDuration += execution.CompletedAt.Sub(execution.StartedAt)
			finished++
		}
	}

	if finished > 0 {
		analytics.AvgDurationMs = totalDuration.Milliseconds() / finished
	}

	return analytics, nil
}
