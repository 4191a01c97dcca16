package gates

import (
	"context"
	"log/slog"
	"time"

	"github.com/caravelhq/caravel/pkg/models"
)

// LogAuditSink writes the audit trail as structured log records. Entries are
// emitted only after the corresponding state transition was persisted.
type LogAuditSink struct {
	logger *slog.Logger
}

func NewLogAuditSink(logger *slog.Logger) *LogAuditSink {
	return &LogAuditSink{logger: logger.With("module", "audit")}
}

func (s *LogAuditSink) LogStarted(ctx context.Context, execution *models.WorkflowExecution) {
	s.logger.InfoContext(ctx, "Execution started",
		"execution_id", execution.ID,
		"tenant_id", execution.TenantID,
		"workflow_id", execution.WorkflowID,
		"user_id", execution.Context.UserID,
		"trigger_type", execution.Trigger.Type,
		"correlation_id", execution.Context.CorrelationID,
	)
}

func (s *LogAuditSink) LogCompleted(ctx context.Context, execution *models.WorkflowExecution) {
	attrs := []any{
		"execution_id", execution.ID,
		"tenant_id", execution.TenantID,
		"workflow_id", execution.WorkflowID,
		"status", execution.Status,
	}

	if execution.CompletedAt != nil {
		attrs = append(attrs, "duration", execution.CompletedAt.Sub(execution.StartedAt).Round(time.Millisecond))
	}

	if execution.ErrorMessage != "" {
		attrs = append(attrs, "error", execution.ErrorMessage)
	}

	s.logger.InfoContext(ctx, "Execution finished", attrs...)
}

func (s *LogAuditSink) LogCancelled(ctx context.Context, execution *models.WorkflowExecution, reason string) {
	s.logger.InfoContext(ctx, "Execution cancelled",
		"execution_id", execution.ID,
		"tenant_id", execution.TenantID,
		"workflow_id", execution.WorkflowID,
		"reason", reason,
	)
}
