package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/caravelhq/caravel/pkg/models"
	"github.com/caravelhq/caravel/pkg/persistence"
)

// ExecutionRepository handles workflow execution database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

// GetExecution retrieves an execution by its id.
func (er *ExecutionRepository) GetExecution(ctx context.Context, executionID string) (*models.WorkflowExecution, error) {
	query := `
		SELECT id, tenant_id, workflow_id, workflow_version, status, data,
			   activities, context, trigger_info, error_message,
			   started_at, last_activity_at, completed_at, version
		FROM executions
		WHERE id = $1
	`

	row := er.db.QueryRowContext(ctx, query, executionID)

	execution, err := er.scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	return execution, nil
}

// SaveExecution upserts an execution conditionally on its version stamp. The
// row must still carry the version the caller loaded; a stale copy fails with
// ErrVersionConflict and writes nothing. On success the stamp is bumped on
// both the row and the passed execution.
func (er *ExecutionRepository) SaveExecution(ctx context.Context, execution *models.WorkflowExecution) error {
	dataJSON, err := json.Marshal(execution.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	activitiesJSON, err := json.Marshal(execution.Activities)
	if err != nil {
		return fmt.Errorf("failed to marshal activities: %w", err)
	}

	contextJSON, err := json.Marshal(execution.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal context: %w", err)
	}

	triggerJSON, err := json.Marshal(execution.Trigger)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger: %w", err)
	}

	query := `
		INSERT INTO executions (
			id, tenant_id, workflow_id, workflow_version, status, data,
			activities, context, trigger_info, error_message,
			started_at, last_activity_at, completed_at, version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14 + 1)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			data = EXCLUDED.data,
			activities = EXCLUDED.activities,
			error_message = EXCLUDED.error_message,
			last_activity_at = EXCLUDED.last_activity_at,
			completed_at = EXCLUDED.completed_at,
			version = executions.version + 1
		WHERE executions.version = $14
	`

	result, err := er.db.ExecContext(ctx, query,
		execution.ID,
		execution.TenantID,
		execution.WorkflowID,
		execution.WorkflowVersion,
		execution.Status,
		dataJSON,
		activitiesJSON,
		contextJSON,
		triggerJSON,
		nullable(execution.ErrorMessage),
		execution.StartedAt,
		execution.LastActivityAt,
		execution.CompletedAt,
		execution.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to save execution: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}

	if affected == 0 {
		return persistence.NewExecutionError("Save", execution.ID, persistence.ErrVersionConflict)
	}

	execution.Version++

	return nil
}

// ListExecutionsByTenant returns the tenant's executions matching the filter,
// sorted by start time descending with skip/take pagination.
func (er *ExecutionRepository) ListExecutionsByTenant(ctx context.Context, tenantID string, filter persistence.ExecutionFilter) ([]*models.WorkflowExecution, error) {
	var (
		conditions = []string{"tenant_id = $1"}
		args       = []any{tenantID}
	)

	if filter.WorkflowID != "" {
		args = append(args, filter.WorkflowID)
		conditions = append(conditions, "workflow_id = $"+strconv.Itoa(len(args)))
	}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, "status = $"+strconv.Itoa(len(args)))
	}

	if filter.StartedAfter != nil {
		args = append(args, *filter.StartedAfter)
		conditions = append(conditions, "started_at >= $"+strconv.Itoa(len(args)))
	}

	if filter.StartedBefore != nil {
		args = append(args, *filter.StartedBefore)
		conditions = append(conditions, "started_at <= $"+strconv.Itoa(len(args)))
	}

	query := `
		SELECT id, tenant_id, workflow_id, workflow_version, status, data,
			   activities, context, trigger_info, error_message,
			   started_at, last_activity_at, completed_at, version
		FROM executions
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY started_at DESC
	`

	if filter.Take > 0 {
		args = append(args, filter.Take)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	if filter.Skip > 0 {
		args = append(args, filter.Skip)
		query += " OFFSET $" + strconv.Itoa(len(args))
	}

	rows, err := er.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			er.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	var executions []*models.WorkflowExecution

	for rows.Next() {
		execution, err := er.scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	return executions, rows.Err()
}

func (er *ExecutionRepository) scanExecution(row rowScanner) (*models.WorkflowExecution, error) {
	var (
		execution      models.WorkflowExecution
		dataJSON       []byte
		activitiesJSON []byte
		contextJSON    []byte
		triggerJSON    []byte
		errorMessage   sql.NullString
		completedAt    sql.NullTime
	)

	err := row.Scan(
		&execution.ID,
		&execution.TenantID,
		&execution.WorkflowID,
		&execution.WorkflowVersion,
		&execution.Status,
		&dataJSON,
		&activitiesJSON,
		&contextJSON,
		&triggerJSON,
		&errorMessage,
		&execution.StartedAt,
		&execution.LastActivityAt,
		&completedAt,
		&execution.Version,
	)
	if err != nil {
		return nil, err
	}

	execution.ErrorMessage = errorMessage.String

	if completedAt.Valid {
		execution.CompletedAt = &completedAt.Time
	}

	if err := json.Unmarshal(dataJSON, &execution.Data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal data: %w", err)
	}

	if err := json.Unmarshal(activitiesJSON, &execution.Activities); err != nil {
		return nil, fmt.Errorf("failed to unmarshal activities: %w", err)
	}

	if err := json.Unmarshal(contextJSON, &execution.Context); err != nil {
		return nil, fmt.Errorf("failed to unmarshal context: %w", err)
	}

	if err := json.Unmarshal(triggerJSON, &execution.Trigger); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger: %w", err)
	}

	return &execution, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
