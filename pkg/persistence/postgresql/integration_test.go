package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/caravelhq/caravel/pkg/models"
	"github.com/caravelhq/caravel/pkg/persistence"
	"github.com/caravelhq/caravel/pkg/persistence/postgresql"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"executions", "workflows", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	require.NoError(t, db.Close())
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("caravel_test"),
			postgres.WithUsername("caravel"),
			postgres.WithPassword("caravel"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)
		require.NoError(t, p.Close(ctx))
		cancel()
	})

	return p, ctx
}

func TestIntegration_WorkflowRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	p, ctx := setupTestDB(t)

	next := "notify"
	workflow := &models.WorkflowDefinition{
		ID:       uuid.New().String(),
		TenantID: "acme",
		Name:     "Expense Approval",
		Version:  2,
		Status:   models.WorkflowStatusActive,
		Timeout:  6 * time.Hour,
		Activities: []*models.Activity{
			{
				ID:             "review",
				Type:           "approval",
				Configuration:  map[string]any{"approvers": []any{"finance"}},
				NextActivityID: &next,
			},
			{
				ID:   "notify",
				Type: "log",
				Transitions: []*models.ConditionalTransition{
					{Condition: "status == 'approved'", NextActivityID: "payout"},
				},
			},
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	require.NoError(t, p.WorkflowRepository().SaveWorkflow(ctx, workflow))

	loaded, err := p.WorkflowRepository().GetWorkflow(ctx, "acme", workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, "Expense Approval", loaded.Name)
	assert.Equal(t, 6*time.Hour, loaded.Timeout)
	require.Len(t, loaded.Activities, 2)
	require.NotNil(t, loaded.Activities[0].NextActivityID)
	assert.Equal(t, "notify", *loaded.Activities[0].NextActivityID)
	require.Len(t, loaded.Activities[1].Transitions, 1)

	_, err = p.WorkflowRepository().GetWorkflow(ctx, "acme", "missing")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestIntegration_ExecutionConditionalSave(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	p, ctx := setupTestDB(t)
	repo := p.ExecutionRepository()

	now := time.Now().UTC().Truncate(time.Millisecond)
	execution := &models.WorkflowExecution{
		ID:              uuid.New().String(),
		TenantID:        "acme",
		WorkflowID:      "expense-approval",
		WorkflowVersion: 2,
		Status:          models.ExecutionStatusRunning,
		Data:            map[string]any{"amount": "120.50"},
		Context: models.ExecutionContext{
			TenantID:  "acme",
			TimeoutAt: now.Add(6 * time.Hour),
		},
		Trigger:        models.WorkflowTrigger{Type: "api", UserID: "u-1"},
		StartedAt:      now,
		LastActivityAt: now,
	}

	require.NoError(t, repo.SaveExecution(ctx, execution))
	assert.Equal(t, int64(1), execution.Version)

	// A stale copy loses the conditional save.
	stale := *execution
	stale.Version = 0
	err := repo.SaveExecution(ctx, &stale)
	assert.True(t, persistence.IsVersionConflict(err))

	execution.Status = models.ExecutionStatusWaiting
	execution.Activities = append(execution.Activities, &models.ActivityExecution{
		ID:         uuid.New().String(),
		ActivityID: "review",
		Type:       "approval",
		Status:     models.ActivityStatusWaiting,
		StartedAt:  now,
	})
	require.NoError(t, repo.SaveExecution(ctx, execution))

	loaded, err := repo.GetExecution(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusWaiting, loaded.Status)
	assert.Equal(t, int64(2), loaded.Version)
	require.Len(t, loaded.Activities, 1)
	assert.Equal(t, models.ActivityStatusWaiting, loaded.Activities[0].Status)
	assert.Equal(t, "120.50", loaded.Data["amount"])
}

func TestIntegration_ListExecutionsByTenant(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	p, ctx := setupTestDB(t)
	repo := p.ExecutionRepository()

	base := time.Now().UTC().Truncate(time.Millisecond)

	for i, status := range []models.ExecutionStatus{
		models.ExecutionStatusCompleted,
		models.ExecutionStatusRunning,
		models.ExecutionStatusCompleted,
	} {
		execution := &models.WorkflowExecution{
			ID:             uuid.New().String(),
			TenantID:       "acme",
			WorkflowID:     "expense-approval",
			Status:         status,
			Data:           map[string]any{},
			StartedAt:      base.Add(time.Duration(i) * time.Minute),
			LastActivityAt: base,
		}
		require.NoError(t, repo.SaveExecution(ctx, execution))
	}

	all, err := repo.ListExecutionsByTenant(ctx, "acme", persistence.ExecutionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].StartedAt.After(all[1].StartedAt))

	completed := models.ExecutionStatusCompleted
	filtered, err := repo.ListExecutionsByTenant(ctx, "acme", persistence.ExecutionFilter{
		Status: &completed,
		Take:   1,
	})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, completed, filtered[0].Status)

	other, err := repo.ListExecutionsByTenant(ctx, "globex", persistence.ExecutionFilter{})
	require.NoError(t, err)
	assert.Empty(t, other)
}
