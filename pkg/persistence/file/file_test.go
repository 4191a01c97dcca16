package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/caravelhq/caravel/pkg/models"
	"github.com/caravelhq/caravel/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowRepository_SaveAndGet(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.WorkflowRepository()

	workflow := &models.WorkflowDefinition{
		ID:       "onboarding",
		TenantID: "acme",
		Name:     "Customer Onboarding",
		Version:  1,
		Status:   models.WorkflowStatusActive,
		Activities: []*models.Activity{
			{ID: "collect", Type: "httprequest"},
		},
	}

	require.NoError(t, repo.SaveWorkflow(t.Context(), workflow))

	loaded, err := repo.GetWorkflow(t.Context(), "acme", "onboarding")
	require.NoError(t, err)
	assert.Equal(t, "Customer Onboarding", loaded.Name)
	assert.Len(t, loaded.Activities, 1)
}

func TestWorkflowRepository_NotFound(t *testing.T) {
	p := NewPersistence(t.TempDir())

	_, err := p.WorkflowRepository().GetWorkflow(t.Context(), "acme", "missing")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowRepository_RejectsPathTraversal(t *testing.T) {
	p := NewPersistence(t.TempDir())

	_, err := p.WorkflowRepository().GetWorkflow(t.Context(), "acme", "../escape")
	assert.Error(t, err)
}

func TestExecutionRepository_SaveBumpsVersion(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.ExecutionRepository()

	execution := &models.WorkflowExecution{
		ID:         "exec-1",
		TenantID:   "acme",
		WorkflowID: "onboarding",
		Status:     models.ExecutionStatusRunning,
		StartedAt:  time.Now().UTC(),
	}

	require.NoError(t, repo.SaveExecution(t.Context(), execution))
	assert.Equal(t, int64(1), execution.Version)

	loaded, err := repo.GetExecution(t.Context(), "exec-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), loaded.Version)
}

func TestExecutionRepository_VersionConflict(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.ExecutionRepository()

	execution := &models.WorkflowExecution{
		ID:        "exec-1",
		TenantID:  "acme",
		Status:    models.ExecutionStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.SaveExecution(t.Context(), execution))

	// A writer holding the stale version 0 copy must be rejected.
	stale := *execution
	stale.Version = 0
	err := repo.SaveExecution(t.Context(), &stale)
	assert.True(t, persistence.IsVersionConflict(err))

	// The current copy saves fine.
	require.NoError(t, repo.SaveExecution(t.Context(), execution))
	assert.Equal(t, int64(2), execution.Version)
}

func TestExecutionRepository_FailedWriteKeepsVersion(t *testing.T) {
	root := t.TempDir()
	p := NewPersistence(root)
	repo := p.ExecutionRepository()

	execution := &models.WorkflowExecution{
		ID:        "exec-1",
		TenantID:  "acme",
		Status:    models.ExecutionStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.SaveExecution(t.Context(), execution))
	require.Equal(t, int64(1), execution.Version)

	// Replace the executions directory with a plain file so the next write
	// cannot land.
	dir := filepath.Join(root, "executions")
	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, os.WriteFile(dir, []byte("blocked"), 0600))

	require.Error(t, repo.SaveExecution(t.Context(), execution))
	assert.Equal(t, int64(1), execution.Version)

	// The unchanged stamp keeps the caller's copy saveable once the store
	// recovers.
	require.NoError(t, os.Remove(dir))
	require.NoError(t, repo.SaveExecution(t.Context(), execution))
	assert.Equal(t, int64(2), execution.Version)
}

func TestExecutionRepository_ListFiltersAndPages(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.ExecutionRepository()

	base := time.Now().UTC()
	statuses := []models.ExecutionStatus{
		models.ExecutionStatusCompleted,
		models.ExecutionStatusRunning,
		models.ExecutionStatusCompleted,
	}

	for i, status := range statuses {
		require.NoError(t, repo.SaveExecution(t.Context(), &models.WorkflowExecution{
			ID:         "exec-" + string(rune('a'+i)),
			TenantID:   "acme",
			WorkflowID: "onboarding",
			Status:     status,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	require.NoError(t, repo.SaveExecution(t.Context(), &models.WorkflowExecution{
		ID:        "exec-other",
		TenantID:  "globex",
		Status:    models.ExecutionStatusRunning,
		StartedAt: base,
	}))

	all, err := repo.ListExecutionsByTenant(t.Context(), "acme", persistence.ExecutionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	// Sorted by start time descending.
	assert.True(t, all[0].StartedAt.After(all[1].StartedAt))
	assert.True(t, all[1].StartedAt.After(all[2].StartedAt))

	completed := models.ExecutionStatusCompleted
	filtered, err := repo.ListExecutionsByTenant(t.Context(), "acme", persistence.ExecutionFilter{Status: &completed})
	require.NoError(t, err)
	assert.Len(t, filtered, 2)

	paged, err := repo.ListExecutionsByTenant(t.Context(), "acme", persistence.ExecutionFilter{Skip: 1, Take: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, all[1].ID, paged[0].ID)
}

func TestExecutionRepository_NotFound(t *testing.T) {
	p := NewPersistence(t.TempDir())

	_, err := p.ExecutionRepository().GetExecution(t.Context(), "missing")
	assert.True(t, persistence.IsExecutionNotFound(err))
}
