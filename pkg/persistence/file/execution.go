package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/caravelhq/caravel/pkg/models"
	"github.com/caravelhq/caravel/pkg/persistence"
)

// ExecutionRepository handles execution file operations. The mutex makes the
// read-compare-write of the conditional save atomic within the process.
type ExecutionRepository struct {
	root string
	mu   sync.Mutex
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

func (er *ExecutionRepository) dir() string {
	return filepath.Join(er.root, "executions")
}

// GetExecution loads an execution by id.
func (er *ExecutionRepository) GetExecution(_ context.Context, executionID string) (*models.WorkflowExecution, error) {
	if err := validateID(executionID); err != nil {
		return nil, err
	}

	return er.read(executionID)
}

func (er *ExecutionRepository) read(executionID string) (*models.WorkflowExecution, error) {
	data, err := os.ReadFile(filepath.Join(er.dir(), executionID+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, fmt.Errorf("failed to read execution %s: %w", executionID, err)
	}

	var execution models.WorkflowExecution
	if err := json.Unmarshal(data, &execution); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution %s: %w", executionID, err)
	}

	return &execution, nil
}

// SaveExecution persists the execution conditionally on its version stamp.
// The stored copy must still carry the version the caller loaded; the stamp
// on the passed execution is bumped only after the write succeeds, so a
// failed save leaves the caller's copy usable for a retry.
func (er *ExecutionRepository) SaveExecution(_ context.Context, execution *models.WorkflowExecution) error {
	if err := validateID(execution.ID); err != nil {
		return err
	}

	er.mu.Lock()
	defer er.mu.Unlock()

	current, err := er.read(execution.ID)
	if err != nil && !persistence.IsExecutionNotFound(err) {
		return err
	}

	if current != nil && current.Version != execution.Version {
		return persistence.NewExecutionError("Save", execution.ID, persistence.ErrVersionConflict)
	}

	if err := os.MkdirAll(er.dir(), 0750); err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	stored := *execution
	stored.Version++

	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to marshal execution %s: %w", execution.ID, err)
	}

	if err := os.WriteFile(filepath.Join(er.dir(), execution.ID+".json"), data, 0600); err != nil {
		return fmt.Errorf("failed to write execution %s: %w", execution.ID, err)
	}

	execution.Version = stored.Version

	return nil
}

// ListExecutionsByTenant returns the tenant's executions, filtered and paged,
// sorted by start time descending.
func (er *ExecutionRepository) ListExecutionsByTenant(_ context.Context, tenantID string, filter persistence.ExecutionFilter) ([]*models.WorkflowExecution, error) {
	if err := validateID(tenantID); err != nil {
		return nil, err
	}

	dir := er.dir()
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []*models.WorkflowExecution{}, nil
	}

	jsonFiles, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list execution files: %w", err)
	}

	executions := make([]*models.WorkflowExecution, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		execution, err := er.read(strings.TrimSuffix(file, ".json"))
		if err != nil {
			return nil, err
		}

		if execution.TenantID != tenantID || !filter.Matches(execution) {
			continue
		}

		executions = append(executions, execution)
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	return filter.Page(executions), nil
}
