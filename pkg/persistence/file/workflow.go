package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caravelhq/caravel/pkg/models"
	"github.com/caravelhq/caravel/pkg/persistence"
)

// WorkflowRepository handles workflow definition file operations.
type WorkflowRepository struct {
	root string
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: root}
}

func (wr *WorkflowRepository) dir(tenantID string) string {
	return filepath.Join(wr.root, "workflows", tenantID)
}

func validateID(id string) error {
	if id == "" {
		return errors.New("identifier cannot be empty")
	}

	// Identifiers become file names; reject path traversal.
	if strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return errors.New("identifier contains invalid characters")
	}

	return nil
}

// GetWorkflow loads a definition by tenant and workflow id.
func (wr *WorkflowRepository) GetWorkflow(_ context.Context, tenantID, workflowID string) (*models.WorkflowDefinition, error) {
	if err := validateID(tenantID); err != nil {
		return nil, err
	}

	if err := validateID(workflowID); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(wr.dir(tenantID), workflowID+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, fmt.Errorf("failed to read workflow %s: %w", workflowID, err)
	}

	var workflow models.WorkflowDefinition
	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %s: %w", workflowID, err)
	}

	return &workflow, nil
}

// SaveWorkflow writes a definition document.
func (wr *WorkflowRepository) SaveWorkflow(_ context.Context, workflow *models.WorkflowDefinition) error {
	if err := validateID(workflow.TenantID); err != nil {
		return err
	}

	if err := validateID(workflow.ID); err != nil {
		return err
	}

	dir := wr.dir(workflow.TenantID)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	data, err := json.Marshal(workflow)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", workflow.ID, err)
	}

	if err := os.WriteFile(filepath.Join(dir, workflow.ID+".json"), data, 0600); err != nil {
		return fmt.Errorf("failed to write workflow %s: %w", workflow.ID, err)
	}

	return nil
}

// ListWorkflows returns all definitions for a tenant.
func (wr *WorkflowRepository) ListWorkflows(ctx context.Context, tenantID string) ([]*models.WorkflowDefinition, error) {
	if err := validateID(tenantID); err != nil {
		return nil, err
	}

	dir := wr.dir(tenantID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []*models.WorkflowDefinition{}, nil
	}

	jsonFiles, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.WorkflowDefinition, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		workflowID := strings.TrimSuffix(file, ".json")

		workflow, err := wr.GetWorkflow(ctx, tenantID, workflowID)
		if err != nil {
			return nil, fmt.Errorf("failed to load workflow %s: %w", workflowID, err)
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}
