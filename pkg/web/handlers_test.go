package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/caravelhq/caravel/pkg/engine"
	"github.com/caravelhq/caravel/pkg/gates"
	"github.com/caravelhq/caravel/pkg/models"
	"github.com/caravelhq/caravel/pkg/persistence/file"
	"github.com/caravelhq/caravel/pkg/registry"
	"github.com/caravelhq/caravel/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	app   *fiber.App
	store *file.Persistence
}

func setupTestAPI(t *testing.T, gate *gates.StaticSecurityGate) *testAPI {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	store := file.NewPersistence(t.TempDir())

	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultActivities()

	if gate == nil {
		gate = gates.NewAllowAllSecurityGate()
	}

	eng := engine.New(engine.Config{
		Logger:      logger,
		Persistence: store,
		Registry:    reg,
		Gate:        gate,
		Audit:       gates.NewLogAuditSink(logger),
		Analytics:   gates.NewStoreAnalyticsSink(store.ExecutionRepository(), logger),
	})

	eng.Start(t.Context())
	t.Cleanup(eng.Stop)

	handlers := web.NewAPIHandlers(eng, store, validator.New(validator.WithRequiredStructEnabled()))

	return &testAPI{app: web.NewApp(handlers), store: store}
}

func (a *testAPI) saveWorkflow(t *testing.T, workflow *models.WorkflowDefinition) {
	t.Helper()
	require.NoError(t, a.store.WorkflowRepository().SaveWorkflow(t.Context(), workflow))
}

func (a *testAPI) request(t *testing.T, method, target string, body any) *http.Response {
	t.Helper()

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewBuffer(payload)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.app.Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	require.NoError(t, err)

	return resp
}

func decodeExecution(t *testing.T, resp *http.Response) *models.WorkflowExecution {
	t.Helper()

	defer func() { _ = resp.Body.Close() }()

	var execution models.WorkflowExecution
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&execution))

	return &execution
}

func simpleWorkflow(id string) *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		ID:       id,
		TenantID: "tenant-1",
		Name:     "workflow " + id,
		Version:  1,
		Status:   models.WorkflowStatusActive,
		Activities: []*models.Activity{
			{ID: "a", Type: "log", Configuration: map[string]any{"message": "hi"}},
		},
	}
}

func approvalWorkflow(id string) *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		ID:       id,
		TenantID: "tenant-1",
		Name:     "workflow " + id,
		Version:  1,
		Status:   models.WorkflowStatusActive,
		Activities: []*models.Activity{
			{ID: "approve", Type: "approval", Configuration: map[string]any{"prompt": "ok?"}},
		},
	}
}

func TestStartExecution(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
	}{
		{
			name: "successful start",
			requestBody: web.StartExecutionRequest{
				TenantID:   "tenant-1",
				WorkflowID: "wf-1",
				Data:       map[string]any{"order_id": "o-1"},
				UserID:     "user-1",
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "missing tenant",
			requestBody: web.StartExecutionRequest{
				WorkflowID: "wf-1",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "missing workflow",
			requestBody: web.StartExecutionRequest{
				TenantID: "tenant-1",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "unknown workflow",
			requestBody: web.StartExecutionRequest{
				TenantID:   "tenant-1",
				WorkflowID: "missing",
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := setupTestAPI(t, nil)
			api.saveWorkflow(t, simpleWorkflow("wf-1"))

			resp := api.request(t, http.MethodPost, "/executions/", tt.requestBody)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusCreated {
				execution := decodeExecution(t, resp)
				assert.NotEmpty(t, execution.ID)
				assert.Equal(t, "tenant-1", execution.TenantID)
			}
		})
	}
}

func TestStartExecution_PermissionDenied(t *testing.T) {
	api := setupTestAPI(t, gates.NewStaticSecurityGate())
	api.saveWorkflow(t, simpleWorkflow("wf-1"))

	resp := api.request(t, http.MethodPost, "/executions/", web.StartExecutionRequest{
		TenantID:   "tenant-1",
		WorkflowID: "wf-1",
	})
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStartExecution_WorkflowNotActive(t *testing.T) {
	api := setupTestAPI(t, nil)

	workflow := simpleWorkflow("wf-draft")
	workflow.Status = models.WorkflowStatusDraft
	api.saveWorkflow(t, workflow)

	resp := api.request(t, http.MethodPost, "/executions/", web.StartExecutionRequest{
		TenantID:   "tenant-1",
		WorkflowID: "wf-draft",
	})
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestResumeExecution_EndToEnd(t *testing.T) {
	api := setupTestAPI(t, nil)
	api.saveWorkflow(t, approvalWorkflow("wf-approval"))

	resp := api.request(t, http.MethodPost, "/executions/", web.StartExecutionRequest{
		TenantID:   "tenant-1",
		WorkflowID: "wf-approval",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	execution := decodeExecution(t, resp)

	// Wait for the approval activity to park the execution.
	require.Eventually(t, func() bool {
		getResp := api.request(t, http.MethodGet, "/executions/"+execution.ID, nil)

		return decodeExecution(t, getResp).Status == models.ExecutionStatusWaiting
	}, 5*time.Second, 20*time.Millisecond)

	// Resuming the wrong activity conflicts.
	resp = api.request(t, http.MethodPost, "/executions/"+execution.ID+"/resume", web.ResumeExecutionRequest{
		ActivityID: "other",
		Result:     map[string]any{"approved": true},
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	_ = resp.Body.Close()

	resp = api.request(t, http.MethodPost, "/executions/"+execution.ID+"/resume", web.ResumeExecutionRequest{
		ActivityID: "approve",
		Result:     map[string]any{"approved": true},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resumed := decodeExecution(t, resp)
	assert.Equal(t, models.ExecutionStatusRunning, resumed.Status)

	require.Eventually(t, func() bool {
		getResp := api.request(t, http.MethodGet, "/executions/"+execution.ID, nil)

		return decodeExecution(t, getResp).Status == models.ExecutionStatusCompleted
	}, 5*time.Second, 20*time.Millisecond)
}

func TestResumeExecution_UnknownExecution(t *testing.T) {
	api := setupTestAPI(t, nil)

	resp := api.request(t, http.MethodPost, "/executions/exec-missing/resume", web.ResumeExecutionRequest{
		ActivityID: "approve",
	})
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCancelExecution(t *testing.T) {
	api := setupTestAPI(t, nil)
	api.saveWorkflow(t, approvalWorkflow("wf-approval"))

	resp := api.request(t, http.MethodPost, "/executions/", web.StartExecutionRequest{
		TenantID:   "tenant-1",
		WorkflowID: "wf-approval",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	execution := decodeExecution(t, resp)

	require.Eventually(t, func() bool {
		getResp := api.request(t, http.MethodGet, "/executions/"+execution.ID, nil)

		return decodeExecution(t, getResp).Status == models.ExecutionStatusWaiting
	}, 5*time.Second, 20*time.Millisecond)

	resp = api.request(t, http.MethodPost, "/executions/"+execution.ID+"/cancel", web.CancelExecutionRequest{
		Reason: "operator request",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result web.CancelExecutionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	_ = resp.Body.Close()
	assert.True(t, result.Cancelled)

	// Second cancel is a no-op.
	resp = api.request(t, http.MethodPost, "/executions/"+execution.ID+"/cancel", web.CancelExecutionRequest{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	_ = resp.Body.Close()
	assert.False(t, result.Cancelled)
}

func TestListExecutions(t *testing.T) {
	api := setupTestAPI(t, nil)
	api.saveWorkflow(t, simpleWorkflow("wf-1"))

	resp := api.request(t, http.MethodGet, "/executions/?tenant_id=", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	startResp := api.request(t, http.MethodPost, "/executions/", web.StartExecutionRequest{
		TenantID:   "tenant-1",
		WorkflowID: "wf-1",
	})
	require.Equal(t, http.StatusCreated, startResp.StatusCode)
	_ = startResp.Body.Close()

	resp = api.request(t, http.MethodGet, "/executions/?tenant_id=tenant-1&workflow_id=wf-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listing struct {
		Executions []*models.WorkflowExecution `json:"executions"`
		Count      int                         `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	_ = resp.Body.Close()
	assert.Equal(t, 1, listing.Count)

	// Other tenants see nothing.
	resp = api.request(t, http.MethodGet, "/executions/?tenant_id=tenant-2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	_ = resp.Body.Close()
	assert.Equal(t, 0, listing.Count)
}

func TestGetAnalytics(t *testing.T) {
	api := setupTestAPI(t, nil)
	api.saveWorkflow(t, simpleWorkflow("wf-1"))

	resp := api.request(t, http.MethodGet, "/analytics?workflow_id=wf-1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	startResp := api.request(t, http.MethodPost, "/executions/", web.StartExecutionRequest{
		TenantID:   "tenant-1",
		WorkflowID: "wf-1",
	})
	require.Equal(t, http.StatusCreated, startResp.StatusCode)
	_ = startResp.Body.Close()

	resp = api.request(t, http.MethodGet, "/analytics?tenant_id=tenant-1&workflow_id=wf-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var analytics models.Analytics
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&analytics))
	_ = resp.Body.Close()
	assert.Equal(t, int64(1), analytics.Total)
}

func TestHealthCheck(t *testing.T) {
	api := setupTestAPI(t, nil)

	resp := api.request(t, http.MethodGet, "/health", nil)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
