// Package web provides the HTTP handlers for the execution API.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/caravelhq/caravel/pkg/engine"
	"github.com/caravelhq/caravel/pkg/models"
	"github.com/caravelhq/caravel/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

const defaultAnalyticsWindow = 24 * time.Hour

type APIHandlers struct {
	engine      *engine.Engine
	persistence persistence.Persistence
	validator   *validator.Validate
}

func NewAPIHandlers(eng *engine.Engine, store persistence.Persistence, validate *validator.Validate) *APIHandlers {
	return &APIHandlers{
		engine:      eng,
		persistence: store,
		validator:   validate,
	}
}

func (h *APIHandlers) StartExecution(c fiber.Ctx) error {
	var req StartExecutionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	trigger := models.WorkflowTrigger{
		Type:   req.TriggerType,
		Source: req.TriggerSource,
		UserID: req.UserID,
		Data:   req.Data,
	}
	if trigger.Type == "" {
		trigger.Type = "api"
	}

	execution, err := h.engine.StartExecution(c.Context(), req.TenantID, req.WorkflowID, req.Data, trigger)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(execution)
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	executionID := c.Params("id")
	if executionID == "" {
		return badRequest(c, "Execution ID is required")
	}

	execution, err := h.persistence.ExecutionRepository().GetExecution(c.Context(), executionID)
	if err != nil {
		return handleEngineError(c, err)
	}

	// Executions are tenant-scoped; a caller naming another tenant sees
	// nothing.
	if tenantID := c.Query("tenant_id"); tenantID != "" && execution.TenantID != tenantID {
		return notFound(c, "execution not found")
	}

	return c.JSON(execution)
}

func (h *APIHandlers) ResumeExecution(c fiber.Ctx) error {
	executionID := c.Params("id")
	if executionID == "" {
		return badRequest(c, "Execution ID is required")
	}

	var req ResumeExecutionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	execution, err := h.engine.ResumeExecution(c.Context(), executionID, req.ActivityID, req.Result)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	executionID := c.Params("id")
	if executionID == "" {
		return badRequest(c, "Execution ID is required")
	}

	var req CancelExecutionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if req.Reason == "" {
		req.Reason = "Cancelled via API"
	}

	cancelled, err := h.engine.CancelExecution(c.Context(), executionID, req.Reason)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(CancelExecutionResponse{Cancelled: cancelled})
}

func (h *APIHandlers) ListExecutions(c fiber.Ctx) error {
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		return badRequest(c, "tenant_id query parameter is required")
	}

	filter, err := h.parseExecutionFilter(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	executions, err := h.engine.ListExecutions(c.Context(), tenantID, *filter)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions": executions,
		"count":      len(executions),
		"pagination": fiber.Map{
			"skip": filter.Skip,
			"take": filter.Take,
		},
	})
}

func (h *APIHandlers) parseExecutionFilter(c fiber.Ctx) (*persistence.ExecutionFilter, error) {
	filter := &persistence.ExecutionFilter{
		WorkflowID: c.Query("workflow_id"),
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.ExecutionStatus(statusStr)
		filter.Status = &status
	}

	if afterStr := c.Query("started_after"); afterStr != "" {
		after, err := time.Parse(time.RFC3339, afterStr)
		if err != nil {
			return nil, err
		}

		filter.StartedAfter = &after
	}

	if beforeStr := c.Query("started_before"); beforeStr != "" {
		before, err := time.Parse(time.RFC3339, beforeStr)
		if err != nil {
			return nil, err
		}

		filter.StartedBefore = &before
	}

	if skipStr := c.Query("skip"); skipStr != "" {
		skip, err := strconv.Atoi(skipStr)
		if err != nil {
			return nil, err
		}

		filter.Skip = skip
	}

	if takeStr := c.Query("take"); takeStr != "" {
		take, err := strconv.Atoi(takeStr)
		if err != nil {
			return nil, err
		}

		filter.Take = take
	}

	return filter, nil
}

func (h *APIHandlers) GetAnalytics(c fiber.Ctx) error {
	query := AnalyticsQuery{
		TenantID:   c.Query("tenant_id"),
		WorkflowID: c.Query("workflow_id"),
		End:        time.Now().UTC(),
	}
	query.Start = query.End.Add(-defaultAnalyticsWindow)

	if startStr := c.Query("start"); startStr != "" {
		start, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return badRequest(c, "Invalid start: "+err.Error())
		}

		query.Start = start
	}

	if endStr := c.Query("end"); endStr != "" {
		end, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return badRequest(c, "Invalid end: "+err.Error())
		}

		query.End = end
	}

	if err := h.validator.Struct(query); err != nil {
		return badRequest(c, err.Error())
	}

	analytics, err := h.engine.GetAnalytics(c.Context(), query.TenantID, query.WorkflowID, query.Start, query.End)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(analytics)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "Caravel API is healthy"
	httpStatus := http.StatusOK

	storageCheck := "ok"
	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		message = "Caravel API is unhealthy"
		httpStatus = http.StatusInternalServerError
		storageCheck = err.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"storage": storageCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
