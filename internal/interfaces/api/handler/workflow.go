package handler

import (
	"errors"
	"fmt"
	"net/http"
	"subscription-reminder/internal/application/dto"
	"subscription-reminder/internal/application/service"
	appErrors "subscription-reminder/internal/pkg/errors"
	"subscription-reminder/internal/pkg/logger"

	"github.com/labstack/echo/v4"
)

// WorkflowHandler handles requests on reminder workflow runs.
type WorkflowHandler struct {
	workflowService service.WorkflowService
	log             logger.Logger
}

// NewWorkflowHandler creates a new WorkflowHandler.
func NewWorkflowHandler(workflowService service.WorkflowService, log logger.Logger) *WorkflowHandler {
	return &WorkflowHandler{workflowService: workflowService, log: log}
}

type errorResponse struct {
	Error string `json:"error"`
}

// TriggerReminders starts the reminder workflow for the subscription in the body.
// Responds 202 with the run, whether it was just created or already in progress.
func (h *WorkflowHandler) TriggerReminders(c echo.Context) error {
	var req dto.TriggerReminderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	resp, err := h.workflowService.TriggerReminders(c.Request().Context(), req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusAccepted, resp)
}

// GetRun reports a run and its recorded steps.
func (h *WorkflowHandler) GetRun(c echo.Context) error {
	resp, err := h.workflowService.GetRun(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// CancelRun stops an unfinished run.
func (h *WorkflowHandler) CancelRun(c echo.Context) error {
	resp, err := h.workflowService.CancelRun(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *WorkflowHandler) respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, appErrors.ErrInvalidPayload):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, appErrors.ErrRunNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, appErrors.ErrRunFinished):
		return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	}
	h.log.Error(fmt.Sprintf("Request %s %s failed", c.Request().Method, c.Path()), err)
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: appErrors.ErrInternalServer.Error()})
}
