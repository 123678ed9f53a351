package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sandbox-svc/app/dto"
	"sandbox-svc/app/services"
	"sandbox-svc/app/utils"
)

// ExecuteHandler handles command execution endpoints
type ExecuteHandler struct {
	executions *services.ExecutionService
}

// NewExecuteHandler creates a new execute handler
func NewExecuteHandler(executions *services.ExecutionService) *ExecuteHandler {
	return &ExecuteHandler{executions: executions}
}

// ExecuteShell handles shell command execution
func (h *ExecuteHandler) ExecuteShell(c *gin.Context) {
	var req dto.ExecuteShellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation failed", map[string]string{"error": err.Error()})
		return
	}

	if !sessionAllowed(c, req.SessionID) {
		respondError(c, http.StatusForbidden, "token not valid for this session", nil)
		return
	}

	res, err := h.executions.ExecuteShell(c.Request.Context(), req.SessionID, req.Command, services.RunOptions{
		TimeoutSeconds: req.TimeoutSeconds,
		MemoryLimit:    req.MemoryLimit,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, dto.NewExecutionResultResponse(res))
}

// ExecuteScript handles script execution
func (h *ExecuteHandler) ExecuteScript(c *gin.Context) {
	var req dto.ExecuteScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation failed", map[string]string{"error": err.Error()})
		return
	}

	if !sessionAllowed(c, req.SessionID) {
		respondError(c, http.StatusForbidden, "token not valid for this session", nil)
		return
	}

	res, err := h.executions.ExecuteScript(c.Request.Context(), req.SessionID, req.ScriptBody, services.RunOptions{
		TimeoutSeconds: req.TimeoutSeconds,
		MemoryLimit:    req.MemoryLimit,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, dto.NewExecutionResultResponse(res))
}

// History handles execution history retrieval
func (h *ExecuteHandler) History(c *gin.Context) {
	sessionID := c.Param("id")
	if !sessionAllowed(c, sessionID) {
		respondError(c, http.StatusForbidden, "token not valid for this session", nil)
		return
	}

	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	records, err := h.executions.History(c.Request.Context(), sessionID, limit)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, dto.NewExecutionHistoryResponse(records))
}
