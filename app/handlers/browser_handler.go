package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sandbox-svc/app/dto"
	"sandbox-svc/app/services"
	"sandbox-svc/app/utils"
)

// BrowserHandler handles browser automation endpoints. Task credentials
// are injected per call and never appear in any log line; requests that
// omit one fall back to the server-configured credential.
type BrowserHandler struct {
	executions *services.ExecutionService
}

// NewBrowserHandler creates a new browser handler
func NewBrowserHandler(executions *services.ExecutionService) *BrowserHandler {
	return &BrowserHandler{executions: executions}
}

// RunTask handles natural-language browser task execution
func (h *BrowserHandler) RunTask(c *gin.Context) {
	var req dto.BrowserTaskRequest
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

	result, err := h.executions.RunBrowserTask(c.Request.Context(), req.SessionID, req.Task, req.Credential)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, dto.NewBrowserTaskResponse(result))
}

// Screenshot handles navigate-and-capture requests. The response is a
// reference to the PNG left in the workspace; the bytes are fetched
// through the file content endpoint.
func (h *BrowserHandler) Screenshot(c *gin.Context) {
	var req dto.ScreenshotRequest
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

	ref, err := h.executions.CaptureScreenshot(c.Request.Context(), req.SessionID, req.URL, req.Credential)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, dto.NewArtifactResponse(ref))
}
