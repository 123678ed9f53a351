package handlers

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"sandbox-svc/app/dto"
	"sandbox-svc/app/services"
	"sandbox-svc/app/utils"
)

// FileHandler handles workspace file operation endpoints. Every path is
// workspace-relative; containment is enforced below the service layer
// before any I/O happens.
type FileHandler struct {
	files *services.FileService
}

// NewFileHandler creates a new file handler
func NewFileHandler(files *services.FileService) *FileHandler {
	return &FileHandler{files: files}
}

// List handles directory listing. An empty path lists the workspace root.
func (h *FileHandler) List(c *gin.Context) {
	sessionID := c.Param("id")
	if !sessionAllowed(c, sessionID) {
		respondError(c, http.StatusForbidden, "token not valid for this session", nil)
		return
	}

	path := c.DefaultQuery("path", ".")
	entries, err := h.files.List(c.Request.Context(), sessionID, path)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, dto.NewListFilesResponse(path, entries))
}

// Read handles file content retrieval. The bytes come back verbatim as
// an octet stream, so binary artifacts round-trip too.
func (h *FileHandler) Read(c *gin.Context) {
	sessionID := c.Param("id")
	if !sessionAllowed(c, sessionID) {
		respondError(c, http.StatusForbidden, "token not valid for this session", nil)
		return
	}

	path := c.Query("path")
	if path == "" {
		respondError(c, http.StatusBadRequest, "path query parameter is required", nil)
		return
	}

	content, err := h.files.Read(c.Request.Context(), sessionID, path)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/octet-stream", content)
}

// Write handles file creation and overwrite. Content is UTF-8 text by
// default; base64 encoding carries arbitrary bytes.
func (h *FileHandler) Write(c *gin.Context) {
	sessionID := c.Param("id")
	if !sessionAllowed(c, sessionID) {
		respondError(c, http.StatusForbidden, "token not valid for this session", nil)
		return
	}

	var req dto.WriteFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation failed", map[string]string{"error": err.Error()})
		return
	}

	content := []byte(req.Content)
	if req.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			respondError(c, http.StatusBadRequest, "content is not valid base64", nil)
			return
		}
		content = decoded
	}

	if err := h.files.Write(c.Request.Context(), sessionID, req.Path, content); err != nil {
		respondDomainError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, dto.StatusResponse{OK: true})
}

// Delete handles file and directory removal
func (h *FileHandler) Delete(c *gin.Context) {
	sessionID := c.Param("id")
	if !sessionAllowed(c, sessionID) {
		respondError(c, http.StatusForbidden, "token not valid for this session", nil)
		return
	}

	path := c.Query("path")
	if path == "" {
		respondError(c, http.StatusBadRequest, "path query parameter is required", nil)
		return
	}

	if err := h.files.Delete(c.Request.Context(), sessionID, path); err != nil {
		respondDomainError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, dto.StatusResponse{OK: true})
}

// MakeDirectory handles directory creation, including missing parents
func (h *FileHandler) MakeDirectory(c *gin.Context) {
	sessionID := c.Param("id")
	if !sessionAllowed(c, sessionID) {
		respondError(c, http.StatusForbidden, "token not valid for this session", nil)
		return
	}

	var req dto.MakeDirectoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation failed", map[string]string{"error": err.Error()})
		return
	}

	if err := h.files.MakeDir(c.Request.Context(), sessionID, req.Path); err != nil {
		respondDomainError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, dto.StatusResponse{OK: true})
}
