package handlers

import (
	"errors"
	"io/fs"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"sandbox-svc/app/domains"
	"sandbox-svc/app/dto"
)

// respondJSON sends a JSON response
func respondJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// respondError sends an error response
func respondError(c *gin.Context, status int, message string, details map[string]string) {
	c.JSON(status, dto.ErrorResponse{
		Error:   message,
		Details: details,
	})
}

// statusFor maps domain sentinels to HTTP status codes. The second
// return reports whether the error is caller-visible.
func statusFor(err error) (int, bool) {
	switch {
	case errors.Is(err, domains.ErrSessionNotFound), errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound, true
	case errors.Is(err, domains.ErrSessionBusy):
		return http.StatusConflict, true
	case errors.Is(err, domains.ErrPathEscape),
		errors.Is(err, domains.ErrInvalidRequest),
		errors.Is(err, domains.ErrResourceLimit),
		errors.Is(err, domains.ErrNotAFile),
		errors.Is(err, domains.ErrNotADirectory),
		errors.Is(err, domains.ErrRootDelete):
		return http.StatusBadRequest, true
	case errors.Is(err, domains.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, true
	case errors.Is(err, domains.ErrContainerLaunch):
		return http.StatusBadGateway, true
	case errors.Is(err, domains.ErrWorkspaceCreate):
		return http.StatusInternalServerError, true
	}
	return http.StatusInternalServerError, false
}

// respondDomainError translates a service error into an HTTP response.
// Mapped sentinels carry their message to the caller; anything else is
// logged and returned as an opaque internal error.
func respondDomainError(c *gin.Context, err error) {
	status, known := statusFor(err)
	if !known {
		log.Printf("handlers: internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		respondError(c, http.StatusInternalServerError, "internal error", nil)
		return
	}
	respondError(c, status, err.Error(), nil)
}
