package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sandbox-svc/app/dto"
	"sandbox-svc/app/services"
)

// SessionHandler handles session lifecycle endpoints
type SessionHandler struct {
	registry *services.SessionRegistry
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(registry *services.SessionRegistry) *SessionHandler {
	return &SessionHandler{registry: registry}
}

// List handles session listing. A session-bound token sees only its
// own session; wildcard tokens and disabled auth see everything.
func (h *SessionHandler) List(c *gin.Context) {
	sessions := h.registry.List(c.Request.Context())

	if claim, ok := authClaim(c); ok && claim != services.WildcardSession {
		filtered := sessions[:0]
		for _, s := range sessions {
			if s.ID == claim {
				filtered = append(filtered, s)
			}
		}
		sessions = filtered
	}

	respondJSON(c, http.StatusOK, dto.NewSessionListResponse(sessions))
}

// Teardown handles session destruction: the workspace storage and all
// session metadata are removed. A later request with the same id starts
// over with a fresh, empty workspace.
func (h *SessionHandler) Teardown(c *gin.Context) {
	sessionID := c.Param("id")
	if !sessionAllowed(c, sessionID) {
		respondError(c, http.StatusForbidden, "token not valid for this session", nil)
		return
	}

	if err := h.registry.Teardown(c.Request.Context(), sessionID); err != nil {
		respondDomainError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, dto.StatusResponse{OK: true})
}
