package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sandbox-svc/app/clients"
	"sandbox-svc/app/storage"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	runtime clients.RuntimeAdapter
	store   *storage.Store
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(runtime clients.RuntimeAdapter, store *storage.Store) *HealthHandler {
	return &HealthHandler{runtime: runtime, store: store}
}

// Health handles liveness checks
func (h *HealthHandler) Health(c *gin.Context) {
	respondJSON(c, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Ready handles readiness checks: the service is ready when both the
// container engine and the metadata store answer.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.runtime.Ping(ctx); err != nil {
		respondJSON(c, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"reason": "container runtime unreachable",
		})
		return
	}
	if err := h.store.Ping(ctx); err != nil {
		respondJSON(c, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"reason": "metadata store unreachable",
		})
		return
	}

	respondJSON(c, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
