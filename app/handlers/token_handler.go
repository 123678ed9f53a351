package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sandbox-svc/app/dto"
	"sandbox-svc/app/services"
	"sandbox-svc/app/utils"
)

// TokenHandler issues session-bound bearer tokens. A token from here
// only grants access to the one session it names; wildcard tokens are
// never issued through this endpoint.
type TokenHandler struct {
	tokens *services.TokenService
	ttlSec int64
}

// NewTokenHandler creates a new token handler
func NewTokenHandler(tokens *services.TokenService, ttlSec int64) *TokenHandler {
	return &TokenHandler{tokens: tokens, ttlSec: ttlSec}
}

// IssueToken handles token issue requests
func (h *TokenHandler) IssueToken(c *gin.Context) {
	var req dto.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation failed", map[string]string{"error": err.Error()})
		return
	}
	if req.SessionID == services.WildcardSession {
		respondError(c, http.StatusBadRequest, "wildcard tokens cannot be issued here", nil)
		return
	}

	token, err := h.tokens.GenerateToken(req.SessionID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to issue token", nil)
		return
	}

	respondJSON(c, http.StatusOK, dto.TokenResponse{
		Token:     token,
		SessionID: req.SessionID,
		ExpiresIn: h.ttlSec,
	})
}
