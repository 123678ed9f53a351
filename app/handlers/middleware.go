package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"sandbox-svc/app/services"
)

// authSessionKey is the context key carrying the validated token's
// session claim. Absent when auth is disabled.
const authSessionKey = "auth_session"

// AuthRequired validates the bearer token and stores its session claim
// on the request context. Installed on /v1 only when a signing secret
// is configured.
func AuthRequired(tokens *services.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			respondError(c, http.StatusUnauthorized, "missing bearer token", nil)
			c.Abort()
			return
		}

		sessionID, err := tokens.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			respondError(c, http.StatusUnauthorized, "invalid token", nil)
			c.Abort()
			return
		}

		c.Set(authSessionKey, sessionID)
		c.Next()
	}
}

// authClaim returns the token's session claim when auth is enabled.
func authClaim(c *gin.Context) (string, bool) {
	v, ok := c.Get(authSessionKey)
	if !ok {
		return "", false
	}
	claim, _ := v.(string)
	return claim, true
}

// sessionAllowed reports whether the request may act on the session:
// always when auth is disabled, otherwise when the token carries the
// wildcard claim or is bound to this exact session.
func sessionAllowed(c *gin.Context, sessionID string) bool {
	claim, ok := authClaim(c)
	if !ok {
		return true
	}
	return claim == services.WildcardSession || claim == sessionID
}
