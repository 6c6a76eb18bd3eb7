package delivery

import (
	"net/http"
	"strings"

	"mail-triage-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// AccessTokenKey is the gin context key holding the caller's bearer token.
	AccessTokenKey  = "accessToken"
	RequestIDHeader = "X-Request-ID"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AuthMiddleware stores the bearer token on the context. The token is opaque here:
// the mail provider is the one that decides whether it is valid.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized - No access token"})
			c.Abort()
			return
		}

		c.Set(AccessTokenKey, token)
		c.Next()
	}
}

// RequestIDMiddleware tags every request with an id, reusing the caller's when present.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}
