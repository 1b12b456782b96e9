package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/harbordocs/harbor/internal/auth"
	"github.com/harbordocs/harbor/internal/logger"
)

// ContextUserID is the gin context key holding the authenticated user ID.
const ContextUserID = "user_id"

// RequireAuth validates the bearer token and attaches the user ID to the
// request context. Requests without a valid access token get 401.
func RequireAuth(jwt *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := jwt.ValidateAccess(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Request = c.Request.WithContext(logger.SetUserID(c.Request.Context(), claims.UserID))
		c.Next()
	}
}

// UserID returns the authenticated user ID set by RequireAuth.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
