package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIKeyRequired rejects requests whose X-API-KEY header does not exactly
// match the shared service secret.
func APIKeyRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" || c.GetHeader("X-API-KEY") != secret {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid X-API-KEY"})
			return
		}
		c.Next()
	}
}
