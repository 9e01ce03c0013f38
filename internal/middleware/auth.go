package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// reviewerKey is the context key under which the authenticated admin
// identity is stored
const reviewerKey = "reviewer"

// AdminAuthMiddleware validates admin API authentication using the
// X-Admin-API-Key header and records the caller identity from
// X-Admin-User for the review audit trail.
func AdminAuthMiddleware(apiKey string) gin.HandlerFunc {
	if apiKey == "" {
		// Return a middleware that always returns 500 if misconfigured
		return func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "server misconfigured: admin API key not set",
			})
		}
	}
	apiKeyBytes := []byte(apiKey)

	return func(c *gin.Context) {
		key := c.GetHeader("X-Admin-API-Key")
		// Use subtle.ConstantTimeCompare to prevent timing attacks
		if subtle.ConstantTimeCompare([]byte(key), apiKeyBytes) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized",
			})
			return
		}

		if user := c.GetHeader("X-Admin-User"); user != "" {
			c.Set(reviewerKey, user)
		}
		c.Next()
	}
}

// Reviewer returns the authenticated admin identity, or "admin" when the
// caller did not identify itself
func Reviewer(c *gin.Context) string {
	if user := c.GetString(reviewerKey); user != "" {
		return user
	}
	return "admin"
}
