package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// APIKeyHeader carries the operator API key
	APIKeyHeader = "X-Fitsync-Key"
	// AuthenticatedKey is set on the context once the API key matched
	AuthenticatedKey = "authenticated"
)

// APIKey verifies the X-Fitsync-Key header
func APIKey(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader(APIKeyHeader)
		if apiKey == "" || subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiKey)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Unauthorized",
				"code":  "UNAUTHORIZED",
			})
			c.Abort()
			return
		}
		c.Set(AuthenticatedKey, true)
		c.Next()
	}
}
