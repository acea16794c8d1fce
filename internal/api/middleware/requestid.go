package middleware

import (
	"fitsync/internal/idgen"

	"github.com/gin-gonic/gin"
)

const (
	RequestIDKey = "X-Request-ID"

	maxRequestIDLength = 64
)

// RequestID propagates a caller-supplied request ID, or assigns one.
// Supplied IDs that are too long or contain anything but [A-Za-z0-9._-] are replaced.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDKey)
		if !validRequestID(requestID) {
			requestID = idgen.New()
		}
		c.Header(RequestIDKey, requestID)
		c.Set(RequestIDKey, requestID)
		c.Next()
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}
