package handlers

import (
	"fitsync/internal/core"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error": message,
		"code":  code,
	})
}

// parseDay accepts YYYY-MM-DD, "today" or an empty string. Today is the zero time.
func parseDay(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "today") {
		return time.Time{}, nil
	}
	return core.ParseDate(s, loc)
}
