package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// NoiseFilter marks scanner/hacker noise so Logging skips it.
// It must be registered after Logging.
func NoiseFilter(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		method := c.Request.Method

		// Process request first
		c.Next()

		// Don't filter authenticated requests
		if c.GetBool(AuthenticatedKey) {
			return
		}

		status := c.Writer.Status()

		// Filter out scanner noise:
		// 1. Common scanner paths that failed
		// 2. Invalid HTTP methods on valid routes
		skip := (isScannerPath(path) && status >= 400) || status == http.StatusMethodNotAllowed
		if !skip {
			return
		}

		c.Set(SkipLoggingKey, true)
		logger.Debug("Scanner request filtered",
			"path", path,
			"method", method,
			"status", status,
			"client_ip", c.ClientIP())
	}
}

// isScannerPath checks if a path is commonly used by scanners
func isScannerPath(path string) bool {
	scannerPaths := []string{
		"/admin",
		"/phpmyadmin",
		"/wp-admin",
		"/wp-login",
		"/.env",
		"/.git",
		"/backup",
		"/test",
		"/debug",
		"/.aws",
		"/console",
		"/api/v1/console",
		"/actuator",
		"/manager",
		"/cgi-bin",
		"/.well-known",
		"/robots.txt",
		"/favicon.ico",
		"/sitemap.xml",
	}

	lowercasePath := strings.ToLower(path)
	for _, scannerPath := range scannerPaths {
		if strings.HasPrefix(lowercasePath, scannerPath) {
			return true
		}
	}

	// Check for file extensions commonly probed by scanners
	scannerExtensions := []string{
		".php",
		".asp",
		".aspx",
		".jsp",
		".bak",
		".old",
		".sql",
		".zip",
		".tar",
		".gz",
	}

	for _, ext := range scannerExtensions {
		if strings.HasSuffix(lowercasePath, ext) {
			return true
		}
	}

	return false
}
