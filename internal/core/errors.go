package core

import (
	"errors"
	"fmt"
	"net/http"
)

// Error taxonomy shared by the manager, adapters and orchestrator
var (
	ErrConfiguration       = errors.New("configuration error")
	ErrAuthorization       = errors.New("authorization error")
	ErrCancelled           = fmt.Errorf("%w: cancelled by user", ErrAuthorization)
	ErrNetwork             = errors.New("network error")
	ErrTokenExpired        = errors.New("access token expired or revoked")
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrDeviceNotFound      = errors.New("device not found")
	ErrNoCredentials       = errors.New("no stored credentials")
	ErrNoAdapter           = errors.New("no adapter registered for provider")
)

// HTTPStatusError is a non-2xx response from an outbound call
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected HTTP status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected HTTP status %d: %s", e.StatusCode, e.Body)
}

// Is makes every status error a network error, and a 401 an expired token
func (e *HTTPStatusError) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return true
	case ErrTokenExpired:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}
