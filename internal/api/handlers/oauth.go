package handlers

import (
	"errors"
	"fitsync/internal/core"
	"fitsync/internal/oauth"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
)

// SessionBroker completes pending authorization sessions
type SessionBroker interface {
	Deliver(state string, query url.Values) error
	Cancel(state string) error
	Pending() []oauth.PendingSession
}

// OAuthHandler handles the provider redirect and session management
type OAuthHandler struct {
	broker SessionBroker
	auth   AuthStateReader
	logger *slog.Logger
}

// NewOAuthHandler creates a new OAuth handler
func NewOAuthHandler(broker SessionBroker, auth AuthStateReader, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{
		broker: broker,
		auth:   auth,
		logger: logger,
	}
}

const callbackPage = `<!doctype html><html><head><title>fitsync</title></head><body><p>%s</p><p>You can close this window.</p></body></html>`

// Callback receives the provider redirect
// GET /oauth/callback
func (h *OAuthHandler) Callback(c *gin.Context) {
	state := c.Query("state")
	if state == "" {
		c.Data(http.StatusBadRequest, "text/html; charset=utf-8", page("Missing authorization state."))
		return
	}

	if err := h.broker.Deliver(state, c.Request.URL.Query()); err != nil {
		h.logger.Warn("Callback for unknown session",
			"component", "api.oauth",
			"error", err,
		)
		c.Data(http.StatusBadRequest, "text/html; charset=utf-8", page("This authorization link has expired."))
		return
	}

	if c.Query("error") != "" {
		c.Data(http.StatusOK, "text/html; charset=utf-8", page("Authorization was not completed."))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page("Authorization complete."))
}

// ListPending returns sessions waiting for the user to authorize
// GET /oauth/pending
func (h *OAuthHandler) ListPending(c *gin.Context) {
	c.JSON(http.StatusOK, h.broker.Pending())
}

// CancelSession abandons a pending authorization
// POST /oauth/sessions/:state/cancel
func (h *OAuthHandler) CancelSession(c *gin.Context) {
	if err := h.broker.Cancel(c.Param("state")); err != nil {
		if errors.Is(err, oauth.ErrUnknownState) {
			respondError(c, http.StatusNotFound, "SESSION_NOT_FOUND", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to cancel session")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

// GetState reports a provider's authorization state
// GET /oauth/state/:provider
func (h *OAuthHandler) GetState(c *gin.Context) {
	provider, err := core.ParseProviderType(c.Param("provider"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_PROVIDER", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"provider": provider,
		"state":    h.auth.State(c.Request.Context(), provider),
	})
}

func page(message string) []byte {
	return []byte(fmt.Sprintf(callbackPage, html.EscapeString(message)))
}
