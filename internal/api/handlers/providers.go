package handlers

import (
	"context"
	"fitsync/internal/core"
	"fitsync/internal/oauth"
	"fitsync/internal/providers"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ProviderCatalog lists provider configurations
type ProviderCatalog interface {
	List() []providers.Config
}

// AuthStateReader reports per-provider authorization state
type AuthStateReader interface {
	State(ctx context.Context, provider core.ProviderType) oauth.AuthState
}

// ProvidersHandler handles provider listing
type ProvidersHandler struct {
	catalog ProviderCatalog
	auth    AuthStateReader
}

// NewProvidersHandler creates a new providers handler
func NewProvidersHandler(catalog ProviderCatalog, auth AuthStateReader) *ProvidersHandler {
	return &ProvidersHandler{
		catalog: catalog,
		auth:    auth,
	}
}

// ListProviders returns every known provider with its readiness. Secrets are never included.
// GET /providers
func (h *ProvidersHandler) ListProviders(c *gin.Context) {
	configs := h.catalog.List()

	response := make([]gin.H, 0, len(configs))
	for _, cfg := range configs {
		info := gin.H{
			"type":       cfg.Type,
			"name":       cfg.DisplayName,
			"capability": cfg.Capability,
			"enabled":    cfg.Enabled,
		}

		switch cfg.Capability {
		case core.CapabilityOAuth2:
			if err := cfg.CheckOAuthReady(); err != nil {
				info["configured"] = false
				info["reason"] = err.Error()
			} else {
				info["configured"] = true
			}
			info["auth_state"] = h.auth.State(c.Request.Context(), cfg.Type)
		case core.CapabilityUnsupported:
			info["configured"] = false
			info["reason"] = cfg.UnsupportedReason
		default:
			info["configured"] = cfg.Enabled
		}

		response = append(response, info)
	}

	c.JSON(http.StatusOK, response)
}
