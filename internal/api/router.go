package api

import (
	"fitsync/internal/api/handlers"
	"fitsync/internal/api/middleware"
	"fitsync/internal/core"
	"fitsync/internal/providers"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig holds dependencies for the API router
type RouterConfig struct {
	Service   core.SyncService
	Balance   core.BalanceService
	Providers handlers.ProviderCatalog
	Auth      handlers.AuthStateReader
	Broker    handlers.SessionBroker
	Platform  handlers.PlatformBridge // Optional: Apple Health companion endpoints
	Database  handlers.Pinger         // Optional: reported by /health
	Location  *time.Location
	APIKey    string
	Logger    *slog.Logger
}

// NewRouter creates and configures the Gin router
func NewRouter(config RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(config.Logger))
	router.Use(middleware.Logging(config.Logger))
	router.Use(middleware.NoiseFilter(config.Logger))
	router.Use(middleware.ContentType())

	// Unauthenticated endpoints
	healthHandler := handlers.NewHealthHandler(config.Database)
	router.GET("/health", healthHandler.GetHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	oauthHandler := handlers.NewOAuthHandler(config.Broker, config.Auth, config.Logger)
	router.GET(providers.CallbackPath, oauthHandler.Callback)

	// API v1 routes (with authentication)
	v1 := router.Group("/v1")
	v1.Use(middleware.APIKey(config.APIKey))
	{
		providersHandler := handlers.NewProvidersHandler(config.Providers, config.Auth)
		v1.GET("/providers", providersHandler.ListProviders)

		devicesHandler := handlers.NewDevicesHandler(config.Service, config.Location, config.Logger)
		v1.GET("/devices", devicesHandler.ListDevices)
		v1.POST("/devices/connect", devicesHandler.ConnectDevice)
		v1.POST("/devices/sync", devicesHandler.SyncAllDevices)
		v1.POST("/devices/:id/sync", devicesHandler.SyncDevice)
		v1.DELETE("/devices/:id", devicesHandler.DisconnectDevice)

		activityHandler := handlers.NewActivityHandler(config.Service, config.Balance, config.Location)
		v1.GET("/activity/:date", activityHandler.GetActivity)
		v1.GET("/balance/:date", activityHandler.GetBalance)

		v1.GET("/oauth/pending", oauthHandler.ListPending)
		v1.POST("/oauth/sessions/:state/cancel", oauthHandler.CancelSession)
		v1.GET("/oauth/state/:provider", oauthHandler.GetState)

		if config.Platform != nil {
			platformHandler := handlers.NewPlatformHandler(config.Platform, config.Location, config.Logger)
			v1.POST("/platform/apple-health/grant", platformHandler.RecordGrant)
			v1.POST("/platform/apple-health/samples", platformHandler.UploadSample)
		}
	}

	return router
}
