package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fitsync/config"
	"fitsync/internal/adapters"
	"fitsync/internal/adapters/applehealth"
	"fitsync/internal/adapters/fitbit"
	"fitsync/internal/adapters/googlefit"
	"fitsync/internal/adapters/polar"
	"fitsync/internal/adapters/unsupported"
	"fitsync/internal/adapters/whoop"
	"fitsync/internal/api"
	"fitsync/internal/balance"
	"fitsync/internal/core"
	"fitsync/internal/credentials"
	"fitsync/internal/deviceapi"
	"fitsync/internal/logging"
	"fitsync/internal/nutrition"
	"fitsync/internal/oauth"
	"fitsync/internal/orchestrator"
	"fitsync/internal/providers"
	"fitsync/internal/scheduler"
	"fitsync/internal/storage/sqlite"
)

const (
	shutdownTimeout   = 10 * time.Second
	defaultConfigPath = "config.json"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Parse command-line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	useEnv := flag.Bool("env", false, "Load configuration from environment variables")
	flag.Parse()

	// Load configuration
	var cfg *config.Config
	var err error

	if *useEnv {
		cfg, err = config.LoadFromEnv()
	} else {
		cfg, err = config.Load(*configPath)
	}

	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(logging.LoggerConfig{
		Format: cfg.Logging.Format,
		Level:  logging.ParseLevel(cfg.Logging.Level),
	})
	slog.SetDefault(logger)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	// Initialize database
	logger.Info("Initializing SQLite database", "path", cfg.Database.Path)
	db, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	store, err := credentials.NewStore(db, cfg.Security.CredentialPassphrase, cfg.User.ID)
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	providerRegistry, err := newProviderRegistry(cfg)
	if err != nil {
		return err
	}

	// OAuth connection manager
	broker := oauth.NewBroker(cfg.SessionTimeout())
	tokenManager := oauth.NewManager(
		providerRegistry,
		store,
		broker,
		&http.Client{Timeout: cfg.Timeout()},
		logger,
	)

	// Provider data adapters
	appleHealth := applehealth.New(db, logger)
	adapterRegistry, err := newAdapterRegistry(cfg, providerRegistry, appleHealth, logger)
	if err != nil {
		return err
	}
	logger.Info("Provider adapters registered", "adapters", adapterRegistry.List())

	// Collaborators
	registryClient := deviceapi.NewClient(cfg.Registry.BaseURL, cfg.Registry.APIKey, cfg.Timeout(), logger)
	nutritionClient := nutrition.NewClient(cfg.Nutrition.BaseURL, cfg.Nutrition.APIKey, cfg.Timeout(), logger)

	// Sync orchestrator
	syncService := logging.NewSyncServiceLogger(
		orchestrator.New(
			providerRegistry,
			adapterRegistry,
			tokenManager,
			db,
			registryClient,
			orchestrator.Options{
				Platforms: map[core.ProviderType]orchestrator.PlatformAuthorizer{
					core.ProviderAppleHealth: appleHealth,
				},
				Location: loc,
				Logger:   logger,
			},
		),
		logger,
	)

	balanceCalculator := balance.NewCalculator(registryClient, syncService, nutritionClient, loc, logger)

	// Start scheduler
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sched *scheduler.Scheduler
	if cfg.Sync.Enabled {
		sched = scheduler.NewScheduler(syncService, cfg.SyncInterval(), logger.With("component", "scheduler"))
		go sched.Start(ctx)
	}

	// Initialize REST API
	router := api.NewRouter(api.RouterConfig{
		Service:   syncService,
		Balance:   balanceCalculator,
		Providers: providerRegistry,
		Auth:      tokenManager,
		Broker:    broker,
		Platform:  appleHealth,
		Database:  db,
		Location:  loc,
		APIKey:    cfg.Security.APIKey,
		Logger:    logger,
	})

	server := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// POST /v1/devices/connect holds the request open while the user authorizes
		WriteTimeout: cfg.SessionTimeout() + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server",
			"addr", server.Addr,
			"oauth_redirect", cfg.OAuth.RedirectBaseURL+providers.CallbackPath,
		)
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info("Starting graceful shutdown", "signal", sig.String())

		if sched != nil {
			sched.Stop()
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		logger.Info("Graceful shutdown complete")
	}

	return nil
}

// newProviderRegistry merges the configured client credentials into the built-in provider table
func newProviderRegistry(cfg *config.Config) (*providers.Registry, error) {
	settings := make(map[core.ProviderType]providers.Settings, len(cfg.Providers))
	for slug, p := range cfg.Providers {
		provider, err := core.ParseProviderType(slug)
		if err != nil {
			return nil, err
		}
		settings[provider] = providers.Settings{
			Enabled:      p.Enabled,
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			Scopes:       p.Scopes,
			AuthURL:      p.AuthURL,
			TokenURL:     p.TokenURL,
			APIBaseURL:   p.APIBaseURL,
		}
	}
	return providers.NewRegistry(settings, cfg.OAuth.RedirectBaseURL), nil
}

// newAdapterRegistry registers one adapter per known provider
func newAdapterRegistry(cfg *config.Config, providerRegistry *providers.Registry, appleHealth *applehealth.Adapter, logger *slog.Logger) (*adapters.Registry, error) {
	registry := adapters.NewRegistry()

	apiClient := func(p providers.Config) *adapters.APIClient {
		return adapters.NewAPIClient(p.Type, p.APIBaseURL, adapters.ClientOptions{
			Timeout:           cfg.Timeout(),
			RequestsPerSecond: cfg.HTTP.RateLimitPerSecond,
			Logger:            logger,
		})
	}

	for _, p := range providerRegistry.List() {
		var adapter adapters.Adapter
		switch p.Type {
		case core.ProviderAppleHealth:
			adapter = appleHealth
		case core.ProviderGoogleFit:
			adapter = googlefit.New(apiClient(p), logger)
		case core.ProviderFitbit:
			adapter = fitbit.New(apiClient(p), logger)
		case core.ProviderWhoop:
			adapter = whoop.New(apiClient(p), logger)
		case core.ProviderPolar:
			adapter = polar.New(apiClient(p), logger)
		default:
			adapter = unsupported.New(p.Type, p.UnsupportedReason, logger)
		}
		if err := registry.Register(adapter); err != nil {
			return nil, fmt.Errorf("failed to register %s adapter: %w", p.Type, err)
		}
	}

	if missing := registry.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("no adapter for providers %v", missing)
	}

	return registry, nil
}
