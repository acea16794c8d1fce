// Package oauth runs the authorization-code flow against each provider and
// owns the resulting tokens in the credential store.
package oauth

import (
	"context"
	"errors"
	"fitsync/internal/core"
	"fitsync/internal/idgen"
	"fitsync/internal/providers"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Manager connects providers and refreshes their tokens
type Manager struct {
	registry   *providers.Registry
	store      TokenStore
	session    Session
	httpClient *http.Client
	logger     *slog.Logger

	mu          sync.Mutex
	authorizing map[core.ProviderType]bool
}

// NewManager creates a connection manager. httpClient bounds every token
// endpoint call; a 30 second client is used when nil.
func NewManager(registry *providers.Registry, store TokenStore, session Session, httpClient *http.Client, logger *slog.Logger) *Manager {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		registry:    registry,
		store:       store,
		session:     session,
		httpClient:  httpClient,
		logger:      logger.With("component", "oauth"),
		authorizing: make(map[core.ProviderType]bool),
	}
}

// Connect runs the interactive authorization for provider and stores the
// tokens on success. Nothing is written unless the token exchange completes.
func (m *Manager) Connect(ctx context.Context, provider core.ProviderType) core.ConnectionOutcome {
	logger := m.logger.With("provider", provider)

	cfg, err := m.registry.Get(provider)
	if err != nil {
		return failure(core.OutcomeUnsupported, fmt.Errorf("%w: %v", core.ErrUnsupportedProvider, err))
	}
	if err := cfg.CheckOAuthReady(); err != nil {
		logger.Warn("Provider cannot start authorization", "error", err)
		if errors.Is(err, core.ErrConfiguration) {
			return failure(core.OutcomeMisconfigured, err)
		}
		return failure(core.OutcomeUnsupported, err)
	}

	if !m.begin(provider) {
		return failure(core.OutcomeRejected, fmt.Errorf("%w: authorization for %s already in progress", core.ErrAuthorization, cfg.DisplayName))
	}
	defer m.end(provider)

	conf := oauthConfig(cfg)
	state := idgen.NewState()
	opts := make([]oauth2.AuthCodeOption, 0, len(cfg.AuthParams))
	for key, value := range cfg.AuthParams {
		opts = append(opts, oauth2.SetAuthURLParam(key, value))
	}
	authURL := conf.AuthCodeURL(state, opts...)

	logger.Info("Authorization started")

	callback, err := m.session.Authorize(ctx, provider, state, authURL)
	if err != nil {
		if errors.Is(err, ErrSessionTimeout) {
			return failure(core.OutcomeCancelled, fmt.Errorf("%w: %v", core.ErrCancelled, err))
		}
		return failure(core.OutcomeCancelled, core.ErrCancelled)
	}
	if callback.Cancelled || callback.Error == "access_denied" {
		logger.Info("Authorization cancelled by user")
		return failure(core.OutcomeCancelled, core.ErrCancelled)
	}
	if callback.Error != "" {
		reason := callback.ErrorDescription
		if reason == "" {
			reason = callback.Error
		}
		logger.Warn("Provider rejected authorization", "error_code", callback.Error)
		return failure(core.OutcomeRejected, fmt.Errorf("%w: %s", core.ErrAuthorization, reason))
	}
	if callback.Code == "" {
		return failure(core.OutcomeRejected, fmt.Errorf("%w: callback carried no authorization code", core.ErrAuthorization))
	}

	token, err := conf.Exchange(m.clientContext(ctx), callback.Code)
	if err != nil {
		logger.Warn("Token exchange failed", "error", err)
		return exchangeFailure(err)
	}

	pair := pairFromToken(token, "")
	if err := m.store.SavePair(ctx, provider, pair); err != nil {
		logger.Error("Failed to store tokens", "error", err)
		return failure(core.OutcomeRejected, fmt.Errorf("failed to store tokens: %w", err))
	}

	logger.Info("Authorization completed", "has_refresh_token", pair.RefreshToken != "")

	outcome := core.ConnectionOutcome{
		Success:      true,
		Kind:         core.OutcomeSuccess,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		outcome.ExpiresIn = time.Until(token.Expiry).Round(time.Second)
	}
	return outcome
}

// Refresh exchanges refreshToken for a new access token and stores the
// result. It returns false on any failure.
func (m *Manager) Refresh(ctx context.Context, provider core.ProviderType, refreshToken string) (string, bool) {
	logger := m.logger.With("provider", provider)

	if refreshToken == "" {
		return "", false
	}
	cfg, err := m.registry.Get(provider)
	if err != nil {
		return "", false
	}
	if err := cfg.CheckOAuthReady(); err != nil {
		logger.Warn("Cannot refresh token", "error", err)
		return "", false
	}

	// An empty access token forces the token source to hit the token endpoint
	source := oauthConfig(cfg).TokenSource(m.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		logger.Warn("Token refresh failed", "error", err)
		return "", false
	}

	if err := m.store.SavePair(ctx, provider, pairFromToken(token, refreshToken)); err != nil {
		logger.Error("Failed to store refreshed tokens", "error", err)
		return "", false
	}

	logger.Info("Access token refreshed")
	return token.AccessToken, true
}

// GetTokens returns the stored pair, empty when nothing is stored or the store fails
func (m *Manager) GetTokens(ctx context.Context, provider core.ProviderType) core.CredentialPair {
	pair, err := m.store.LoadPair(ctx, provider)
	if err != nil {
		m.logger.Error("Failed to read tokens", "provider", provider, "error", err)
		return core.CredentialPair{}
	}
	return pair
}

// ClearTokens removes every stored token for provider
func (m *Manager) ClearTokens(ctx context.Context, provider core.ProviderType) error {
	if err := m.store.DeletePair(ctx, provider); err != nil {
		m.logger.Error("Failed to clear tokens", "provider", provider, "error", err)
		return err
	}
	return nil
}

// State reports the authorization state of provider
func (m *Manager) State(ctx context.Context, provider core.ProviderType) AuthState {
	m.mu.Lock()
	authorizing := m.authorizing[provider]
	m.mu.Unlock()
	if authorizing {
		return StateAuthorizing
	}

	pair := m.GetTokens(ctx, provider)
	switch {
	case !pair.HasAccessToken():
		return StateUnauthenticated
	case pair.Expired(time.Now()):
		return StateExpired
	default:
		return StateAuthenticated
	}
}

func (m *Manager) begin(provider core.ProviderType) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.authorizing[provider] {
		return false
	}
	m.authorizing[provider] = true
	return true
}

func (m *Manager) end(provider core.ProviderType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.authorizing, provider)
}

func (m *Manager) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
}

func oauthConfig(cfg providers.Config) *oauth2.Config {
	style := oauth2.AuthStyleInHeader
	if cfg.AuthStyle == providers.AuthStyleParams {
		style = oauth2.AuthStyleInParams
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   cfg.AuthURL,
			TokenURL:  cfg.TokenURL,
			AuthStyle: style,
		},
		RedirectURL: cfg.RedirectURL,
		Scopes:      cfg.Scopes,
	}
}

// pairFromToken keeps previousRefresh when the provider did not rotate it
func pairFromToken(token *oauth2.Token, previousRefresh string) core.CredentialPair {
	pair := core.CredentialPair{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = previousRefresh
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry.UTC()
		pair.ExpiresAt = &expiry
	}
	return pair
}

func exchangeFailure(err error) core.ConnectionOutcome {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		reason := retrieveErr.ErrorDescription
		if reason == "" {
			reason = retrieveErr.ErrorCode
		}
		if reason == "" && retrieveErr.Response != nil {
			reason = fmt.Sprintf("token endpoint returned %d", retrieveErr.Response.StatusCode)
		}
		return failure(core.OutcomeRejected, fmt.Errorf("%w: %s", core.ErrAuthorization, reason))
	}
	return failure(core.OutcomeNetwork, fmt.Errorf("%w: %v", core.ErrNetwork, err))
}

func failure(kind core.OutcomeKind, err error) core.ConnectionOutcome {
	return core.ConnectionOutcome{
		Kind:  kind,
		Error: err.Error(),
		Err:   err,
	}
}
