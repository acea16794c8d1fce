package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fitsync/internal/core"
	"fitsync/internal/credentials"
	"fitsync/internal/providers"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession answers every authorization with a fixed callback
type fakeSession struct {
	result    CallbackResult
	err       error
	calls     atomic.Int32
	lastURL   string
	lastState string
}

func (f *fakeSession) Authorize(ctx context.Context, provider core.ProviderType, state, authURL string) (CallbackResult, error) {
	f.calls.Add(1)
	f.lastURL = authURL
	f.lastState = state
	return f.result, f.err
}

// tokenServer is a fake provider token endpoint
type tokenServer struct {
	*httptest.Server
	hits     atomic.Int32
	status   int
	response map[string]any
	lastForm url.Values
	lastAuth string
}

func newTokenServer(t *testing.T) *tokenServer {
	ts := &tokenServer{
		status: http.StatusOK,
		response: map[string]any{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"token_type":    "Bearer",
			"expires_in":    3600,
		},
	}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.hits.Add(1)
		require.NoError(t, r.ParseForm())
		ts.lastForm = r.PostForm
		ts.lastAuth = r.Header.Get("Authorization")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(ts.status)
		json.NewEncoder(w).Encode(ts.response)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newTestStore(t *testing.T) (*credentials.Store, *credentials.MemoryBackend) {
	backend := credentials.NewMemoryBackend()
	store, err := credentials.NewStore(backend, "correct horse battery staple", "user-1")
	require.NoError(t, err)
	return store, backend
}

// flakyBackend fails writes on demand
type flakyBackend struct {
	*credentials.MemoryBackend
	setErr    error
	deleteErr error
}

func (b *flakyBackend) SetMany(ctx context.Context, values map[string][]byte) error {
	if b.setErr != nil {
		return b.setErr
	}
	return b.MemoryBackend.SetMany(ctx, values)
}

func (b *flakyBackend) Delete(ctx context.Context, keys ...string) error {
	if b.deleteErr != nil {
		return b.deleteErr
	}
	return b.MemoryBackend.Delete(ctx, keys...)
}

func newFlakyStore(t *testing.T) (*credentials.Store, *flakyBackend) {
	backend := &flakyBackend{MemoryBackend: credentials.NewMemoryBackend()}
	store, err := credentials.NewStore(backend, "correct horse battery staple", "user-1")
	require.NoError(t, err)
	return store, backend
}

func newTestRegistry(tokenURL string) *providers.Registry {
	settings := map[core.ProviderType]providers.Settings{
		core.ProviderFitbit: {
			Enabled: true, ClientID: "fitbit-id", ClientSecret: "fitbit-secret",
			AuthURL: "https://fitbit.example.com/authorize", TokenURL: tokenURL,
		},
		core.ProviderGoogleFit: {
			Enabled: true, ClientID: "google-id", ClientSecret: "google-secret",
			AuthURL: "https://google.example.com/auth", TokenURL: tokenURL,
		},
		core.ProviderGarmin: {Enabled: true, ClientID: "garmin-id", ClientSecret: "garmin-secret", TokenURL: tokenURL},
		core.ProviderWhoop:  {Enabled: true, ClientID: "whoop-id", TokenURL: tokenURL},
	}
	return providers.NewRegistry(settings, "http://localhost:8080")
}

func TestManager_ConnectSuccess(t *testing.T) {
	server := newTokenServer(t)
	store, _ := newTestStore(t)
	session := &fakeSession{result: CallbackResult{Code: "code-1"}}
	manager := NewManager(newTestRegistry(server.URL), store, session, nil, nil)

	outcome := manager.Connect(context.Background(), core.ProviderFitbit)
	require.True(t, outcome.Success, outcome.Error)
	assert.Equal(t, core.OutcomeSuccess, outcome.Kind)
	assert.Equal(t, "access-1", outcome.AccessToken)
	assert.Equal(t, "refresh-1", outcome.RefreshToken)
	assert.InDelta(t, time.Hour.Seconds(), outcome.ExpiresIn.Seconds(), 5)

	// Fitbit sends client credentials as HTTP Basic
	assert.Contains(t, server.lastAuth, "Basic ")
	assert.Equal(t, "code-1", server.lastForm.Get("code"))
	assert.Equal(t, "http://localhost:8080/oauth/callback", server.lastForm.Get("redirect_uri"))

	authURL, err := url.Parse(session.lastURL)
	require.NoError(t, err)
	assert.Equal(t, session.lastState, authURL.Query().Get("state"))
	assert.Equal(t, "fitbit-id", authURL.Query().Get("client_id"))
	assert.Empty(t, authURL.Query().Get("code_challenge"))

	pair := manager.GetTokens(context.Background(), core.ProviderFitbit)
	assert.Equal(t, "access-1", pair.AccessToken)
	assert.Equal(t, "refresh-1", pair.RefreshToken)
	require.NotNil(t, pair.ExpiresAt)
	assert.Equal(t, StateAuthenticated, manager.State(context.Background(), core.ProviderFitbit))
}

func TestManager_ConnectGoogleUsesBodyCredentialsAndOfflineAccess(t *testing.T) {
	server := newTokenServer(t)
	store, _ := newTestStore(t)
	session := &fakeSession{result: CallbackResult{Code: "code-g"}}
	manager := NewManager(newTestRegistry(server.URL), store, session, nil, nil)

	outcome := manager.Connect(context.Background(), core.ProviderGoogleFit)
	require.True(t, outcome.Success, outcome.Error)

	assert.Empty(t, server.lastAuth)
	assert.Equal(t, "google-secret", server.lastForm.Get("client_secret"))

	authURL, err := url.Parse(session.lastURL)
	require.NoError(t, err)
	assert.Equal(t, "offline", authURL.Query().Get("access_type"))
	assert.Equal(t, "consent", authURL.Query().Get("prompt"))
}

func TestManager_ConnectFailures(t *testing.T) {
	tests := []struct {
		name     string
		provider core.ProviderType
		session  *fakeSession
		wantKind core.OutcomeKind
		wantErr  string
	}{
		{
			name:     "unsupported provider",
			provider: core.ProviderGarmin,
			session:  &fakeSession{},
			wantKind: core.OutcomeUnsupported,
			wantErr:  "OAuth 1.0a",
		},
		{
			name:     "sdk provider",
			provider: core.ProviderAppleHealth,
			session:  &fakeSession{},
			wantKind: core.OutcomeUnsupported,
		},
		{
			name:     "missing client secret",
			provider: core.ProviderWhoop,
			session:  &fakeSession{},
			wantKind: core.OutcomeMisconfigured,
			wantErr:  "missing client secret",
		},
		{
			name:     "user denied",
			provider: core.ProviderFitbit,
			session:  &fakeSession{result: CallbackResult{Error: "access_denied"}},
			wantKind: core.OutcomeCancelled,
			wantErr:  "cancelled by user",
		},
		{
			name:     "user cancelled",
			provider: core.ProviderFitbit,
			session:  &fakeSession{result: CallbackResult{Cancelled: true}},
			wantKind: core.OutcomeCancelled,
			wantErr:  "cancelled by user",
		},
		{
			name:     "session timed out",
			provider: core.ProviderFitbit,
			session:  &fakeSession{err: ErrSessionTimeout},
			wantKind: core.OutcomeCancelled,
		},
		{
			name:     "provider error",
			provider: core.ProviderFitbit,
			session:  &fakeSession{result: CallbackResult{Error: "invalid_scope", ErrorDescription: "Scope foo is invalid"}},
			wantKind: core.OutcomeRejected,
			wantErr:  "Scope foo is invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTokenServer(t)
			store, backend := newTestStore(t)
			manager := NewManager(newTestRegistry(server.URL), store, tt.session, nil, nil)

			outcome := manager.Connect(context.Background(), tt.provider)
			assert.False(t, outcome.Success)
			assert.Equal(t, tt.wantKind, outcome.Kind)
			assert.Empty(t, outcome.AccessToken)
			if tt.wantErr != "" {
				assert.Contains(t, outcome.Error, tt.wantErr)
			}

			assert.Zero(t, server.hits.Load(), "no token exchange expected")
			assert.Zero(t, backend.Len(), "no token may be written")
		})
	}
}

func TestManager_ConnectUnsupportedMakesNoNetworkCall(t *testing.T) {
	server := newTokenServer(t)
	store, _ := newTestStore(t)
	session := &fakeSession{}
	manager := NewManager(newTestRegistry(server.URL), store, session, nil, nil)

	for _, provider := range []core.ProviderType{core.ProviderGarmin, core.ProviderSamsungHealth} {
		outcome := manager.Connect(context.Background(), provider)
		assert.False(t, outcome.Success)
		assert.ErrorIs(t, outcome.Err, core.ErrUnsupportedProvider)
	}

	assert.Zero(t, server.hits.Load())
	assert.Zero(t, session.calls.Load())
}

func TestManager_ConnectCancelThroughBrokerWritesNoToken(t *testing.T) {
	server := newTokenServer(t)
	store, backend := newTestStore(t)
	broker := NewBroker(time.Minute)
	manager := NewManager(newTestRegistry(server.URL), store, broker, nil, nil)

	done := make(chan core.ConnectionOutcome, 1)
	go func() {
		done <- manager.Connect(context.Background(), core.ProviderFitbit)
	}()

	pending := waitPending(t, broker, 1)
	assert.Equal(t, StateAuthorizing, manager.State(context.Background(), core.ProviderFitbit))
	require.NoError(t, broker.Cancel(pending[0].State))

	outcome := <-done
	assert.False(t, outcome.Success)
	assert.Equal(t, core.OutcomeCancelled, outcome.Kind)
	assert.ErrorIs(t, outcome.Err, core.ErrCancelled)
	assert.Zero(t, server.hits.Load())
	assert.Zero(t, backend.Len())
	assert.Equal(t, StateUnauthenticated, manager.State(context.Background(), core.ProviderFitbit))
}

func TestManager_ConnectThroughBrokerCallback(t *testing.T) {
	server := newTokenServer(t)
	store, _ := newTestStore(t)
	broker := NewBroker(time.Minute)
	manager := NewManager(newTestRegistry(server.URL), store, broker, nil, nil)

	done := make(chan core.ConnectionOutcome, 1)
	go func() {
		done <- manager.Connect(context.Background(), core.ProviderFitbit)
	}()

	pending := waitPending(t, broker, 1)
	require.NoError(t, broker.Deliver(pending[0].State, url.Values{"code": {"code-b"}}))

	outcome := <-done
	require.True(t, outcome.Success, outcome.Error)
	assert.Equal(t, "code-b", server.lastForm.Get("code"))
}

func TestManager_ConnectRejectedExchangeKeepsDescription(t *testing.T) {
	server := newTokenServer(t)
	server.status = http.StatusBadRequest
	server.response = map[string]any{
		"error":             "invalid_grant",
		"error_description": "Authorization code expired",
	}
	store, backend := newTestStore(t)
	manager := NewManager(newTestRegistry(server.URL), store, &fakeSession{result: CallbackResult{Code: "old"}}, nil, nil)

	outcome := manager.Connect(context.Background(), core.ProviderFitbit)
	assert.False(t, outcome.Success)
	assert.Equal(t, core.OutcomeRejected, outcome.Kind)
	assert.Contains(t, outcome.Error, "Authorization code expired")
	assert.Zero(t, backend.Len())
}

func TestManager_ConnectNetworkFailure(t *testing.T) {
	server := newTokenServer(t)
	tokenURL := server.URL
	server.Close()

	store, backend := newTestStore(t)
	manager := NewManager(newTestRegistry(tokenURL), store, &fakeSession{result: CallbackResult{Code: "c"}}, nil, nil)

	outcome := manager.Connect(context.Background(), core.ProviderFitbit)
	assert.False(t, outcome.Success)
	assert.Equal(t, core.OutcomeNetwork, outcome.Kind)
	assert.ErrorIs(t, outcome.Err, core.ErrNetwork)
	assert.Zero(t, backend.Len())
}

func TestManager_Refresh(t *testing.T) {
	server := newTokenServer(t)
	server.response = map[string]any{
		"access_token": "access-2",
		"token_type":   "Bearer",
		"expires_in":   7200,
	}
	store, _ := newTestStore(t)
	manager := NewManager(newTestRegistry(server.URL), store, &fakeSession{}, nil, nil)
	ctx := context.Background()

	token, ok := manager.Refresh(ctx, core.ProviderFitbit, "refresh-old")
	require.True(t, ok)
	assert.Equal(t, "access-2", token)
	assert.Equal(t, "refresh_token", server.lastForm.Get("grant_type"))
	assert.Equal(t, "refresh-old", server.lastForm.Get("refresh_token"))

	pair := manager.GetTokens(ctx, core.ProviderFitbit)
	assert.Equal(t, "access-2", pair.AccessToken)
	assert.Equal(t, "refresh-old", pair.RefreshToken, "unrotated refresh token is kept")
	require.NotNil(t, pair.ExpiresAt)
}

func TestManager_RefreshFailures(t *testing.T) {
	server := newTokenServer(t)
	server.status = http.StatusUnauthorized
	server.response = map[string]any{"error": "invalid_grant"}
	store, backend := newTestStore(t)
	manager := NewManager(newTestRegistry(server.URL), store, &fakeSession{}, nil, nil)
	ctx := context.Background()

	token, ok := manager.Refresh(ctx, core.ProviderFitbit, "revoked")
	assert.False(t, ok)
	assert.Empty(t, token)

	_, ok = manager.Refresh(ctx, core.ProviderFitbit, "")
	assert.False(t, ok)

	_, ok = manager.Refresh(ctx, core.ProviderGarmin, "anything")
	assert.False(t, ok)

	assert.Zero(t, backend.Len())
}

func TestManager_ClearTokensAndExpiredState(t *testing.T) {
	store, backend := newTestStore(t)
	manager := NewManager(newTestRegistry("http://unused"), store, &fakeSession{}, nil, nil)
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	require.NoError(t, store.SavePair(ctx, core.ProviderPolar, core.CredentialPair{
		AccessToken: "a", RefreshToken: "r", ExpiresAt: &past,
	}))
	assert.Equal(t, StateExpired, manager.State(ctx, core.ProviderPolar))

	require.NoError(t, manager.ClearTokens(ctx, core.ProviderPolar))
	require.NoError(t, manager.ClearTokens(ctx, core.ProviderPolar))
	assert.Zero(t, backend.Len())
	assert.False(t, manager.GetTokens(ctx, core.ProviderPolar).HasAccessToken())
}

func TestManager_ConnectReplacesStalePairInOneWrite(t *testing.T) {
	server := newTokenServer(t)
	server.response = map[string]any{
		"access_token": "access-1",
		"token_type":   "Bearer",
		"expires_in":   3600,
	}
	store, backend := newFlakyStore(t)
	manager := NewManager(newTestRegistry(server.URL), store, &fakeSession{result: CallbackResult{Code: "c"}}, nil, nil)
	ctx := context.Background()

	require.NoError(t, store.SavePair(ctx, core.ProviderFitbit, core.CredentialPair{
		AccessToken: "access-0", RefreshToken: "refresh-0",
	}))
	backend.deleteErr = errors.New("disk full")

	outcome := manager.Connect(ctx, core.ProviderFitbit)
	require.True(t, outcome.Success, outcome.Error)

	pair := manager.GetTokens(ctx, core.ProviderFitbit)
	assert.Equal(t, "access-1", pair.AccessToken)
	assert.Empty(t, pair.RefreshToken, "stale refresh token must not survive")
	assert.Equal(t, StateAuthenticated, manager.State(ctx, core.ProviderFitbit))
}

func TestManager_ConnectFailedWriteLeavesNoToken(t *testing.T) {
	server := newTokenServer(t)
	store, backend := newFlakyStore(t)
	backend.setErr = errors.New("disk full")
	manager := NewManager(newTestRegistry(server.URL), store, &fakeSession{result: CallbackResult{Code: "c"}}, nil, nil)
	ctx := context.Background()

	outcome := manager.Connect(ctx, core.ProviderFitbit)
	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "disk full")
	assert.Empty(t, outcome.AccessToken)

	assert.Zero(t, backend.Len())
	assert.False(t, manager.GetTokens(ctx, core.ProviderFitbit).HasAccessToken())
	assert.Equal(t, StateUnauthenticated, manager.State(ctx, core.ProviderFitbit))
}
