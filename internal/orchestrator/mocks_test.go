package orchestrator

import (
	"context"
	"errors"
	"fitsync/internal/adapters"
	"fitsync/internal/core"
	"fitsync/internal/deviceapi"
	"fitsync/internal/providers"
	"sync"
	"time"
)

var (
	_ AdapterRegistry = (*adapters.Registry)(nil)
	_ ProviderCatalog = (*providers.Registry)(nil)
	_ DeviceRegistry  = (*deviceapi.Client)(nil)
)

var errServerDown = errors.New("registry unreachable")

// mockTokens is an in-memory TokenManager
type mockTokens struct {
	mu           sync.Mutex
	pairs        map[core.ProviderType]core.CredentialPair
	outcome      core.ConnectionOutcome
	refreshTo    string
	refreshCalls int
	clearErr     error
}

func newMockTokens() *mockTokens {
	return &mockTokens{
		pairs:   make(map[core.ProviderType]core.CredentialPair),
		outcome: core.ConnectionOutcome{Success: true, Kind: core.OutcomeSuccess, AccessToken: "issued"},
	}
}

func (m *mockTokens) set(provider core.ProviderType, pair core.CredentialPair) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pairs[provider] = pair
}

func (m *mockTokens) has(provider core.ProviderType) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pairs[provider]
	return ok
}

func (m *mockTokens) Connect(ctx context.Context, provider core.ProviderType) core.ConnectionOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcome.Success {
		m.pairs[provider] = core.CredentialPair{AccessToken: m.outcome.AccessToken}
	}
	return m.outcome
}

func (m *mockTokens) Refresh(ctx context.Context, provider core.ProviderType, refreshToken string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshCalls++
	if m.refreshTo == "" {
		return "", false
	}
	m.pairs[provider] = core.CredentialPair{AccessToken: m.refreshTo, RefreshToken: refreshToken}
	return m.refreshTo, true
}

func (m *mockTokens) GetTokens(ctx context.Context, provider core.ProviderType) core.CredentialPair {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pairs[provider]
}

func (m *mockTokens) ClearTokens(ctx context.Context, provider core.ProviderType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clearErr != nil {
		return m.clearErr
	}
	delete(m.pairs, provider)
	return nil
}

// mockRegistry is an in-memory server device registry
type mockRegistry struct {
	mu         sync.Mutex
	devices    []core.DeviceConnection
	activities []*core.HealthData
	down       bool
	connectErr error
	reports    map[string]deviceapi.SyncReport
	deleted    []string
}

func newMockRegistry(devices ...core.DeviceConnection) *mockRegistry {
	return &mockRegistry{
		devices: devices,
		reports: make(map[string]deviceapi.SyncReport),
	}
}

func (m *mockRegistry) setDown(down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.down = down
}

func (m *mockRegistry) ListDevices(ctx context.Context) ([]core.DeviceConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return nil, errServerDown
	}
	return append([]core.DeviceConnection(nil), m.devices...), nil
}

func (m *mockRegistry) ConnectDevice(ctx context.Context, req deviceapi.ConnectRequest) (*core.DeviceConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return nil, errServerDown
	}
	if m.connectErr != nil {
		return nil, m.connectErr
	}
	device := core.DeviceConnection{
		ID:       "srv-" + string(req.Provider),
		Name:     req.Name,
		Provider: req.Provider,
		Status:   core.DeviceStatusConnected,
	}
	m.devices = append(m.devices, device)
	return &device, nil
}

func (m *mockRegistry) ReportSync(ctx context.Context, deviceID string, report deviceapi.SyncReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return errServerDown
	}
	m.reports[deviceID] = report
	return nil
}

func (m *mockRegistry) DeleteDevice(ctx context.Context, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return errServerDown
	}
	for i, d := range m.devices {
		if d.ID == deviceID {
			m.devices = append(m.devices[:i], m.devices[i+1:]...)
			m.deleted = append(m.deleted, deviceID)
			return nil
		}
	}
	return &core.HTTPStatusError{StatusCode: 404}
}

func (m *mockRegistry) GetActivity(ctx context.Context, start, end time.Time) ([]*core.HealthData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return nil, errServerDown
	}
	return m.activities, nil
}

// mockAdapter returns whatever fn returns
type mockAdapter struct {
	provider core.ProviderType
	mu       sync.Mutex
	tokens   []string
	fn       func(token string, date time.Time) (*core.HealthData, error)
}

func (m *mockAdapter) Provider() core.ProviderType {
	return m.provider
}

func (m *mockAdapter) Fetch(ctx context.Context, accessToken string, date time.Time) (*core.HealthData, error) {
	m.mu.Lock()
	m.tokens = append(m.tokens, accessToken)
	m.mu.Unlock()
	return m.fn(accessToken, date)
}

func (m *mockAdapter) seenTokens() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.tokens...)
}

func okAdapter(provider core.ProviderType, steps int) *mockAdapter {
	return &mockAdapter{
		provider: provider,
		fn: func(token string, date time.Time) (*core.HealthData, error) {
			return &core.HealthData{Date: date, Steps: steps, CaloriesBurned: 2000, ActiveMinutes: 30}, nil
		},
	}
}

func failingAdapter(provider core.ProviderType, err error) *mockAdapter {
	return &mockAdapter{
		provider: provider,
		fn: func(token string, date time.Time) (*core.HealthData, error) {
			return nil, err
		},
	}
}

// mockPlatform is a PlatformAuthorizer with a fixed answer
type mockPlatform struct {
	granted bool
	err     error
}

func (m *mockPlatform) RequestPermission(ctx context.Context) (bool, error) {
	return m.granted, m.err
}
