package adapters

import (
	"context"
	"encoding/json"
	"fitsync/internal/core"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// maxErrorBody caps how much of an error response is kept
const maxErrorBody = 512

// ClientOptions configures an APIClient
type ClientOptions struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Logger            *slog.Logger
}

// APIClient performs bearer-authenticated JSON GETs against one provider API
type APIClient struct {
	provider core.ProviderType
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// NewAPIClient creates a client rooted at baseURL
func NewAPIClient(provider core.ProviderType, baseURL string, opts ClientOptions) *APIClient {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	burst := 1
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
		burst = max(1, int(opts.RequestsPerSecond))
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &APIClient{
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   client,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger.With("provider", provider),
	}
}

// Provider returns the provider this client talks to
func (c *APIClient) Provider() core.ProviderType {
	return c.provider
}

// GetJSON fetches path with query and decodes the body into result.
// Non-2xx responses return *core.HTTPStatusError; transport failures wrap core.ErrNetwork.
func (c *APIClient) GetJSON(ctx context.Context, accessToken, path string, query url.Values, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %v", core.ErrNetwork, err)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Provider API request", "path", path)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %v", core.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", core.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return &core.HTTPStatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}
