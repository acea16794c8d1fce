package oauth

import (
	"context"
	"fitsync/internal/core"
)

// TokenStore defines the persistence the manager needs for provider tokens.
// It is implemented by credentials.Store.
type TokenStore interface {
	SavePair(ctx context.Context, provider core.ProviderType, pair core.CredentialPair) error
	LoadPair(ctx context.Context, provider core.ProviderType) (core.CredentialPair, error)
	DeletePair(ctx context.Context, provider core.ProviderType) error
}

// AuthState is the per-provider authorization state
type AuthState string

const (
	StateUnauthenticated AuthState = "unauthenticated"
	StateAuthorizing     AuthState = "authorizing"
	StateAuthenticated   AuthState = "authenticated"
	StateExpired         AuthState = "expired"
)
