// Package credentials is the secure credential store: per-provider access and
// refresh tokens, encrypted at rest and namespaced per user.
package credentials

import (
	"context"
	"errors"
	"fitsync/internal/core"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by backends when a key has no value
var ErrNotFound = errors.New("credential not found")

// Kind is the type of a stored token value
type Kind string

const (
	KindAccessToken  Kind = "access_token"
	KindRefreshToken Kind = "refresh_token"
	KindExpiresAt    Kind = "expires_at"
)

var allKinds = []Kind{KindAccessToken, KindRefreshToken, KindExpiresAt}

// Backend persists opaque values. Implementations must be safe for
// concurrent use and SetMany must be all-or-nothing. A nil value in SetMany
// removes that key within the same write.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetMany(ctx context.Context, values map[string][]byte) error
	Delete(ctx context.Context, keys ...string) error
}

// Store encrypts credentials and namespaces them per (user, provider, kind)
type Store struct {
	backend Backend
	sealer  *sealer
	userID  string
}

// NewStore creates a credential store for one user
func NewStore(backend Backend, passphrase, userID string) (*Store, error) {
	s, err := newSealer(passphrase)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, errors.New("user ID is required")
	}
	return &Store{
		backend: backend,
		sealer:  s,
		userID:  userID,
	}, nil
}

// Key returns the storage key for one provider token kind
func (s *Store) Key(provider core.ProviderType, kind Kind) string {
	return strings.Join([]string{"fitsync", s.userID, provider.Slug(), string(kind)}, "/")
}

// Set stores a single value
func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.SetMany(ctx, map[string]string{key: value})
}

// SetMany stores several values atomically
func (s *Store) SetMany(ctx context.Context, values map[string]string) error {
	sealed := make(map[string][]byte, len(values))
	for key, value := range values {
		ciphertext, err := s.sealer.seal(key, []byte(value))
		if err != nil {
			return err
		}
		sealed[key] = ciphertext
	}
	return s.backend.SetMany(ctx, sealed)
}

// Get returns the value for key; ok is false when nothing is stored
func (s *Store) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	ciphertext, err := s.backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	plaintext, err := s.sealer.open(key, ciphertext)
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", key, err)
	}
	return string(plaintext), true, nil
}

// Delete removes a value; deleting a missing key is not an error
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// SavePair writes a complete credential pair in one atomic operation.
// Kinds absent from the pair are removed so no stale value survives.
func (s *Store) SavePair(ctx context.Context, provider core.ProviderType, pair core.CredentialPair) error {
	if pair.AccessToken == "" {
		return errors.New("refusing to store an empty access token")
	}

	values := map[string]string{
		s.Key(provider, KindAccessToken): pair.AccessToken,
	}
	if pair.RefreshToken != "" {
		values[s.Key(provider, KindRefreshToken)] = pair.RefreshToken
	}
	if pair.ExpiresAt != nil {
		values[s.Key(provider, KindExpiresAt)] = pair.ExpiresAt.UTC().Format(time.RFC3339)
	}

	sealed := make(map[string][]byte, len(allKinds))
	for _, kind := range allKinds {
		key := s.Key(provider, kind)
		value, ok := values[key]
		if !ok {
			sealed[key] = nil
			continue
		}
		ciphertext, err := s.sealer.seal(key, []byte(value))
		if err != nil {
			return err
		}
		sealed[key] = ciphertext
	}
	return s.backend.SetMany(ctx, sealed)
}

// LoadPair reads the credential pair for a provider. A pair without an access
// token is returned empty with a nil error.
func (s *Store) LoadPair(ctx context.Context, provider core.ProviderType) (core.CredentialPair, error) {
	var pair core.CredentialPair

	access, ok, err := s.Get(ctx, s.Key(provider, KindAccessToken))
	if err != nil || !ok {
		return pair, err
	}
	pair.AccessToken = access

	refresh, ok, err := s.Get(ctx, s.Key(provider, KindRefreshToken))
	if err != nil {
		return core.CredentialPair{}, err
	}
	if ok {
		pair.RefreshToken = refresh
	}

	expires, ok, err := s.Get(ctx, s.Key(provider, KindExpiresAt))
	if err != nil {
		return core.CredentialPair{}, err
	}
	if ok {
		if t, err := time.Parse(time.RFC3339, expires); err == nil {
			pair.ExpiresAt = &t
		}
	}

	return pair, nil
}

// DeletePair removes every stored kind for a provider
func (s *Store) DeletePair(ctx context.Context, provider core.ProviderType) error {
	keys := make([]string, 0, len(allKinds))
	for _, kind := range allKinds {
		keys = append(keys, s.Key(provider, kind))
	}
	return s.backend.Delete(ctx, keys...)
}
