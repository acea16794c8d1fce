package oauth

import (
	"context"
	"errors"
	"fitsync/internal/core"
	"net/url"
	"sort"
	"sync"
	"time"
)

var (
	ErrUnknownState   = errors.New("unknown or expired authorization state")
	ErrSessionTimeout = errors.New("authorization timed out")
)

// CallbackResult is what the provider redirect carried back
type CallbackResult struct {
	Code             string
	Error            string
	ErrorDescription string
	Cancelled        bool
}

// Session presents an authorization URL to the user and waits for the
// redirect. It returns exactly once per call.
type Session interface {
	Authorize(ctx context.Context, provider core.ProviderType, state, authURL string) (CallbackResult, error)
}

// PendingSession describes an authorization waiting on the user
type PendingSession struct {
	State     string            `json:"state"`
	Provider  core.ProviderType `json:"provider"`
	AuthURL   string            `json:"auth_url"`
	StartedAt time.Time         `json:"started_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

type pendingSession struct {
	info   PendingSession
	result chan CallbackResult
}

// Broker is the Session used by the server: it publishes pending
// authorization URLs and completes them from the redirect callback
type Broker struct {
	mu       sync.Mutex
	sessions map[string]*pendingSession
	timeout  time.Duration
}

// NewBroker creates a broker whose sessions expire after timeout
func NewBroker(timeout time.Duration) *Broker {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Broker{
		sessions: make(map[string]*pendingSession),
		timeout:  timeout,
	}
}

// Authorize registers the session and blocks until the callback, an explicit
// cancel, context cancellation or the session timeout, whichever comes first
func (b *Broker) Authorize(ctx context.Context, provider core.ProviderType, state, authURL string) (CallbackResult, error) {
	now := time.Now()
	session := &pendingSession{
		info: PendingSession{
			State:     state,
			Provider:  provider,
			AuthURL:   authURL,
			StartedAt: now,
			ExpiresAt: now.Add(b.timeout),
		},
		result: make(chan CallbackResult, 1),
	}

	b.mu.Lock()
	b.sessions[state] = session
	b.mu.Unlock()

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case result := <-session.result:
		return result, nil
	case <-ctx.Done():
		if b.remove(state) == nil {
			// A callback won the race
			return <-session.result, nil
		}
		return CallbackResult{}, ctx.Err()
	case <-timer.C:
		if b.remove(state) == nil {
			return <-session.result, nil
		}
		return CallbackResult{}, ErrSessionTimeout
	}
}

// Deliver completes a session from the redirect query parameters
func (b *Broker) Deliver(state string, query url.Values) error {
	session := b.remove(state)
	if session == nil {
		return ErrUnknownState
	}
	session.result <- CallbackResult{
		Code:             query.Get("code"),
		Error:            query.Get("error"),
		ErrorDescription: query.Get("error_description"),
	}
	return nil
}

// Cancel completes a session as cancelled by the user
func (b *Broker) Cancel(state string) error {
	session := b.remove(state)
	if session == nil {
		return ErrUnknownState
	}
	session.result <- CallbackResult{Cancelled: true}
	return nil
}

// Pending lists the sessions waiting on the user, oldest first
func (b *Broker) Pending() []PendingSession {
	b.mu.Lock()
	defer b.mu.Unlock()

	pending := make([]PendingSession, 0, len(b.sessions))
	for _, session := range b.sessions {
		pending = append(pending, session.info)
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].StartedAt.Before(pending[j].StartedAt)
	})
	return pending
}

// remove takes the session out of the map; only the caller that gets it back
// may write the terminal result
func (b *Broker) remove(state string) *pendingSession {
	b.mu.Lock()
	defer b.mu.Unlock()

	session, ok := b.sessions[state]
	if !ok {
		return nil
	}
	delete(b.sessions, state)
	return session
}
