// Package tokens acquires downstream API tokens on behalf of the current
// identity, backed by the distributed credential cache.
package tokens

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"opiniq.org/internal/credstore"
	"opiniq.org/internal/identity"
)

const defaultExpirySkew = 30 * time.Second

// Source exchanges the user's session for a downstream API token. Supplied by
// the identity-provider integration; this package never performs the
// handshake itself.
type Source interface {
	Exchange(ctx context.Context, id identity.Identity, clientID, resource string) (credstore.Token, error)
}

// Acquirer serves tokens from the per-session credential store, refreshing
// through the Source when the cached token is absent or expired.
type Acquirer struct {
	registry *credstore.Registry
	source   Source
	now      func() time.Time
	skew     time.Duration
}

// Option configures Acquirer behavior.
type Option func(*Acquirer)

// WithClock overrides the time source. Test helper.
func WithClock(now func() time.Time) Option {
	return func(a *Acquirer) {
		if now != nil {
			a.now = now
		}
	}
}

// WithExpirySkew sets the margin applied when judging token expiry.
func WithExpirySkew(skew time.Duration) Option {
	return func(a *Acquirer) {
		if skew >= 0 {
			a.skew = skew
		}
	}
}

// NewAcquirer wires the acquirer to its collaborators.
func NewAcquirer(registry *credstore.Registry, source Source, opts ...Option) *Acquirer {
	a := &Acquirer{
		registry: registry,
		source:   source,
		now:      time.Now,
		skew:     defaultExpirySkew,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AcquireToken returns a usable token for (identity, client, resource). A
// cached unexpired token is served as-is; otherwise the source is asked for a
// fresh one, which is recorded and persisted before being returned. A persist
// failure surfaces to the caller so no one mistakes the token for durably
// cached. Requires a fully resolved identity.
func (a *Acquirer) AcquireToken(ctx context.Context, id identity.Identity, clientID, resource string) (credstore.Token, error) {
	if !id.Resolved() {
		return credstore.Token{}, identity.ErrUnresolved
	}
	if resource == "" {
		return credstore.Token{}, fmt.Errorf("tokens: resource is required")
	}

	store, err := a.registry.Store(ctx, strconv.FormatInt(id.SubjectID, 10), clientID)
	if err != nil {
		return credstore.Token{}, err
	}

	if tok, ok := store.Token(resource); ok && !tok.ExpiredAt(a.now(), a.skew) {
		return tok, nil
	}

	fresh, err := a.source.Exchange(ctx, id, clientID, resource)
	if err != nil {
		return credstore.Token{}, fmt.Errorf("tokens: exchange: %w", err)
	}
	if err := store.PutToken(ctx, resource, fresh); err != nil {
		return credstore.Token{}, err
	}
	return fresh, nil
}

// SignOut clears the identity's credential caches, in memory and in the
// backend. Idempotent.
func (a *Acquirer) SignOut(ctx context.Context, id identity.Identity) error {
	if !id.Resolved() {
		return identity.ErrUnresolved
	}
	return a.registry.SignOut(ctx, strconv.FormatInt(id.SubjectID, 10))
}
