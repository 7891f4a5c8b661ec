package credstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"opiniq.org/internal/obs"
)

// Store synchronizes one identity's in-memory token cache with the external
// backend. A Store is created per logical user session; the backend is
// shared, with last-writer-wins semantics across processes. Instances are
// only handed out fully hydrated.
type Store struct {
	key     Key
	backend Backend
	cache   *TokenCache
}

// NewStore hydrates the cache for the key from the backend and returns a
// ready store. An absent key initializes an empty cache; any other backend
// failure is an error, never a silently empty cache. Cancellation propagates
// as a context error, distinct from backend unavailability.
func NewStore(ctx context.Context, key Key, backend Backend) (*Store, error) {
	if backend == nil {
		return nil, errors.New("credstore: nil backend")
	}
	s := &Store{key: key, backend: backend, cache: NewTokenCache()}

	start := time.Now()
	blob, err := s.backend.Get(ctx, key.String())
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			obs.ObserveCredstoreOp("hydrate", "empty", time.Since(start))
			return s, nil
		}
		obs.ObserveCredstoreOp("hydrate", "error", time.Since(start))
		if ctx.Err() != nil {
			return nil, fmt.Errorf("credstore: hydrate canceled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: hydrate: %v", ErrBackendUnavailable, err)
	}
	if err := s.cache.load(blob); err != nil {
		obs.ObserveCredstoreOp("hydrate", "error", time.Since(start))
		return nil, fmt.Errorf("credstore: hydrate: decode blob: %w", err)
	}
	obs.ObserveCredstoreOp("hydrate", "ok", time.Since(start))
	return s, nil
}

// Key returns the cache key this store serves.
func (s *Store) Key() Key { return s.key }

// Token returns the cached token for the resource.
func (s *Store) Token(resource string) (Token, bool) {
	return s.cache.Lookup(resource)
}

// Dirty reports whether the cache holds mutations that have not reached the
// backend.
func (s *Store) Dirty() bool { return s.cache.Dirty() }

// Serialize exposes the cache's persisted form.
func (s *Store) Serialize() ([]byte, error) { return s.cache.Serialize() }

// PutToken records a token and persists the full cache. A persist failure
// leaves the dirty flag set and surfaces to the caller; the mutation itself
// stays in the cache for a later retry.
func (s *Store) PutToken(ctx context.Context, resource string, t Token) error {
	s.cache.Put(resource, t)
	return s.persist(ctx)
}

// RemoveToken drops a token and persists the full cache.
func (s *Store) RemoveToken(ctx context.Context, resource string) error {
	s.cache.Remove(resource)
	return s.persist(ctx)
}

// Flush persists the cache if it is dirty. External retry path after a
// failed mutation.
func (s *Store) Flush(ctx context.Context) error {
	return s.persist(ctx)
}

func (s *Store) persist(ctx context.Context) error {
	if !s.cache.Dirty() {
		return nil
	}
	blob, err := s.cache.Serialize()
	if err != nil {
		return fmt.Errorf("credstore: persist: encode blob: %w", err)
	}
	start := time.Now()
	if err := s.backend.Set(ctx, s.key.String(), blob); err != nil {
		obs.ObserveCredstoreOp("persist", "error", time.Since(start))
		if ctx.Err() != nil {
			return fmt.Errorf("credstore: persist canceled: %w", ctx.Err())
		}
		return fmt.Errorf("%w: persist: %v", ErrBackendUnavailable, err)
	}
	obs.ObserveCredstoreOp("persist", "ok", time.Since(start))
	s.cache.markClean()
	return nil
}

// Clear deletes the backend entry and empties the cache. Idempotent: clearing
// an already-absent key succeeds.
func (s *Store) Clear(ctx context.Context) error {
	start := time.Now()
	if err := s.backend.Delete(ctx, s.key.String()); err != nil && !errors.Is(err, ErrKeyNotFound) {
		obs.ObserveCredstoreOp("clear", "error", time.Since(start))
		if ctx.Err() != nil {
			return fmt.Errorf("credstore: clear canceled: %w", ctx.Err())
		}
		return fmt.Errorf("%w: clear: %v", ErrBackendUnavailable, err)
	}
	obs.ObserveCredstoreOp("clear", "ok", time.Since(start))
	s.cache.reset()
	return nil
}
