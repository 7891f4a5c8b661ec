package credstore

import (
	"context"
	"fmt"
	"sync"
)

// Registry hands out session-scoped stores indexed by subject. One hydrated
// Store exists per (subject, client) pair; sign-out tears down every store
// belonging to the subject, so no credential state outlives the session.
//
// The registry mutex guards only the entry map. Hydrate and clear run network
// I/O outside the lock, so one identity's slow backend never stalls another
// identity's session. Concurrent requests for the same pair share a single
// in-flight hydrate.
type Registry struct {
	backend Backend

	mu      sync.Mutex
	entries map[Key]*registryEntry
}

// registryEntry is one (subject, client) slot. ready is closed once the
// hydrate finished; store and err must only be read after that.
type registryEntry struct {
	ready chan struct{}
	store *Store
	err   error
}

// NewRegistry creates a registry over the shared backend.
func NewRegistry(backend Backend) *Registry {
	return &Registry{backend: backend, entries: make(map[Key]*registryEntry)}
}

// Store returns the hydrated store for the pair, constructing it on first
// use. The first caller runs the hydrate; concurrent callers for the same
// pair wait on it rather than starting their own. A failed hydrate is not
// cached: the slot frees up for the next attempt.
func (r *Registry) Store(ctx context.Context, subjectID, clientID string) (*Store, error) {
	key, err := NewKey(subjectID, clientID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		e = &registryEntry{ready: make(chan struct{})}
		r.entries[key] = e
		r.mu.Unlock()

		e.store, e.err = NewStore(ctx, key, r.backend)
		if e.err != nil {
			r.evict(key, e)
		}
		close(e.ready)
		return e.store, e.err
	}
	r.mu.Unlock()

	select {
	case <-e.ready:
		return e.store, e.err
	case <-ctx.Done():
		return nil, fmt.Errorf("credstore: awaiting hydrate: %w", ctx.Err())
	}
}

// SignOut clears and removes every store belonging to the subject. Clearing
// is idempotent; signing out a subject with no stores is not an error. The
// first backend failure aborts and leaves the remaining stores registered.
func (r *Registry) SignOut(ctx context.Context, subjectID string) error {
	r.mu.Lock()
	var keys []Key
	var pending []*registryEntry
	for key, e := range r.entries {
		if key.SubjectID() != subjectID {
			continue
		}
		keys = append(keys, key)
		pending = append(pending, e)
	}
	r.mu.Unlock()

	for i, e := range pending {
		select {
		case <-e.ready:
		case <-ctx.Done():
			return fmt.Errorf("credstore: sign-out canceled: %w", ctx.Err())
		}
		if e.err != nil {
			// Failed hydrate already evicted itself.
			continue
		}
		if err := e.store.Clear(ctx); err != nil {
			return err
		}
		r.evict(keys[i], e)
	}
	return nil
}

// evict removes the slot, but only while it still holds this entry.
func (r *Registry) evict(key Key, e *registryEntry) {
	r.mu.Lock()
	if cur, ok := r.entries[key]; ok && cur == e {
		delete(r.entries, key)
	}
	r.mu.Unlock()
}

// Len returns the number of live stores.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
