package credstore

import "errors"

var (
	// ErrInvalidKey indicates a cache key was constructed from empty parts.
	ErrInvalidKey = errors.New("credstore: invalid key")
	// ErrKeyNotFound is returned by backends when the key is absent. Absence
	// is an expected state, distinct from backend failure.
	ErrKeyNotFound = errors.New("credstore: key not found")
	// ErrBackendUnavailable indicates the external store failed during
	// hydrate, persist or delete.
	ErrBackendUnavailable = errors.New("credstore: backend unavailable")
)
