package survey

import (
	"context"
	"sync"
)

// InMemory implements Reader with in-process concurrency safety. Used in dev
// mode and tests; production reads come from the Postgres reader.
type InMemory struct {
	mu      sync.RWMutex
	surveys map[string]*Survey
}

var _ Reader = (*InMemory)(nil)

// NewInMemory creates an empty in-memory survey set.
func NewInMemory() *InMemory {
	return &InMemory{surveys: make(map[string]*Survey)}
}

// Put inserts or replaces a survey descriptor.
func (s *InMemory) Put(sv Survey) error {
	if sv.ID == "" || sv.TenantID == "" || sv.OwnerID <= 0 {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := sv
	cp.Contributors = append([]int64(nil), sv.Contributors...)
	s.surveys[sv.ID] = &cp
	return nil
}

func (s *InMemory) GetSurvey(ctx context.Context, id string) (Survey, error) {
	if err := ctx.Err(); err != nil {
		return Survey{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sv, ok := s.surveys[id]
	if !ok {
		return Survey{}, ErrNotFound
	}
	// return copy
	out := *sv
	out.Contributors = append([]int64(nil), sv.Contributors...)
	return out, nil
}
