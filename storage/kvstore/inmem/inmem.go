// Package inmem keeps visitor storages in process memory. Used in DEV and tests.
package inmem

import (
	"context"
	"sync"

	"github.com/trezcool/masomo-portal/core/session"
)

type Backend struct {
	mu       sync.RWMutex
	visitors map[string]map[string]string
}

var _ session.Backend = (*Backend)(nil)

func NewBackend() *Backend {
	return &Backend{visitors: make(map[string]map[string]string)}
}

// For returns the storage of `visitorID`; an empty id has no storage.
func (b *Backend) For(_ context.Context, visitorID string) session.Storage {
	if visitorID == "" {
		return nil
	}
	return &storage{backend: b, visitorID: visitorID}
}

// Len returns the number of visitors holding at least one key.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.visitors)
}

type storage struct {
	backend   *Backend
	visitorID string
}

func (s *storage) Get(key string) (string, bool) {
	s.backend.mu.RLock()
	defer s.backend.mu.RUnlock()
	val, ok := s.backend.visitors[s.visitorID][key]
	return val, ok
}

func (s *storage) Set(key, value string) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	vals, ok := s.backend.visitors[s.visitorID]
	if !ok {
		vals = make(map[string]string, 3)
		s.backend.visitors[s.visitorID] = vals
	}
	vals[key] = value
	return nil
}

func (s *storage) Remove(key string) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	vals, ok := s.backend.visitors[s.visitorID]
	if !ok {
		return nil
	}
	delete(vals, key)
	if len(vals) == 0 {
		delete(s.backend.visitors, s.visitorID)
	}
	return nil
}
