package wires

import (
	"context"
	"sync"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
)

// MemoryStore is an in-memory Store for tests and single-process
// deployments.
type MemoryStore struct {
	mu    sync.Mutex
	wires map[string]domain.SessionWires
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{wires: make(map[string]domain.SessionWires)}
}

// Upsert implements Store.
func (s *MemoryStore) Upsert(_ context.Context, w domain.SessionWires) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wires[w.SessionID] = w
	return nil
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, sessionID string) (domain.SessionWires, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wires[sessionID]
	if !ok {
		return domain.SessionWires{SessionID: sessionID}, nil
	}
	return w, nil
}
