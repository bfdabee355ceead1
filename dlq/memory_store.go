package dlq

import (
	"context"
	"fmt"
	"sync"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
)

// MemoryStore is an in-process Store, used by tests and local tooling.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]domain.DLQEntry
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]domain.DLQEntry)}
}

// Insert implements Store.
func (s *MemoryStore) Insert(_ context.Context, entry domain.DLQEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.DLQID]; ok {
		return fmt.Errorf("dlq entry %s already exists", entry.DLQID)
	}
	s.entries[entry.DLQID] = entry
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, dlqID string) (domain.DLQEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[dlqID]
	if !ok {
		return domain.DLQEntry{}, fmt.Errorf("dlq entry %s not found", dlqID)
	}
	return entry, nil
}

// ListUnresolved implements Store.
func (s *MemoryStore) ListUnresolved(_ context.Context) ([]domain.DLQEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.DLQEntry
	for _, e := range s.entries {
		if !e.Resolved {
			out = append(out, e)
		}
	}
	return out, nil
}

// UpdateResolution implements Store.
func (s *MemoryStore) UpdateResolution(_ context.Context, dlqID string, mutate func(domain.DLQEntry) (domain.DLQEntry, error)) (domain.DLQEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[dlqID]
	if !ok {
		return domain.DLQEntry{}, fmt.Errorf("dlq entry %s not found", dlqID)
	}
	updated, err := mutate(entry)
	if err != nil {
		return domain.DLQEntry{}, err
	}
	s.entries[dlqID] = updated
	return updated, nil
}
