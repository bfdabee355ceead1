package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
)

// MemoryStore is an in-process Store, used by tests and local tooling.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]domain.IntentLedgerEntry
	bySess  map[string][]string
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]domain.IntentLedgerEntry),
		bySess:  make(map[string][]string),
	}
}

// Insert implements Store.
func (s *MemoryStore) Insert(_ context.Context, entry domain.IntentLedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.IntentID]; ok {
		return fmt.Errorf("intent %s already exists", entry.IntentID)
	}
	s.entries[entry.IntentID] = entry
	s.bySess[entry.SessionID] = append(s.bySess[entry.SessionID], entry.IntentID)
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, intentID string) (domain.IntentLedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[intentID]
	if !ok {
		return domain.IntentLedgerEntry{}, fmt.Errorf("intent %s not found", intentID)
	}
	return entry, nil
}

// UpdateStatus implements Store.
func (s *MemoryStore) UpdateStatus(_ context.Context, intentID string, mutate func(domain.IntentLedgerEntry) (domain.IntentLedgerEntry, error)) (domain.IntentLedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[intentID]
	if !ok {
		return domain.IntentLedgerEntry{}, fmt.Errorf("intent %s not found", intentID)
	}
	updated, err := mutate(entry)
	if err != nil {
		return domain.IntentLedgerEntry{}, err
	}
	s.entries[intentID] = updated
	return updated, nil
}

// ListBySession implements Store.
func (s *MemoryStore) ListBySession(_ context.Context, sessionID string) ([]domain.IntentLedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.bySess[sessionID]
	out := make([]domain.IntentLedgerEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.entries[id])
	}
	return out, nil
}
