package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
)

// MemoryStore is an in-process Store, used by tests and local tooling.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]domain.QueueEntry
	byKey   map[string]string // idempotency key -> queue_id, non-terminal only
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]domain.QueueEntry),
		byKey:   make(map[string]string),
	}
}

// Insert implements Store.
func (s *MemoryStore) Insert(_ context.Context, entry domain.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.QueueID]; ok {
		return fmt.Errorf("queue entry %s already exists", entry.QueueID)
	}
	s.entries[entry.QueueID] = entry
	if !entry.Status.Terminal() {
		s.byKey[entry.IdempotencyKey] = entry.QueueID
	}
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, queueID string) (domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[queueID]
	if !ok {
		return domain.QueueEntry{}, fmt.Errorf("queue entry %s not found", queueID)
	}
	return entry, nil
}

// FindByIdempotencyKey implements Store.
func (s *MemoryStore) FindByIdempotencyKey(_ context.Context, key string) (*domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byKey[key]
	if !ok {
		return nil, nil
	}
	entry := s.entries[id]
	return &entry, nil
}

// UpdateStatus implements Store.
func (s *MemoryStore) UpdateStatus(_ context.Context, queueID string, mutate func(domain.QueueEntry) (domain.QueueEntry, error)) (domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[queueID]
	if !ok {
		return domain.QueueEntry{}, fmt.Errorf("queue entry %s not found", queueID)
	}
	updated, err := mutate(entry)
	if err != nil {
		return domain.QueueEntry{}, err
	}
	s.entries[queueID] = updated
	if updated.Status.Terminal() {
		delete(s.byKey, updated.IdempotencyKey)
	} else {
		s.byKey[updated.IdempotencyKey] = queueID
	}
	return updated, nil
}

// ListEligible implements Store.
func (s *MemoryStore) ListEligible(_ context.Context, sessionID string, now time.Time) ([]domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.QueueEntry
	for _, e := range s.entries {
		if e.SessionID != sessionID {
			continue
		}
		switch e.Status {
		case domain.QueuePending, domain.QueueReady:
			out = append(out, e)
		case domain.QueueRetrying:
			if e.NextRetryAt != nil && !e.NextRetryAt.After(now) {
				out = append(out, e)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority.Rank() != out[j].Priority.Rank() {
			return out[i].Priority.Rank() > out[j].Priority.Rank()
		}
		return out[i].AddedAt.Before(out[j].AddedAt)
	})
	return out, nil
}

// ListRestorable implements Store.
func (s *MemoryStore) ListRestorable(_ context.Context) ([]domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.QueueEntry
	for _, e := range s.entries {
		switch e.Status {
		case domain.QueuePending, domain.QueueReady, domain.QueueExecuting, domain.QueueRetrying, domain.QueueBlocked:
			out = append(out, e)
		}
	}
	return out, nil
}

// HasNonTerminal implements Store (and eligibility.ActiveQueue).
func (s *MemoryStore) HasNonTerminal(_ context.Context, sessionID, actionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.SessionID == sessionID && e.ActionID == actionID && !e.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

// MemoryExecutionLogStore is an in-process ExecutionLogStore.
type MemoryExecutionLogStore struct {
	mu      sync.Mutex
	entries map[string]domain.ExecutionLogEntry
}

// NewMemoryExecutionLogStore constructs an empty MemoryExecutionLogStore.
func NewMemoryExecutionLogStore() *MemoryExecutionLogStore {
	return &MemoryExecutionLogStore{entries: make(map[string]domain.ExecutionLogEntry)}
}

// Append implements ExecutionLogStore.
func (s *MemoryExecutionLogStore) Append(_ context.Context, entry domain.ExecutionLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ExecutionID] = entry
	return nil
}

// Complete implements ExecutionLogStore.
func (s *MemoryExecutionLogStore) Complete(_ context.Context, executionID string, status domain.ExecutionStatus, result map[string]any, errMsg string, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[executionID]
	if !ok {
		return fmt.Errorf("execution %s not found", executionID)
	}
	entry.Status = status
	entry.Result = result
	entry.Error = errMsg
	entry.CompletedAt = &completedAt
	entry.DurationMS = completedAt.Sub(entry.StartedAt).Milliseconds()
	s.entries[executionID] = entry
	return nil
}

// FindCompletedByIdempotencyKey implements ExecutionLogStore.
func (s *MemoryExecutionLogStore) FindCompletedByIdempotencyKey(_ context.Context, key string) (*domain.ExecutionLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.IdempotencyKey == key && e.Status == domain.ExecCompleted {
			return &e, nil
		}
	}
	return nil, nil
}

// HasCompleted implements ExecutionLogStore (and eligibility.ExecutionLog).
func (s *MemoryExecutionLogStore) HasCompleted(_ context.Context, sessionID, actionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.SessionID == sessionID && e.ActionID == actionID && e.Status == domain.ExecCompleted {
			return true, nil
		}
	}
	return false, nil
}
