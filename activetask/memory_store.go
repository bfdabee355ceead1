package activetask

import (
	"context"
	"sync"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
)

// MemoryStore is an in-process Store, used by tests and local tooling.
type MemoryStore struct {
	mu    sync.Mutex
	tasks map[string]domain.ActiveTask
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]domain.ActiveTask)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (*domain.ActiveTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[sessionID]
	if !ok {
		return nil, nil
	}
	return &task, nil
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, task domain.ActiveTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.SessionID] = task
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, sessionID)
	return nil
}
