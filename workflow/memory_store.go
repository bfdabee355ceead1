package workflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
)

// MemoryStore is an in-process Store, used by tests and local tooling.
type MemoryStore struct {
	mu        sync.Mutex
	instances map[string]domain.WorkflowInstance
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{instances: make(map[string]domain.WorkflowInstance)}
}

// Insert implements Store.
func (s *MemoryStore) Insert(_ context.Context, instance domain.WorkflowInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instances[instance.WorkflowInstanceID]; ok {
		return fmt.Errorf("workflow instance %s already exists", instance.WorkflowInstanceID)
	}
	s.instances[instance.WorkflowInstanceID] = instance
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, instanceID string) (domain.WorkflowInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[instanceID]
	if !ok {
		return domain.WorkflowInstance{}, fmt.Errorf("workflow instance %s not found", instanceID)
	}
	return inst, nil
}

// Update implements Store.
func (s *MemoryStore) Update(_ context.Context, instanceID string, mutate func(domain.WorkflowInstance) (domain.WorkflowInstance, error)) (domain.WorkflowInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[instanceID]
	if !ok {
		return domain.WorkflowInstance{}, fmt.Errorf("workflow instance %s not found", instanceID)
	}
	updated, err := mutate(inst)
	if err != nil {
		return domain.WorkflowInstance{}, err
	}
	s.instances[instanceID] = updated
	return updated, nil
}

// ListInProgress implements Store.
func (s *MemoryStore) ListInProgress(_ context.Context) ([]domain.WorkflowInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.WorkflowInstance
	for _, inst := range s.instances {
		if inst.Status == domain.WorkflowInProgress {
			out = append(out, inst)
		}
	}
	return out, nil
}
