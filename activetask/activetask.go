// Package activetask implements the Active Task record (spec.md §3): the
// single in-progress parameter-collection task a session may hold at once
// (I1). Unlike the Intent Ledger, an Active Task is fully mutable and is
// cleared entirely on completion or cancellation rather than retained as
// history.
package activetask

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
	"github.com/Nikunjmattoo/bot-framework-sub000/internal/idgen"
)

// ErrAlreadyActive is returned by Start when the session already holds an
// Active Task (I1).
var ErrAlreadyActive = errors.New("session already has an active task")

// ErrNoActiveTask is returned when an operation expects an Active Task to
// exist for the session but none does.
var ErrNoActiveTask = errors.New("session has no active task")

// Store persists at most one Active Task per session.
type Store interface {
	// Get returns the session's Active Task, if any.
	Get(ctx context.Context, sessionID string) (*domain.ActiveTask, error)
	// Put sets (or replaces) the session's Active Task.
	Put(ctx context.Context, task domain.ActiveTask) error
	// Clear removes the session's Active Task, if any.
	Clear(ctx context.Context, sessionID string) error
}

// Manager enforces I1 on top of a Store: Start fails if a task is already
// active, and every mutation is scoped to the single session it targets.
type Manager struct {
	store Store
	now   func() time.Time
}

// New constructs a Manager backed by store.
func New(store Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// Start creates a new Active Task for sessionID. Returns ErrAlreadyActive
// if the session already has one (I1); callers must Clear or complete the
// existing task first.
func (m *Manager) Start(ctx context.Context, sessionID, canonicalAction string, paramsRequired []string) (domain.ActiveTask, error) {
	existing, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return domain.ActiveTask{}, err
	}
	if existing != nil {
		return domain.ActiveTask{}, fmt.Errorf("%w: session %s already runs task %s", ErrAlreadyActive, sessionID, existing.TaskID)
	}
	now := m.now()
	task := domain.ActiveTask{
		SessionID:       sessionID,
		TaskID:          idgen.New("task"),
		CanonicalAction: canonicalAction,
		ParamsRequired:  paramsRequired,
		ParamsCollected: make(map[string]any),
		ParamsMissing:   append([]string(nil), paramsRequired...),
		Status:          domain.TaskInitiated,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := m.store.Put(ctx, task); err != nil {
		return domain.ActiveTask{}, err
	}
	return task, nil
}

// Get returns the session's Active Task, or ErrNoActiveTask if none.
func (m *Manager) Get(ctx context.Context, sessionID string) (domain.ActiveTask, error) {
	task, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return domain.ActiveTask{}, err
	}
	if task == nil {
		return domain.ActiveTask{}, fmt.Errorf("%w: session %s", ErrNoActiveTask, sessionID)
	}
	return *task, nil
}

// CollectParams merges newly collected parameter values into the session's
// Active Task, recomputes params_missing, and advances status to
// ready_to_execute once nothing is missing.
func (m *Manager) CollectParams(ctx context.Context, sessionID string, values map[string]any) (domain.ActiveTask, error) {
	task, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return domain.ActiveTask{}, err
	}
	if task == nil {
		return domain.ActiveTask{}, fmt.Errorf("%w: session %s", ErrNoActiveTask, sessionID)
	}
	if task.ParamsCollected == nil {
		task.ParamsCollected = make(map[string]any)
	}
	for k, v := range values {
		task.ParamsCollected[k] = v
	}
	task.ParamsMissing = missingParams(task.ParamsRequired, task.ParamsCollected)
	if len(task.ParamsMissing) == 0 {
		task.Status = domain.TaskReadyToExecute
	} else {
		task.Status = domain.TaskCollectingParams
	}
	task.UpdatedAt = m.now()
	if err := m.store.Put(ctx, *task); err != nil {
		return domain.ActiveTask{}, err
	}
	return *task, nil
}

// SetStatus transitions the session's Active Task to status without
// touching its parameters.
func (m *Manager) SetStatus(ctx context.Context, sessionID string, status domain.ActiveTaskStatus) (domain.ActiveTask, error) {
	task, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return domain.ActiveTask{}, err
	}
	if task == nil {
		return domain.ActiveTask{}, fmt.Errorf("%w: session %s", ErrNoActiveTask, sessionID)
	}
	task.Status = status
	task.UpdatedAt = m.now()
	if err := m.store.Put(ctx, *task); err != nil {
		return domain.ActiveTask{}, err
	}
	return *task, nil
}

// Clear removes the session's Active Task, win or lose: spec.md §3 says an
// Active Task is "cleared on completion/cancellation" regardless of
// terminal status, it is not retained as history the way the Intent
// Ledger is.
func (m *Manager) Clear(ctx context.Context, sessionID string) error {
	return m.store.Clear(ctx, sessionID)
}

func missingParams(required []string, collected map[string]any) []string {
	var missing []string
	for _, name := range required {
		v, ok := collected[name]
		if !ok || isZeroValue(v) {
			missing = append(missing, name)
		}
	}
	return missing
}

func isZeroValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	default:
		return false
	}
}
