// Package queue implements the Action Queue & Execution component
// (spec.md §4.6): priority-ordered, idempotent, retrying execution of
// queued actions against their external endpoints.
package queue

import (
	"context"
	"time"

	"github.com/Nikunjmattoo/bot-framework-sub000/actionregistry"
	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
)

// Store persists Queue Entries. ListEligible returns, for a single
// session, every entry eligible for this processing pass: status pending
// or ready, or status retrying with next_retry_at <= now, ordered by
// non-ascending priority then ascending added_at (spec.md §4.6).
type Store interface {
	Insert(ctx context.Context, entry domain.QueueEntry) error
	Get(ctx context.Context, queueID string) (domain.QueueEntry, error)
	// FindByIdempotencyKey returns the non-terminal entry carrying key, if
	// any (I2: at most one may exist).
	FindByIdempotencyKey(ctx context.Context, key string) (*domain.QueueEntry, error)
	UpdateStatus(ctx context.Context, queueID string, mutate func(domain.QueueEntry) (domain.QueueEntry, error)) (domain.QueueEntry, error)
	ListEligible(ctx context.Context, sessionID string, now time.Time) ([]domain.QueueEntry, error)
	// ListRestorable returns every entry whose status is one of pending,
	// ready, executing, retrying, blocked, for crash recovery.
	ListRestorable(ctx context.Context) ([]domain.QueueEntry, error)
	// HasNonTerminal implements eligibility.ActiveQueue's opposites check.
	HasNonTerminal(ctx context.Context, sessionID, actionID string) (bool, error)
}

// ExecutionLogStore persists append-only Execution Log Entries.
type ExecutionLogStore interface {
	Append(ctx context.Context, entry domain.ExecutionLogEntry) error
	Complete(ctx context.Context, executionID string, status domain.ExecutionStatus, result map[string]any, errMsg string, completedAt time.Time) error
	FindCompletedByIdempotencyKey(ctx context.Context, key string) (*domain.ExecutionLogEntry, error)
	// HasCompleted implements eligibility.ExecutionLog's dependencies check.
	HasCompleted(ctx context.Context, sessionID, actionID string) (bool, error)
}

// DLQSink records an exhausted queue entry. Declared locally so queue has
// no compile-time dependency on the dlq package's store machinery.
type DLQSink interface {
	Record(ctx context.Context, entry domain.DLQEntry) error
}

// Eligibility re-checks whether an action may run right now (schema state
// may have expired since it was enqueued). Declared locally to avoid
// importing the eligibility package's own cross-package interfaces.
type Eligibility interface {
	Evaluate(ctx context.Context, def *actionregistry.Definition, sessionID string) (eligible bool, reasons []string)
}

// Progress receives a queue entry's execution lifecycle notifications,
// feeding the Streaming Bus's action_executing/action_progress/
// action_completed/action_failed events.
type Progress interface {
	ActionExecuting(ctx context.Context, sessionID, queueID, actionID string)
	ActionProgress(ctx context.Context, sessionID, queueID string, elapsed time.Duration)
	ActionCompleted(ctx context.Context, sessionID, queueID, actionID string)
	ActionFailed(ctx context.Context, sessionID, queueID, actionID string, willRetry bool, errMsg string)
}

// ExecutionResult is what an Executor reports for one attempt.
type ExecutionResult struct {
	Success bool
	Result  map[string]any
	// ErrorClass names the error's class for retry_policy.retry_on_errors
	// matching (e.g. "timeout", "5xx", "rate_limited").
	ErrorClass string
	Err        error
}

// Executor performs the outbound call described by an action's endpoint.
type Executor interface {
	Execute(ctx context.Context, def *actionregistry.Definition, params map[string]any) ExecutionResult
}
