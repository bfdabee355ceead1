package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/Nikunjmattoo/bot-framework-sub000/actionregistry"
	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
	"github.com/Nikunjmattoo/bot-framework-sub000/internal/idgen"
	"github.com/Nikunjmattoo/bot-framework-sub000/internal/telemetry"
)

// Queue is the Action Queue & Execution component (spec.md §4.6).
type Queue struct {
	store      Store
	execLog    ExecutionLogStore
	dlq        DLQSink
	eligible   Eligibility
	executor   Executor
	validator  ParamValidator
	progress   Progress
	log        telemetry.Logger
	metrics    telemetry.Metrics
	now        func() time.Time
}

// Options configures a Queue. Validator, Progress, and DLQ may be nil.
type Options struct {
	Store       Store
	ExecLog     ExecutionLogStore
	DLQ         DLQSink
	Eligibility Eligibility
	Executor    Executor
	Validator   ParamValidator
	Progress    Progress
	Log         telemetry.Logger
	Metrics     telemetry.Metrics
}

// New constructs a Queue.
func New(opts Options) *Queue {
	log := opts.Log
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Queue{
		store:     opts.Store,
		execLog:   opts.ExecLog,
		dlq:       opts.DLQ,
		eligible:  opts.Eligibility,
		executor:  opts.Executor,
		validator: opts.Validator,
		progress:  opts.Progress,
		log:       log,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Enqueue validates params_collected and inserts a new Queue Entry. If an
// entry with the same idempotency key already exists in non-terminal
// status, that entry is returned instead (I2).
func (q *Queue) Enqueue(ctx context.Context, def *actionregistry.Definition, sessionID, brandID, instanceID string, params map[string]any, missing []string) (domain.QueueEntry, error) {
	if q.validator != nil {
		if err := q.validator.Validate(def, params); err != nil {
			return domain.QueueEntry{}, fmt.Errorf("param validation: %w", err)
		}
	}

	key := computeIdempotencyKey(sessionID, def.ActionID, params)
	if existing, err := q.store.FindByIdempotencyKey(ctx, key); err != nil {
		return domain.QueueEntry{}, err
	} else if existing != nil {
		return *existing, nil
	}

	maxRetries := def.RetryPolicy.Max
	now := q.now()
	entry := domain.QueueEntry{
		QueueID:         idgen.New("queue"),
		IdempotencyKey:  key,
		SessionID:       sessionID,
		BrandID:         brandID,
		InstanceID:      instanceID,
		ActionID:        def.ActionID,
		ParamsCollected: params,
		ParamsMissing:   missing,
		Status:          domain.QueuePending,
		Priority:        def.Priority,
		MaxRetries:      maxRetries,
		AddedAt:         now,
		CheckpointAt:    now,
	}
	if len(missing) == 0 {
		entry.Status = domain.QueueReady
	}
	if err := q.store.Insert(ctx, entry); err != nil {
		return domain.QueueEntry{}, err
	}
	return entry, nil
}

// DefResolver looks up an action definition by id from a snapshot; callers
// pass the snapshot in since a Queue has no direct registry dependency.
type DefResolver func(actionID string) (*actionregistry.Definition, bool)

// ProcessSession runs one processing pass over sessionID's eligible queue
// entries, in priority/added_at order, executing at most one entry per
// call (the caller serializes calls per session per spec.md §5).
func (q *Queue) ProcessSession(ctx context.Context, sessionID string, resolve DefResolver) (*domain.QueueEntry, error) {
	now := q.now()
	entries, err := q.store.ListEligible(ctx, sessionID, now)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	entry := entries[0]

	def, ok := resolve(entry.ActionID)
	if !ok {
		return nil, fmt.Errorf("unknown action %s for queue entry %s", entry.ActionID, entry.QueueID)
	}

	// Step 1: recompute idempotency key; adopt a completed execution's
	// result if one already exists.
	key := computeIdempotencyKey(sessionID, def.ActionID, entry.ParamsCollected)
	if completed, err := q.execLog.FindCompletedByIdempotencyKey(ctx, key); err != nil {
		return nil, err
	} else if completed != nil {
		updated, err := q.store.UpdateStatus(ctx, entry.QueueID, func(e domain.QueueEntry) (domain.QueueEntry, error) {
			e.Status = domain.QueueCompleted
			e.CheckpointAt = q.now()
			return e, nil
		})
		return &updated, err
	}

	// Step 2: re-check eligibility.
	if q.eligible != nil {
		eligible, reasons := q.eligible.Evaluate(ctx, def, sessionID)
		if !eligible {
			updated, err := q.store.UpdateStatus(ctx, entry.QueueID, func(e domain.QueueEntry) (domain.QueueEntry, error) {
				e.Status = domain.QueueBlocked
				e.RetryErrors = append(e.RetryErrors, reasons...)
				e.CheckpointAt = q.now()
				return e, nil
			})
			return &updated, err
		}
	}

	// Step 3: transition to executing, write an Execution Log Entry.
	entry, err = q.store.UpdateStatus(ctx, entry.QueueID, func(e domain.QueueEntry) (domain.QueueEntry, error) {
		e.Status = domain.QueueExecuting
		e.CheckpointAt = q.now()
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	if q.progress != nil {
		q.progress.ActionExecuting(ctx, sessionID, entry.QueueID, entry.ActionID)
	}
	executionID := idgen.New("execution")
	startedAt := q.now()
	if err := q.execLog.Append(ctx, domain.ExecutionLogEntry{
		ExecutionID:    executionID,
		QueueID:        entry.QueueID,
		ActionID:       entry.ActionID,
		SessionID:      sessionID,
		StartedAt:      startedAt,
		Status:         domain.ExecExecuting,
		RetryAttempt:   entry.RetryCount,
		ParamsUsed:     entry.ParamsCollected,
		IdempotencyKey: key,
	}); err != nil {
		return nil, err
	}

	// Step 4: call the external endpoint, reporting progress periodically.
	progressDone := make(chan struct{})
	if q.progress != nil {
		go q.reportProgress(ctx, sessionID, entry.QueueID, progressDone)
	}
	result := q.executor.Execute(ctx, def, entry.ParamsCollected)
	close(progressDone)

	completedAt := q.now()
	duration := completedAt.Sub(startedAt)

	// Step 5: classify the outcome.
	if result.Success {
		if err := q.execLog.Complete(ctx, executionID, domain.ExecCompleted, result.Result, "", completedAt); err != nil {
			return nil, err
		}
		updated, err := q.store.UpdateStatus(ctx, entry.QueueID, func(e domain.QueueEntry) (domain.QueueEntry, error) {
			e.Status = domain.QueueCompleted
			e.CheckpointAt = q.now()
			return e, nil
		})
		q.metrics.IncCounter("queue.action_completed", 1, "action_id", entry.ActionID)
		q.metrics.RecordTimer("queue.action_duration", duration, "action_id", entry.ActionID)
		if q.progress != nil {
			q.progress.ActionCompleted(ctx, sessionID, entry.QueueID, entry.ActionID)
		}
		return &updated, err
	}

	retryable := containsString(def.RetryPolicy.RetryableErrors, result.ErrorClass)
	if retryable && entry.RetryCount+1 <= entry.MaxRetries {
		if err := q.execLog.Complete(ctx, executionID, domain.ExecFailed, nil, errString(result.Err), completedAt); err != nil {
			return nil, err
		}
		updated, err := q.store.UpdateStatus(ctx, entry.QueueID, func(e domain.QueueEntry) (domain.QueueEntry, error) {
			e.RetryCount++
			delay := computeBackoff(e.RetryCount, def.RetryPolicy)
			next := q.now().Add(delay)
			e.NextRetryAt = &next
			e.Status = domain.QueueRetrying
			e.RetryErrors = append(e.RetryErrors, errString(result.Err))
			e.CheckpointAt = q.now()
			return e, nil
		})
		q.metrics.IncCounter("queue.action_failed_will_retry", 1, "action_id", entry.ActionID)
		if q.progress != nil {
			q.progress.ActionFailed(ctx, sessionID, entry.QueueID, entry.ActionID, true, errString(result.Err))
		}
		return &updated, err
	}

	// Non-retryable or exhausted: terminal failure, move to DLQ.
	status := domain.ExecFailed
	if result.ErrorClass == "timeout" {
		status = domain.ExecTimeout
	}
	if err := q.execLog.Complete(ctx, executionID, status, nil, errString(result.Err), completedAt); err != nil {
		return nil, err
	}
	updated, err := q.store.UpdateStatus(ctx, entry.QueueID, func(e domain.QueueEntry) (domain.QueueEntry, error) {
		e.Status = domain.QueueFailed
		e.RetryErrors = append(e.RetryErrors, errString(result.Err))
		e.CheckpointAt = q.now()
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	if q.dlq != nil {
		dlqEntry := domain.DLQEntry{
			DLQID:           idgen.New("dlq"),
			OriginalQueueID: updated.QueueID,
			ActionID:        updated.ActionID,
			FinalError:      errString(result.Err),
			RetryHistory:    updated.RetryErrors,
			MovedAt:         q.now(),
		}
		if err := q.dlq.Record(ctx, dlqEntry); err != nil {
			return nil, err
		}
	}
	q.metrics.IncCounter("queue.action_failed_terminal", 1, "action_id", entry.ActionID)
	if q.progress != nil {
		q.progress.ActionFailed(ctx, sessionID, entry.QueueID, entry.ActionID, false, errString(result.Err))
	}
	return &updated, nil
}

// RequeueFromDLQ creates a fresh Queue Entry for a previously exhausted
// action, preserving its idempotency key so already-completed executions
// still dedupe, but resetting retry_count to zero (spec.md §4.9). Called by
// the Dead-Letter Store on a manual retry=true resolution.
func (q *Queue) RequeueFromDLQ(ctx context.Context, original domain.QueueEntry) (domain.QueueEntry, error) {
	now := q.now()
	entry := domain.QueueEntry{
		QueueID:         idgen.New("queue"),
		IdempotencyKey:  original.IdempotencyKey,
		SessionID:       original.SessionID,
		BrandID:         original.BrandID,
		InstanceID:      original.InstanceID,
		ActionID:        original.ActionID,
		ParamsCollected: original.ParamsCollected,
		ParamsMissing:   original.ParamsMissing,
		Status:          domain.QueueReady,
		Priority:        original.Priority,
		MaxRetries:      original.MaxRetries,
		AddedAt:         now,
		CheckpointAt:    now,
	}
	if len(entry.ParamsMissing) > 0 {
		entry.Status = domain.QueuePending
	}
	if err := q.store.Insert(ctx, entry); err != nil {
		return domain.QueueEntry{}, err
	}
	return entry, nil
}

// RestoreOnStart implements crash recovery (spec.md §4.6): every
// restorable entry is reloaded, and an abandoned executing entry (no
// completion recorded in the Execution Log) is demoted to retrying.
func (q *Queue) RestoreOnStart(ctx context.Context) error {
	entries, err := q.store.ListRestorable(ctx)
	if err != nil {
		return err
	}
	now := q.now()
	for _, entry := range entries {
		if entry.Status != domain.QueueExecuting {
			continue
		}
		key := computeIdempotencyKey(entry.SessionID, entry.ActionID, entry.ParamsCollected)
		completed, err := q.execLog.FindCompletedByIdempotencyKey(ctx, key)
		if err != nil {
			return err
		}
		if completed != nil {
			continue
		}
		if _, err := q.store.UpdateStatus(ctx, entry.QueueID, func(e domain.QueueEntry) (domain.QueueEntry, error) {
			e.Status = domain.QueueRetrying
			e.NextRetryAt = &now
			e.CheckpointAt = now
			return e, nil
		}); err != nil {
			return err
		}
		q.log.Warn(ctx, "recovered abandoned executing queue entry", "queue_id", entry.QueueID)
	}
	return nil
}

func (q *Queue) reportProgress(ctx context.Context, sessionID, queueID string, done <-chan struct{}) {
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()
	start := time.Now()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.progress.ActionProgress(ctx, sessionID, queueID, time.Since(start))
		}
	}
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
