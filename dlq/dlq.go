package dlq

import (
	"context"
	"errors"
	"fmt"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
	"github.com/Nikunjmattoo/bot-framework-sub000/internal/telemetry"
)

// ErrNotFound is returned when a DLQ entry id is unknown.
var ErrNotFound = errors.New("dlq: entry not found")

// ErrAlreadyResolved is returned when Resolve targets an entry already
// marked resolved.
var ErrAlreadyResolved = errors.New("dlq: entry already resolved")

// Manager is the Dead-Letter Store component, grounded on the teacher's
// runlog.Store-over-a-Mongo-client wiring shape (features/runlog/mongo).
type Manager struct {
	store    Store
	queue    QueueEntryLookup
	requeuer Requeuer
	log      telemetry.Logger
	metrics  telemetry.Metrics
}

// New constructs a Manager. queue and requeuer may be nil if Resolve is
// never called with retry=true.
func New(store Store, queue QueueEntryLookup, requeuer Requeuer, log telemetry.Logger, metrics telemetry.Metrics) *Manager {
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Manager{store: store, queue: queue, requeuer: requeuer, log: log, metrics: metrics}
}

// BindQueue wires the Action Queue's lookup/requeue operations onto an
// already-constructed Manager. The Action Queue itself depends on the
// Manager as its DLQSink, so the two can't be constructed in dependency
// order; a deployment builds the Manager first with a nil queue/requeuer,
// builds the Queue against it, then calls BindQueue once the Queue exists.
func (m *Manager) BindQueue(queue QueueEntryLookup, requeuer Requeuer) {
	m.queue = queue
	m.requeuer = requeuer
}

// Record writes a new DLQ entry. Called by the Action Queue when retries
// are exhausted or an action fails non-retryably.
func (m *Manager) Record(ctx context.Context, entry domain.DLQEntry) error {
	if err := m.store.Insert(ctx, entry); err != nil {
		return fmt.Errorf("record dlq entry: %w", err)
	}
	m.metrics.IncCounter("dlq.entry_recorded", 1, "action_id", entry.ActionID)
	m.log.Warn(ctx, "action moved to dead-letter store", "dlq_id", entry.DLQID, "action_id", entry.ActionID)
	return nil
}

// ListUnresolved returns every DLQ entry awaiting manual intervention.
func (m *Manager) ListUnresolved(ctx context.Context) ([]domain.DLQEntry, error) {
	return m.store.ListUnresolved(ctx)
}

// Resolve marks a DLQ entry resolved with operator notes. When retry is
// true, it also requeues the original action: a fresh queue entry is
// created with retry_count reset to zero, while the idempotency key is
// carried over unchanged so any already-completed execution still dedupes
// (spec.md §4.9).
func (m *Manager) Resolve(ctx context.Context, dlqID, notes string, retry bool) (domain.DLQEntry, *domain.QueueEntry, error) {
	var requeued *domain.QueueEntry
	if retry {
		if m.queue == nil || m.requeuer == nil {
			return domain.DLQEntry{}, nil, errors.New("dlq: retry requested but no queue/requeuer is configured")
		}
		entry, err := m.store.Get(ctx, dlqID)
		if err != nil {
			return domain.DLQEntry{}, nil, fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		original, err := m.queue.Get(ctx, entry.OriginalQueueID)
		if err != nil {
			return domain.DLQEntry{}, nil, fmt.Errorf("load original queue entry: %w", err)
		}
		fresh, err := m.requeuer.RequeueFromDLQ(ctx, original)
		if err != nil {
			return domain.DLQEntry{}, nil, fmt.Errorf("requeue: %w", err)
		}
		requeued = &fresh
	}

	resolved, err := m.store.UpdateResolution(ctx, dlqID, func(e domain.DLQEntry) (domain.DLQEntry, error) {
		if e.Resolved {
			return domain.DLQEntry{}, ErrAlreadyResolved
		}
		e.Resolved = true
		e.ResolutionNotes = notes
		return e, nil
	})
	if err != nil {
		return domain.DLQEntry{}, requeued, err
	}
	m.metrics.IncCounter("dlq.entry_resolved", 1, "action_id", resolved.ActionID, "retried", boolString(retry))
	return resolved, requeued, nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
