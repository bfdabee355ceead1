// Package streaming implements the Streaming Bus (spec.md §4.10): a bounded
// per-session event ring that readers poll, with an optional fan-out to a
// Pulse/Redis-backed stream for multi-process deployments.
package streaming

import (
	"context"
	"sync"
	"time"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
)

// Capacity is the fixed ring size per session (I7): the most recent
// Capacity events are kept, oldest silently evicted.
const Capacity = 20

// Sink optionally receives every emitted event for out-of-process fan-out
// (e.g. a Pulse/Redis publisher). Implementations must not block Emit for
// long; Emit treats a slow/erroring sink as best-effort.
type Sink interface {
	Publish(ctx context.Context, sessionID string, event domain.StreamEvent) error
}

// Bus is the in-memory Streaming Bus: one bounded ring per session.
type Bus struct {
	mu      sync.Mutex
	rings   map[string]*ring
	sink    Sink
	now     func() time.Time
	onError func(sessionID string, err error)
}

// Options configures a Bus. Sink and OnSinkError may be nil.
type Options struct {
	Sink        Sink
	OnSinkError func(sessionID string, err error)
}

// New constructs an empty Bus.
func New(opts Options) *Bus {
	return &Bus{
		rings:   make(map[string]*ring),
		sink:    opts.Sink,
		now:     time.Now,
		onError: opts.OnSinkError,
	}
}

// Emit appends an event to sessionID's ring, evicting the oldest entry if
// the ring is full, and mirrors it to the configured Sink. Emission never
// blocks the pipeline and never returns an error: a Sink failure is
// reported via OnSinkError, not propagated (spec.md §4.10: "emission never
// blocks the pipeline; buffer overwrite is silent").
func (b *Bus) Emit(ctx context.Context, sessionID string, updateType domain.StreamUpdateType, evtContext map[string]any) {
	event := domain.StreamEvent{
		UpdateType: updateType,
		Timestamp:  b.now(),
		Context:    evtContext,
	}

	b.mu.Lock()
	r, ok := b.rings[sessionID]
	if !ok {
		r = newRing(Capacity)
		b.rings[sessionID] = r
	}
	r.push(event)
	b.mu.Unlock()

	if b.sink == nil {
		return
	}
	go func() {
		if err := b.sink.Publish(ctx, sessionID, event); err != nil && b.onError != nil {
			b.onError(sessionID, err)
		}
	}()
}

// ActionExecuting implements queue.Progress by emitting an action_executing
// event when a queue entry starts its outbound call.
func (b *Bus) ActionExecuting(ctx context.Context, sessionID, queueID, actionID string) {
	b.Emit(ctx, sessionID, domain.UpdateActionExecuting, map[string]any{
		"queue_id":  queueID,
		"action_id": actionID,
	})
}

// ActionProgress implements queue.Progress by emitting an action_progress
// event carrying the elapsed duration.
func (b *Bus) ActionProgress(ctx context.Context, sessionID, queueID string, elapsed time.Duration) {
	b.Emit(ctx, sessionID, domain.UpdateActionProgress, map[string]any{
		"queue_id":   queueID,
		"elapsed_ms": elapsed.Milliseconds(),
	})
}

// ActionCompleted implements queue.Progress by emitting an action_completed
// event once a queue entry's outbound call succeeds.
func (b *Bus) ActionCompleted(ctx context.Context, sessionID, queueID, actionID string) {
	b.Emit(ctx, sessionID, domain.UpdateActionCompleted, map[string]any{
		"queue_id":  queueID,
		"action_id": actionID,
	})
}

// ActionFailed implements queue.Progress by emitting an action_failed event
// once a queue entry's outbound call fails, noting whether it will retry.
func (b *Bus) ActionFailed(ctx context.Context, sessionID, queueID, actionID string, willRetry bool, errMsg string) {
	b.Emit(ctx, sessionID, domain.UpdateActionFailed, map[string]any{
		"queue_id":   queueID,
		"action_id":  actionID,
		"will_retry": willRetry,
		"error":      errMsg,
	})
}

// Poll returns a snapshot of sessionID's ring, oldest first. Readers poll
// this buffer; no push transport is mandated by spec.md §4.10.
func (b *Bus) Poll(_ context.Context, sessionID string) []domain.StreamEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.rings[sessionID]
	if !ok {
		return nil
	}
	return r.snapshot()
}

// Clear drops a session's ring, e.g. once its conversation ends.
func (b *Bus) Clear(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.rings, sessionID)
}

// ring is a fixed-capacity circular buffer, append-only from the caller's
// perspective: pushes past capacity silently overwrite the oldest entry.
type ring struct {
	buf   []domain.StreamEvent
	start int
	size  int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]domain.StreamEvent, capacity)}
}

func (r *ring) push(e domain.StreamEvent) {
	capacity := len(r.buf)
	if r.size < capacity {
		r.buf[(r.start+r.size)%capacity] = e
		r.size++
		return
	}
	r.buf[r.start] = e
	r.start = (r.start + 1) % capacity
}

func (r *ring) snapshot() []domain.StreamEvent {
	out := make([]domain.StreamEvent, r.size)
	capacity := len(r.buf)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%capacity]
	}
	return out
}
