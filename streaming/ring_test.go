package streaming_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
	"github.com/Nikunjmattoo/bot-framework-sub000/streaming"
)

func TestEmitAndPollOrdering(t *testing.T) {
	bus := streaming.New(streaming.Options{})

	bus.Emit(context.Background(), "sess-1", domain.UpdateActionQueued, map[string]any{"action_id": "refund"})
	bus.Emit(context.Background(), "sess-1", domain.UpdateActionExecuting, map[string]any{"action_id": "refund"})

	events := bus.Poll(context.Background(), "sess-1")
	require.Len(t, events, 2)
	assert.Equal(t, domain.UpdateActionQueued, events[0].UpdateType)
	assert.Equal(t, domain.UpdateActionExecuting, events[1].UpdateType)
}

func TestEmitEvictsOldestPastCapacity(t *testing.T) {
	bus := streaming.New(streaming.Options{})

	for i := 0; i < streaming.Capacity+5; i++ {
		bus.Emit(context.Background(), "sess-1", domain.UpdateActionProgress, map[string]any{"i": i})
	}

	events := bus.Poll(context.Background(), "sess-1")
	require.Len(t, events, streaming.Capacity)
	first := events[0].Context["i"].(int)
	assert.Equal(t, 5, first)
	last := events[len(events)-1].Context["i"].(int)
	assert.Equal(t, streaming.Capacity+4, last)
}

func TestPollUnknownSessionReturnsNil(t *testing.T) {
	bus := streaming.New(streaming.Options{})
	assert.Nil(t, bus.Poll(context.Background(), "no-such-session"))
}

func TestSessionsAreIsolated(t *testing.T) {
	bus := streaming.New(streaming.Options{})
	bus.Emit(context.Background(), "sess-a", domain.UpdateActionQueued, nil)
	bus.Emit(context.Background(), "sess-b", domain.UpdateActionFailed, nil)

	assert.Len(t, bus.Poll(context.Background(), "sess-a"), 1)
	assert.Len(t, bus.Poll(context.Background(), "sess-b"), 1)
}

func TestClearDropsRing(t *testing.T) {
	bus := streaming.New(streaming.Options{})
	bus.Emit(context.Background(), "sess-1", domain.UpdateActionQueued, nil)
	bus.Clear("sess-1")
	assert.Nil(t, bus.Poll(context.Background(), "sess-1"))
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.StreamEvent
	done   chan struct{}
}

func newRecordingSink(expect int) *recordingSink {
	return &recordingSink{done: make(chan struct{}, expect)}
}

func (r *recordingSink) Publish(_ context.Context, _ string, event domain.StreamEvent) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func TestEmitFansOutToSink(t *testing.T) {
	sink := newRecordingSink(1)
	bus := streaming.New(streaming.Options{Sink: sink})

	bus.Emit(context.Background(), "sess-1", domain.UpdateActionCompleted, nil)
	<-sink.done

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.events, 1)
	assert.Equal(t, domain.UpdateActionCompleted, sink.events[0].UpdateType)
}
