package dlq_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nikunjmattoo/bot-framework-sub000/dlq"
	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
)

type stubQueueLookup struct {
	entries map[string]domain.QueueEntry
}

func (s *stubQueueLookup) Get(_ context.Context, queueID string) (domain.QueueEntry, error) {
	e, ok := s.entries[queueID]
	if !ok {
		return domain.QueueEntry{}, assertNotFound
	}
	return e, nil
}

var assertNotFound = &notFoundErr{}

type notFoundErr struct{}

func (*notFoundErr) Error() string { return "queue entry not found" }

type stubRequeuer struct {
	called   bool
	original domain.QueueEntry
}

func (s *stubRequeuer) RequeueFromDLQ(_ context.Context, original domain.QueueEntry) (domain.QueueEntry, error) {
	s.called = true
	s.original = original
	fresh := original
	fresh.QueueID = "queue-fresh"
	fresh.RetryCount = 0
	fresh.Status = domain.QueueReady
	return fresh, nil
}

func seedEntry() domain.DLQEntry {
	return domain.DLQEntry{
		DLQID:           "dlq-1",
		OriginalQueueID: "queue-orig",
		ActionID:        "check_balance",
		FinalError:      "upstream 500",
		RetryHistory:    []string{"upstream 500", "upstream 500"},
		MovedAt:         time.Now(),
	}
}

func TestRecordAndListUnresolved(t *testing.T) {
	store := dlq.NewMemoryStore()
	m := dlq.New(store, nil, nil, nil, nil)

	require.NoError(t, m.Record(context.Background(), seedEntry()))

	unresolved, err := m.ListUnresolved(context.Background())
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	assert.Equal(t, "dlq-1", unresolved[0].DLQID)
}

func TestResolveWithoutRetryMarksResolvedOnly(t *testing.T) {
	store := dlq.NewMemoryStore()
	m := dlq.New(store, nil, nil, nil, nil)
	require.NoError(t, m.Record(context.Background(), seedEntry()))

	resolved, requeued, err := m.Resolve(context.Background(), "dlq-1", "refunded manually", false)
	require.NoError(t, err)
	assert.Nil(t, requeued)
	assert.True(t, resolved.Resolved)
	assert.Equal(t, "refunded manually", resolved.ResolutionNotes)

	unresolved, err := m.ListUnresolved(context.Background())
	require.NoError(t, err)
	assert.Empty(t, unresolved)
}

func TestResolveWithRetryRequeuesPreservingIdempotencyKey(t *testing.T) {
	store := dlq.NewMemoryStore()
	original := domain.QueueEntry{
		QueueID:        "queue-orig",
		IdempotencyKey: "idem-abc",
		SessionID:      "sess-1",
		ActionID:       "check_balance",
		RetryCount:     3,
		Status:         domain.QueueFailed,
	}
	lookup := &stubQueueLookup{entries: map[string]domain.QueueEntry{"queue-orig": original}}
	requeuer := &stubRequeuer{}
	m := dlq.New(store, lookup, requeuer, nil, nil)
	require.NoError(t, m.Record(context.Background(), seedEntry()))

	resolved, requeued, err := m.Resolve(context.Background(), "dlq-1", "retrying after fix", true)
	require.NoError(t, err)
	require.True(t, requeuer.called)
	require.NotNil(t, requeued)
	assert.Equal(t, "idem-abc", requeued.IdempotencyKey)
	assert.Equal(t, 0, requeued.RetryCount)
	assert.True(t, resolved.Resolved)
}

func TestResolveAlreadyResolvedFails(t *testing.T) {
	store := dlq.NewMemoryStore()
	m := dlq.New(store, nil, nil, nil, nil)
	require.NoError(t, m.Record(context.Background(), seedEntry()))

	_, _, err := m.Resolve(context.Background(), "dlq-1", "first", false)
	require.NoError(t, err)

	_, _, err = m.Resolve(context.Background(), "dlq-1", "second", false)
	require.ErrorIs(t, err, dlq.ErrAlreadyResolved)
}
