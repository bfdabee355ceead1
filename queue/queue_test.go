package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nikunjmattoo/bot-framework-sub000/actionregistry"
	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
	"github.com/Nikunjmattoo/bot-framework-sub000/queue"
)

func baseDef() *actionregistry.Definition {
	return &actionregistry.Definition{
		ActionID: "check_balance",
		Priority: domain.Priority("normal"),
		RetryPolicy: domain.RetryPolicy{
			Max:             2,
			InitialDelay:    time.Second,
			MaxDelay:        10 * time.Second,
			RetryableErrors: []string{"5xx", "timeout", "network"},
		},
		Endpoint: actionregistry.ActionEndpoint{
			Method: "POST",
			URL:    "https://brand.example/actions/check_balance",
		},
	}
}

type stubExecutor struct {
	results []queue.ExecutionResult
	calls   int
}

func (s *stubExecutor) Execute(_ context.Context, _ *actionregistry.Definition, _ map[string]any) queue.ExecutionResult {
	idx := s.calls
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	s.calls++
	return s.results[idx]
}

type stubEligibility struct {
	eligible bool
	reasons  []string
}

func (s *stubEligibility) Evaluate(_ context.Context, _ *actionregistry.Definition, _ string) (bool, []string) {
	return s.eligible, s.reasons
}

type stubDLQ struct {
	entries []domain.DLQEntry
}

func (s *stubDLQ) Record(_ context.Context, entry domain.DLQEntry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func newQueue(executor queue.Executor, eligibility queue.Eligibility, dlq queue.DLQSink) (*queue.Queue, *queue.MemoryStore, *queue.MemoryExecutionLogStore) {
	store := queue.NewMemoryStore()
	execLog := queue.NewMemoryExecutionLogStore()
	q := queue.New(queue.Options{
		Store:       store,
		ExecLog:     execLog,
		DLQ:         dlq,
		Eligibility: eligibility,
		Executor:    executor,
	})
	return q, store, execLog
}

func resolveTo(def *actionregistry.Definition) queue.DefResolver {
	return func(actionID string) (*actionregistry.Definition, bool) {
		if actionID != def.ActionID {
			return nil, false
		}
		return def, true
	}
}

func TestEnqueueDedupesByIdempotencyKey(t *testing.T) {
	q, _, _ := newQueue(&stubExecutor{}, nil, nil)
	def := baseDef()
	params := map[string]any{"account_id": "acc-1"}

	first, err := q.Enqueue(context.Background(), def, "sess-1", "brand-1", "inst-1", params, nil)
	require.NoError(t, err)

	second, err := q.Enqueue(context.Background(), def, "sess-1", "brand-1", "inst-1", params, nil)
	require.NoError(t, err)

	assert.Equal(t, first.QueueID, second.QueueID)
	assert.Equal(t, domain.QueueReady, first.Status)
}

func TestEnqueueWithMissingParamsStaysPending(t *testing.T) {
	q, _, _ := newQueue(&stubExecutor{}, nil, nil)
	def := baseDef()

	entry, err := q.Enqueue(context.Background(), def, "sess-1", "brand-1", "inst-1", map[string]any{}, []string{"account_id"})
	require.NoError(t, err)
	assert.Equal(t, domain.QueuePending, entry.Status)
}

func TestProcessSessionHappyPath(t *testing.T) {
	def := baseDef()
	executor := &stubExecutor{results: []queue.ExecutionResult{
		{Success: true, Result: map[string]any{"balance": 42}},
	}}
	q, store, execLog := newQueue(executor, &stubEligibility{eligible: true}, nil)

	entry, err := q.Enqueue(context.Background(), def, "sess-1", "brand-1", "inst-1", map[string]any{"account_id": "acc-1"}, nil)
	require.NoError(t, err)

	updated, err := q.ProcessSession(context.Background(), "sess-1", resolveTo(def))
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, domain.QueueCompleted, updated.Status)

	stored, err := store.Get(context.Background(), entry.QueueID)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueCompleted, stored.Status)

	completed, err := execLog.HasCompleted(context.Background(), "sess-1", def.ActionID)
	require.NoError(t, err)
	assert.True(t, completed)
}

func TestProcessSessionBlocksOnIneligibility(t *testing.T) {
	def := baseDef()
	q, store, _ := newQueue(&stubExecutor{}, &stubEligibility{eligible: false, reasons: []string{"requires_auth"}}, nil)

	entry, err := q.Enqueue(context.Background(), def, "sess-1", "brand-1", "inst-1", map[string]any{"account_id": "acc-1"}, nil)
	require.NoError(t, err)

	updated, err := q.ProcessSession(context.Background(), "sess-1", resolveTo(def))
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, domain.QueueBlocked, updated.Status)
	assert.Contains(t, updated.RetryErrors, "requires_auth")

	stored, err := store.Get(context.Background(), entry.QueueID)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueBlocked, stored.Status)
}

func TestProcessSessionRetryableFailureSchedulesBackoff(t *testing.T) {
	def := baseDef()
	executor := &stubExecutor{results: []queue.ExecutionResult{
		{Success: false, ErrorClass: "5xx", Err: errors.New("upstream 500")},
	}}
	q, _, _ := newQueue(executor, &stubEligibility{eligible: true}, nil)

	_, err := q.Enqueue(context.Background(), def, "sess-1", "brand-1", "inst-1", map[string]any{"account_id": "acc-1"}, nil)
	require.NoError(t, err)

	before := time.Now()
	updated, err := q.ProcessSession(context.Background(), "sess-1", resolveTo(def))
	require.NoError(t, err)
	require.NotNil(t, updated)

	assert.Equal(t, domain.QueueRetrying, updated.Status)
	assert.Equal(t, 1, updated.RetryCount)
	require.NotNil(t, updated.NextRetryAt)
	assert.True(t, updated.NextRetryAt.After(before))
	assert.LessOrEqual(t, updated.NextRetryAt.Sub(before), 2*time.Second+time.Second)
}

func TestProcessSessionExhaustedRetriesMovesToDLQ(t *testing.T) {
	def := baseDef()
	def.RetryPolicy.Max = 0
	executor := &stubExecutor{results: []queue.ExecutionResult{
		{Success: false, ErrorClass: "4xx", Err: errors.New("bad request")},
	}}
	dlq := &stubDLQ{}
	q, store, _ := newQueue(executor, &stubEligibility{eligible: true}, dlq)

	entry, err := q.Enqueue(context.Background(), def, "sess-1", "brand-1", "inst-1", map[string]any{"account_id": "acc-1"}, nil)
	require.NoError(t, err)

	updated, err := q.ProcessSession(context.Background(), "sess-1", resolveTo(def))
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, domain.QueueFailed, updated.Status)

	require.Len(t, dlq.entries, 1)
	assert.Equal(t, entry.QueueID, dlq.entries[0].OriginalQueueID)
	assert.Equal(t, "bad request", dlq.entries[0].FinalError)

	stored, err := store.Get(context.Background(), entry.QueueID)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueFailed, stored.Status)
}

func TestRestoreOnStartDemotesAbandonedExecutingEntries(t *testing.T) {
	store := queue.NewMemoryStore()
	execLog := queue.NewMemoryExecutionLogStore()
	q := queue.New(queue.Options{Store: store, ExecLog: execLog})

	def := baseDef()
	entry, err := q.Enqueue(context.Background(), def, "sess-1", "brand-1", "inst-1", map[string]any{"account_id": "acc-1"}, nil)
	require.NoError(t, err)

	_, err = store.UpdateStatus(context.Background(), entry.QueueID, func(e domain.QueueEntry) (domain.QueueEntry, error) {
		e.Status = domain.QueueExecuting
		return e, nil
	})
	require.NoError(t, err)

	require.NoError(t, q.RestoreOnStart(context.Background()))

	stored, err := store.Get(context.Background(), entry.QueueID)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueRetrying, stored.Status)
	require.NotNil(t, stored.NextRetryAt)
}
