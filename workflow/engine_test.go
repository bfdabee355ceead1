package workflow_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
	"github.com/Nikunjmattoo/bot-framework-sub000/workflow"
)

type stubEnqueuer struct {
	calls []string
	next  int
}

func (s *stubEnqueuer) EnqueueStep(_ context.Context, _, _, _, actionID string, _ map[string]any) (string, error) {
	s.calls = append(s.calls, actionID)
	s.next++
	return fmt.Sprintf("queue-%d", s.next), nil
}

func linearDef() *workflow.Definition {
	return &workflow.Definition{
		WorkflowID: "open_dispute",
		Timeout:    time.Hour,
		Steps: []workflow.StepDef{
			{SequenceID: "s1", ActionID: "verify_identity", Required: true, OnFailure: domain.OnFailureAbort, RollbackOnWorkflowFailure: true, RollbackActionID: "undo_verify_identity"},
			{SequenceID: "s2", ActionID: "freeze_funds", Required: true, OnFailure: domain.OnFailureAbort, DependsOn: []string{"s1"}},
			{SequenceID: "s3", ActionID: "notify_user", Required: false, OnFailure: domain.OnFailureContinue, DependsOn: []string{"s1"}},
		},
	}
}

func TestInstantiateEnqueuesOnlyRootSteps(t *testing.T) {
	enqueuer := &stubEnqueuer{}
	eng := workflow.New(workflow.Options{Store: workflow.NewMemoryStore(), Enqueuer: enqueuer})

	inst, err := eng.Instantiate(context.Background(), linearDef(), "sess-1", "brand-1", "inst-1", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"verify_identity"}, enqueuer.calls)
	assert.Equal(t, domain.StepExecuting, inst.StepsExecuted[0].Status)
	assert.Equal(t, domain.StepPending, inst.StepsExecuted[1].Status)
}

func TestAdvanceUnblocksDependentSteps(t *testing.T) {
	enqueuer := &stubEnqueuer{}
	store := workflow.NewMemoryStore()
	eng := workflow.New(workflow.Options{Store: store, Enqueuer: enqueuer})
	def := linearDef()

	inst, err := eng.Instantiate(context.Background(), def, "sess-1", "brand-1", "inst-1", nil)
	require.NoError(t, err)

	updated, err := eng.Advance(context.Background(), def, "brand-1", inst.WorkflowInstanceID, "s1", domain.QueueCompleted, nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"verify_identity", "freeze_funds", "notify_user"}, enqueuer.calls)
	assert.Equal(t, domain.WorkflowInProgress, updated.Status)
}

func TestAdvanceCompletesWorkflowWhenAllStepsSettle(t *testing.T) {
	enqueuer := &stubEnqueuer{}
	store := workflow.NewMemoryStore()
	eng := workflow.New(workflow.Options{Store: store, Enqueuer: enqueuer})
	def := linearDef()

	inst, err := eng.Instantiate(context.Background(), def, "sess-1", "brand-1", "inst-1", nil)
	require.NoError(t, err)

	_, err = eng.Advance(context.Background(), def, "brand-1", inst.WorkflowInstanceID, "s1", domain.QueueCompleted, nil)
	require.NoError(t, err)
	_, err = eng.Advance(context.Background(), def, "brand-1", inst.WorkflowInstanceID, "s2", domain.QueueCompleted, nil)
	require.NoError(t, err)
	final, err := eng.Advance(context.Background(), def, "brand-1", inst.WorkflowInstanceID, "s3", domain.QueueCompleted, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.WorkflowCompleted, final.Status)
}

func TestAdvanceOptionalStepFailureDoesNotFailWorkflow(t *testing.T) {
	enqueuer := &stubEnqueuer{}
	store := workflow.NewMemoryStore()
	eng := workflow.New(workflow.Options{Store: store, Enqueuer: enqueuer})
	def := linearDef()

	inst, err := eng.Instantiate(context.Background(), def, "sess-1", "brand-1", "inst-1", nil)
	require.NoError(t, err)
	_, err = eng.Advance(context.Background(), def, "brand-1", inst.WorkflowInstanceID, "s1", domain.QueueCompleted, nil)
	require.NoError(t, err)
	_, err = eng.Advance(context.Background(), def, "brand-1", inst.WorkflowInstanceID, "s2", domain.QueueCompleted, nil)
	require.NoError(t, err)

	final, err := eng.Advance(context.Background(), def, "brand-1", inst.WorkflowInstanceID, "s3", domain.QueueFailed, nil)
	require.NoError(t, err)

	// s3 is optional (on_failure=continue), so its failure alone should not
	// fail the workflow or trigger rollback.
	assert.Equal(t, domain.WorkflowCompleted, final.Status)
	assert.False(t, final.RollbackPerformed)
}

func TestAdvanceRequiredStepFailureRollsBackCompletedSteps(t *testing.T) {
	enqueuer := &stubEnqueuer{}
	store := workflow.NewMemoryStore()
	eng := workflow.New(workflow.Options{Store: store, Enqueuer: enqueuer})
	def := linearDef()

	inst, err := eng.Instantiate(context.Background(), def, "sess-1", "brand-1", "inst-1", nil)
	require.NoError(t, err)
	_, err = eng.Advance(context.Background(), def, "brand-1", inst.WorkflowInstanceID, "s1", domain.QueueCompleted, nil)
	require.NoError(t, err)

	final, err := eng.Advance(context.Background(), def, "brand-1", inst.WorkflowInstanceID, "s2", domain.QueueFailed, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.WorkflowFailed, final.Status)
	assert.True(t, final.RollbackPerformed)
	assert.Contains(t, enqueuer.calls, "undo_verify_identity")
}

func TestCheckTimeoutsFailsExpiredInstances(t *testing.T) {
	enqueuer := &stubEnqueuer{}
	store := workflow.NewMemoryStore()
	def := linearDef()
	def.Timeout = -time.Second // already expired on instantiation
	eng := workflow.New(workflow.Options{Store: store, Enqueuer: enqueuer, Defs: workflow.NewDefinitions([]*workflow.Definition{def})})

	inst, err := eng.Instantiate(context.Background(), def, "sess-1", "brand-1", "inst-1", nil)
	require.NoError(t, err)

	require.NoError(t, eng.CheckTimeouts(context.Background()))

	stored, err := store.Get(context.Background(), inst.WorkflowInstanceID)
	require.NoError(t, err)
	assert.Equal(t, domain.WorkflowFailed, stored.Status)
	assert.True(t, stored.TimedOut)
}
