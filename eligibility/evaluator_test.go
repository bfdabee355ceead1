package eligibility_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nikunjmattoo/bot-framework-sub000/actionregistry"
	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
	"github.com/Nikunjmattoo/bot-framework-sub000/eligibility"
)

type stubSchemaStates struct {
	states map[string]*eligibility.SchemaState
}

func (s stubSchemaStates) State(_ context.Context, schemaID string) (*eligibility.SchemaState, bool) {
	st, ok := s.states[schemaID]
	return st, ok
}

type stubExecLog struct {
	completed map[string]bool
}

func (s stubExecLog) HasCompleted(_ context.Context, _, actionID string) (bool, error) {
	return s.completed[actionID], nil
}

type stubQueue struct {
	active map[string]bool
}

func (s stubQueue) HasNonTerminal(_ context.Context, _, actionID string) (bool, error) {
	return s.active[actionID], nil
}

func baseDef() *actionregistry.Definition {
	return &actionregistry.Definition{
		ActionID: "cancel_order",
		Eligibility: actionregistry.Eligibility{
			UserTiers:    []string{"gold", "platinum"},
			RequiresAuth: true,
			SchemaDependencies: map[string]actionregistry.SchemaDependency{
				"profile": {RequiredKeys: []string{"phone"}, AllMustBe: "complete"},
			},
		},
		Blockers:     []string{"cart_empty"},
		Dependencies: []string{"verify_identity"},
		Opposites:    []string{"reopen_order"},
	}
}

func TestEvaluateAllChecksPassIsEligible(t *testing.T) {
	schemas := stubSchemaStates{states: map[string]*eligibility.SchemaState{
		"profile": {APIStatus: domain.APIStatusOK, Keys: map[string]domain.KeyStatus{"phone": domain.KeyComplete}},
	}}
	execLog := stubExecLog{completed: map[string]bool{"verify_identity": true}}
	queue := stubQueue{active: map[string]bool{}}
	predicates := eligibility.NewPredicateTable()
	predicates.Set("cart_empty", func(context.Context, string) (bool, error) { return false, nil })

	eval := eligibility.New(schemas, execLog, queue, predicates, nil, nil)
	result := eval.Evaluate(context.Background(), baseDef(), "sess1", eligibility.UserContext{Tier: "gold", Authenticated: true})

	assert.True(t, result.Eligible)
	assert.Empty(t, result.Reasons)
}

func TestEvaluateAccumulatesAllFailures(t *testing.T) {
	schemas := stubSchemaStates{states: map[string]*eligibility.SchemaState{
		"profile": {APIStatus: domain.APIStatusError, Keys: map[string]domain.KeyStatus{"phone": domain.KeyComplete}},
	}}
	execLog := stubExecLog{completed: map[string]bool{}}
	queue := stubQueue{active: map[string]bool{"reopen_order": true}}
	predicates := eligibility.NewPredicateTable()
	predicates.Set("cart_empty", func(context.Context, string) (bool, error) { return true, nil })

	eval := eligibility.New(schemas, execLog, queue, predicates, nil, nil)
	result := eval.Evaluate(context.Background(), baseDef(), "sess1", eligibility.UserContext{Tier: "bronze", Authenticated: false})

	require.False(t, result.Eligible)
	assert.Contains(t, result.Reasons, "user_tier_not_allowed")
	assert.Contains(t, result.Reasons, "auth_required")
	assert.Contains(t, result.Reasons, "schema_dependency_failed:profile.phone")
	assert.Contains(t, result.Reasons, "blocker:cart_empty")
	assert.Contains(t, result.Reasons, "dependency_not_completed:verify_identity")
	assert.Contains(t, result.Reasons, "opposite_active:reopen_order")
	assert.Len(t, result.Reasons, 6, "every failing check must be enumerated, not just the first")
}

func TestEvaluateStaleSchemaFailsRequiredKeyEvenIfLastValueWasComplete(t *testing.T) {
	schemas := stubSchemaStates{states: map[string]*eligibility.SchemaState{
		"profile": {APIStatus: domain.APIStatusStale, Keys: map[string]domain.KeyStatus{"phone": domain.KeyComplete}},
	}}
	eval := eligibility.New(schemas, stubExecLog{completed: map[string]bool{"verify_identity": true}}, stubQueue{}, nil, nil, nil)

	def := baseDef()
	def.Blockers = nil
	def.Dependencies = nil
	def.Opposites = nil
	result := eval.Evaluate(context.Background(), def, "sess1", eligibility.UserContext{Tier: "gold", Authenticated: true})

	require.False(t, result.Eligible)
	assert.Equal(t, []string{"schema_dependency_failed:profile.phone"}, result.Reasons)
}

func TestEvaluateUnregisteredBlockerFailsClosed(t *testing.T) {
	def := &actionregistry.Definition{ActionID: "x", Blockers: []string{"unknown_blocker"}}
	eval := eligibility.New(stubSchemaStates{}, nil, nil, nil, nil, nil)

	result := eval.Evaluate(context.Background(), def, "sess1", eligibility.UserContext{})
	require.False(t, result.Eligible)
	assert.Contains(t, result.Reasons, "blocker:unknown_blocker")
}

func TestEvaluatePredicateErrorIsReportedAsReason(t *testing.T) {
	predicates := eligibility.NewPredicateTable()
	predicates.Set("cart_empty", func(context.Context, string) (bool, error) { return false, errors.New("boom") })
	def := &actionregistry.Definition{ActionID: "x", Blockers: []string{"cart_empty"}}
	eval := eligibility.New(stubSchemaStates{}, nil, nil, predicates, nil, nil)

	result := eval.Evaluate(context.Background(), def, "sess1", eligibility.UserContext{})
	require.False(t, result.Eligible)
	assert.Contains(t, result.Reasons, "blocker_check_failed:cart_empty")
}
