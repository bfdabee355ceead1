package narrative_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nikunjmattoo/bot-framework-sub000/actionregistry"
	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
	"github.com/Nikunjmattoo/bot-framework-sub000/narrative"
)

func defWithParamValidation() *actionregistry.Definition {
	return &actionregistry.Definition{
		ActionID:       "open_dispute",
		ParamsRequired: []string{"order_id", "reason"},
		ParamValidation: map[string]actionregistry.ParamValidation{
			"order_id": {
				Variant: domain.AnswerEntity,
				Prompt:  "What's your order number?",
				Pattern: `^ORD-\d+$`,
			},
			"reason": {
				Variant: domain.AnswerSingleChoice,
				Prompt:  "Why are you disputing this order?",
				Options: []domain.AnswerOption{
					{Key: "not_received", Label: "I never received it", Aliases: []string{"missing"}},
					{Key: "damaged", Label: "It arrived damaged"},
				},
			},
			"profile.phone": {
				Variant: domain.AnswerText,
				Prompt:  "What's a good phone number to reach you?",
			},
		},
	}
}

func TestBuildParamsMissingSynthesizesFromParamValidation(t *testing.T) {
	b := narrative.New()
	n := b.Build(narrative.Input{
		IntentID:      "intent-1",
		Outcome:       narrative.OutcomeParamsMissing,
		Def:           defWithParamValidation(),
		ParamsMissing: []string{"order_id", "reason"},
	})

	assert.Equal(t, domain.InstructionAskForParams, n.InstructionType)
	assert.True(t, n.ExpectingResponse)
	require.NotNil(t, n.AnswerSheet)
	assert.Equal(t, domain.AnswerEntity, n.AnswerSheet.Variant)
	assert.Equal(t, "order_id", n.AnswerSheet.ParamName)
	assert.Equal(t, "What's your order number?", n.Message)
}

func TestBuildParamsMissingFallsBackToTextWithoutValidation(t *testing.T) {
	b := narrative.New()
	n := b.Build(narrative.Input{
		IntentID:      "intent-1",
		Outcome:       narrative.OutcomeParamsMissing,
		Def:           &actionregistry.Definition{ActionID: "a"},
		ParamsMissing: []string{"amount"},
	})

	require.NotNil(t, n.AnswerSheet)
	assert.Equal(t, domain.AnswerText, n.AnswerSheet.Variant)
	assert.Equal(t, "amount", n.AnswerSheet.ParamName)
}

func TestBuildIneligibleWithSchemaDependencyExpectsResponse(t *testing.T) {
	b := narrative.New()
	n := b.Build(narrative.Input{
		IntentID:          "intent-1",
		Outcome:           narrative.OutcomeIneligible,
		Def:               defWithParamValidation(),
		IneligibleReasons: []string{"user_tier_not_allowed", "schema_dependency_failed:profile.phone"},
	})

	assert.Equal(t, domain.InstructionHandleBlocker, n.InstructionType)
	assert.True(t, n.ExpectingResponse)
	require.NotNil(t, n.AnswerSheet)
	assert.Equal(t, "profile.phone", n.AnswerSheet.ParamName)
	assert.Equal(t, "What's a good phone number to reach you?", n.Message)
	assert.Contains(t, n.Reasons, "user_tier_not_allowed")
}

func TestBuildIneligibleWithoutSchemaDependencyDoesNotExpectResponse(t *testing.T) {
	b := narrative.New()
	n := b.Build(narrative.Input{
		IntentID:          "intent-1",
		Outcome:           narrative.OutcomeIneligible,
		Def:               defWithParamValidation(),
		IneligibleReasons: []string{"auth_required", "opposite_active:cancel_order"},
	})

	assert.Equal(t, domain.InstructionHandleBlocker, n.InstructionType)
	assert.False(t, n.ExpectingResponse)
	assert.Nil(t, n.AnswerSheet)
}

func TestBuildExecutingCompletedActionNotFoundFailed(t *testing.T) {
	b := narrative.New()

	executing := b.Build(narrative.Input{IntentID: "i", Outcome: narrative.OutcomeExecuting})
	assert.Equal(t, domain.InstructionReportProgress, executing.InstructionType)
	assert.False(t, executing.ExpectingResponse)

	completed := b.Build(narrative.Input{IntentID: "i", Outcome: narrative.OutcomeCompleted})
	assert.Equal(t, domain.InstructionReportCompletion, completed.InstructionType)

	notFound := b.Build(narrative.Input{IntentID: "i", Outcome: narrative.OutcomeActionNotFound})
	assert.Equal(t, domain.InstructionReportError, notFound.InstructionType)

	failed := b.Build(narrative.Input{IntentID: "i", Outcome: narrative.OutcomeFailed, ErrorMessage: "timeout"})
	assert.Equal(t, domain.InstructionReportError, failed.InstructionType)
	assert.Equal(t, "timeout", failed.Message)
}
