// Package narrative implements the Narrative Builder (spec.md §4.11): given
// the final per-intent state a turn settled into, it produces the
// next-turn directive (instruction type, expecting_response, answer_sheet)
// handed to Response Generation.
package narrative

import "github.com/Nikunjmattoo/bot-framework-sub000/actionregistry"

// Outcome is the final state an intent settled into this turn, the input
// to narrative synthesis (spec.md §4.11's state column).
type Outcome string

const (
	OutcomeParamsMissing  Outcome = "params_missing"
	OutcomeIneligible     Outcome = "ineligible"
	OutcomeExecuting      Outcome = "executing"
	OutcomeCompleted      Outcome = "completed"
	OutcomeActionNotFound Outcome = "action_not_found"
	OutcomeFailed         Outcome = "failed"
)

// Input describes one intent's settled-this-turn state.
type Input struct {
	IntentID string
	Outcome  Outcome

	// Def is the resolved action definition. Nil for OutcomeActionNotFound.
	Def *actionregistry.Definition

	// ParamsMissing is the ordered list of still-unsatisfied required
	// params (OutcomeParamsMissing); the first entry drives answer_sheet
	// synthesis.
	ParamsMissing []string

	// IneligibleReasons is the Eligibility Evaluator's accumulated reason
	// list (OutcomeIneligible).
	IneligibleReasons []string

	// ErrorMessage is a human-readable cause for OutcomeFailed.
	ErrorMessage string
}
