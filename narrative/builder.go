package narrative

import (
	"fmt"
	"strings"

	"github.com/Nikunjmattoo/bot-framework-sub000/actionregistry"
	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
)

// schemaDependencyFailedPrefix is the Eligibility Evaluator's reason prefix
// for a schema key that is missing or stale (eligibility.checkSchemaDependency).
// Only this class of blocker is resolvable by asking the user for input;
// every other reason (tier, auth, blockers, dependencies, opposites)
// reflects state the user cannot fix by answering this turn.
const schemaDependencyFailedPrefix = "schema_dependency_failed:"

// Builder is the Narrative Builder.
type Builder struct{}

// New constructs a Builder. It carries no dependencies: synthesis is pure
// decision logic over an Input and the resolved action definition.
func New() *Builder {
	return &Builder{}
}

// Build synthesizes the next-turn directive for one intent's settled state.
func (b *Builder) Build(in Input) domain.Narrative {
	switch in.Outcome {
	case OutcomeParamsMissing:
		return b.buildParamsMissing(in)
	case OutcomeIneligible:
		return b.buildIneligible(in)
	case OutcomeExecuting:
		return domain.Narrative{
			IntentID:        in.IntentID,
			InstructionType: domain.InstructionReportProgress,
			Message:         "Your request is being processed.",
		}
	case OutcomeCompleted:
		return domain.Narrative{
			IntentID:        in.IntentID,
			InstructionType: domain.InstructionReportCompletion,
			Message:         "Your request has been completed.",
		}
	case OutcomeActionNotFound:
		return domain.Narrative{
			IntentID:        in.IntentID,
			InstructionType: domain.InstructionReportError,
			Message:         "I couldn't find an action matching that request.",
		}
	case OutcomeFailed:
		msg := in.ErrorMessage
		if msg == "" {
			msg = "Your request could not be completed."
		}
		return domain.Narrative{
			IntentID:        in.IntentID,
			InstructionType: domain.InstructionReportError,
			Message:         msg,
		}
	default:
		return domain.Narrative{
			IntentID:        in.IntentID,
			InstructionType: domain.InstructionReportError,
			Message:         fmt.Sprintf("unhandled outcome %q", in.Outcome),
		}
	}
}

func (b *Builder) buildParamsMissing(in Input) domain.Narrative {
	narrative := domain.Narrative{
		IntentID:          in.IntentID,
		InstructionType:   domain.InstructionAskForParams,
		ExpectingResponse: true,
		Message:           "I need a bit more information to continue.",
	}
	if len(in.ParamsMissing) == 0 || in.Def == nil {
		return narrative
	}
	paramName := in.ParamsMissing[0]
	if sheet := answerSheetForParam(in.Def, paramName); sheet != nil {
		narrative.AnswerSheet = sheet
		if sheet.Prompt != "" {
			narrative.Message = sheet.Prompt
		}
	}
	return narrative
}

func (b *Builder) buildIneligible(in Input) domain.Narrative {
	narrative := domain.Narrative{
		IntentID:        in.IntentID,
		InstructionType: domain.InstructionHandleBlocker,
		Reasons:         in.IneligibleReasons,
		Message:         "This action isn't available right now.",
	}

	schemaKey, ok := firstSchemaDependencyKey(in.IneligibleReasons)
	if !ok || in.Def == nil {
		return narrative
	}
	sheet := answerSheetForSchemaKey(in.Def, schemaKey)
	if sheet == nil {
		return narrative
	}
	narrative.ExpectingResponse = true
	narrative.AnswerSheet = sheet
	if sheet.Prompt != "" {
		narrative.Message = sheet.Prompt
	}
	return narrative
}

// firstSchemaDependencyKey returns the "<schema>.<key>" suffix of the first
// schema_dependency_failed reason, in the order the Eligibility Evaluator
// reported it.
func firstSchemaDependencyKey(reasons []string) (string, bool) {
	for _, r := range reasons {
		if strings.HasPrefix(r, schemaDependencyFailedPrefix) {
			return strings.TrimPrefix(r, schemaDependencyFailedPrefix), true
		}
	}
	return "", false
}

// answerSheetForParam synthesizes an answer sheet from def's
// param_validation entry for paramName, falling back to a plain text
// prompt if the action carries no explicit validation for it.
func answerSheetForParam(def *actionregistry.Definition, paramName string) *domain.AnswerSheet {
	v, ok := def.ParamValidation[paramName]
	if !ok {
		return &domain.AnswerSheet{
			Variant:   domain.AnswerText,
			ParamName: paramName,
			Prompt:    fmt.Sprintf("Could you provide %s?", paramName),
		}
	}
	return fromParamValidation(paramName, v)
}

// answerSheetForSchemaKey mirrors answerSheetForParam but keys the lookup
// off a schema dependency's "<schema>.<key>" path: first by the full path,
// then by its trailing segment (the field name as it would appear in
// param_validation), since schema dependencies and action params are
// declared in separate registries that may not share a naming convention.
func answerSheetForSchemaKey(def *actionregistry.Definition, schemaKey string) *domain.AnswerSheet {
	if v, ok := def.ParamValidation[schemaKey]; ok {
		return fromParamValidation(schemaKey, v)
	}
	field := schemaKey
	if idx := strings.LastIndex(schemaKey, "."); idx >= 0 {
		field = schemaKey[idx+1:]
	}
	if v, ok := def.ParamValidation[field]; ok {
		return fromParamValidation(field, v)
	}
	return &domain.AnswerSheet{
		Variant:   domain.AnswerText,
		ParamName: field,
		Prompt:    fmt.Sprintf("We're missing %s to continue.", field),
	}
}

func fromParamValidation(paramName string, v actionregistry.ParamValidation) *domain.AnswerSheet {
	return &domain.AnswerSheet{
		Variant:   v.Variant,
		ParamName: paramName,
		Prompt:    v.Prompt,
		Options:   v.Options,
		MinSelect: v.MinSelect,
		MaxSelect: v.MaxSelect,
		Pattern:   v.Pattern,
		MinLength: v.MinLength,
		MaxLength: v.MaxLength,
	}
}
