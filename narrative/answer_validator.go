package narrative

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
)

// AnswerValidator checks a user's reply to an answer_sheet before it is
// folded back into entities and re-run through the Parameter Check,
// grounded on the same compile-then-validate shape queue.SchemaParamValidator
// uses for params_collected.
type AnswerValidator struct{}

// NewAnswerValidator constructs an AnswerValidator.
func NewAnswerValidator() *AnswerValidator {
	return &AnswerValidator{}
}

// Validate checks value against sheet's variant-specific constraints
// (pattern/length for entity and text, enum membership for choice
// variants) and returns a non-nil error when value does not satisfy them.
func (AnswerValidator) Validate(sheet *domain.AnswerSheet, value any) error {
	if sheet == nil {
		return fmt.Errorf("no answer sheet to validate against")
	}

	schemaDoc := schemaForSheet(sheet)
	raw, err := json.Marshal(schemaDoc)
	if err != nil {
		return fmt.Errorf("marshal answer schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("unmarshal answer schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	resourceID := "answer_sheet:" + sheet.ParamName
	if err := c.AddResource(resourceID, doc); err != nil {
		return fmt.Errorf("add answer schema resource: %w", err)
	}
	schema, err := c.Compile(resourceID)
	if err != nil {
		return fmt.Errorf("compile answer schema: %w", err)
	}

	valueRaw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal answer value: %w", err)
	}
	var valueDoc any
	if err := json.Unmarshal(valueRaw, &valueDoc); err != nil {
		return fmt.Errorf("unmarshal answer value: %w", err)
	}
	return schema.Validate(valueDoc)
}

func schemaForSheet(sheet *domain.AnswerSheet) map[string]any {
	switch sheet.Variant {
	case domain.AnswerConfirmation:
		return map[string]any{"enum": aliasesOf(sheet, []string{"yes", "no"})}
	case domain.AnswerSingleChoice:
		return map[string]any{"enum": keysOf(sheet)}
	case domain.AnswerMultipleChoice:
		schema := map[string]any{
			"type":  "array",
			"items": map[string]any{"enum": keysOf(sheet)},
		}
		if sheet.MinSelect > 0 {
			schema["minItems"] = sheet.MinSelect
		}
		if sheet.MaxSelect > 0 {
			schema["maxItems"] = sheet.MaxSelect
		}
		return schema
	case domain.AnswerEntity:
		schema := map[string]any{"type": "string"}
		if sheet.Pattern != "" {
			schema["pattern"] = sheet.Pattern
		}
		return schema
	case domain.AnswerText:
		schema := map[string]any{"type": "string"}
		if sheet.MinLength > 0 {
			schema["minLength"] = sheet.MinLength
		}
		if sheet.MaxLength > 0 {
			schema["maxLength"] = sheet.MaxLength
		}
		return schema
	default:
		return map[string]any{}
	}
}

func keysOf(sheet *domain.AnswerSheet) []any {
	keys := make([]any, 0, len(sheet.Options))
	for _, opt := range sheet.Options {
		keys = append(keys, opt.Key)
		for _, alias := range opt.Aliases {
			keys = append(keys, alias)
		}
	}
	return keys
}

func aliasesOf(sheet *domain.AnswerSheet, fallback []string) []any {
	if len(sheet.Options) == 0 {
		out := make([]any, len(fallback))
		for i, f := range fallback {
			out[i] = f
		}
		return out
	}
	return keysOf(sheet)
}
