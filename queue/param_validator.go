package queue

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/Nikunjmattoo/bot-framework-sub000/actionregistry"
)

// ParamValidator checks a queue entry's params_collected before it is
// accepted into the queue.
type ParamValidator interface {
	Validate(def *actionregistry.Definition, params map[string]any) error
}

// SchemaParamValidator derives a JSON Schema document from an action
// definition's param_validation attribute and validates params_collected
// against it, grounded on the teacher's registry.validatePayloadJSONAgainstSchema
// compile-then-validate shape.
type SchemaParamValidator struct{}

// NewSchemaParamValidator constructs a SchemaParamValidator.
func NewSchemaParamValidator() *SchemaParamValidator {
	return &SchemaParamValidator{}
}

// Validate compiles def's param shape into a JSON Schema and validates
// params against it.
func (SchemaParamValidator) Validate(def *actionregistry.Definition, params map[string]any) error {
	schemaDoc := buildParamSchema(def)
	if schemaDoc == nil {
		return nil
	}

	raw, err := json.Marshal(schemaDoc)
	if err != nil {
		return fmt.Errorf("marshal param schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("unmarshal param schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	resourceID := "action:" + def.ActionID
	if err := c.AddResource(resourceID, doc); err != nil {
		return fmt.Errorf("add param schema resource: %w", err)
	}
	schema, err := c.Compile(resourceID)
	if err != nil {
		return fmt.Errorf("compile param schema: %w", err)
	}

	paramsRaw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	var paramsDoc any
	if err := json.Unmarshal(paramsRaw, &paramsDoc); err != nil {
		return fmt.Errorf("unmarshal params: %w", err)
	}
	return schema.Validate(paramsDoc)
}

func buildParamSchema(def *actionregistry.Definition) map[string]any {
	if len(def.ParamsRequired) == 0 && len(def.ParamValidation) == 0 {
		return nil
	}
	properties := make(map[string]any)
	for name, v := range def.ParamValidation {
		prop := map[string]any{}
		if v.Pattern != "" {
			prop["pattern"] = v.Pattern
		}
		if v.MinLength > 0 {
			prop["minLength"] = v.MinLength
		}
		if v.MaxLength > 0 {
			prop["maxLength"] = v.MaxLength
		}
		if len(v.Options) > 0 {
			enum := make([]any, 0, len(v.Options))
			for _, opt := range v.Options {
				enum = append(enum, opt.Key)
			}
			prop["enum"] = enum
		}
		properties[name] = prop
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   def.ParamsRequired,
	}
}
