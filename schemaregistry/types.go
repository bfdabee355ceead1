// Package schemaregistry is the per-brand catalog of Schema Definitions
// (spec.md §3, §4.3 analogue at brand scope): upstream API endpoints, auth,
// TTLs, field paths, and key completion logic, loaded declaratively and
// served via an atomically-swapped snapshot exactly like actionregistry.
package schemaregistry

import "github.com/Nikunjmattoo/bot-framework-sub000/domain"

// KeyDefinition is one entry in a Schema Definition's ordered key list.
type KeyDefinition struct {
	KeyName         string                     `yaml:"key_name"`
	Required        bool                       `yaml:"required"`
	APIFieldPath    string                     `yaml:"api_field_path"`
	CompletionLogic domain.CompletionLogicKind `yaml:"completion_logic"`

	// Params configure the completion logic:
	RequiredSubkeys []string `yaml:"required_subkeys,omitempty"` // nested_object
	AllowedValues   []string `yaml:"allowed_values,omitempty"`   // enum_value
	ValidationRegex string   `yaml:"validation_regex,omitempty"` // non_empty (optional)
}

// Definition is the Schema Definition entity (spec.md §3).
type Definition struct {
	BrandID          string          `yaml:"-"`
	SchemaID         string          `yaml:"schema_id"`
	APIEndpoint      string          `yaml:"api_endpoint"`
	APIMethod        string          `yaml:"api_method"`
	AuthSpec         string          `yaml:"auth_spec"`
	TimeoutMS        int             `yaml:"timeout_ms"`
	CacheTTLMS       int             `yaml:"cache_ttl_ms"`
	StaleToleranceMS int             `yaml:"stale_tolerance_ms"`
	Keys             []KeyDefinition `yaml:"keys"`
}

// RequiredKeys returns the subset of Keys marked required, preserving order.
func (d *Definition) RequiredKeys() []KeyDefinition {
	var out []KeyDefinition
	for _, k := range d.Keys {
		if k.Required {
			out = append(out, k)
		}
	}
	return out
}
