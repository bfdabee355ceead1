// Package actionregistry is the read-only per-instance catalog of action
// definitions (spec.md §4.3): eligibility, params, retry policy, workflow
// bindings, and synonyms, loaded from declarative YAML documents and served
// to readers as an atomically-swapped snapshot.
package actionregistry

import "github.com/Nikunjmattoo/bot-framework-sub000/domain"

// SchemaDependency names a schema and the key-completion rule an action
// requires of it for eligibility.
type SchemaDependency struct {
	RequiredKeys []string `yaml:"required_keys"`
	AllMustBe    string   `yaml:"all_must_be"`
}

// Eligibility is an Action Definition's eligibility attribute.
type Eligibility struct {
	UserTiers          []string                    `yaml:"user_tiers"`
	RequiresAuth       bool                        `yaml:"requires_auth"`
	SchemaDependencies map[string]SchemaDependency `yaml:"schema_dependencies"`
}

// ParamValidation describes how a single param is validated/prompted for,
// feeding both eligibility/parameter-check and the Narrative Builder's
// answer-sheet synthesis.
type ParamValidation struct {
	Variant   domain.AnswerSheetVariant `yaml:"variant"`
	Prompt    string                    `yaml:"prompt"`
	Options   []domain.AnswerOption     `yaml:"options"`
	MinSelect int                       `yaml:"min_select"`
	MaxSelect int                       `yaml:"max_select"`
	Pattern   string                    `yaml:"pattern"`
	MinLength int                       `yaml:"min_length"`
	MaxLength int                       `yaml:"max_length"`
}

// Definition is the Action Definition entity (spec.md §3).
type Definition struct {
	InstanceID        string                     `yaml:"-"`
	ActionID          string                     `yaml:"action_id"`
	CanonicalName     string                     `yaml:"canonical_name"`
	Synonyms          []string                   `yaml:"synonyms"`
	ParamsRequired    []string                   `yaml:"params_required"`
	ParamsOptional    []string                   `yaml:"params_optional"`
	ParamValidation   map[string]ParamValidation `yaml:"param_validation"`
	Eligibility       Eligibility                `yaml:"eligibility"`
	Blockers          []string                   `yaml:"blockers"`
	Dependencies      []string                   `yaml:"dependencies"`
	Opposites         []string                   `yaml:"opposites"`
	RetryPolicy       domain.RetryPolicy         `yaml:"retry_policy"`
	TimeoutMS         int                        `yaml:"timeout_ms"`
	WorkflowID        string                     `yaml:"workflow_id"`
	SequenceID        string                     `yaml:"sequence_id"`
	TriggersWorkflow  bool                       `yaml:"triggers_workflow"`
	Priority          domain.Priority            `yaml:"priority"`
	RollbackActionID  string                     `yaml:"rollback_action_id"`
	RequiresUserAck   bool                       `yaml:"requires_user_ack"`
	IsActive          bool                       `yaml:"is_active"`

	// Endpoint describes the outbound Brand Action API call (spec.md §6).
	Endpoint ActionEndpoint `yaml:"endpoint"`
}

// ActionEndpoint is the outbound Brand Action API contract for an action.
type ActionEndpoint struct {
	Method           string `yaml:"method"`
	URL              string `yaml:"endpoint"`
	AuthSpec         string `yaml:"auth"`
	TimeoutMS        int    `yaml:"timeout_ms"`
	SuccessCriteria  string `yaml:"success_criteria"`
	FailureCriteria  string `yaml:"failure_criteria"`
}
