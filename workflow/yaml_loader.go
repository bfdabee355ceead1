package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
)

// yamlStepDef is the on-disk shape of one Workflow Definition step,
// mirroring actionregistry's declarative-YAML convention.
type yamlStepDef struct {
	SequenceID                string           `yaml:"sequence_id"`
	ActionID                  string           `yaml:"action_id"`
	Required                  bool             `yaml:"required"`
	OnFailure                 domain.OnFailure `yaml:"on_failure"`
	DependsOn                 []string         `yaml:"depends_on"`
	RollbackOnWorkflowFailure bool             `yaml:"rollback_on_workflow_failure"`
	RollbackActionID          string           `yaml:"rollback_action_id"`
}

// yamlDefinition is the on-disk shape of one Workflow Definition document.
type yamlDefinition struct {
	WorkflowID string        `yaml:"workflow_id"`
	TimeoutMS  int           `yaml:"timeout_ms"`
	Steps      []yamlStepDef `yaml:"steps"`
}

func (d yamlDefinition) toDefinition() *Definition {
	steps := make([]StepDef, len(d.Steps))
	for i, s := range d.Steps {
		steps[i] = StepDef{
			SequenceID:                s.SequenceID,
			ActionID:                  s.ActionID,
			Required:                  s.Required,
			OnFailure:                 s.OnFailure,
			DependsOn:                 s.DependsOn,
			RollbackOnWorkflowFailure: s.RollbackOnWorkflowFailure,
			RollbackActionID:          s.RollbackActionID,
		}
	}
	return &Definition{
		WorkflowID: d.WorkflowID,
		Steps:      steps,
		Timeout:    time.Duration(d.TimeoutMS) * time.Millisecond,
	}
}

// Definitions is a static, file-backed lookup of Workflow Definitions,
// satisfying pipeline.WorkflowDefinitions. Unlike actionregistry/
// schemaregistry, workflow definitions are not tenant-scoped and are loaded
// once at startup rather than read-through cached: an action's workflow_id
// is a stable reference to a globally declared coordination plan, not
// per-brand configuration.
type Definitions struct {
	byID map[string]*Definition
}

// NewDefinitions wraps a pre-built set of Workflow Definitions, keyed by
// workflow_id. Used directly in tests; LoadDefinitionsDir is the
// file-backed constructor for production use.
func NewDefinitions(defs []*Definition) *Definitions {
	byID := make(map[string]*Definition, len(defs))
	for _, d := range defs {
		byID[d.WorkflowID] = d
	}
	return &Definitions{byID: byID}
}

// LoadDefinitionsDir reads every *.yaml file in dir as one Workflow
// Definition document and returns the resulting lookup.
func LoadDefinitionsDir(dir string) (*Definitions, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("workflow: read dir %s: %w", dir, err)
	}
	var defs []*Definition
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("workflow: read %s: %w", path, err)
		}
		var doc yamlDefinition
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("workflow: parse %s: %w", path, err)
		}
		defs = append(defs, doc.toDefinition())
	}
	return NewDefinitions(defs), nil
}

// Lookup implements pipeline.WorkflowDefinitions.
func (d *Definitions) Lookup(workflowID string) (*Definition, bool) {
	def, ok := d.byID[workflowID]
	return def, ok
}
