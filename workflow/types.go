// Package workflow implements the Workflow Engine (spec.md §4.8):
// dependency-ordered coordination of a sequence of actions enqueued through
// the Action Queue, with rollback on required-step failure and timeout
// cancellation.
package workflow

import (
	"context"
	"time"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
)

// StepDef is one step of a Workflow Definition (spec.md §4.8).
type StepDef struct {
	SequenceID                string
	ActionID                  string
	Required                  bool
	OnFailure                 domain.OnFailure
	DependsOn                 []string
	RollbackOnWorkflowFailure bool
	// RollbackActionID comes from the workflow step's own
	// rollback_action_id (see yaml_loader.go), so rollback does not need to
	// resolve the Action Registry mid-workflow.
	RollbackActionID string
}

// Definition is a Workflow Definition: an ordered list of steps an action's
// triggers_workflow attribute binds to via its workflow_id.
type Definition struct {
	WorkflowID string
	Steps      []StepDef
	Timeout    time.Duration
}

func (d *Definition) step(sequenceID string) (StepDef, bool) {
	for _, s := range d.Steps {
		if s.SequenceID == sequenceID {
			return s, true
		}
	}
	return StepDef{}, false
}

// Store persists Workflow Instances.
type Store interface {
	Insert(ctx context.Context, instance domain.WorkflowInstance) error
	Get(ctx context.Context, instanceID string) (domain.WorkflowInstance, error)
	Update(ctx context.Context, instanceID string, mutate func(domain.WorkflowInstance) (domain.WorkflowInstance, error)) (domain.WorkflowInstance, error)
	ListInProgress(ctx context.Context) ([]domain.WorkflowInstance, error)
}

// Enqueuer schedules a workflow step's action through the Action Queue,
// satisfied by (*queue.Queue).Enqueue via a thin adapter the caller
// provides (queue.Enqueue takes an *actionregistry.Definition, which that
// adapter resolves from actionID, keeping this interface narrow).
type Enqueuer interface {
	EnqueueStep(ctx context.Context, sessionID, brandID, instanceID, actionID string, params map[string]any) (queueID string, err error)
}

// StepStatusLookup reports a previously enqueued step's current Queue
// status. Nothing in this repository implements or uses it; the Engine
// learns step outcomes through Advance.
type StepStatusLookup interface {
	StepStatus(ctx context.Context, queueID string) (domain.QueueStatus, error)
}

// DefinitionLookup resolves a Workflow Definition by id. Satisfied by
// *Definitions (yaml_loader.go) and, structurally, by any caller-side
// adapter with the same method.
type DefinitionLookup interface {
	Lookup(workflowID string) (*Definition, bool)
}
