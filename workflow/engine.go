package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
	"github.com/Nikunjmattoo/bot-framework-sub000/internal/idgen"
	"github.com/Nikunjmattoo/bot-framework-sub000/internal/telemetry"
)

// Engine is the Workflow Engine component, grounded on the teacher's
// engine.Engine shape (runtime/agent/engine/engine.go) generalized from
// "agent workflow" to "action workflow": steps are queued actions instead
// of planner turns, and step readiness is driven by the Action Queue's own
// completion state rather than a deterministic-replay workflow function.
type Engine struct {
	store    Store
	enqueuer Enqueuer
	defs     DefinitionLookup
	log      telemetry.Logger
	metrics  telemetry.Metrics
	now      func() time.Time
}

// Options configures an Engine.
type Options struct {
	Store    Store
	Enqueuer Enqueuer
	// Defs resolves a Workflow Definition by id. Required only for
	// CheckTimeouts, which sweeps every in-progress instance regardless of
	// workflow_id and so must resolve each instance's own Definition rather
	// than have one handed in by the caller.
	Defs    DefinitionLookup
	Log     telemetry.Logger
	Metrics telemetry.Metrics
}

// New constructs an Engine.
func New(opts Options) *Engine {
	log := opts.Log
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Engine{store: opts.Store, enqueuer: opts.Enqueuer, defs: opts.Defs, log: log, metrics: metrics, now: time.Now}
}

// Instantiate creates a Workflow Instance from def and enqueues every step
// with no unmet dependency.
func (e *Engine) Instantiate(ctx context.Context, def *Definition, sessionID, brandID, instanceID string, paramsByStep map[string]map[string]any) (domain.WorkflowInstance, error) {
	now := e.now()
	workflowInstanceID := idgen.New("workflow")
	steps := make([]domain.WorkflowStepState, 0, len(def.Steps))
	for _, s := range def.Steps {
		steps = append(steps, domain.WorkflowStepState{
			SequenceID: s.SequenceID,
			ActionID:   s.ActionID,
			Required:   s.Required,
			OnFailure:  s.OnFailure,
			DependsOn:  s.DependsOn,
			Status:     domain.StepPending,
		})
	}
	timeout := def.Timeout
	if timeout == 0 {
		timeout = time.Hour
	}
	instance := domain.WorkflowInstance{
		WorkflowInstanceID: workflowInstanceID,
		WorkflowID:         def.WorkflowID,
		SessionID:          sessionID,
		BrandID:            brandID,
		InstanceID:         instanceID,
		Status:             domain.WorkflowInProgress,
		StepsTotal:         len(steps),
		StepsExecuted:      steps,
		StartedAt:          now,
		TimeoutAt:          now.Add(timeout),
	}

	for i := range instance.StepsExecuted {
		step := &instance.StepsExecuted[i]
		if len(step.DependsOn) != 0 {
			continue
		}
		queueID, err := e.enqueuer.EnqueueStep(ctx, sessionID, brandID, workflowInstanceID, step.ActionID, paramsByStep[step.SequenceID])
		if err != nil {
			return domain.WorkflowInstance{}, fmt.Errorf("enqueue step %s: %w", step.SequenceID, err)
		}
		step.QueueID = queueID
		step.Status = domain.StepExecuting
	}

	if err := e.store.Insert(ctx, instance); err != nil {
		return domain.WorkflowInstance{}, err
	}
	e.metrics.IncCounter("workflow.instantiated", 1, "workflow_id", def.WorkflowID)
	return instance, nil
}

// Advance reports that sequenceID's underlying queue entry reached a
// terminal status. It enqueues any steps newly unblocked by this
// completion (I5), triggers rollback if a required step failed, and
// updates the instance's overall status.
func (e *Engine) Advance(ctx context.Context, def *Definition, brandID string, instanceID, sequenceID string, terminal domain.QueueStatus, paramsByStep map[string]map[string]any) (domain.WorkflowInstance, error) {
	return e.store.Update(ctx, instanceID, func(instance domain.WorkflowInstance) (domain.WorkflowInstance, error) {
		idx := stepIndex(instance.StepsExecuted, sequenceID)
		if idx < 0 {
			return instance, fmt.Errorf("unknown workflow step %s", sequenceID)
		}
		step := &instance.StepsExecuted[idx]
		if terminal == domain.QueueCompleted {
			step.Status = domain.StepCompleted
		} else {
			step.Status = domain.StepFailed
		}

		if step.Status == domain.StepFailed && step.Required {
			e.triggerRollback(ctx, def, brandID, &instance)
			instance.Status = domain.WorkflowFailed
			return instance, nil
		}

		for i := range instance.StepsExecuted {
			candidate := &instance.StepsExecuted[i]
			if candidate.Status != domain.StepPending {
				continue
			}
			if !allDependenciesSatisfied(instance.StepsExecuted, candidate.DependsOn) {
				continue
			}
			queueID, err := e.enqueuer.EnqueueStep(ctx, instance.SessionID, brandID, instance.WorkflowInstanceID, candidate.ActionID, paramsByStep[candidate.SequenceID])
			if err != nil {
				return instance, fmt.Errorf("enqueue step %s: %w", candidate.SequenceID, err)
			}
			candidate.QueueID = queueID
			candidate.Status = domain.StepExecuting
		}

		if allStepsSettled(instance.StepsExecuted) {
			instance.Status = terminalWorkflowStatus(instance.StepsExecuted)
		}
		return instance, nil
	})
}

// CheckTimeouts marks every in-progress instance past its timeout_at as
// failed with timed_out=true, rolling back completed steps that declare
// rollback_on_workflow_failure. Unlike Instantiate/Advance, it is meant to
// be driven by a process-wide periodic sweep rather than a single turn, so
// it resolves each instance's own Definition and tenant scope instead of
// requiring the caller to already know which workflow/brand it belongs to.
func (e *Engine) CheckTimeouts(ctx context.Context) error {
	if e.defs == nil {
		return errors.New("workflow: CheckTimeouts requires Options.Defs")
	}
	instances, err := e.store.ListInProgress(ctx)
	if err != nil {
		return err
	}
	now := e.now()
	for _, inst := range instances {
		if now.Before(inst.TimeoutAt) {
			continue
		}
		def, ok := e.defs.Lookup(inst.WorkflowID)
		if !ok {
			e.log.Error(ctx, "unknown workflow_id during timeout sweep", "workflow_id", inst.WorkflowID)
			continue
		}
		if _, err := e.store.Update(ctx, inst.WorkflowInstanceID, func(instance domain.WorkflowInstance) (domain.WorkflowInstance, error) {
			if instance.Status != domain.WorkflowInProgress {
				return instance, nil
			}
			e.triggerRollback(ctx, def, instance.BrandID, &instance)
			instance.Status = domain.WorkflowFailed
			instance.TimedOut = true
			return instance, nil
		}); err != nil {
			return err
		}
		e.metrics.IncCounter("workflow.timed_out", 1, "workflow_id", inst.WorkflowID)
	}
	return nil
}

// triggerRollback enqueues the rollback action for every completed step
// that opted into rollback_on_workflow_failure, walking completed steps in
// reverse declaration order as a proxy for reverse completion order (steps
// generally complete in roughly dependency order).
func (e *Engine) triggerRollback(ctx context.Context, def *Definition, brandID string, instance *domain.WorkflowInstance) {
	for i := len(instance.StepsExecuted) - 1; i >= 0; i-- {
		step := &instance.StepsExecuted[i]
		if step.Status != domain.StepCompleted {
			continue
		}
		defStep, ok := def.step(step.SequenceID)
		if !ok || !defStep.RollbackOnWorkflowFailure || defStep.RollbackActionID == "" {
			continue
		}
		if _, err := e.enqueuer.EnqueueStep(ctx, instance.SessionID, brandID, instance.WorkflowInstanceID, defStep.RollbackActionID, nil); err != nil {
			e.log.Error(ctx, "rollback enqueue failed", "sequence_id", step.SequenceID, "err", err)
			continue
		}
		step.Status = domain.StepRolledBack
	}
	instance.RollbackPerformed = true
}

func stepIndex(steps []domain.WorkflowStepState, sequenceID string) int {
	for i, s := range steps {
		if s.SequenceID == sequenceID {
			return i
		}
	}
	return -1
}

func allDependenciesSatisfied(steps []domain.WorkflowStepState, dependsOn []string) bool {
	for _, dep := range dependsOn {
		idx := stepIndex(steps, dep)
		if idx < 0 || steps[idx].Status != domain.StepCompleted {
			return false
		}
	}
	return true
}

func allStepsSettled(steps []domain.WorkflowStepState) bool {
	for _, s := range steps {
		if s.Status == domain.StepPending || s.Status == domain.StepExecuting {
			return false
		}
	}
	return true
}

func terminalWorkflowStatus(steps []domain.WorkflowStepState) domain.WorkflowStatus {
	for _, s := range steps {
		if s.Required && s.Status == domain.StepFailed {
			return domain.WorkflowFailed
		}
	}
	return domain.WorkflowCompleted
}
