package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/Nikunjmattoo/bot-framework-sub000/actionregistry"
	"github.com/Nikunjmattoo/bot-framework-sub000/activetask"
	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
	"github.com/Nikunjmattoo/bot-framework-sub000/eligibility"
	"github.com/Nikunjmattoo/bot-framework-sub000/narrative"
	"github.com/Nikunjmattoo/bot-framework-sub000/resolver"
	"github.com/Nikunjmattoo/bot-framework-sub000/schemaregistry"
	"github.com/Nikunjmattoo/bot-framework-sub000/wires"
	"github.com/Nikunjmattoo/bot-framework-sub000/workflow"
)

func errUnknownAction(actionID string) error {
	return fmt.Errorf("unknown action %s", actionID)
}

// settled is the bookkeeping the turn keeps per intent while walking steps
// A-G, feeding both step H's queue-result routing and the batch narrative
// synthesis once every intent has been processed or has exited early.
type settled struct {
	intentID string
	def      *actionregistry.Definition
	outcome  narrative.Outcome
	missing  []string
	reasons  []string
	errMsg   string

	queueID string // non-empty once this intent's action has been enqueued (step F)
}

// ProcessTurn runs the Turn Pipeline for every action intent in req, under
// req.SessionID's lock (spec.md §5: at most one turn runs per session at a
// time). Per-intent failures are isolated: an error in one intent's steps
// marks that intent failed and the batch continues with the rest.
func (p *Pipeline) ProcessTurn(ctx context.Context, req Request) (Response, error) {
	lockCtx := ctx
	if p.lockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, p.lockTimeout)
		defer cancel()
	}
	unlock, err := p.locker.Lock(lockCtx, req.SessionID)
	if err != nil {
		return Response{}, fmt.Errorf("acquire session lock: %w", err)
	}
	defer unlock()

	actionSnap, err := p.actions.Snapshot(ctx, req.BrandID, req.InstanceID)
	if err != nil {
		return Response{}, fmt.Errorf("load action registry: %w", err)
	}
	schemaSnap, err := p.schemas.Snapshot(ctx, req.BrandID)
	if err != nil {
		return Response{}, fmt.Errorf("load schema registry: %w", err)
	}

	intents := actionIntentsInOrder(req.Intents)
	results := make([]*settled, 0, len(intents))
	for _, intent := range intents {
		s := p.processIntent(ctx, req, intent, actionSnap, schemaSnap)
		results = append(results, s)
	}

	// Step H: advance the Action Queue for this session exactly once per
	// turn. The caller holds the session lock for its whole duration, so
	// this is the only processing pass that can run for this session right
	// now (spec.md §5). The entry processed may belong to an intent queued
	// in an earlier turn, not one of this turn's intents.
	processed, err := p.actionQueue.ProcessSession(ctx, req.SessionID, queueDefResolver(actionSnap))
	if err != nil {
		p.log.Error(ctx, "queue processing pass failed", "session_id", req.SessionID, "error", err)
	} else if processed != nil {
		p.routeQueueResult(ctx, req, *processed, results)
		p.advanceWorkflow(ctx, req, *processed, actionSnap)
	}

	narratives := make([]domain.Narrative, 0, len(results))
	var lastAnswerSheet *domain.AnswerSheet
	expectingResponse := false
	for _, s := range results {
		n := p.narrator.Build(narrative.Input{
			IntentID:          s.intentID,
			Outcome:           s.outcome,
			Def:               s.def,
			ParamsMissing:     s.missing,
			IneligibleReasons: s.reasons,
			ErrorMessage:      s.errMsg,
		})
		narratives = append(narratives, n)
		if n.ExpectingResponse {
			expectingResponse = true
			lastAnswerSheet = n.AnswerSheet
		}
	}

	var lastActiveTask *domain.ActiveTask
	if task, err := p.activeTasks.Get(ctx, req.SessionID); err == nil {
		lastActiveTask = &task
	} else if err != activetask.ErrNoActiveTask {
		p.log.Error(ctx, "active task lookup failed", "session_id", req.SessionID, "error", err)
	}

	streamHead := p.streamingBus.Poll(ctx, req.SessionID)

	var popularActions []string
	if p.popularActions != nil {
		popularActions = p.popularActions(req.BrandID)
	}

	w, err := p.wireUpdater.Materialize(ctx, wires.Input{
		SessionID:           req.SessionID,
		ExpectingResponse:   expectingResponse,
		AnswerSheet:         lastAnswerSheet,
		ActiveTask:          lastActiveTask,
		StreamingUpdates:    streamHead,
		PopularActions:      popularActions,
		ConversationContext: req.ConversationContext,
	})
	if err != nil {
		return Response{}, fmt.Errorf("materialize session wires: %w", err)
	}

	return Response{Narratives: narratives, Wires: w, StreamingHead: streamHead}, nil
}

func actionIntentsInOrder(intents []domain.Intent) []domain.Intent {
	filtered := make([]domain.Intent, 0, len(intents))
	for _, in := range intents {
		if in.IntentType == domain.IntentAction {
			filtered = append(filtered, in)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Sequence < filtered[j].Sequence })
	return filtered
}

// processIntent runs steps A-G for a single intent: resolve an action,
// create its ledger entry, re-fetch schema state and check eligibility,
// collect parameters against the session's Active Task, enqueue once
// nothing is missing, and bind a workflow instance when the action
// triggers one. It never aborts the turn: any infrastructure error is
// folded into the intent's own "failed" outcome and logged.
func (p *Pipeline) processIntent(ctx context.Context, req Request, intent domain.Intent, actionSnap *actionregistry.Snapshot, schemaSnap *schemaregistry.Snapshot) *settled {
	// A: resolve.
	p.streamingBus.Emit(ctx, req.SessionID, domain.UpdateActionLookup, map[string]any{
		"candidates": intent.CanonicalIntentCandidates,
	})
	def, matchType := resolver.Resolve(actionSnap, intent.CanonicalIntentCandidates)

	canonicalName := ""
	if def != nil {
		canonicalName = def.CanonicalName
	} else if len(intent.CanonicalIntentCandidates) > 0 {
		canonicalName = intent.CanonicalIntentCandidates[0]
	}

	entry, err := p.intents.Create(ctx, req.BrandID, req.InstanceID, req.SessionID, req.TurnNumber, intent, canonicalName, matchType)
	if err != nil {
		p.log.Error(ctx, "ledger create failed", "session_id", req.SessionID, "error", err)
		return &settled{outcome: narrative.OutcomeFailed, errMsg: err.Error()}
	}
	p.streamingBus.Emit(ctx, req.SessionID, domain.UpdateIntentLogged, map[string]any{
		"intent_id": entry.IntentID,
	})

	if def == nil {
		if _, err := p.intents.Transition(ctx, entry.IntentID, domain.LedgerActionNotFound, func(e *domain.IntentLedgerEntry) {
			e.Error = "no action matched the recognized candidates"
		}); err != nil {
			p.log.Error(ctx, "ledger transition failed", "intent_id", entry.IntentID, "error", err)
		}
		p.streamingBus.Emit(ctx, req.SessionID, domain.UpdateActionNotFound, map[string]any{
			"intent_id": entry.IntentID,
		})
		return &settled{intentID: entry.IntentID, outcome: narrative.OutcomeActionNotFound}
	}

	if _, err := p.intents.Transition(ctx, entry.IntentID, domain.LedgerProcessing, nil); err != nil {
		p.log.Error(ctx, "ledger transition failed", "intent_id", entry.IntentID, "error", err)
		return &settled{intentID: entry.IntentID, def: def, outcome: narrative.OutcomeFailed, errMsg: err.Error()}
	}

	// C: refresh every schema this action's eligibility depends on.
	p.streamingBus.Emit(ctx, req.SessionID, domain.UpdateFetchingSchemas, map[string]any{
		"intent_id": entry.IntentID,
		"action_id": def.ActionID,
	})
	states := make(schemaStateAdapter, len(def.Eligibility.SchemaDependencies))
	for schemaID := range def.Eligibility.SchemaDependencies {
		schemaDef, ok := schemaSnap.ByID(schemaID)
		if !ok {
			continue // absent from the adapter reads as schema_dependency_failed below
		}
		state, err := p.schemaCache.Get(ctx, req.SessionID, schemaDef, false)
		if err != nil {
			p.log.Error(ctx, "schema fetch failed", "schema_id", schemaID, "error", err)
			continue
		}
		states[schemaID] = state
	}
	p.streamingBus.Emit(ctx, req.SessionID, domain.UpdateSchemasFetched, map[string]any{
		"intent_id": entry.IntentID,
	})

	// D: evaluate eligibility. A fresh Evaluator is built per intent since
	// its SchemaStates dependency is the turn-scoped adapter above.
	p.streamingBus.Emit(ctx, req.SessionID, domain.UpdateCheckingEligibility, map[string]any{
		"intent_id": entry.IntentID,
		"action_id": def.ActionID,
	})
	evaluator := eligibility.New(states, p.evalExecLog, p.evalQueue, p.evalPredicates, p.log, p.metrics)
	result := evaluator.Evaluate(ctx, def, req.SessionID, req.User)
	p.streamingBus.Emit(ctx, req.SessionID, domain.UpdateEligibilityChecked, map[string]any{
		"intent_id": entry.IntentID,
		"eligible":  result.Eligible,
	})
	if !result.Eligible {
		if _, err := p.intents.Transition(ctx, entry.IntentID, domain.LedgerBlocked, func(e *domain.IntentLedgerEntry) {
			e.BlockedReason = result.Reasons
		}); err != nil {
			p.log.Error(ctx, "ledger transition failed", "intent_id", entry.IntentID, "error", err)
		}
		p.streamingBus.Emit(ctx, req.SessionID, domain.UpdateActionBlocked, map[string]any{
			"intent_id": entry.IntentID,
			"reasons":   result.Reasons,
		})
		return &settled{intentID: entry.IntentID, def: def, outcome: narrative.OutcomeIneligible, reasons: result.Reasons}
	}

	// E: collect parameters against the session's Active Task (I1: at most
	// one active task per session; a previously cleared/completed task
	// leaves room for this intent's).
	p.streamingBus.Emit(ctx, req.SessionID, domain.UpdateCollectingParams, map[string]any{
		"intent_id": entry.IntentID,
		"action_id": def.ActionID,
	})
	task, err := p.activeTasks.Get(ctx, req.SessionID)
	if err == activetask.ErrNoActiveTask {
		task, err = p.activeTasks.Start(ctx, req.SessionID, def.CanonicalName, def.ParamsRequired)
	}
	if err != nil {
		p.log.Error(ctx, "active task start failed", "session_id", req.SessionID, "error", err)
		return &settled{intentID: entry.IntentID, def: def, outcome: narrative.OutcomeFailed, errMsg: err.Error()}
	}
	task, err = p.activeTasks.CollectParams(ctx, req.SessionID, intent.Entities)
	if err != nil {
		p.log.Error(ctx, "collect params failed", "session_id", req.SessionID, "error", err)
		return &settled{intentID: entry.IntentID, def: def, outcome: narrative.OutcomeFailed, errMsg: err.Error()}
	}

	if len(task.ParamsMissing) > 0 {
		return &settled{intentID: entry.IntentID, def: def, outcome: narrative.OutcomeParamsMissing, missing: task.ParamsMissing}
	}

	// F: enqueue for execution.
	queueEntry, err := p.actionQueue.Enqueue(ctx, def, req.SessionID, req.BrandID, req.InstanceID, task.ParamsCollected, nil)
	if err != nil {
		p.log.Error(ctx, "enqueue failed", "action_id", def.ActionID, "error", err)
		return &settled{intentID: entry.IntentID, def: def, outcome: narrative.OutcomeFailed, errMsg: err.Error()}
	}
	if _, err := p.intents.Transition(ctx, entry.IntentID, domain.LedgerQueued, nil); err != nil {
		p.log.Error(ctx, "ledger transition failed", "intent_id", entry.IntentID, "error", err)
	}
	p.streamingBus.Emit(ctx, req.SessionID, domain.UpdateActionQueued, map[string]any{
		"intent_id": entry.IntentID,
		"action_id": def.ActionID,
		"queue_id":  queueEntry.QueueID,
	})
	if _, err := p.intents.RecordTriggeredAction(ctx, entry.IntentID, def.ActionID); err != nil {
		p.log.Error(ctx, "record triggered action failed", "intent_id", entry.IntentID, "error", err)
	}
	if err := p.activeTasks.Clear(ctx, req.SessionID); err != nil {
		p.log.Error(ctx, "active task clear failed", "session_id", req.SessionID, "error", err)
	}

	p.mu.Lock()
	p.queueOwner[queueEntry.QueueID] = entry.IntentID
	p.mu.Unlock()

	// G: bind a workflow if this action triggers one.
	if def.TriggersWorkflow && def.WorkflowID != "" {
		p.bindWorkflow(ctx, req, def, actionSnap)
	}

	return &settled{intentID: entry.IntentID, def: def, outcome: narrative.OutcomeExecuting, queueID: queueEntry.QueueID}
}

func (p *Pipeline) bindWorkflow(ctx context.Context, req Request, def *actionregistry.Definition, actionSnap *actionregistry.Snapshot) {
	if p.workflowDefs == nil || p.workflowStore == nil {
		return
	}
	wfDef, ok := p.workflowDefs.Lookup(def.WorkflowID)
	if !ok {
		p.log.Error(ctx, "unknown workflow_id", "workflow_id", def.WorkflowID, "action_id", def.ActionID)
		return
	}
	engine := workflow.New(workflow.Options{
		Store:    p.workflowStore,
		Enqueuer: &workflowEnqueuer{queue: p.actionQueue, snap: actionSnap},
		Defs:     p.workflowDefs,
		Log:      p.log,
		Metrics:  p.metrics,
	})
	if _, err := engine.Instantiate(ctx, wfDef, req.SessionID, req.BrandID, req.InstanceID, nil); err != nil {
		p.log.Error(ctx, "workflow instantiate failed", "workflow_id", def.WorkflowID, "error", err)
	}
}

// routeQueueResult applies step H's single processed queue entry to
// whichever settled intent owns it, if that intent belongs to this turn's
// batch (an entry from an earlier turn simply has no match here and is
// left to the next turn's narrative, which reads current ledger state).
func (p *Pipeline) routeQueueResult(ctx context.Context, req Request, processed domain.QueueEntry, results []*settled) {
	p.mu.Lock()
	intentID, owned := p.queueOwner[processed.QueueID]
	if owned && processed.Status.Terminal() {
		delete(p.queueOwner, processed.QueueID)
	}
	p.mu.Unlock()
	if !owned {
		return
	}

	var target *settled
	for _, s := range results {
		if s.intentID == intentID {
			target = s
			break
		}
	}

	newStatus, outcome := ledgerAndOutcomeFor(processed)
	if newStatus == domain.LedgerCompleted {
		// A completed execution may have skipped the "executing" status
		// entirely (e.g. the idempotency-key shortcut in
		// queue.ProcessSession), but the ledger only allows completed from
		// executing. Advance through it first; an error here means the
		// entry is already past it, which is fine.
		_, _ = p.intents.Transition(ctx, intentID, domain.LedgerExecuting, nil)
	}
	if newStatus != "" {
		if _, err := p.intents.Transition(ctx, intentID, newStatus, func(e *domain.IntentLedgerEntry) {
			if newStatus == domain.LedgerFailed && len(processed.RetryErrors) > 0 {
				e.Error = processed.RetryErrors[len(processed.RetryErrors)-1]
			}
			if newStatus == domain.LedgerBlocked {
				e.BlockedReason = processed.RetryErrors
			}
		}); err != nil {
			p.log.Error(ctx, "ledger transition failed", "intent_id", intentID, "error", err)
		}
	}
	if target != nil {
		target.outcome = outcome
		target.reasons = processed.RetryErrors
		if outcome == narrative.OutcomeFailed && len(processed.RetryErrors) > 0 {
			target.errMsg = processed.RetryErrors[len(processed.RetryErrors)-1]
		}
	}
}

// ledgerAndOutcomeFor maps a processed Queue Entry's status to the Intent
// Ledger transition and narrative Outcome it implies. A retrying entry
// reports no ledger transition: it is still mid-execution from the
// ledger's point of view.
func ledgerAndOutcomeFor(entry domain.QueueEntry) (domain.LedgerStatus, narrative.Outcome) {
	switch entry.Status {
	case domain.QueueExecuting:
		return domain.LedgerExecuting, narrative.OutcomeExecuting
	case domain.QueueCompleted:
		return domain.LedgerCompleted, narrative.OutcomeCompleted
	case domain.QueueFailed:
		return domain.LedgerFailed, narrative.OutcomeFailed
	case domain.QueueBlocked:
		return domain.LedgerBlocked, narrative.OutcomeIneligible
	default:
		return "", narrative.OutcomeExecuting
	}
}

// advanceWorkflow checks whether the just-processed queue entry belongs to
// an in-progress Workflow Instance's step and, if so, advances it.
func (p *Pipeline) advanceWorkflow(ctx context.Context, req Request, processed domain.QueueEntry, actionSnap *actionregistry.Snapshot) {
	if p.workflowStore == nil || !processed.Status.Terminal() {
		return
	}
	instances, err := p.workflowStore.ListInProgress(ctx)
	if err != nil {
		p.log.Error(ctx, "list in-progress workflows failed", "error", err)
		return
	}
	for _, inst := range instances {
		if inst.SessionID != req.SessionID {
			continue
		}
		sequenceID := ""
		for _, step := range inst.StepsExecuted {
			if step.QueueID == processed.QueueID {
				sequenceID = step.SequenceID
				break
			}
		}
		if sequenceID == "" {
			continue
		}
		if p.workflowDefs == nil {
			return
		}
		wfDef, ok := p.workflowDefs.Lookup(inst.WorkflowID)
		if !ok {
			p.log.Error(ctx, "unknown workflow_id during advance", "workflow_id", inst.WorkflowID)
			return
		}
		engine := workflow.New(workflow.Options{
			Store:    p.workflowStore,
			Enqueuer: &workflowEnqueuer{queue: p.actionQueue, snap: actionSnap},
			Defs:     p.workflowDefs,
			Log:      p.log,
			Metrics:  p.metrics,
		})
		if _, err := engine.Advance(ctx, wfDef, req.BrandID, inst.WorkflowInstanceID, sequenceID, processed.Status, nil); err != nil {
			p.log.Error(ctx, "workflow advance failed", "workflow_instance_id", inst.WorkflowInstanceID, "error", err)
		}
		return
	}
}
