// Package pipeline implements the Turn Pipeline (spec.md §4.1): the
// straight-line per-turn orchestration that takes a batch of recognized
// intents and, for each, resolves an action, checks eligibility, collects
// parameters, and enqueues execution, before synthesizing the narratives
// and session wires the turn hands back to Response Generation.
//
// It is grounded on the teacher's workflow_turn.go / workflow_loop.go
// straight-line turn function: one exported entrypoint that walks a fixed
// sequence of steps per unit of work, isolating failures to the unit that
// caused them rather than aborting the whole batch.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/Nikunjmattoo/bot-framework-sub000/actionregistry"
	"github.com/Nikunjmattoo/bot-framework-sub000/activetask"
	"github.com/Nikunjmattoo/bot-framework-sub000/dlq"
	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
	"github.com/Nikunjmattoo/bot-framework-sub000/eligibility"
	"github.com/Nikunjmattoo/bot-framework-sub000/internal/telemetry"
	"github.com/Nikunjmattoo/bot-framework-sub000/ledger"
	"github.com/Nikunjmattoo/bot-framework-sub000/narrative"
	"github.com/Nikunjmattoo/bot-framework-sub000/queue"
	"github.com/Nikunjmattoo/bot-framework-sub000/schemacache"
	"github.com/Nikunjmattoo/bot-framework-sub000/schemaregistry"
	"github.com/Nikunjmattoo/bot-framework-sub000/session"
	"github.com/Nikunjmattoo/bot-framework-sub000/streaming"
	"github.com/Nikunjmattoo/bot-framework-sub000/wires"
	"github.com/Nikunjmattoo/bot-framework-sub000/workflow"
)

// WorkflowDefinitions resolves a Workflow Definition by the id an action's
// workflow_id attribute names. Declared locally so pipeline, not workflow,
// owns how definitions are sourced (config file, YAML registry, ...).
type WorkflowDefinitions interface {
	Lookup(workflowID string) (*workflow.Definition, bool)
}

// Request is one turn's input: a batch of intents recognized for a single
// session, plus the tenant and user context every step needs.
type Request struct {
	SessionID  string
	BrandID    string
	InstanceID string
	TurnNumber int
	Intents    []domain.Intent
	User       eligibility.UserContext
	// ConversationContext carries transport-supplied conversational state
	// (e.g. channel metadata) through to the conversation_context wire
	// unchanged; the pipeline itself never inspects it.
	ConversationContext map[string]any
}

// Response is what a turn hands back to Response Generation.
type Response struct {
	Narratives    []domain.Narrative
	Wires         domain.SessionWires
	StreamingHead []domain.StreamEvent
}

// Pipeline wires together every Brain component along the dependency order
// spec.md §2 lays out, and exposes the one entrypoint, ProcessTurn, that
// walks a turn's intents through steps A-H.
type Pipeline struct {
	actions       *actionregistry.Registry
	schemas       *schemaregistry.Registry
	schemaCache   *schemacache.Cache
	intents       *ledger.Ledger
	activeTasks   *activetask.Manager
	actionQueue   *queue.Queue
	workflowStore workflow.Store
	workflowDefs  WorkflowDefinitions
	dlqManager    *dlq.Manager
	narrator      *narrative.Builder
	wireUpdater   *wires.Updater
	streamingBus  *streaming.Bus
	locker        *session.Locker
	lockTimeout   time.Duration
	// popularActions resolves a brand's configured popular_actions list for
	// the popular_actions wire (spec.md §4.12: "read from instance
	// configuration"). May be nil, in which case the wire is left empty.
	popularActions func(brandID string) []string
	log            telemetry.Logger
	metrics       telemetry.Metrics
	now           func() time.Time

	// Eligibility ingredients. A fresh *eligibility.Evaluator is built per
	// intent evaluation rather than held as a single instance, since its
	// SchemaStates dependency is scoped to the schema state one turn just
	// fetched (eligibility.SchemaStates.State takes no session_id of its
	// own - the caller that owns the adapter supplies the scoping).
	evalExecLog    eligibility.ExecutionLog
	evalQueue      eligibility.ActiveQueue
	evalPredicates eligibility.PredicateTable

	mu         sync.Mutex
	queueOwner map[string]string // queue_id -> intent_id, this process's lifetime only
}

// Options configures a Pipeline. Log/Metrics may be nil.
type Options struct {
	Actions        *actionregistry.Registry
	Schemas        *schemaregistry.Registry
	SchemaCache    *schemacache.Cache
	EvalExecLog    eligibility.ExecutionLog
	EvalQueue      eligibility.ActiveQueue
	EvalPredicates eligibility.PredicateTable
	Intents        *ledger.Ledger
	ActiveTasks    *activetask.Manager
	ActionQueue    *queue.Queue
	WorkflowStore  workflow.Store
	WorkflowDefs   WorkflowDefinitions
	DLQ            *dlq.Manager
	Narrator       *narrative.Builder
	WireUpdater    *wires.Updater
	StreamingBus   *streaming.Bus
	Locker         *session.Locker
	// LockTimeout bounds how long ProcessTurn waits to acquire req.SessionID's
	// lock before giving up. Zero means wait indefinitely (bounded only by
	// ctx). A crashed or wedged holder would otherwise stall every future
	// turn for that session forever.
	LockTimeout time.Duration
	// PopularActions resolves a brand's configured popular_actions list,
	// typically internal/config.Config.PopularActions. Nil leaves the
	// popular_actions wire empty.
	PopularActions func(brandID string) []string
	Log            telemetry.Logger
	Metrics        telemetry.Metrics
}

// New constructs a Pipeline.
func New(opts Options) *Pipeline {
	log := opts.Log
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Pipeline{
		actions:        opts.Actions,
		schemas:        opts.Schemas,
		schemaCache:    opts.SchemaCache,
		intents:        opts.Intents,
		activeTasks:    opts.ActiveTasks,
		actionQueue:    opts.ActionQueue,
		workflowStore:  opts.WorkflowStore,
		workflowDefs:   opts.WorkflowDefs,
		dlqManager:     opts.DLQ,
		narrator:       opts.Narrator,
		wireUpdater:    opts.WireUpdater,
		streamingBus:   opts.StreamingBus,
		locker:         opts.Locker,
		lockTimeout:    opts.LockTimeout,
		popularActions: opts.PopularActions,
		log:            log,
		metrics:        metrics,
		now:            time.Now,
		evalExecLog:    opts.EvalExecLog,
		evalQueue:      opts.EvalQueue,
		evalPredicates: opts.EvalPredicates,
		queueOwner:     make(map[string]string),
	}
}

// schemaStateAdapter satisfies eligibility.SchemaStates over the Schema
// States this turn already fetched, so the evaluator never issues its own
// fetches mid-evaluation (fetching is step C's job, not the evaluator's).
type schemaStateAdapter map[string]*schemacache.State

func (a schemaStateAdapter) State(_ context.Context, schemaID string) (*eligibility.SchemaState, bool) {
	s, ok := a[schemaID]
	if !ok {
		return nil, false
	}
	return &eligibility.SchemaState{APIStatus: s.APIStatus, Keys: keyStatusesOf(s.Keys)}, true
}

func keyStatusesOf(keys map[string]schemacache.KeyState) map[string]domain.KeyStatus {
	out := make(map[string]domain.KeyStatus, len(keys))
	for k, v := range keys {
		out[k] = v.Status
	}
	return out
}

// queueDefResolver adapts an actionregistry.Snapshot to queue.DefResolver.
func queueDefResolver(snap *actionregistry.Snapshot) queue.DefResolver {
	return func(actionID string) (*actionregistry.Definition, bool) {
		return snap.ByID(actionID)
	}
}

// workflowEnqueuer adapts the Action Queue to workflow.Enqueuer, resolving
// each step's action id against the same snapshot the turn already loaded.
type workflowEnqueuer struct {
	queue *queue.Queue
	snap  *actionregistry.Snapshot
}

func (w *workflowEnqueuer) EnqueueStep(ctx context.Context, sessionID, brandID, instanceID, actionID string, params map[string]any) (string, error) {
	def, ok := w.snap.ByID(actionID)
	if !ok {
		return "", errUnknownAction(actionID)
	}
	entry, err := w.queue.Enqueue(ctx, def, sessionID, brandID, instanceID, params, nil)
	if err != nil {
		return "", err
	}
	return entry.QueueID, nil
}
