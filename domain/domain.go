// Package domain holds the entity types shared across the Brain's
// components: the tables of spec.md §3 translated into Go structs. Each
// component package (actionregistry, schemaregistry, ledger, queue, ...)
// owns the operations over these types; domain only owns their shape so
// packages don't import each other just to share a struct.
package domain

import "time"

// IntentType classifies an incoming intent.
type IntentType string

const (
	IntentAction    IntentType = "action"
	IntentHelp      IntentType = "help"
	IntentResponse  IntentType = "response"
	IntentUnknown   IntentType = "unknown"
	IntentGreeting  IntentType = "greeting"
	IntentGoodbye   IntentType = "goodbye"
	IntentGratitude IntentType = "gratitude"
	IntentChitchat  IntentType = "chitchat"
)

// MatchType records how an Action Resolver lookup succeeded.
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchFuzzy    MatchType = "fuzzy"
	MatchSynonym  MatchType = "synonym"
	MatchNotFound MatchType = "not_found"
)

// LedgerStatus is the Intent Ledger Entry lifecycle state (spec.md §4.7).
type LedgerStatus string

const (
	LedgerNew             LedgerStatus = "new"
	LedgerProcessing      LedgerStatus = "processing"
	LedgerQueued          LedgerStatus = "queued"
	LedgerExecuting       LedgerStatus = "executing"
	LedgerCompleted       LedgerStatus = "completed"
	LedgerBlocked         LedgerStatus = "blocked"
	LedgerActionNotFound  LedgerStatus = "action_not_found"
	LedgerFailed          LedgerStatus = "failed"
	LedgerCancelled       LedgerStatus = "cancelled"
)

// Terminal reports whether status is a terminal Intent Ledger state (I6).
func (s LedgerStatus) Terminal() bool {
	switch s {
	case LedgerCompleted, LedgerBlocked, LedgerActionNotFound, LedgerFailed, LedgerCancelled:
		return true
	default:
		return false
	}
}

// Entity carries one recognized entity value for an intent.
type Entity struct {
	Name  string
	Value any
}

// Intent is one element of the Turn Pipeline's per-turn input.
type Intent struct {
	IntentType                IntentType
	CanonicalIntentCandidates []string
	Confidence                float64
	Entities                  map[string]any
	Sequence                  int
	Priority                  Priority
	Dependencies              []string
}

// IntentLedgerEntry is the append-mostly per-session record of an intent
// (spec.md §3, Intent Ledger Entry).
type IntentLedgerEntry struct {
	IntentID         string
	BrandID          string
	InstanceID       string
	SessionID        string
	TurnNumber       int
	IntentType       IntentType
	CanonicalIntent  string
	MatchType        MatchType
	Confidence       float64
	Entities         map[string]any
	Status           LedgerStatus
	TriggeredActions []string
	BlockedReason    []string
	Error            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Priority is the Action Definition / Queue Entry priority band.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank returns a numeric ordering for priority comparisons (higher first).
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityNormal:
		return 1
	case PriorityLow:
		return 0
	default:
		return 1
	}
}

// RetryStrategy names the backoff shape for an action's retry policy.
type RetryStrategy string

const (
	RetryExponential RetryStrategy = "exponential"
	RetryFixed       RetryStrategy = "fixed"
)

// RetryPolicy is the Action Definition's retry_policy attribute.
type RetryPolicy struct {
	Max              int
	Strategy         RetryStrategy
	InitialDelay     time.Duration
	MaxDelay         time.Duration
	RetryableErrors  []string
}

// CompletionLogicKind names a Schema Definition key's completion_logic kind.
type CompletionLogicKind string

const (
	CompletionNonEmpty       CompletionLogicKind = "non_empty"
	CompletionNestedObject   CompletionLogicKind = "nested_object"
	CompletionArrayNonEmpty  CompletionLogicKind = "array_non_empty"
	CompletionEnumValue      CompletionLogicKind = "enum_value"
)

// KeyStatus is a Schema State key's completion status.
type KeyStatus string

const (
	KeyNone       KeyStatus = "none"
	KeyIncomplete KeyStatus = "incomplete"
	KeyComplete   KeyStatus = "complete"
)

// SchemaAPIStatus is the Schema State's api_status attribute.
type SchemaAPIStatus string

const (
	APIStatusOK    SchemaAPIStatus = "ok"
	APIStatusStale SchemaAPIStatus = "stale"
	APIStatusError SchemaAPIStatus = "error"
)

// SchemaCompletionStatus is the Schema State's schema_status attribute (I4).
type SchemaCompletionStatus string

const (
	SchemaIncomplete SchemaCompletionStatus = "incomplete"
	SchemaComplete   SchemaCompletionStatus = "complete"
)

// ActiveTaskStatus is the Active Task lifecycle state.
type ActiveTaskStatus string

const (
	TaskInitiated        ActiveTaskStatus = "initiated"
	TaskCollectingParams ActiveTaskStatus = "collecting_params"
	TaskReadyToExecute   ActiveTaskStatus = "ready_to_execute"
	TaskExecuting        ActiveTaskStatus = "executing"
	TaskCompleted        ActiveTaskStatus = "completed"
	TaskFailed           ActiveTaskStatus = "failed"
	TaskCancelled        ActiveTaskStatus = "cancelled"
)

// ActiveTask is the mutable per-session parameter-collection record
// (spec.md §3, Active Task; I1 bounds it to zero or one per session).
type ActiveTask struct {
	SessionID       string
	TaskID          string
	CanonicalAction string
	ParamsRequired  []string
	ParamsCollected map[string]any
	ParamsMissing   []string
	Status          ActiveTaskStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// QueueStatus is a Queue Entry's lifecycle state.
type QueueStatus string

const (
	QueuePending   QueueStatus = "pending"
	QueueReady     QueueStatus = "ready"
	QueueExecuting QueueStatus = "executing"
	QueueRetrying  QueueStatus = "retrying"
	QueueCompleted QueueStatus = "completed"
	QueueFailed    QueueStatus = "failed"
	QueueBlocked   QueueStatus = "blocked"
)

// Terminal reports whether status is terminal for a Queue Entry.
func (s QueueStatus) Terminal() bool {
	return s == QueueCompleted || s == QueueFailed
}

// QueueEntry is the Action Queue's persistent unit of work (spec.md §3).
type QueueEntry struct {
	QueueID            string
	IdempotencyKey     string
	SessionID          string
	BrandID            string
	InstanceID         string
	ActionID           string
	ParamsCollected    map[string]any
	ParamsMissing      []string
	Status             QueueStatus
	Priority           Priority
	RetryCount         int
	MaxRetries         int
	NextRetryAt        *time.Time
	RetryErrors        []string
	WorkflowInstanceID string
	AddedAt            time.Time
	CheckpointAt       time.Time
}

// ExecutionStatus is an Execution Log Entry's status.
type ExecutionStatus string

const (
	ExecExecuting ExecutionStatus = "executing"
	ExecCompleted ExecutionStatus = "completed"
	ExecFailed    ExecutionStatus = "failed"
	ExecTimeout   ExecutionStatus = "timeout"
)

// ExecutionLogEntry is one append-only execution attempt record.
type ExecutionLogEntry struct {
	ExecutionID    string
	QueueID        string
	ActionID       string
	SessionID      string
	StartedAt      time.Time
	CompletedAt    *time.Time
	DurationMS     int64
	Status         ExecutionStatus
	RetryAttempt   int
	ParamsUsed     map[string]any
	Result         map[string]any
	Error          string
	IdempotencyKey string
}

// DLQEntry is a terminal exhausted-action record (spec.md §3, DLQ Entry).
type DLQEntry struct {
	DLQID                      string
	OriginalQueueID            string
	ActionID                   string
	FinalError                 string
	RetryHistory               []string
	MovedAt                    time.Time
	RequiresManualIntervention bool
	EscalationTicketID         string
	Resolved                   bool
	ResolutionNotes            string
}

// WorkflowStatus is a Workflow Instance's lifecycle state.
type WorkflowStatus string

const (
	WorkflowInProgress WorkflowStatus = "in_progress"
	WorkflowCompleted  WorkflowStatus = "completed"
	WorkflowFailed     WorkflowStatus = "failed"
	WorkflowCancelled  WorkflowStatus = "cancelled"
)

// OnFailure names what a workflow step does when it fails terminally.
type OnFailure string

const (
	OnFailureAbort    OnFailure = "abort"
	OnFailureContinue OnFailure = "continue"
)

// WorkflowStepStatus is a workflow step's execution status, mirroring the
// queue status of the step's underlying Queue Entry.
type WorkflowStepStatus string

const (
	StepPending   WorkflowStepStatus = "pending"
	StepExecuting WorkflowStepStatus = "executing"
	StepCompleted WorkflowStepStatus = "completed"
	StepFailed    WorkflowStepStatus = "failed"
	StepSkipped   WorkflowStepStatus = "skipped"
	StepRolledBack WorkflowStepStatus = "rolled_back"
)

// WorkflowStepState is one step's live execution state within an instance.
type WorkflowStepState struct {
	SequenceID  string
	ActionID    string
	Required    bool
	OnFailure   OnFailure
	DependsOn   []string
	Status      WorkflowStepStatus
	QueueID     string
	ExecutionID string
}

// WorkflowInstance is a coordinated, dependency-ordered sequence of actions
// (spec.md §3 / §4.8).
type WorkflowInstance struct {
	WorkflowInstanceID string
	WorkflowID         string
	SessionID          string
	// BrandID and InstanceID are the tenant scope the instance was created
	// under, kept on the instance itself (rather than only threaded through
	// call arguments) so a process-wide timeout sweep can resolve the right
	// Action Registry snapshot for rollback without already knowing which
	// tenant each in-progress instance belongs to.
	BrandID           string
	InstanceID        string
	Status            WorkflowStatus
	StepsTotal        int
	StepsExecuted     []WorkflowStepState
	StartedAt         time.Time
	TimeoutAt         time.Time
	RollbackPerformed bool
	TimedOut          bool
}

// StreamUpdateType enumerates the Streaming Bus event kinds (spec.md §4.10).
type StreamUpdateType string

const (
	UpdateActionLookup        StreamUpdateType = "action_lookup"
	UpdateActionNotFound      StreamUpdateType = "action_not_found"
	UpdateIntentLogged        StreamUpdateType = "intent_logged"
	UpdateFetchingSchemas     StreamUpdateType = "fetching_schemas"
	UpdateSchemasFetched      StreamUpdateType = "schemas_fetched"
	UpdateCheckingEligibility StreamUpdateType = "checking_eligibility"
	UpdateEligibilityChecked  StreamUpdateType = "eligibility_checked"
	UpdateActionBlocked       StreamUpdateType = "action_blocked"
	UpdateCollectingParams    StreamUpdateType = "collecting_params"
	UpdateActionQueued        StreamUpdateType = "action_queued"
	UpdateActionExecuting     StreamUpdateType = "action_executing"
	UpdateActionProgress      StreamUpdateType = "action_progress"
	UpdateActionCompleted     StreamUpdateType = "action_completed"
	UpdateActionFailed        StreamUpdateType = "action_failed"
)

// StreamEvent is one entry in a session's streaming ring (spec.md §4.10).
type StreamEvent struct {
	UpdateType StreamUpdateType
	Timestamp  time.Time
	Context    map[string]any
}

// InstructionType is the Narrative Builder's top-level directive kind
// (spec.md §4.11).
type InstructionType string

const (
	InstructionAskForParams     InstructionType = "ask_for_params"
	InstructionReportProgress   InstructionType = "report_progress"
	InstructionReportCompletion InstructionType = "report_completion"
	InstructionHandleBlocker    InstructionType = "handle_blocker"
	InstructionReportError      InstructionType = "report_error"
)

// AnswerSheetVariant names the shape of a synthesized answer sheet.
type AnswerSheetVariant string

const (
	AnswerConfirmation   AnswerSheetVariant = "confirmation"
	AnswerSingleChoice   AnswerSheetVariant = "single_choice"
	AnswerMultipleChoice AnswerSheetVariant = "multiple_choice"
	AnswerEntity         AnswerSheetVariant = "entity"
	AnswerText           AnswerSheetVariant = "text"
)

// AnswerSheet is the synthesized prompt-for-input directive attached to a
// narrative when expecting_response is true.
type AnswerSheet struct {
	Variant      AnswerSheetVariant
	ParamName    string
	Prompt       string
	Options      []AnswerOption
	MinSelect    int
	MaxSelect    int
	Pattern      string
	MinLength    int
	MaxLength    int
}

// AnswerOption is one selectable option within a single/multiple choice
// answer sheet, with its aliases.
type AnswerOption struct {
	Key     string
	Label   string
	Aliases []string
}

// Narrative is the per-intent next-turn directive the Turn Pipeline hands
// to Response Generation.
type Narrative struct {
	IntentID         string
	InstructionType  InstructionType
	ExpectingResponse bool
	AnswerSheet      *AnswerSheet
	Reasons          []string
	Message          string
}

// SessionWires is the seven Brain-owned wires materialized each turn
// (spec.md §3 / §4.12).
type SessionWires struct {
	SessionID           string
	ExpectingResponse    bool
	AnswerSheet          *AnswerSheet
	ActiveTask           *ActiveTask
	PreviousIntents      []IntentSummary
	AvailableSignals     []string
	ConversationContext  map[string]any
	PopularActions       []string
	StreamingUpdates     []StreamEvent
}

// IntentSummary is the rolling-window entry stored in previous_intents.
type IntentSummary struct {
	IntentID        string
	CanonicalIntent string
	Status          LedgerStatus
	TurnNumber      int
}
