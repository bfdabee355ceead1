package eligibility

import (
	"context"
	"fmt"

	"github.com/Nikunjmattoo/bot-framework-sub000/actionregistry"
	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
	"github.com/Nikunjmattoo/bot-framework-sub000/internal/telemetry"
)

// Evaluator is the Eligibility Evaluator (spec.md §4.5).
type Evaluator struct {
	schemas    SchemaStates
	execLog    ExecutionLog
	queue      ActiveQueue
	predicates PredicateTable
	log        telemetry.Logger
	metrics    telemetry.Metrics
}

// New constructs an Evaluator. Any of execLog/queue may be nil if the
// caller never registers dependencies/opposites on action definitions. A
// nil SchemaStates is accepted, but every required key of every schema
// dependency then fails as schema_dependency_unresolvable:<schema>.<key>.
func New(schemas SchemaStates, execLog ExecutionLog, queue ActiveQueue, predicates PredicateTable, log telemetry.Logger, metrics telemetry.Metrics) *Evaluator {
	if predicates == nil {
		predicates = NewPredicateTable()
	}
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Evaluator{
		schemas:    schemas,
		execLog:    execLog,
		queue:      queue,
		predicates: predicates,
		log:        log,
		metrics:    metrics,
	}
}

// Evaluate checks def against the session's current state, accumulating
// every failing reason rather than stopping at the first (spec.md §4.5).
func (e *Evaluator) Evaluate(ctx context.Context, def *actionregistry.Definition, sessionID string, user UserContext) Result {
	var reasons []string

	if len(def.Eligibility.UserTiers) > 0 && !containsString(def.Eligibility.UserTiers, user.Tier) {
		reasons = append(reasons, "user_tier_not_allowed")
	}

	if def.Eligibility.RequiresAuth && !user.Authenticated {
		reasons = append(reasons, "auth_required")
	}

	for schemaID, dep := range def.Eligibility.SchemaDependencies {
		reasons = append(reasons, e.checkSchemaDependency(ctx, schemaID, dep)...)
	}

	for _, name := range def.Blockers {
		blocked, err := e.checkBlocker(ctx, name, sessionID)
		if err != nil {
			e.log.Error(ctx, "blocker predicate failed", "blocker", name, "error", err)
			reasons = append(reasons, fmt.Sprintf("blocker_check_failed:%s", name))
			continue
		}
		if blocked {
			reasons = append(reasons, fmt.Sprintf("blocker:%s", name))
		}
	}

	for _, actionID := range def.Dependencies {
		if e.execLog == nil {
			reasons = append(reasons, fmt.Sprintf("dependency_unresolvable:%s", actionID))
			continue
		}
		done, err := e.execLog.HasCompleted(ctx, sessionID, actionID)
		if err != nil {
			e.log.Error(ctx, "dependency lookup failed", "action_id", actionID, "error", err)
			reasons = append(reasons, fmt.Sprintf("dependency_unresolvable:%s", actionID))
			continue
		}
		if !done {
			reasons = append(reasons, fmt.Sprintf("dependency_not_completed:%s", actionID))
		}
	}

	for _, actionID := range def.Opposites {
		if e.queue == nil {
			continue
		}
		active, err := e.queue.HasNonTerminal(ctx, sessionID, actionID)
		if err != nil {
			e.log.Error(ctx, "opposite lookup failed", "action_id", actionID, "error", err)
			reasons = append(reasons, fmt.Sprintf("opposite_unresolvable:%s", actionID))
			continue
		}
		if active {
			reasons = append(reasons, fmt.Sprintf("opposite_active:%s", actionID))
		}
	}

	result := Result{Eligible: len(reasons) == 0, Reasons: reasons}
	e.metrics.IncCounter("eligibility.evaluated", 1, "action_id", def.ActionID, "eligible", fmt.Sprintf("%t", result.Eligible))
	return result
}

func (e *Evaluator) checkSchemaDependency(ctx context.Context, schemaID string, dep actionregistry.SchemaDependency) []string {
	if e.schemas == nil {
		var reasons []string
		for _, key := range dep.RequiredKeys {
			reasons = append(reasons, fmt.Sprintf("schema_dependency_unresolvable:%s.%s", schemaID, key))
		}
		return reasons
	}

	state, ok := e.schemas.State(ctx, schemaID)
	if !ok {
		var reasons []string
		for _, key := range dep.RequiredKeys {
			reasons = append(reasons, fmt.Sprintf("schema_dependency_failed:%s.%s", schemaID, key))
		}
		return reasons
	}

	want := domain.KeyStatus(dep.AllMustBe)
	var reasons []string
	// A stale or error Schema State fails every required-key check for the
	// schema, regardless of what the last good key values were.
	degraded := state.APIStatus == domain.APIStatusStale || state.APIStatus == domain.APIStatusError
	for _, key := range dep.RequiredKeys {
		if degraded {
			reasons = append(reasons, fmt.Sprintf("schema_dependency_failed:%s.%s", schemaID, key))
			continue
		}
		if state.Keys[key] != want {
			reasons = append(reasons, fmt.Sprintf("schema_dependency_failed:%s.%s", schemaID, key))
		}
	}
	return reasons
}

func (e *Evaluator) checkBlocker(ctx context.Context, name, sessionID string) (bool, error) {
	p, ok := e.predicates[name]
	if !ok {
		// Fail closed: an unregistered blocker name is a configuration
		// error in the action definition, not permission to proceed.
		e.log.Error(ctx, "no predicate registered for blocker", "blocker", name)
		return true, nil
	}
	return p(ctx, sessionID)
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
