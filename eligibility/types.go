// Package eligibility implements the Eligibility Evaluator (spec.md §4.5):
// given an action definition and a session's current state, it accumulates
// every reason the action cannot run right now rather than stopping at the
// first one, so the Narrative Builder can explain every blocker in one turn.
package eligibility

import (
	"context"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
)

// UserContext carries the parts of the calling user's identity the
// evaluator needs. It is intentionally small: the evaluator has no business
// reading anything about the user beyond tier and auth.
type UserContext struct {
	Tier          string
	Authenticated bool
}

// SchemaStates resolves the current Schema State for a schema id, the way
// schemacache.Cache does. Declared locally (rather than importing
// schemacache directly) so eligibility has no compile-time dependency on
// the cache's HTTP/Redis machinery — only on the shape of a schema state.
type SchemaStates interface {
	State(ctx context.Context, schemaID string) (*SchemaState, bool)
}

// SchemaState is the subset of schemacache.State the evaluator reads.
type SchemaState struct {
	APIStatus domain.SchemaAPIStatus
	Keys      map[string]domain.KeyStatus
}

// ExecutionLog answers "has this session ever completed this action",
// backing the dependencies check. Implemented by the queue/execution-log
// store once built; declared here to avoid a circular import.
type ExecutionLog interface {
	HasCompleted(ctx context.Context, sessionID, actionID string) (bool, error)
}

// ActiveQueue answers "is there a non-terminal queue entry for this action
// in this session", backing the opposites check.
type ActiveQueue interface {
	HasNonTerminal(ctx context.Context, sessionID, actionID string) (bool, error)
}

// Predicate is a named blocker check from the fixed predicate table (e.g.
// insufficient_balance, cart_empty). It returns true when the blocker
// applies (i.e. the action is blocked).
type Predicate func(ctx context.Context, sessionID string) (bool, error)

// Result is the evaluator's verdict: eligible iff reasons is empty.
type Result struct {
	Eligible bool
	Reasons  []string
}
