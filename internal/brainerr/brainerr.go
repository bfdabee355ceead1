// Package brainerr provides the structured error kinds the Brain uses to
// classify failures for per-intent isolation, narrative translation, and
// retry/DLQ routing.
package brainerr

import (
	"errors"
	"fmt"
)

// Kind categorizes a failure for narrative translation and retry routing.
type Kind string

const (
	// KindValidation marks malformed input or failed parameter validation.
	// User-facing; never retried.
	KindValidation Kind = "validation"
	// KindNotFound marks a missing action, schema, or workflow definition.
	// User-facing via the narrative's report_error instruction.
	KindNotFound Kind = "not_found"
	// KindEligibility marks a user failing an eligibility check.
	// User-facing via the narrative's handle_blocker instruction.
	KindEligibility Kind = "eligibility"
	// KindExternalTransient marks a timeout, network failure, or 5xx from a
	// brand API. Retryable per the action's retry policy.
	KindExternalTransient Kind = "external_transient"
	// KindExternalPermanent marks a 4xx from a brand API. Not retryable;
	// routes straight to the dead-letter store.
	KindExternalPermanent Kind = "external_permanent"
	// KindConflict marks an idempotency collision or concurrent
	// modification. Internal; resolved by deduping, not surfaced to users.
	KindConflict Kind = "conflict"
	// KindWorkflowAbort marks a required workflow step failing. Triggers
	// rollback when the workflow defines a rollback_action_id chain.
	KindWorkflowAbort Kind = "workflow_abort"
	// KindInternal marks a bug or invariant violation. Logged and fails the
	// one intent; never the whole turn.
	KindInternal Kind = "internal"
)

// Error is the Brain's structured error type. It carries a stable Kind for
// routing, a Reason identifier that downstream narrative templates can
// localize, and an optional wrapped Cause.
type Error struct {
	Kind   Kind
	Reason string
	Cause  error
}

// New constructs an Error of the given kind and reason with no wrapped cause.
func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// Wrap constructs an Error of the given kind and reason, wrapping cause so
// that errors.Is/errors.As continue to see through to it.
func Wrap(kind Kind, reason string, cause error) *Error {
	return &Error{Kind: kind, Reason: reason, Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind (and, when the
// target's Reason is non-empty, the same Reason), which lets callers write
// errors.Is(err, brainerr.New(brainerr.KindEligibility, "")) style kind
// checks.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	if other.Reason != "" {
		return e.Kind == other.Kind && e.Reason == other.Reason
	}
	return e.Kind == other.Kind
}

// KindOf extracts the Kind of err if it is (or wraps) a *Error, and reports
// whether one was found. Non-Brain errors resolve to KindInternal so callers
// always have a routing decision to make.
func KindOf(err error) (Kind, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return KindInternal, false
}

// Retryable reports whether a given error kind is eligible for the Action
// Queue's retry/backoff path rather than immediate dead-lettering.
func Retryable(kind Kind) bool {
	return kind == KindExternalTransient
}
