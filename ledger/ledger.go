// Package ledger implements the Intent Ledger (spec.md §4.7): the
// append-mostly per-session record of every intent a turn recognized, its
// status history, and the actions it triggered. Status transitions are
// validated against a fixed state machine so a terminal entry can never be
// reopened (I6).
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
	"github.com/Nikunjmattoo/bot-framework-sub000/internal/idgen"
)

// ErrTerminal is returned when a caller attempts to transition an entry
// that has already reached a terminal status (I6).
var ErrTerminal = errors.New("intent ledger entry is terminal")

// ErrInvalidTransition is returned when the requested status is not
// reachable from the entry's current status.
var ErrInvalidTransition = errors.New("invalid intent ledger status transition")

// transitions maps each non-terminal status to the set of statuses it may
// move to next. The happy path runs new -> processing -> queued ->
// executing -> completed; any non-terminal status may instead be diverted
// straight to one of the four terminal outcomes.
var transitions = map[domain.LedgerStatus][]domain.LedgerStatus{
	domain.LedgerNew: {
		domain.LedgerProcessing,
		domain.LedgerBlocked, domain.LedgerActionNotFound, domain.LedgerFailed, domain.LedgerCancelled,
	},
	domain.LedgerProcessing: {
		domain.LedgerQueued,
		domain.LedgerBlocked, domain.LedgerActionNotFound, domain.LedgerFailed, domain.LedgerCancelled,
	},
	domain.LedgerQueued: {
		domain.LedgerExecuting,
		domain.LedgerBlocked, domain.LedgerActionNotFound, domain.LedgerFailed, domain.LedgerCancelled,
	},
	domain.LedgerExecuting: {
		domain.LedgerCompleted,
		domain.LedgerBlocked, domain.LedgerActionNotFound, domain.LedgerFailed, domain.LedgerCancelled,
	},
}

func canTransition(from, to domain.LedgerStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Store persists Intent Ledger Entries. Implementations must serialize
// concurrent status updates to the same entry (the caller is expected to
// hold the session lock for the duration of a turn, per spec.md §5, but a
// Store should not rely solely on that for correctness).
type Store interface {
	Insert(ctx context.Context, entry domain.IntentLedgerEntry) error
	Get(ctx context.Context, intentID string) (domain.IntentLedgerEntry, error)
	// UpdateStatus applies a status transition plus the narrowly scoped
	// annotation fields the spec allows alongside it, returning the
	// updated entry. mutate is invoked with the loaded entry under the
	// store's own concurrency control so the check-then-set is atomic.
	UpdateStatus(ctx context.Context, intentID string, mutate func(domain.IntentLedgerEntry) (domain.IntentLedgerEntry, error)) (domain.IntentLedgerEntry, error)
	ListBySession(ctx context.Context, sessionID string) ([]domain.IntentLedgerEntry, error)
}

// Ledger is the Intent Ledger (spec.md §4.7): a Store wrapped with the
// transition state machine so callers never need to re-derive I6 by hand.
type Ledger struct {
	store Store
	now   func() time.Time
}

// New constructs a Ledger backed by store.
func New(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// Create appends a new Intent Ledger Entry in status "new".
func (l *Ledger) Create(ctx context.Context, brandID, instanceID, sessionID string, turnNumber int, intent domain.Intent, canonicalIntent string, matchType domain.MatchType) (domain.IntentLedgerEntry, error) {
	now := l.now()
	entry := domain.IntentLedgerEntry{
		IntentID:        idgen.New("intent"),
		BrandID:         brandID,
		InstanceID:      instanceID,
		SessionID:       sessionID,
		TurnNumber:      turnNumber,
		IntentType:      intent.IntentType,
		CanonicalIntent: canonicalIntent,
		MatchType:       matchType,
		Confidence:      intent.Confidence,
		Entities:        intent.Entities,
		Status:          domain.LedgerNew,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := l.store.Insert(ctx, entry); err != nil {
		return domain.IntentLedgerEntry{}, err
	}
	return entry, nil
}

// Get returns the entry for intentID.
func (l *Ledger) Get(ctx context.Context, intentID string) (domain.IntentLedgerEntry, error) {
	return l.store.Get(ctx, intentID)
}

// ListBySession returns every entry recorded for sessionID.
func (l *Ledger) ListBySession(ctx context.Context, sessionID string) ([]domain.IntentLedgerEntry, error) {
	return l.store.ListBySession(ctx, sessionID)
}

// Transition moves the entry identified by intentID to status newStatus,
// applying annotate to set any of the narrowly scoped annotation fields
// (blocked_reason, resolution, error) alongside the status change.
// Transitions out of a terminal status, or to a status the state machine
// does not permit from the entry's current status, are rejected (I6).
func (l *Ledger) Transition(ctx context.Context, intentID string, newStatus domain.LedgerStatus, annotate func(*domain.IntentLedgerEntry)) (domain.IntentLedgerEntry, error) {
	return l.store.UpdateStatus(ctx, intentID, func(entry domain.IntentLedgerEntry) (domain.IntentLedgerEntry, error) {
		if entry.Status.Terminal() {
			return domain.IntentLedgerEntry{}, fmt.Errorf("%w: intent %s is %s", ErrTerminal, intentID, entry.Status)
		}
		if !canTransition(entry.Status, newStatus) {
			return domain.IntentLedgerEntry{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, entry.Status, newStatus)
		}
		entry.Status = newStatus
		entry.UpdatedAt = l.now()
		if annotate != nil {
			annotate(&entry)
		}
		return entry, nil
	})
}

// RecordTriggeredAction appends actionID to the entry's triggered_actions
// list without changing its status.
func (l *Ledger) RecordTriggeredAction(ctx context.Context, intentID, actionID string) (domain.IntentLedgerEntry, error) {
	return l.store.UpdateStatus(ctx, intentID, func(entry domain.IntentLedgerEntry) (domain.IntentLedgerEntry, error) {
		entry.TriggeredActions = append(entry.TriggeredActions, actionID)
		entry.UpdatedAt = l.now()
		return entry, nil
	})
}
