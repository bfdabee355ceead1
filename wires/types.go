// Package wires implements the Wire Updater (spec.md §4.12): it
// materializes the seven Brain-owned session wires atomically with the
// turn's persistence checkpoint, ready for the intent detector's next turn.
package wires

import (
	"context"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
)

// Store persists Session Wires, one document per session_id (spec.md §6's
// persistence table).
type Store interface {
	Upsert(ctx context.Context, wires domain.SessionWires) error
	Load(ctx context.Context, sessionID string) (domain.SessionWires, error)
}

// LedgerReader answers "what are this session's most recent ledger
// entries", backing previous_intents. Declared locally so wires has no
// compile-time dependency on ledger's Mongo/HTTP machinery.
type LedgerReader interface {
	ListBySession(ctx context.Context, sessionID string) ([]domain.IntentLedgerEntry, error)
}

// previousIntentsWindow bounds the previous_intents rolling window
// (spec.md §4.12: "a rolling window of the last five ledger entries").
const previousIntentsWindow = 5
