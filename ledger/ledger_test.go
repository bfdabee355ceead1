package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
	"github.com/Nikunjmattoo/bot-framework-sub000/ledger"
)

func newLedger() *ledger.Ledger {
	return ledger.New(ledger.NewMemoryStore())
}

func TestCreateStartsInStatusNew(t *testing.T) {
	l := newLedger()
	entry, err := l.Create(context.Background(), "brand1", "inst1", "sess1", 1, domain.Intent{IntentType: domain.IntentAction}, "cancel_order", domain.MatchExact)
	require.NoError(t, err)
	assert.Equal(t, domain.LedgerNew, entry.Status)
	assert.NotEmpty(t, entry.IntentID)
}

func TestTransitionHappyPath(t *testing.T) {
	l := newLedger()
	entry, err := l.Create(context.Background(), "brand1", "inst1", "sess1", 1, domain.Intent{}, "cancel_order", domain.MatchExact)
	require.NoError(t, err)

	for _, next := range []domain.LedgerStatus{domain.LedgerProcessing, domain.LedgerQueued, domain.LedgerExecuting, domain.LedgerCompleted} {
		entry, err = l.Transition(context.Background(), entry.IntentID, next, nil)
		require.NoError(t, err)
		assert.Equal(t, next, entry.Status)
	}
}

func TestTransitionOutOfTerminalIsRejected(t *testing.T) {
	l := newLedger()
	entry, err := l.Create(context.Background(), "brand1", "inst1", "sess1", 1, domain.Intent{}, "cancel_order", domain.MatchExact)
	require.NoError(t, err)

	entry, err = l.Transition(context.Background(), entry.IntentID, domain.LedgerCancelled, nil)
	require.NoError(t, err)
	assert.True(t, entry.Status.Terminal())

	_, err = l.Transition(context.Background(), entry.IntentID, domain.LedgerProcessing, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledger.ErrTerminal))
}

func TestTransitionSkippingStagesIsRejected(t *testing.T) {
	l := newLedger()
	entry, err := l.Create(context.Background(), "brand1", "inst1", "sess1", 1, domain.Intent{}, "cancel_order", domain.MatchExact)
	require.NoError(t, err)

	_, err = l.Transition(context.Background(), entry.IntentID, domain.LedgerExecuting, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledger.ErrInvalidTransition))
}

func TestTransitionToTerminalFromAnyNonTerminalStage(t *testing.T) {
	l := newLedger()
	entry, err := l.Create(context.Background(), "brand1", "inst1", "sess1", 1, domain.Intent{}, "cancel_order", domain.MatchExact)
	require.NoError(t, err)

	entry, err = l.Transition(context.Background(), entry.IntentID, domain.LedgerProcessing, nil)
	require.NoError(t, err)

	entry, err = l.Transition(context.Background(), entry.IntentID, domain.LedgerBlocked, func(e *domain.IntentLedgerEntry) {
		e.BlockedReason = []string{"auth_required"}
	})
	require.NoError(t, err)
	assert.Equal(t, domain.LedgerBlocked, entry.Status)
	assert.Equal(t, []string{"auth_required"}, entry.BlockedReason)
}

func TestListBySessionReturnsInsertionOrder(t *testing.T) {
	l := newLedger()
	_, err := l.Create(context.Background(), "brand1", "inst1", "sess1", 1, domain.Intent{}, "intent_a", domain.MatchExact)
	require.NoError(t, err)
	_, err = l.Create(context.Background(), "brand1", "inst1", "sess1", 2, domain.Intent{}, "intent_b", domain.MatchExact)
	require.NoError(t, err)

	entries, err := l.ListBySession(context.Background(), "sess1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "intent_a", entries[0].CanonicalIntent)
	assert.Equal(t, "intent_b", entries[1].CanonicalIntent)
}
