package wires_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
	"github.com/Nikunjmattoo/bot-framework-sub000/wires"
)

type stubLedger struct {
	entries []domain.IntentLedgerEntry
}

func (s *stubLedger) ListBySession(_ context.Context, _ string) ([]domain.IntentLedgerEntry, error) {
	return s.entries, nil
}

func entry(turn int, canonical string, status domain.LedgerStatus) domain.IntentLedgerEntry {
	return domain.IntentLedgerEntry{
		IntentID:        canonical + "-id",
		TurnNumber:      turn,
		CanonicalIntent: canonical,
		Status:          status,
		CreatedAt:       time.Unix(int64(turn), 0),
	}
}

func TestMaterializeKeepsOnlyLastFiveIntentsInOrder(t *testing.T) {
	ledger := &stubLedger{entries: []domain.IntentLedgerEntry{
		entry(1, "a", domain.LedgerCompleted),
		entry(2, "b", domain.LedgerCompleted),
		entry(3, "c", domain.LedgerCompleted),
		entry(4, "d", domain.LedgerCompleted),
		entry(5, "e", domain.LedgerCompleted),
		entry(6, "f", domain.LedgerCompleted),
	}}
	store := wires.NewMemoryStore()
	u := wires.New(store, ledger, nil)

	w, err := u.Materialize(context.Background(), wires.Input{SessionID: "sess-1"})
	require.NoError(t, err)

	require.Len(t, w.PreviousIntents, 5)
	assert.Equal(t, "b", w.PreviousIntents[0].CanonicalIntent)
	assert.Equal(t, "f", w.PreviousIntents[4].CanonicalIntent)
}

func TestMaterializeDerivesAvailableSignalsFromAnswerSheet(t *testing.T) {
	ledger := &stubLedger{}
	store := wires.NewMemoryStore()
	u := wires.New(store, ledger, nil)

	sheet := &domain.AnswerSheet{
		Variant: domain.AnswerSingleChoice,
		Options: []domain.AnswerOption{
			{Key: "not_received", Aliases: []string{"missing", "never_got_it"}},
			{Key: "damaged"},
		},
	}
	w, err := u.Materialize(context.Background(), wires.Input{SessionID: "sess-1", AnswerSheet: sheet, ExpectingResponse: true})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"not_received", "missing", "never_got_it", "damaged"}, w.AvailableSignals)
}

func TestMaterializeWithNoAnswerSheetHasNoSignals(t *testing.T) {
	ledger := &stubLedger{}
	store := wires.NewMemoryStore()
	u := wires.New(store, ledger, nil)

	w, err := u.Materialize(context.Background(), wires.Input{SessionID: "sess-1"})
	require.NoError(t, err)
	assert.Nil(t, w.AvailableSignals)
}

func TestMaterializePersistsAndLoadReturnsSameWires(t *testing.T) {
	ledger := &stubLedger{entries: []domain.IntentLedgerEntry{entry(1, "a", domain.LedgerCompleted)}}
	store := wires.NewMemoryStore()
	u := wires.New(store, ledger, nil)

	_, err := u.Materialize(context.Background(), wires.Input{
		SessionID:      "sess-1",
		PopularActions: []string{"track_order", "open_dispute"},
	})
	require.NoError(t, err)

	loaded, err := store.Load(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"track_order", "open_dispute"}, loaded.PopularActions)
	require.Len(t, loaded.PreviousIntents, 1)
}

func TestLoadUnknownSessionReturnsEmptyWires(t *testing.T) {
	store := wires.NewMemoryStore()
	w, err := store.Load(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Equal(t, "never-seen", w.SessionID)
	assert.Nil(t, w.PreviousIntents)
}
