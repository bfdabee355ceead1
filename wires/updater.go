package wires

import (
	"context"
	"sort"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
	"github.com/Nikunjmattoo/bot-framework-sub000/internal/telemetry"
)

// Updater is the Wire Updater.
type Updater struct {
	store  Store
	ledger LedgerReader
	log    telemetry.Logger
}

// New constructs an Updater.
func New(store Store, ledger LedgerReader, log telemetry.Logger) *Updater {
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	return &Updater{store: store, ledger: ledger, log: log}
}

// Input carries the turn-local facts the Updater combines with the
// session's ledger history to materialize wires. PopularActions is read
// from the instance configuration by the caller: maintaining it is not the
// Brain's responsibility (spec.md §4.12).
type Input struct {
	SessionID           string
	ExpectingResponse   bool
	AnswerSheet         *domain.AnswerSheet
	ActiveTask          *domain.ActiveTask
	ConversationContext map[string]any
	PopularActions      []string
	StreamingUpdates    []domain.StreamEvent
}

// Materialize builds the session's wires from in and its ledger history,
// then upserts them atomically with the caller's own turn checkpoint
// (callers are expected to call this within the same persistence
// transaction/lock scope as the rest of the turn's writes).
func (u *Updater) Materialize(ctx context.Context, in Input) (domain.SessionWires, error) {
	previous, err := u.previousIntents(ctx, in.SessionID)
	if err != nil {
		return domain.SessionWires{}, err
	}

	w := domain.SessionWires{
		SessionID:           in.SessionID,
		ExpectingResponse:   in.ExpectingResponse,
		AnswerSheet:         in.AnswerSheet,
		ActiveTask:          in.ActiveTask,
		PreviousIntents:     previous,
		AvailableSignals:    availableSignals(in.AnswerSheet),
		ConversationContext: in.ConversationContext,
		PopularActions:      in.PopularActions,
		StreamingUpdates:    in.StreamingUpdates,
	}
	if err := u.store.Upsert(ctx, w); err != nil {
		return domain.SessionWires{}, err
	}
	return w, nil
}

// previousIntents returns the last five ledger entries for sessionID,
// most recent last, summarized for the intent detector.
func (u *Updater) previousIntents(ctx context.Context, sessionID string) ([]domain.IntentSummary, error) {
	entries, err := u.ledger.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TurnNumber != entries[j].TurnNumber {
			return entries[i].TurnNumber < entries[j].TurnNumber
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	if len(entries) > previousIntentsWindow {
		entries = entries[len(entries)-previousIntentsWindow:]
	}

	summaries := make([]domain.IntentSummary, 0, len(entries))
	for _, e := range entries {
		summaries = append(summaries, domain.IntentSummary{
			IntentID:        e.IntentID,
			CanonicalIntent: e.CanonicalIntent,
			Status:          e.Status,
			TurnNumber:      e.TurnNumber,
		})
	}
	return summaries, nil
}

// availableSignals derives the union of an answer sheet's option keys and
// their aliases (spec.md §4.12). Variants without options (entity, text,
// and a confirmation sheet with no explicit options) contribute nothing:
// the intent detector has nothing enumerable to match against free text.
func availableSignals(sheet *domain.AnswerSheet) []string {
	if sheet == nil {
		return nil
	}
	var signals []string
	for _, opt := range sheet.Options {
		signals = append(signals, opt.Key)
		signals = append(signals, opt.Aliases...)
	}
	return signals
}
