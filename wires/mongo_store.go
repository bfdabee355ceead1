package wires

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
)

const (
	defaultCollection = "session_wires"
	defaultOpTimeout  = 5 * time.Second
)

// MongoStore persists Session Wires keyed by session_id, one document per
// session (spec.md §6's unique constraint on session_id).
type MongoStore struct {
	coll    *mongo.Collection
	timeout time.Duration
}

// MongoOptions configures a MongoStore.
type MongoOptions struct {
	Client     *mongo.Client
	Database   string
	Collection string
	Timeout    time.Duration
}

// NewMongoStore builds a MongoStore and ensures its unique index on
// session_id exists.
func NewMongoStore(ctx context.Context, opts MongoOptions) (*MongoStore, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("database name is required")
	}
	collName := opts.Collection
	if collName == "" {
		collName = defaultCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	coll := opts.Client.Database(opts.Database).Collection(collName)

	idxCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "session_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := coll.Indexes().CreateOne(idxCtx, idx); err != nil {
		return nil, err
	}
	return &MongoStore{coll: coll, timeout: timeout}, nil
}

type answerOptionDocument struct {
	Key     string   `bson:"key"`
	Label   string   `bson:"label,omitempty"`
	Aliases []string `bson:"aliases,omitempty"`
}

type answerSheetDocument struct {
	Variant   string                 `bson:"variant"`
	ParamName string                 `bson:"param_name"`
	Prompt    string                 `bson:"prompt,omitempty"`
	Options   []answerOptionDocument `bson:"options,omitempty"`
	MinSelect int                    `bson:"min_select,omitempty"`
	MaxSelect int                    `bson:"max_select,omitempty"`
	Pattern   string                 `bson:"pattern,omitempty"`
	MinLength int                    `bson:"min_length,omitempty"`
	MaxLength int                    `bson:"max_length,omitempty"`
}

type activeTaskDocument struct {
	SessionID       string         `bson:"session_id"`
	TaskID          string         `bson:"task_id"`
	CanonicalAction string         `bson:"canonical_action"`
	ParamsRequired  []string       `bson:"params_required,omitempty"`
	ParamsCollected map[string]any `bson:"params_collected,omitempty"`
	ParamsMissing   []string       `bson:"params_missing,omitempty"`
	Status          string         `bson:"status"`
	CreatedAt       time.Time      `bson:"created_at"`
	UpdatedAt       time.Time      `bson:"updated_at"`
}

type intentSummaryDocument struct {
	IntentID        string `bson:"intent_id"`
	CanonicalIntent string `bson:"canonical_intent"`
	Status          string `bson:"status"`
	TurnNumber      int    `bson:"turn_number"`
}

type streamEventDocument struct {
	UpdateType string         `bson:"update_type"`
	Timestamp  time.Time      `bson:"timestamp"`
	Context    map[string]any `bson:"context,omitempty"`
}

type wiresDocument struct {
	SessionID           string                  `bson:"session_id"`
	ExpectingResponse   bool                    `bson:"expecting_response"`
	AnswerSheet         *answerSheetDocument    `bson:"answer_sheet,omitempty"`
	ActiveTask          *activeTaskDocument     `bson:"active_task,omitempty"`
	PreviousIntents     []intentSummaryDocument `bson:"previous_intents,omitempty"`
	AvailableSignals    []string                `bson:"available_signals,omitempty"`
	ConversationContext map[string]any          `bson:"conversation_context,omitempty"`
	PopularActions      []string                `bson:"popular_actions,omitempty"`
	StreamingUpdates    []streamEventDocument   `bson:"streaming_updates,omitempty"`
}

func fromWires(w domain.SessionWires) wiresDocument {
	doc := wiresDocument{
		SessionID:           w.SessionID,
		ExpectingResponse:   w.ExpectingResponse,
		AvailableSignals:    w.AvailableSignals,
		ConversationContext: w.ConversationContext,
		PopularActions:      w.PopularActions,
	}
	if w.AnswerSheet != nil {
		options := make([]answerOptionDocument, 0, len(w.AnswerSheet.Options))
		for _, o := range w.AnswerSheet.Options {
			options = append(options, answerOptionDocument{Key: o.Key, Label: o.Label, Aliases: o.Aliases})
		}
		doc.AnswerSheet = &answerSheetDocument{
			Variant:   string(w.AnswerSheet.Variant),
			ParamName: w.AnswerSheet.ParamName,
			Prompt:    w.AnswerSheet.Prompt,
			Options:   options,
			MinSelect: w.AnswerSheet.MinSelect,
			MaxSelect: w.AnswerSheet.MaxSelect,
			Pattern:   w.AnswerSheet.Pattern,
			MinLength: w.AnswerSheet.MinLength,
			MaxLength: w.AnswerSheet.MaxLength,
		}
	}
	if w.ActiveTask != nil {
		doc.ActiveTask = &activeTaskDocument{
			SessionID:       w.ActiveTask.SessionID,
			TaskID:          w.ActiveTask.TaskID,
			CanonicalAction: w.ActiveTask.CanonicalAction,
			ParamsRequired:  w.ActiveTask.ParamsRequired,
			ParamsCollected: w.ActiveTask.ParamsCollected,
			ParamsMissing:   w.ActiveTask.ParamsMissing,
			Status:          string(w.ActiveTask.Status),
			CreatedAt:       w.ActiveTask.CreatedAt.UTC(),
			UpdatedAt:       w.ActiveTask.UpdatedAt.UTC(),
		}
	}
	for _, s := range w.PreviousIntents {
		doc.PreviousIntents = append(doc.PreviousIntents, intentSummaryDocument{
			IntentID:        s.IntentID,
			CanonicalIntent: s.CanonicalIntent,
			Status:          string(s.Status),
			TurnNumber:      s.TurnNumber,
		})
	}
	for _, e := range w.StreamingUpdates {
		doc.StreamingUpdates = append(doc.StreamingUpdates, streamEventDocument{
			UpdateType: string(e.UpdateType),
			Timestamp:  e.Timestamp.UTC(),
			Context:    e.Context,
		})
	}
	return doc
}

func (d wiresDocument) toWires() domain.SessionWires {
	w := domain.SessionWires{
		SessionID:           d.SessionID,
		ExpectingResponse:   d.ExpectingResponse,
		AvailableSignals:    d.AvailableSignals,
		ConversationContext: d.ConversationContext,
		PopularActions:      d.PopularActions,
	}
	if d.AnswerSheet != nil {
		options := make([]domain.AnswerOption, 0, len(d.AnswerSheet.Options))
		for _, o := range d.AnswerSheet.Options {
			options = append(options, domain.AnswerOption{Key: o.Key, Label: o.Label, Aliases: o.Aliases})
		}
		w.AnswerSheet = &domain.AnswerSheet{
			Variant:   domain.AnswerSheetVariant(d.AnswerSheet.Variant),
			ParamName: d.AnswerSheet.ParamName,
			Prompt:    d.AnswerSheet.Prompt,
			Options:   options,
			MinSelect: d.AnswerSheet.MinSelect,
			MaxSelect: d.AnswerSheet.MaxSelect,
			Pattern:   d.AnswerSheet.Pattern,
			MinLength: d.AnswerSheet.MinLength,
			MaxLength: d.AnswerSheet.MaxLength,
		}
	}
	if d.ActiveTask != nil {
		w.ActiveTask = &domain.ActiveTask{
			SessionID:       d.ActiveTask.SessionID,
			TaskID:          d.ActiveTask.TaskID,
			CanonicalAction: d.ActiveTask.CanonicalAction,
			ParamsRequired:  d.ActiveTask.ParamsRequired,
			ParamsCollected: d.ActiveTask.ParamsCollected,
			ParamsMissing:   d.ActiveTask.ParamsMissing,
			Status:          domain.ActiveTaskStatus(d.ActiveTask.Status),
			CreatedAt:       d.ActiveTask.CreatedAt,
			UpdatedAt:       d.ActiveTask.UpdatedAt,
		}
	}
	for _, s := range d.PreviousIntents {
		w.PreviousIntents = append(w.PreviousIntents, domain.IntentSummary{
			IntentID:        s.IntentID,
			CanonicalIntent: s.CanonicalIntent,
			Status:          domain.LedgerStatus(s.Status),
			TurnNumber:      s.TurnNumber,
		})
	}
	for _, e := range d.StreamingUpdates {
		w.StreamingUpdates = append(w.StreamingUpdates, domain.StreamEvent{
			UpdateType: domain.StreamUpdateType(e.UpdateType),
			Timestamp:  e.Timestamp,
			Context:    e.Context,
		})
	}
	return w
}

func (s *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Upsert implements Store.
func (s *MongoStore) Upsert(ctx context.Context, w domain.SessionWires) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	filter := bson.M{"session_id": w.SessionID}
	update := bson.M{"$set": fromWires(w)}
	_, err := s.coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	return err
}

// Load implements Store.
func (s *MongoStore) Load(ctx context.Context, sessionID string) (domain.SessionWires, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var doc wiresDocument
	if err := s.coll.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.SessionWires{SessionID: sessionID}, nil
		}
		return domain.SessionWires{}, err
	}
	return doc.toWires(), nil
}
