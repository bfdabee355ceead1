package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
)

const (
	defaultCollection = "intent_ledger"
	defaultOpTimeout  = 5 * time.Second
)

// MongoStore persists Intent Ledger Entries in MongoDB, grounded on the
// teacher's session Mongo client shape: a single collection keyed by the
// entry's natural id with a retry-safe upsert-by-filter update path.
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

// NewMongoStore builds a MongoStore and ensures its indexes exist.
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
		Keys:    bson.D{{Key: "intent_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := coll.Indexes().CreateOne(idxCtx, idx); err != nil {
		return nil, err
	}
	sessIdx := mongo.IndexModel{
		Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "created_at", Value: 1}},
	}
	if _, err := coll.Indexes().CreateOne(idxCtx, sessIdx); err != nil {
		return nil, err
	}
	return &MongoStore{coll: coll, timeout: timeout}, nil
}

type ledgerDocument struct {
	IntentID         string         `bson:"intent_id"`
	BrandID          string         `bson:"brand_id"`
	InstanceID       string         `bson:"instance_id"`
	SessionID        string         `bson:"session_id"`
	TurnNumber       int            `bson:"turn_number"`
	IntentType       string         `bson:"intent_type"`
	CanonicalIntent  string         `bson:"canonical_intent"`
	MatchType        string         `bson:"match_type"`
	Confidence       float64        `bson:"confidence"`
	Entities         map[string]any `bson:"entities,omitempty"`
	Status           string         `bson:"status"`
	TriggeredActions []string       `bson:"triggered_actions,omitempty"`
	BlockedReason    []string       `bson:"blocked_reason,omitempty"`
	Error            string         `bson:"error,omitempty"`
	CreatedAt        time.Time      `bson:"created_at"`
	UpdatedAt        time.Time      `bson:"updated_at"`
}

func fromEntry(e domain.IntentLedgerEntry) ledgerDocument {
	return ledgerDocument{
		IntentID:         e.IntentID,
		BrandID:          e.BrandID,
		InstanceID:       e.InstanceID,
		SessionID:        e.SessionID,
		TurnNumber:       e.TurnNumber,
		IntentType:       string(e.IntentType),
		CanonicalIntent:  e.CanonicalIntent,
		MatchType:        string(e.MatchType),
		Confidence:       e.Confidence,
		Entities:         e.Entities,
		Status:           string(e.Status),
		TriggeredActions: e.TriggeredActions,
		BlockedReason:    e.BlockedReason,
		Error:            e.Error,
		CreatedAt:        e.CreatedAt.UTC(),
		UpdatedAt:        e.UpdatedAt.UTC(),
	}
}

func (d ledgerDocument) toEntry() domain.IntentLedgerEntry {
	return domain.IntentLedgerEntry{
		IntentID:         d.IntentID,
		BrandID:          d.BrandID,
		InstanceID:       d.InstanceID,
		SessionID:        d.SessionID,
		TurnNumber:       d.TurnNumber,
		IntentType:       domain.IntentType(d.IntentType),
		CanonicalIntent:  d.CanonicalIntent,
		MatchType:        domain.MatchType(d.MatchType),
		Confidence:       d.Confidence,
		Entities:         d.Entities,
		Status:           domain.LedgerStatus(d.Status),
		TriggeredActions: d.TriggeredActions,
		BlockedReason:    d.BlockedReason,
		Error:            d.Error,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

func (s *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Insert implements Store.
func (s *MongoStore) Insert(ctx context.Context, entry domain.IntentLedgerEntry) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.coll.InsertOne(ctx, fromEntry(entry))
	return err
}

// Get implements Store.
func (s *MongoStore) Get(ctx context.Context, intentID string) (domain.IntentLedgerEntry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var doc ledgerDocument
	if err := s.coll.FindOne(ctx, bson.M{"intent_id": intentID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.IntentLedgerEntry{}, fmt.Errorf("intent %s not found", intentID)
		}
		return domain.IntentLedgerEntry{}, err
	}
	return doc.toEntry(), nil
}

// UpdateStatus implements Store. Mongo has no cross-document transaction
// requirement here since each intent is a single document; the load,
// mutate, replace sequence is not atomic against concurrent writers, which
// is acceptable because the Turn Pipeline serializes all writes for a
// session through the session lock (spec.md §5).
func (s *MongoStore) UpdateStatus(ctx context.Context, intentID string, mutate func(domain.IntentLedgerEntry) (domain.IntentLedgerEntry, error)) (domain.IntentLedgerEntry, error) {
	entry, err := s.Get(ctx, intentID)
	if err != nil {
		return domain.IntentLedgerEntry{}, err
	}
	updated, err := mutate(entry)
	if err != nil {
		return domain.IntentLedgerEntry{}, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err = s.coll.ReplaceOne(ctx, bson.M{"intent_id": intentID}, fromEntry(updated))
	if err != nil {
		return domain.IntentLedgerEntry{}, err
	}
	return updated, nil
}

// ListBySession implements Store.
func (s *MongoStore) ListBySession(ctx context.Context, sessionID string) ([]domain.IntentLedgerEntry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	cur, err := s.coll.Find(ctx, bson.M{"session_id": sessionID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()
	var out []domain.IntentLedgerEntry
	for cur.Next(ctx) {
		var doc ledgerDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toEntry())
	}
	return out, cur.Err()
}
