package dlq

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
	defaultCollection = "dead_letter_queue"
	defaultOpTimeout  = 5 * time.Second
)

// MongoStore persists DLQ Entries in MongoDB.
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
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "dlq_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "resolved", Value: 1}, {Key: "moved_at", Value: 1}}},
	}
	if _, err := coll.Indexes().CreateMany(idxCtx, indexes); err != nil {
		return nil, err
	}
	return &MongoStore{coll: coll, timeout: timeout}, nil
}

type dlqDocument struct {
	DLQID                      string    `bson:"dlq_id"`
	OriginalQueueID            string    `bson:"original_queue_id"`
	ActionID                   string    `bson:"action_id"`
	FinalError                 string    `bson:"final_error"`
	RetryHistory               []string  `bson:"retry_history,omitempty"`
	MovedAt                    time.Time `bson:"moved_at"`
	RequiresManualIntervention bool      `bson:"requires_manual_intervention"`
	EscalationTicketID         string    `bson:"escalation_ticket_id,omitempty"`
	Resolved                   bool      `bson:"resolved"`
	ResolutionNotes            string    `bson:"resolution_notes,omitempty"`
}

func fromDLQEntry(e domain.DLQEntry) dlqDocument {
	return dlqDocument{
		DLQID:                      e.DLQID,
		OriginalQueueID:            e.OriginalQueueID,
		ActionID:                   e.ActionID,
		FinalError:                 e.FinalError,
		RetryHistory:               e.RetryHistory,
		MovedAt:                    e.MovedAt.UTC(),
		RequiresManualIntervention: e.RequiresManualIntervention,
		EscalationTicketID:         e.EscalationTicketID,
		Resolved:                   e.Resolved,
		ResolutionNotes:            e.ResolutionNotes,
	}
}

func (d dlqDocument) toEntry() domain.DLQEntry {
	return domain.DLQEntry{
		DLQID:                      d.DLQID,
		OriginalQueueID:            d.OriginalQueueID,
		ActionID:                   d.ActionID,
		FinalError:                 d.FinalError,
		RetryHistory:               d.RetryHistory,
		MovedAt:                    d.MovedAt,
		RequiresManualIntervention: d.RequiresManualIntervention,
		EscalationTicketID:         d.EscalationTicketID,
		Resolved:                   d.Resolved,
		ResolutionNotes:            d.ResolutionNotes,
	}
}

func (s *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Insert implements Store.
func (s *MongoStore) Insert(ctx context.Context, entry domain.DLQEntry) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.coll.InsertOne(ctx, fromDLQEntry(entry))
	return err
}

// Get implements Store.
func (s *MongoStore) Get(ctx context.Context, dlqID string) (domain.DLQEntry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var doc dlqDocument
	if err := s.coll.FindOne(ctx, bson.M{"dlq_id": dlqID}).Decode(&doc); err != nil {
		return domain.DLQEntry{}, err
	}
	return doc.toEntry(), nil
}

// ListUnresolved implements Store.
func (s *MongoStore) ListUnresolved(ctx context.Context) ([]domain.DLQEntry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	cur, err := s.coll.Find(ctx, bson.M{"resolved": false}, options.Find().SetSort(bson.D{{Key: "moved_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()
	var out []domain.DLQEntry
	for cur.Next(ctx) {
		var doc dlqDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toEntry())
	}
	return out, cur.Err()
}

// UpdateResolution implements Store. As with the other Mongo stores in this
// module, the load-mutate-replace sequence relies on the Turn Pipeline's
// per-session serialization rather than a Mongo-level transaction; DLQ
// resolution additionally happens off the hot path (an operator action),
// so the exposure window is smaller still.
func (s *MongoStore) UpdateResolution(ctx context.Context, dlqID string, mutate func(domain.DLQEntry) (domain.DLQEntry, error)) (domain.DLQEntry, error) {
	entry, err := s.Get(ctx, dlqID)
	if err != nil {
		return domain.DLQEntry{}, err
	}
	updated, err := mutate(entry)
	if err != nil {
		return domain.DLQEntry{}, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if _, err := s.coll.ReplaceOne(ctx, bson.M{"dlq_id": dlqID}, fromDLQEntry(updated)); err != nil {
		return domain.DLQEntry{}, err
	}
	return updated, nil
}
