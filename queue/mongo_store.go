package queue

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
	defaultQueueCollection = "action_queue"
	defaultOpTimeout       = 5 * time.Second
)

var restorableStatuses = []domain.QueueStatus{
	domain.QueuePending, domain.QueueReady, domain.QueueExecuting, domain.QueueRetrying, domain.QueueBlocked,
}

// MongoStore persists Queue Entries in MongoDB, grounded on the teacher's
// session Mongo client shape (upsert-by-filter writes, unique natural-key
// index, a secondary index for the query patterns this component needs).
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
		collName = defaultQueueCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	coll := opts.Client.Database(opts.Database).Collection(collName)

	idxCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "queue_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "idempotency_key", Value: 1}}},
	}
	if _, err := coll.Indexes().CreateMany(idxCtx, indexes); err != nil {
		return nil, err
	}
	return &MongoStore{coll: coll, timeout: timeout}, nil
}

type queueDocument struct {
	QueueID            string         `bson:"queue_id"`
	IdempotencyKey     string         `bson:"idempotency_key"`
	SessionID          string         `bson:"session_id"`
	BrandID            string         `bson:"brand_id"`
	InstanceID         string         `bson:"instance_id"`
	ActionID           string         `bson:"action_id"`
	ParamsCollected    map[string]any `bson:"params_collected,omitempty"`
	ParamsMissing      []string       `bson:"params_missing,omitempty"`
	Status             string         `bson:"status"`
	Priority           string         `bson:"priority"`
	RetryCount         int            `bson:"retry_count"`
	MaxRetries         int            `bson:"max_retries"`
	NextRetryAt        *time.Time     `bson:"next_retry_at,omitempty"`
	RetryErrors        []string       `bson:"retry_errors,omitempty"`
	WorkflowInstanceID string         `bson:"workflow_instance_id,omitempty"`
	AddedAt            time.Time      `bson:"added_at"`
	CheckpointAt       time.Time      `bson:"checkpoint_at"`
}

func fromQueueEntry(e domain.QueueEntry) queueDocument {
	return queueDocument{
		QueueID:            e.QueueID,
		IdempotencyKey:     e.IdempotencyKey,
		SessionID:          e.SessionID,
		BrandID:            e.BrandID,
		InstanceID:         e.InstanceID,
		ActionID:           e.ActionID,
		ParamsCollected:    e.ParamsCollected,
		ParamsMissing:      e.ParamsMissing,
		Status:             string(e.Status),
		Priority:           string(e.Priority),
		RetryCount:         e.RetryCount,
		MaxRetries:         e.MaxRetries,
		NextRetryAt:        e.NextRetryAt,
		RetryErrors:        e.RetryErrors,
		WorkflowInstanceID: e.WorkflowInstanceID,
		AddedAt:            e.AddedAt.UTC(),
		CheckpointAt:       e.CheckpointAt.UTC(),
	}
}

func (d queueDocument) toEntry() domain.QueueEntry {
	return domain.QueueEntry{
		QueueID:            d.QueueID,
		IdempotencyKey:     d.IdempotencyKey,
		SessionID:          d.SessionID,
		BrandID:            d.BrandID,
		InstanceID:         d.InstanceID,
		ActionID:           d.ActionID,
		ParamsCollected:    d.ParamsCollected,
		ParamsMissing:      d.ParamsMissing,
		Status:             domain.QueueStatus(d.Status),
		Priority:           domain.Priority(d.Priority),
		RetryCount:         d.RetryCount,
		MaxRetries:         d.MaxRetries,
		NextRetryAt:        d.NextRetryAt,
		RetryErrors:        d.RetryErrors,
		WorkflowInstanceID: d.WorkflowInstanceID,
		AddedAt:            d.AddedAt,
		CheckpointAt:       d.CheckpointAt,
	}
}

func (s *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Insert implements Store.
func (s *MongoStore) Insert(ctx context.Context, entry domain.QueueEntry) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.coll.InsertOne(ctx, fromQueueEntry(entry))
	return err
}

// Get implements Store.
func (s *MongoStore) Get(ctx context.Context, queueID string) (domain.QueueEntry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var doc queueDocument
	if err := s.coll.FindOne(ctx, bson.M{"queue_id": queueID}).Decode(&doc); err != nil {
		return domain.QueueEntry{}, err
	}
	return doc.toEntry(), nil
}

// FindByIdempotencyKey implements Store, restricted to non-terminal status
// to honor I2 without requiring a partial unique index (which mongo-driver
// supports but which this deployment may run without, depending on server
// version).
func (s *MongoStore) FindByIdempotencyKey(ctx context.Context, key string) (*domain.QueueEntry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	filter := bson.M{
		"idempotency_key": key,
		"status":          bson.M{"$nin": []string{string(domain.QueueCompleted), string(domain.QueueFailed)}},
	}
	var doc queueDocument
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	entry := doc.toEntry()
	return &entry, nil
}

// UpdateStatus implements Store. As with ledger.MongoStore, the
// load-mutate-replace sequence relies on the Turn Pipeline's per-session
// serialization rather than a Mongo-level transaction.
func (s *MongoStore) UpdateStatus(ctx context.Context, queueID string, mutate func(domain.QueueEntry) (domain.QueueEntry, error)) (domain.QueueEntry, error) {
	entry, err := s.Get(ctx, queueID)
	if err != nil {
		return domain.QueueEntry{}, err
	}
	updated, err := mutate(entry)
	if err != nil {
		return domain.QueueEntry{}, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if _, err := s.coll.ReplaceOne(ctx, bson.M{"queue_id": queueID}, fromQueueEntry(updated)); err != nil {
		return domain.QueueEntry{}, err
	}
	return updated, nil
}

// ListEligible implements Store.
func (s *MongoStore) ListEligible(ctx context.Context, sessionID string, now time.Time) ([]domain.QueueEntry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	filter := bson.M{
		"session_id": sessionID,
		"$or": []bson.M{
			{"status": bson.M{"$in": []string{string(domain.QueuePending), string(domain.QueueReady)}}},
			{"status": string(domain.QueueRetrying), "next_retry_at": bson.M{"$lte": now}},
		},
	}
	cur, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()
	var out []domain.QueueEntry
	for cur.Next(ctx) {
		var doc queueDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toEntry())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	sortEligible(out)
	return out, nil
}

// ListRestorable implements Store.
func (s *MongoStore) ListRestorable(ctx context.Context) ([]domain.QueueEntry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	statuses := make([]string, 0, len(restorableStatuses))
	for _, st := range restorableStatuses {
		statuses = append(statuses, string(st))
	}
	cur, err := s.coll.Find(ctx, bson.M{"status": bson.M{"$in": statuses}})
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()
	var out []domain.QueueEntry
	for cur.Next(ctx) {
		var doc queueDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toEntry())
	}
	return out, cur.Err()
}

// HasNonTerminal implements Store.
func (s *MongoStore) HasNonTerminal(ctx context.Context, sessionID, actionID string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	filter := bson.M{
		"session_id": sessionID,
		"action_id":  actionID,
		"status":     bson.M{"$nin": []string{string(domain.QueueCompleted), string(domain.QueueFailed)}},
	}
	n, err := s.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	return n > 0, err
}

func sortEligible(entries []domain.QueueEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0; j-- {
			a, b := entries[j-1], entries[j]
			if lessEligible(b, a) {
				entries[j-1], entries[j] = entries[j], entries[j-1]
				continue
			}
			break
		}
	}
}

func lessEligible(a, b domain.QueueEntry) bool {
	if a.Priority.Rank() != b.Priority.Rank() {
		return a.Priority.Rank() > b.Priority.Rank()
	}
	return a.AddedAt.Before(b.AddedAt)
}
