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

const defaultExecutionLogCollection = "action_execution_log"

// MongoExecutionLogStore persists Execution Log Entries in MongoDB, mirroring
// MongoStore's document-and-index conventions for the Action Queue's own
// collection.
type MongoExecutionLogStore struct {
	coll    *mongo.Collection
	timeout time.Duration
}

// NewMongoExecutionLogStore builds a MongoExecutionLogStore and ensures its
// indexes exist.
func NewMongoExecutionLogStore(ctx context.Context, opts MongoOptions) (*MongoExecutionLogStore, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("database name is required")
	}
	collName := opts.Collection
	if collName == "" {
		collName = defaultExecutionLogCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	coll := opts.Client.Database(opts.Database).Collection(collName)

	idxCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "execution_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "idempotency_key", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "action_id", Value: 1}, {Key: "status", Value: 1}}},
	}
	if _, err := coll.Indexes().CreateMany(idxCtx, indexes); err != nil {
		return nil, err
	}
	return &MongoExecutionLogStore{coll: coll, timeout: timeout}, nil
}

type executionLogDocument struct {
	ExecutionID    string         `bson:"execution_id"`
	QueueID        string         `bson:"queue_id"`
	ActionID       string         `bson:"action_id"`
	SessionID      string         `bson:"session_id"`
	StartedAt      time.Time      `bson:"started_at"`
	CompletedAt    *time.Time     `bson:"completed_at,omitempty"`
	DurationMS     int64          `bson:"duration_ms"`
	Status         string         `bson:"status"`
	RetryAttempt   int            `bson:"retry_attempt"`
	ParamsUsed     map[string]any `bson:"params_used,omitempty"`
	Result         map[string]any `bson:"result,omitempty"`
	Error          string         `bson:"error,omitempty"`
	IdempotencyKey string         `bson:"idempotency_key"`
}

func fromExecutionLogEntry(e domain.ExecutionLogEntry) executionLogDocument {
	return executionLogDocument{
		ExecutionID:    e.ExecutionID,
		QueueID:        e.QueueID,
		ActionID:       e.ActionID,
		SessionID:      e.SessionID,
		StartedAt:      e.StartedAt.UTC(),
		CompletedAt:    e.CompletedAt,
		DurationMS:     e.DurationMS,
		Status:         string(e.Status),
		RetryAttempt:   e.RetryAttempt,
		ParamsUsed:     e.ParamsUsed,
		Result:         e.Result,
		Error:          e.Error,
		IdempotencyKey: e.IdempotencyKey,
	}
}

func (d executionLogDocument) toEntry() domain.ExecutionLogEntry {
	return domain.ExecutionLogEntry{
		ExecutionID:    d.ExecutionID,
		QueueID:        d.QueueID,
		ActionID:       d.ActionID,
		SessionID:      d.SessionID,
		StartedAt:      d.StartedAt,
		CompletedAt:    d.CompletedAt,
		DurationMS:     d.DurationMS,
		Status:         domain.ExecutionStatus(d.Status),
		RetryAttempt:   d.RetryAttempt,
		ParamsUsed:     d.ParamsUsed,
		Result:         d.Result,
		Error:          d.Error,
		IdempotencyKey: d.IdempotencyKey,
	}
}

func (s *MongoExecutionLogStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Append implements ExecutionLogStore.
func (s *MongoExecutionLogStore) Append(ctx context.Context, entry domain.ExecutionLogEntry) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.coll.InsertOne(ctx, fromExecutionLogEntry(entry))
	return err
}

// Complete implements ExecutionLogStore.
func (s *MongoExecutionLogStore) Complete(ctx context.Context, executionID string, status domain.ExecutionStatus, result map[string]any, errMsg string, completedAt time.Time) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var existing executionLogDocument
	if err := s.coll.FindOne(ctx, bson.M{"execution_id": executionID}).Decode(&existing); err != nil {
		return err
	}
	completedUTC := completedAt.UTC()
	update := bson.M{
		"$set": bson.M{
			"status":       string(status),
			"result":       result,
			"error":        errMsg,
			"completed_at": completedUTC,
			"duration_ms":  completedUTC.Sub(existing.StartedAt).Milliseconds(),
		},
	}
	_, err := s.coll.UpdateOne(ctx, bson.M{"execution_id": executionID}, update)
	return err
}

// FindCompletedByIdempotencyKey implements ExecutionLogStore.
func (s *MongoExecutionLogStore) FindCompletedByIdempotencyKey(ctx context.Context, key string) (*domain.ExecutionLogEntry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	filter := bson.M{"idempotency_key": key, "status": string(domain.ExecCompleted)}
	var doc executionLogDocument
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	entry := doc.toEntry()
	return &entry, nil
}

// HasCompleted implements ExecutionLogStore (and eligibility.ExecutionLog).
func (s *MongoExecutionLogStore) HasCompleted(ctx context.Context, sessionID, actionID string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	filter := bson.M{"session_id": sessionID, "action_id": actionID, "status": string(domain.ExecCompleted)}
	n, err := s.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	return n > 0, err
}
