package activetask

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
	defaultCollection = "active_tasks"
	defaultOpTimeout  = 5 * time.Second
)

// MongoStore persists Active Tasks keyed by session_id, grounded on the
// teacher's session-scoped Mongo client shape (one document per key, an
// upsert-by-filter write path, delete-on-clear rather than soft status).
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
// session_id exists (enforcing I1 even under concurrent writers).
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

func fromTask(t domain.ActiveTask) activeTaskDocument {
	return activeTaskDocument{
		SessionID:       t.SessionID,
		TaskID:          t.TaskID,
		CanonicalAction: t.CanonicalAction,
		ParamsRequired:  t.ParamsRequired,
		ParamsCollected: t.ParamsCollected,
		ParamsMissing:   t.ParamsMissing,
		Status:          string(t.Status),
		CreatedAt:       t.CreatedAt.UTC(),
		UpdatedAt:       t.UpdatedAt.UTC(),
	}
}

func (d activeTaskDocument) toTask() domain.ActiveTask {
	return domain.ActiveTask{
		SessionID:       d.SessionID,
		TaskID:          d.TaskID,
		CanonicalAction: d.CanonicalAction,
		ParamsRequired:  d.ParamsRequired,
		ParamsCollected: d.ParamsCollected,
		ParamsMissing:   d.ParamsMissing,
		Status:          domain.ActiveTaskStatus(d.Status),
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func (s *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Get implements Store.
func (s *MongoStore) Get(ctx context.Context, sessionID string) (*domain.ActiveTask, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var doc activeTaskDocument
	if err := s.coll.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	task := doc.toTask()
	return &task, nil
}

// Put implements Store.
func (s *MongoStore) Put(ctx context.Context, task domain.ActiveTask) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	filter := bson.M{"session_id": task.SessionID}
	update := bson.M{"$set": fromTask(task)}
	_, err := s.coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	return err
}

// Clear implements Store.
func (s *MongoStore) Clear(ctx context.Context, sessionID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.coll.DeleteOne(ctx, bson.M{"session_id": sessionID})
	return err
}
