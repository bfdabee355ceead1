package workflow

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
	defaultCollection = "workflow_instances"
	defaultOpTimeout  = 5 * time.Second
)

// MongoStore persists Workflow Instances in MongoDB.
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
		{Keys: bson.D{{Key: "workflow_instance_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "timeout_at", Value: 1}}},
		{Keys: bson.D{{Key: "session_id", Value: 1}}},
	}
	if _, err := coll.Indexes().CreateMany(idxCtx, indexes); err != nil {
		return nil, err
	}
	return &MongoStore{coll: coll, timeout: timeout}, nil
}

type workflowStepDocument struct {
	SequenceID  string   `bson:"sequence_id"`
	ActionID    string   `bson:"action_id"`
	Required    bool     `bson:"required"`
	OnFailure   string   `bson:"on_failure"`
	DependsOn   []string `bson:"depends_on,omitempty"`
	Status      string   `bson:"status"`
	QueueID     string   `bson:"queue_id,omitempty"`
	ExecutionID string   `bson:"execution_id,omitempty"`
}

type workflowDocument struct {
	WorkflowInstanceID string                 `bson:"workflow_instance_id"`
	WorkflowID         string                 `bson:"workflow_id"`
	SessionID          string                 `bson:"session_id"`
	BrandID            string                 `bson:"brand_id"`
	InstanceID         string                 `bson:"instance_id"`
	Status             string                 `bson:"status"`
	StepsTotal         int                    `bson:"steps_total"`
	StepsExecuted      []workflowStepDocument `bson:"steps_executed"`
	StartedAt          time.Time              `bson:"started_at"`
	TimeoutAt          time.Time              `bson:"timeout_at"`
	RollbackPerformed  bool                   `bson:"rollback_performed"`
	TimedOut           bool                   `bson:"timed_out"`
}

func fromInstance(in domain.WorkflowInstance) workflowDocument {
	steps := make([]workflowStepDocument, 0, len(in.StepsExecuted))
	for _, s := range in.StepsExecuted {
		steps = append(steps, workflowStepDocument{
			SequenceID:  s.SequenceID,
			ActionID:    s.ActionID,
			Required:    s.Required,
			OnFailure:   string(s.OnFailure),
			DependsOn:   s.DependsOn,
			Status:      string(s.Status),
			QueueID:     s.QueueID,
			ExecutionID: s.ExecutionID,
		})
	}
	return workflowDocument{
		WorkflowInstanceID: in.WorkflowInstanceID,
		WorkflowID:         in.WorkflowID,
		SessionID:          in.SessionID,
		BrandID:            in.BrandID,
		InstanceID:         in.InstanceID,
		Status:             string(in.Status),
		StepsTotal:         in.StepsTotal,
		StepsExecuted:      steps,
		StartedAt:          in.StartedAt.UTC(),
		TimeoutAt:          in.TimeoutAt.UTC(),
		RollbackPerformed:  in.RollbackPerformed,
		TimedOut:           in.TimedOut,
	}
}

func (d workflowDocument) toInstance() domain.WorkflowInstance {
	steps := make([]domain.WorkflowStepState, 0, len(d.StepsExecuted))
	for _, s := range d.StepsExecuted {
		steps = append(steps, domain.WorkflowStepState{
			SequenceID:  s.SequenceID,
			ActionID:    s.ActionID,
			Required:    s.Required,
			OnFailure:   domain.OnFailure(s.OnFailure),
			DependsOn:   s.DependsOn,
			Status:      domain.WorkflowStepStatus(s.Status),
			QueueID:     s.QueueID,
			ExecutionID: s.ExecutionID,
		})
	}
	return domain.WorkflowInstance{
		WorkflowInstanceID: d.WorkflowInstanceID,
		WorkflowID:         d.WorkflowID,
		SessionID:          d.SessionID,
		BrandID:            d.BrandID,
		InstanceID:         d.InstanceID,
		Status:             domain.WorkflowStatus(d.Status),
		StepsTotal:         d.StepsTotal,
		StepsExecuted:      steps,
		StartedAt:          d.StartedAt,
		TimeoutAt:          d.TimeoutAt,
		RollbackPerformed:  d.RollbackPerformed,
		TimedOut:           d.TimedOut,
	}
}

func (s *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Insert implements Store.
func (s *MongoStore) Insert(ctx context.Context, instance domain.WorkflowInstance) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.coll.InsertOne(ctx, fromInstance(instance))
	return err
}

// Get implements Store.
func (s *MongoStore) Get(ctx context.Context, instanceID string) (domain.WorkflowInstance, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var doc workflowDocument
	if err := s.coll.FindOne(ctx, bson.M{"workflow_instance_id": instanceID}).Decode(&doc); err != nil {
		return domain.WorkflowInstance{}, err
	}
	return doc.toInstance(), nil
}

// Update implements Store.
func (s *MongoStore) Update(ctx context.Context, instanceID string, mutate func(domain.WorkflowInstance) (domain.WorkflowInstance, error)) (domain.WorkflowInstance, error) {
	instance, err := s.Get(ctx, instanceID)
	if err != nil {
		return domain.WorkflowInstance{}, err
	}
	updated, err := mutate(instance)
	if err != nil {
		return domain.WorkflowInstance{}, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if _, err := s.coll.ReplaceOne(ctx, bson.M{"workflow_instance_id": instanceID}, fromInstance(updated)); err != nil {
		return domain.WorkflowInstance{}, err
	}
	return updated, nil
}

// ListInProgress implements Store.
func (s *MongoStore) ListInProgress(ctx context.Context) ([]domain.WorkflowInstance, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	cur, err := s.coll.Find(ctx, bson.M{"status": string(domain.WorkflowInProgress)})
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()
	var out []domain.WorkflowInstance
	for cur.Next(ctx) {
		var doc workflowDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toInstance())
	}
	return out, cur.Err()
}
