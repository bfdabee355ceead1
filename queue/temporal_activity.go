package queue

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"

	"github.com/Nikunjmattoo/bot-framework-sub000/actionregistry"
)

// DrainActivityName is the Temporal activity name under which
// (*Queue).ProcessSession is registered, grounded on the teacher's
// engine.Engine.RegisterActivity naming convention
// (runtime/agent/engine/temporal/engine.go).
const DrainActivityName = "brain.queue.drain_session"

// DrainSessionInput is the activity input for one drain pass.
type DrainSessionInput struct {
	SessionID string
}

// DrainSessionOutput reports what the drain pass did, since Temporal
// activities cannot return the full domain.QueueEntry pointer-or-nil shape
// across the wire cleanly.
type DrainSessionOutput struct {
	Processed bool
	QueueID   string
	Status    string
}

// Registry supplies action definitions to a drain activity. actionregistry.Snapshot
// satisfies this via its ByID method.
type Registry interface {
	ByID(actionID string) (*actionregistry.Definition, bool)
}

// DrainActivity wraps Queue.ProcessSession as a Temporal activity, run by
// the Workflow Engine's worker to advance one session's Action Queue per
// invocation (spec.md §4.8 calls this activity once per workflow step that
// triggers an action).
type DrainActivity struct {
	queue    *Queue
	registry Registry
}

// NewDrainActivity constructs a DrainActivity.
func NewDrainActivity(q *Queue, registry Registry) *DrainActivity {
	return &DrainActivity{queue: q, registry: registry}
}

// Execute is the activity function registered against a Temporal worker.
// It records a single heartbeat before the drain pass starts; no heartbeat
// is recorded while a Brand Action API call is in flight.
func (a *DrainActivity) Execute(ctx context.Context, in DrainSessionInput) (DrainSessionOutput, error) {
	if in.SessionID == "" {
		return DrainSessionOutput{}, fmt.Errorf("session_id is required")
	}
	activity.RecordHeartbeat(ctx, "draining")

	resolve := func(actionID string) (*actionregistry.Definition, bool) {
		return a.registry.ByID(actionID)
	}
	entry, err := a.queue.ProcessSession(ctx, in.SessionID, resolve)
	if err != nil {
		return DrainSessionOutput{}, err
	}
	if entry == nil {
		return DrainSessionOutput{Processed: false}, nil
	}
	return DrainSessionOutput{
		Processed: true,
		QueueID:   entry.QueueID,
		Status:    string(entry.Status),
	}, nil
}
