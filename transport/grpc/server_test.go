package grpc_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gogrpc "google.golang.org/grpc"

	"github.com/Nikunjmattoo/bot-framework-sub000/actionregistry"
	"github.com/Nikunjmattoo/bot-framework-sub000/activetask"
	"github.com/Nikunjmattoo/bot-framework-sub000/dlq"
	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
	"github.com/Nikunjmattoo/bot-framework-sub000/eligibility"
	"github.com/Nikunjmattoo/bot-framework-sub000/ledger"
	"github.com/Nikunjmattoo/bot-framework-sub000/narrative"
	"github.com/Nikunjmattoo/bot-framework-sub000/pipeline"
	"github.com/Nikunjmattoo/bot-framework-sub000/queue"
	"github.com/Nikunjmattoo/bot-framework-sub000/schemacache"
	"github.com/Nikunjmattoo/bot-framework-sub000/schemaregistry"
	"github.com/Nikunjmattoo/bot-framework-sub000/session"
	"github.com/Nikunjmattoo/bot-framework-sub000/streaming"
	grpctransport "github.com/Nikunjmattoo/bot-framework-sub000/transport/grpc"
	"github.com/Nikunjmattoo/bot-framework-sub000/wires"
	"github.com/Nikunjmattoo/bot-framework-sub000/workflow"
)

func TestJSONCodecRoundTrip(t *testing.T) {
	req := &grpctransport.ProcessTurnRequest{
		SessionID: "sess-1",
		BrandID:   "brand-1",
	}

	data, err := json.Marshal(req)
	require.NoError(t, err)

	var got grpctransport.ProcessTurnRequest
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, req.SessionID, got.SessionID)
	assert.Equal(t, req.BrandID, got.BrandID)
}

func TestServiceDescMatchesServerInterface(t *testing.T) {
	assert.Equal(t, "brain.BrainService", grpctransport.ServiceDesc.ServiceName)
	require.Len(t, grpctransport.ServiceDesc.Methods, 1)
	assert.Equal(t, "ProcessTurn", grpctransport.ServiceDesc.Methods[0].MethodName)
	require.Len(t, grpctransport.ServiceDesc.Streams, 1)
	assert.Equal(t, "StreamUpdates", grpctransport.ServiceDesc.Streams[0].StreamName)
	assert.True(t, grpctransport.ServiceDesc.Streams[0].ServerStreams)
}

type stubActionLoader struct{ defs []*actionregistry.Definition }

func (s *stubActionLoader) Load(_ context.Context, _, _ string) ([]*actionregistry.Definition, error) {
	return s.defs, nil
}

type stubSchemaLoader struct{ defs []*schemaregistry.Definition }

func (s *stubSchemaLoader) Load(_ context.Context, _ string) ([]*schemaregistry.Definition, error) {
	return s.defs, nil
}

type stubFetcher struct{}

func (stubFetcher) Fetch(_ context.Context, _ *schemaregistry.Definition) (bool, map[string]any, error) {
	return true, map[string]any{}, nil
}

type stubEligibility struct{}

func (stubEligibility) Evaluate(_ context.Context, _ *actionregistry.Definition, _ string) (bool, []string) {
	return true, nil
}

type stubWorkflowDefs map[string]*workflow.Definition

func (s stubWorkflowDefs) Lookup(workflowID string) (*workflow.Definition, bool) {
	d, ok := s[workflowID]
	return d, ok
}

// newTestServer builds a Server around a minimal, fully in-memory Pipeline,
// enough to exercise ProcessTurn's wiring without any external dependency.
func newTestServer(t *testing.T) *grpctransport.Server {
	t.Helper()

	actions := actionregistry.New(&stubActionLoader{}, nil, nil)
	schemas := schemaregistry.New(&stubSchemaLoader{}, nil, nil)
	cache := schemacache.New(schemacache.NewMemoryStore(), stubFetcher{}, nil, nil)
	intents := ledger.New(ledger.NewMemoryStore())
	tasks := activetask.New(activetask.NewMemoryStore())
	execLog := queue.NewMemoryExecutionLogStore()
	dlqManager := dlq.New(dlq.NewMemoryStore(), nil, nil, nil, nil)
	queueStore := queue.NewMemoryStore()
	q := queue.New(queue.Options{
		Store:       queueStore,
		ExecLog:     execLog,
		DLQ:         dlqManager,
		Eligibility: stubEligibility{},
	})
	workflows := workflow.NewMemoryStore()
	wireStore := wires.NewMemoryStore()
	wireUpdater := wires.New(wireStore, intents, nil)
	bus := streaming.New(streaming.Options{})

	p := pipeline.New(pipeline.Options{
		Actions:        actions,
		Schemas:        schemas,
		SchemaCache:    cache,
		EvalExecLog:    execLog,
		EvalQueue:      queueStore,
		EvalPredicates: nil,
		Intents:        intents,
		ActiveTasks:    tasks,
		ActionQueue:    q,
		WorkflowStore:  workflows,
		WorkflowDefs:   stubWorkflowDefs{},
		DLQ:            dlqManager,
		Narrator:       narrative.New(),
		WireUpdater:    wireUpdater,
		StreamingBus:   bus,
		Locker:         session.NewLocker(),
	})

	return grpctransport.NewServer(p, bus)
}

func TestServerProcessTurnEmptyIntentsReturnsEmptyResponse(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.ProcessTurn(context.Background(), &grpctransport.ProcessTurnRequest{
		SessionID:  "sess-1",
		BrandID:    "brand-1",
		InstanceID: "instance-1",
		TurnNumber: 1,
		Intents:    nil,
		User:       eligibility.UserContext{},
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Narratives)
}

// fakeStreamUpdatesServer is a minimal BrainService_StreamUpdatesServer that
// records sent responses and cancels itself once it has seen enough.
type fakeStreamUpdatesServer struct {
	gogrpc.ServerStream
	ctx  context.Context
	sent []domain.StreamEvent
	done chan struct{}
}

func (f *fakeStreamUpdatesServer) Context() context.Context { return f.ctx }

func (f *fakeStreamUpdatesServer) Send(resp *grpctransport.StreamUpdatesResponse) error {
	f.sent = append(f.sent, resp.Event)
	close(f.done)
	return nil
}

func TestServerStreamUpdatesForwardsNewEvents(t *testing.T) {
	srv := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	fake := &fakeStreamUpdatesServer{ctx: ctx, done: make(chan struct{})}

	go srv.Bus.Emit(ctx, "sess-1", domain.UpdateActionProgress, map[string]any{"queue_id": "q-1"})

	go func() {
		_ = srv.StreamUpdates(&grpctransport.StreamUpdatesRequest{SessionID: "sess-1"}, fake)
	}()

	select {
	case <-fake.done:
		require.Len(t, fake.sent, 1)
		assert.Equal(t, domain.UpdateActionProgress, fake.sent[0].UpdateType)
	case <-ctx.Done():
		t.Fatal("timed out waiting for streamed event")
	}
}
