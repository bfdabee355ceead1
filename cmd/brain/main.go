// Command brain runs the Brain orchestration core as a standalone gRPC
// server.
//
// # Configuration
//
// Structural configuration (registry directories, per-brand popular actions
// and schema fetch limits) comes from a YAML file. Deployment-specific
// overrides (listen address, datastore connection strings) come from
// environment variables, so the same checked-in config file works across
// environments:
//
//	BRAIN_CONFIG       - path to the YAML config file (default: "./brain.yaml")
//	BRAIN_GRPC_ADDR    - gRPC listen address (default: ":8443")
//	BRAIN_MONGO_URI    - MongoDB connection URI (default: "mongodb://localhost:27017")
//	BRAIN_REDIS_ADDR   - Redis address, for schema cache + streaming fan-out (default: "localhost:6379")
//
// # Example
//
//	BRAIN_CONFIG=./brain.yaml BRAIN_MONGO_URI=mongodb://mongo:27017 ./brain
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"goa.design/clue/debug"
	cluelog "goa.design/clue/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/Nikunjmattoo/bot-framework-sub000/actionregistry"
	"github.com/Nikunjmattoo/bot-framework-sub000/activetask"
	"github.com/Nikunjmattoo/bot-framework-sub000/dlq"
	"github.com/Nikunjmattoo/bot-framework-sub000/internal/config"
	"github.com/Nikunjmattoo/bot-framework-sub000/internal/telemetry"
	"github.com/Nikunjmattoo/bot-framework-sub000/ledger"
	"github.com/Nikunjmattoo/bot-framework-sub000/narrative"
	"github.com/Nikunjmattoo/bot-framework-sub000/pipeline"
	"github.com/Nikunjmattoo/bot-framework-sub000/queue"
	"github.com/Nikunjmattoo/bot-framework-sub000/schemacache"
	"github.com/Nikunjmattoo/bot-framework-sub000/schemaregistry"
	"github.com/Nikunjmattoo/bot-framework-sub000/session"
	"github.com/Nikunjmattoo/bot-framework-sub000/streaming"
	"github.com/Nikunjmattoo/bot-framework-sub000/streaming/pulseclient"
	grpctransport "github.com/Nikunjmattoo/bot-framework-sub000/transport/grpc"
	"github.com/Nikunjmattoo/bot-framework-sub000/wires"
	"github.com/Nikunjmattoo/bot-framework-sub000/workflow"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx := context.Background()

	format := cluelog.FormatJSON
	if cluelog.IsTerminal() {
		format = cluelog.FormatTerminal
	}
	ctx = cluelog.Context(ctx, cluelog.WithFormat(format))
	logger := telemetry.NewClueLogger()
	metrics := telemetry.NewClueMetrics()

	cfg, err := config.Load(envOr("BRAIN_CONFIG", "./brain.yaml"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	mongoClient, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("connect to mongo: %w", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(ctx); err != nil {
			cluelog.Error(ctx, err, cluelog.KV{K: "msg", V: "disconnect mongo"})
		}
	}()
	if err := mongoClient.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}
	const mongoDB = "brain"

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			cluelog.Error(ctx, err, cluelog.KV{K: "msg", V: "close redis"})
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	actionLoader := actionregistry.NewFileLoader(cfg.Registries.ActionsDir)
	actions := actionregistry.New(actionLoader, logger, metrics)

	schemaLoader := schemaregistry.NewFileLoader(cfg.Registries.SchemasDir)
	schemas := schemaregistry.New(schemaLoader, logger, metrics)

	workflowDefs, err := workflow.LoadDefinitionsDir(cfg.Registries.WorkflowsDir)
	if err != nil {
		return fmt.Errorf("load workflow definitions: %w", err)
	}

	cacheStore := schemacache.NewRedisStore(redisClient, cfg.CacheTTL)
	fetcher := schemacache.NewHTTPFetcher(nil, 0, 0)
	schemaCache := schemacache.New(cacheStore, fetcher, logger, metrics)

	ledgerStore, err := ledger.NewMongoStore(ctx, ledger.MongoOptions{Client: mongoClient, Database: mongoDB})
	if err != nil {
		return fmt.Errorf("open ledger store: %w", err)
	}
	intents := ledger.New(ledgerStore)

	taskStore, err := activetask.NewMongoStore(ctx, activetask.MongoOptions{Client: mongoClient, Database: mongoDB})
	if err != nil {
		return fmt.Errorf("open active task store: %w", err)
	}
	activeTasks := activetask.New(taskStore)

	queueStore, err := queue.NewMongoStore(ctx, queue.MongoOptions{Client: mongoClient, Database: mongoDB})
	if err != nil {
		return fmt.Errorf("open queue store: %w", err)
	}
	execLogStore, err := queue.NewMongoExecutionLogStore(ctx, queue.MongoOptions{Client: mongoClient, Database: mongoDB})
	if err != nil {
		return fmt.Errorf("open execution log store: %w", err)
	}

	dlqStore, err := dlq.NewMongoStore(ctx, dlq.MongoOptions{Client: mongoClient, Database: mongoDB})
	if err != nil {
		return fmt.Errorf("open dead-letter store: %w", err)
	}
	// The Manager and Queue depend on each other (Queue writes through the
	// Manager as its DLQSink; the Manager requeues through the Queue), so
	// the Manager is built first with its queue/requeuer unbound and wired
	// up via BindQueue once the Queue exists.
	dlqManager := dlq.New(dlqStore, nil, nil, logger, metrics)

	pulseClient, err := pulseclient.New(pulseclient.Options{Redis: redisClient})
	if err != nil {
		return fmt.Errorf("open pulse client: %w", err)
	}
	streamingBus := streaming.New(streaming.Options{
		Sink: streaming.NewPulseSink(pulseClient),
		OnSinkError: func(sessionID string, err error) {
			cluelog.Error(ctx, err, cluelog.KV{K: "msg", V: "pulse sink emit failed"}, cluelog.KV{K: "session_id", V: sessionID})
		},
	})

	actionQueue := queue.New(queue.Options{
		Store:   queueStore,
		ExecLog: execLogStore,
		DLQ:     dlqManager,
		// Eligibility re-check at execution time is optional (queue.Queue
		// treats a nil Eligibility as "skip the re-check"). The Turn
		// Pipeline already evaluates eligibility before enqueuing; wiring a
		// second evaluator here would need an Eligibility adapter scoped to
		// a brand, which queue.Eligibility's (def, sessionID) signature has
		// no room for since Action Definitions don't carry their brand id.
		Eligibility: nil,
		Executor:    queue.NewHTTPExecutor(nil),
		Validator:   queue.NewSchemaParamValidator(),
		Progress:    streamingBus,
		Log:         logger,
		Metrics:     metrics,
	})
	dlqManager.BindQueue(queueStore, actionQueue)
	if err := actionQueue.RestoreOnStart(ctx); err != nil {
		return fmt.Errorf("restore queue on start: %w", err)
	}

	workflowStore, err := workflow.NewMongoStore(ctx, workflow.MongoOptions{Client: mongoClient, Database: mongoDB})
	if err != nil {
		return fmt.Errorf("open workflow store: %w", err)
	}

	wireStore, err := wires.NewMongoStore(ctx, wires.MongoOptions{Client: mongoClient, Database: mongoDB})
	if err != nil {
		return fmt.Errorf("open wires store: %w", err)
	}
	wireUpdater := wires.New(wireStore, intents, logger)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	sweepEngine := workflow.New(workflow.Options{
		Store:    workflowStore,
		Enqueuer: newSweepEnqueuer(actions, actionQueue, workflowStore),
		Defs:     workflowDefs,
		Log:      logger,
		Metrics:  metrics,
	})
	go runWorkflowTimeoutSweep(sweepCtx, sweepEngine, logger, cfg.WorkflowSweepInterval)

	p := pipeline.New(pipeline.Options{
		Actions:        actions,
		Schemas:        schemas,
		SchemaCache:    schemaCache,
		EvalExecLog:    execLogStore,
		EvalQueue:      queueStore,
		EvalPredicates: nil,
		Intents:        intents,
		ActiveTasks:    activeTasks,
		ActionQueue:    actionQueue,
		WorkflowStore:  workflowStore,
		WorkflowDefs:   workflowDefs,
		DLQ:            dlqManager,
		Narrator:       narrative.New(),
		WireUpdater:    wireUpdater,
		StreamingBus:   streamingBus,
		Locker:         session.NewLocker(),
		LockTimeout:    cfg.LockExpiry,
		PopularActions: cfg.PopularActions,
		Log:            logger,
		Metrics:        metrics,
	})

	srv := grpctransport.NewServer(p, streamingBus)

	return serveGRPC(ctx, cfg.GRPCAddr, srv)
}

// serveGRPC starts the gRPC server on addr and blocks until the process
// receives SIGINT/SIGTERM, then stops the server gracefully.
func serveGRPC(ctx context.Context, addr string, srv *grpctransport.Server) error {
	chain := grpc.ChainUnaryInterceptor(cluelog.UnaryServerInterceptor(ctx), debug.UnaryServerInterceptor())
	streamChain := grpc.ChainStreamInterceptor(cluelog.StreamServerInterceptor(ctx), debug.StreamServerInterceptor())

	gs := grpc.NewServer(chain, streamChain)
	grpctransport.RegisterBrainServiceServer(gs, srv)
	reflection.Register(gs)

	for svc, info := range gs.GetServiceInfo() {
		for _, m := range info.Methods {
			cluelog.Printf(ctx, "serving gRPC method %s", svc+"/"+m.Name)
		}
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %q: %w", addr, err)
	}

	errc := make(chan error, 1)
	go func() {
		cluelog.Printf(ctx, "gRPC server listening on %q", addr)
		errc <- gs.Serve(lis)
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		return err
	case sig := <-sigc:
		cluelog.Printf(ctx, "received %v, shutting down", sig)
	}

	stopped := make(chan struct{})
	go func() {
		gs.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(10 * time.Second):
		gs.Stop()
	}

	return nil
}

func envOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// sweepEnqueuer implements workflow.Enqueuer for the standalone timeout
// sweep, which runs outside any turn and so has no pre-loaded Action
// Registry snapshot to resolve rollback actions against. It recovers the
// owning Workflow Instance's tenant scope from the workflow store itself
// (by established convention the "instanceID" argument workflow.Engine
// passes here is always the workflow instance id, not the tenant instance
// id) and resolves a fresh, tenant-scoped snapshot per call.
type sweepEnqueuer struct {
	actions       *actionregistry.Registry
	queue         *queue.Queue
	workflowStore workflow.Store
}

func newSweepEnqueuer(actions *actionregistry.Registry, q *queue.Queue, workflowStore workflow.Store) *sweepEnqueuer {
	return &sweepEnqueuer{actions: actions, queue: q, workflowStore: workflowStore}
}

func (s *sweepEnqueuer) EnqueueStep(ctx context.Context, sessionID, brandID, workflowInstanceID, actionID string, params map[string]any) (string, error) {
	inst, err := s.workflowStore.Get(ctx, workflowInstanceID)
	if err != nil {
		return "", fmt.Errorf("resolve workflow instance %s: %w", workflowInstanceID, err)
	}
	snap, err := s.actions.Snapshot(ctx, brandID, inst.InstanceID)
	if err != nil {
		return "", fmt.Errorf("load action registry: %w", err)
	}
	def, ok := snap.ByID(actionID)
	if !ok {
		return "", fmt.Errorf("unknown action %s", actionID)
	}
	entry, err := s.queue.Enqueue(ctx, def, sessionID, brandID, inst.InstanceID, params, nil)
	if err != nil {
		return "", err
	}
	return entry.QueueID, nil
}

// runWorkflowTimeoutSweep periodically fails every in-progress Workflow
// Instance past its timeout_at (spec.md §4.8), rolling back completed
// steps that declare it. It runs independently of the Turn Pipeline since
// a timed-out instance may belong to a session with no turn currently in
// flight.
func runWorkflowTimeoutSweep(ctx context.Context, engine *workflow.Engine, log telemetry.Logger, interval time.Duration) {
	sweep := func() {
		if err := engine.CheckTimeouts(ctx); err != nil {
			log.Error(ctx, "workflow timeout sweep failed", "error", err)
		}
	}
	sweep()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
