package schemacache

import (
	"context"
	"sync"
	"time"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
	"github.com/Nikunjmattoo/bot-framework-sub000/internal/telemetry"
	"github.com/Nikunjmattoo/bot-framework-sub000/schemaregistry"
)

// Store is the backing key-value layer for cached Schema States. MemoryStore
// is the in-process default; a Redis-backed implementation provides
// cross-process sharing for multi-instance deployments (spec.md §11).
type Store interface {
	Get(ctx context.Context, key string) (*State, bool, error)
	Set(ctx context.Context, key string, state *State) error
}

// MemoryStore is an in-process Store, grounded directly on the teacher's
// runtime/registry.MemoryCache entry map.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*State
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*State)}
}

// Get returns the cached state for key, if any.
func (m *MemoryStore) Get(_ context.Context, key string) (*State, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.entries[key]
	return s, ok, nil
}

// Set stores state under key.
func (m *MemoryStore) Set(_ context.Context, key string, state *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = state
	return nil
}

func cacheKey(sessionID, schemaID string) string {
	return sessionID + "/" + schemaID
}

// Cache is the Schema State Cache (spec.md §4.4): per-session fetched
// schema data with TTL expiry, stale-fallback, and single-flighted fetches.
type Cache struct {
	store   Store
	fetcher Fetcher
	log     telemetry.Logger
	metrics telemetry.Metrics
	flights *flightGroup
	now     func() time.Time
}

// New constructs a Cache backed by store and fetcher.
func New(store Store, fetcher Fetcher, log telemetry.Logger, metrics telemetry.Metrics) *Cache {
	if store == nil {
		store = NewMemoryStore()
	}
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Cache{
		store:   store,
		fetcher: fetcher,
		log:     log,
		metrics: metrics,
		flights: newFlightGroup(),
		now:     time.Now,
	}
}

// Get returns the Schema State for (sessionID, def.SchemaID), serving a
// cache hit when a non-expired entry exists and forceRefresh is false.
// Otherwise it fetches upstream (single-flighted per key), falling back to
// a stale entry or a synthetic error state on failure, per spec.md §4.4.
func (c *Cache) Get(ctx context.Context, sessionID string, def *schemaregistry.Definition, forceRefresh bool) (*State, error) {
	key := cacheKey(sessionID, def.SchemaID)
	now := c.now()

	if !forceRefresh {
		if cached, ok, _ := c.store.Get(ctx, key); ok && cached != nil && !cached.Expired(now) {
			c.metrics.IncCounter("schemacache.hit", 1, "schema_id", def.SchemaID)
			return cached, nil
		}
	}

	state, err := c.flights.Do(key, func() (*State, error) {
		return c.refresh(ctx, sessionID, def)
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (c *Cache) refresh(ctx context.Context, sessionID string, def *schemaregistry.Definition) (*State, error) {
	now := c.now()
	prior, hadPrior, _ := c.store.Get(ctx, cacheKey(sessionID, def.SchemaID))

	apiOK, values, fetchErr := c.fetcher.Fetch(ctx, def)
	if fetchErr != nil || !apiOK {
		c.metrics.IncCounter("schemacache.fetch_failure", 1, "schema_id", def.SchemaID)
		if hadPrior && prior != nil {
			staleTolerance := time.Duration(def.StaleToleranceMS) * time.Millisecond
			if now.Sub(prior.FetchedAt) <= staleTolerance {
				stale := *prior
				stale.APIStatus = domain.APIStatusStale
				c.log.Warn(ctx, "schema fetch failed, serving stale", "schema_id", def.SchemaID, "session_id", sessionID)
				return &stale, nil
			}
		}
		errorState := synthesizeErrorState(sessionID, def, now)
		if err := c.store.Set(ctx, cacheKey(sessionID, def.SchemaID), errorState); err != nil {
			return nil, err
		}
		return errorState, nil
	}

	keys := make(map[string]KeyState, len(def.Keys))
	for _, k := range def.Keys {
		keys[k.KeyName] = deriveKeyState(k, values[k.KeyName])
	}

	var requiredNames []string
	completeRequired := 0
	for _, k := range def.RequiredKeys() {
		requiredNames = append(requiredNames, k.KeyName)
		if keys[k.KeyName].Status == domain.KeyComplete {
			completeRequired++
		}
	}
	percent := 100
	if len(requiredNames) > 0 {
		percent = int(float64(completeRequired) / float64(len(requiredNames)) * 100)
	}

	state := &State{
		SessionID:         sessionID,
		SchemaID:          def.SchemaID,
		FetchedAt:         now,
		ExpiresAt:         now.Add(time.Duration(def.CacheTTLMS) * time.Millisecond),
		APIStatus:         domain.APIStatusOK,
		Keys:              keys,
		SchemaStatus:      deriveSchemaStatus(keys, requiredNames),
		CompletionPercent: percent,
	}
	if err := c.store.Set(ctx, cacheKey(sessionID, def.SchemaID), state); err != nil {
		return nil, err
	}
	return state, nil
}

// synthesizeErrorState builds the "all none" fallback state spec.md §4.4
// mandates when there is no usable prior entry to serve stale.
func synthesizeErrorState(sessionID string, def *schemaregistry.Definition, now time.Time) *State {
	keys := make(map[string]KeyState, len(def.Keys))
	for _, k := range def.Keys {
		keys[k.KeyName] = KeyState{Status: domain.KeyNone}
	}
	return &State{
		SessionID:    sessionID,
		SchemaID:     def.SchemaID,
		FetchedAt:    now,
		ExpiresAt:    now, // treated as already expired: B3 semantics, no stale window for a synthetic state
		APIStatus:    domain.APIStatusError,
		Keys:         keys,
		SchemaStatus: domain.SchemaIncomplete,
	}
}
