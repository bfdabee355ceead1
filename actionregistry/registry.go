package actionregistry

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/Nikunjmattoo/bot-framework-sub000/internal/telemetry"
)

// Snapshot is an immutable view of every active Action Definition for one
// (brand_id, instance_id) tenant at a point in time. Readers hold a
// Snapshot; reloads never mutate one in place (spec.md §4.3).
type Snapshot struct {
	BrandID    string
	InstanceID string
	byID       map[string]*Definition
	ordered    []*Definition // preserves registry insertion order for tie-breaks
}

// ByID looks up a definition by action_id within the snapshot.
func (s *Snapshot) ByID(actionID string) (*Definition, bool) {
	if s == nil {
		return nil, false
	}
	d, ok := s.byID[actionID]
	return d, ok
}

// All returns every active definition in registry insertion order.
func (s *Snapshot) All() []*Definition {
	if s == nil {
		return nil
	}
	return s.ordered
}

// NewSnapshot builds a Snapshot from a list of definitions, keeping only the
// active ones and preserving input order for resolver tie-breaking.
func NewSnapshot(brandID, instanceID string, defs []*Definition) *Snapshot {
	s := &Snapshot{
		BrandID:    brandID,
		InstanceID: instanceID,
		byID:       make(map[string]*Definition, len(defs)),
	}
	for _, d := range defs {
		if d == nil || !d.IsActive {
			continue
		}
		s.byID[d.ActionID] = d
		s.ordered = append(s.ordered, d)
	}
	return s
}

// Loader loads the full set of action definitions for a tenant from
// wherever they are declared (YAML documents, a Mongo override store, ...).
type Loader interface {
	Load(ctx context.Context, brandID, instanceID string) ([]*Definition, error)
}

// Registry is the read-through, atomically-swapped cache of Action
// Definition snapshots, one per (brand_id, instance_id) tenant (I8: tenants
// never share a snapshot). It mirrors the teacher registry manager's
// read-mostly-snapshot-with-atomic-swap discipline, generalized from
// federated toolset catalogs to a single declarative loader.
type Registry struct {
	loader     Loader
	log        telemetry.Logger
	metrics    telemetry.Metrics
	snapshots  atomic.Pointer[map[string]*Snapshot] // keyed by brand_id+"/"+instance_id
}

// New constructs a Registry backed by loader. log/metrics may be nil; noop
// implementations are substituted.
func New(loader Loader, log telemetry.Logger, metrics telemetry.Metrics) *Registry {
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	r := &Registry{loader: loader, log: log, metrics: metrics}
	empty := make(map[string]*Snapshot)
	r.snapshots.Store(&empty)
	return r
}

func tenantKey(brandID, instanceID string) string {
	return brandID + "/" + instanceID
}

// Snapshot returns the current snapshot for a tenant, loading and caching it
// on first access. Subsequent calls return the cached snapshot until
// Invalidate or Refresh is called.
func (r *Registry) Snapshot(ctx context.Context, brandID, instanceID string) (*Snapshot, error) {
	key := tenantKey(brandID, instanceID)
	if m := *r.snapshots.Load(); m != nil {
		if s, ok := m[key]; ok {
			return s, nil
		}
	}
	return r.Refresh(ctx, brandID, instanceID)
}

// Refresh reloads a tenant's definitions from the Loader and atomically
// swaps the snapshot map so in-flight readers never observe a half-updated
// registry.
func (r *Registry) Refresh(ctx context.Context, brandID, instanceID string) (*Snapshot, error) {
	defs, err := r.loader.Load(ctx, brandID, instanceID)
	if err != nil {
		r.log.Error(ctx, "action registry refresh failed", "brand_id", brandID, "instance_id", instanceID, "error", err.Error())
		return nil, fmt.Errorf("actionregistry: load %s/%s: %w", brandID, instanceID, err)
	}
	for _, d := range defs {
		d.InstanceID = instanceID
	}
	snap := NewSnapshot(brandID, instanceID, defs)

	key := tenantKey(brandID, instanceID)
	for {
		old := r.snapshots.Load()
		next := make(map[string]*Snapshot, len(*old)+1)
		for k, v := range *old {
			next[k] = v
		}
		next[key] = snap
		if r.snapshots.CompareAndSwap(old, &next) {
			break
		}
	}
	r.metrics.IncCounter("actionregistry.refresh", 1, "brand_id", brandID, "instance_id", instanceID)
	return snap, nil
}

// Invalidate drops the cached snapshot for a tenant; the next Snapshot call
// reloads it.
func (r *Registry) Invalidate(brandID, instanceID string) {
	key := tenantKey(brandID, instanceID)
	for {
		old := r.snapshots.Load()
		if _, ok := (*old)[key]; !ok {
			return
		}
		next := make(map[string]*Snapshot, len(*old))
		for k, v := range *old {
			if k != key {
				next[k] = v
			}
		}
		if r.snapshots.CompareAndSwap(old, &next) {
			return
		}
	}
}
