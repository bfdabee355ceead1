package schemaregistry

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/Nikunjmattoo/bot-framework-sub000/internal/telemetry"
)

// Snapshot is an immutable view of every Schema Definition for one brand at
// a point in time (spec.md I8: schemas are scoped by brand_id).
type Snapshot struct {
	BrandID string
	byID    map[string]*Definition
}

// ByID looks up a schema definition by schema_id within the snapshot.
func (s *Snapshot) ByID(schemaID string) (*Definition, bool) {
	if s == nil {
		return nil, false
	}
	d, ok := s.byID[schemaID]
	return d, ok
}

// NewSnapshot builds a Snapshot from a list of schema definitions.
func NewSnapshot(brandID string, defs []*Definition) *Snapshot {
	s := &Snapshot{BrandID: brandID, byID: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		if d == nil {
			continue
		}
		s.byID[d.SchemaID] = d
	}
	return s
}

// Loader loads the full set of schema definitions for a brand.
type Loader interface {
	Load(ctx context.Context, brandID string) ([]*Definition, error)
}

// Registry is the read-through, atomically-swapped cache of Schema
// Definition snapshots, one per brand_id, mirroring actionregistry.Registry.
type Registry struct {
	loader    Loader
	log       telemetry.Logger
	metrics   telemetry.Metrics
	snapshots atomic.Pointer[map[string]*Snapshot]
}

// New constructs a Registry backed by loader.
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

// Snapshot returns the current snapshot for a brand, loading it on first
// access.
func (r *Registry) Snapshot(ctx context.Context, brandID string) (*Snapshot, error) {
	if m := *r.snapshots.Load(); m != nil {
		if s, ok := m[brandID]; ok {
			return s, nil
		}
	}
	return r.Refresh(ctx, brandID)
}

// Refresh reloads a brand's schema definitions and atomically swaps the
// snapshot map.
func (r *Registry) Refresh(ctx context.Context, brandID string) (*Snapshot, error) {
	defs, err := r.loader.Load(ctx, brandID)
	if err != nil {
		r.log.Error(ctx, "schema registry refresh failed", "brand_id", brandID, "error", err.Error())
		return nil, fmt.Errorf("schemaregistry: load %s: %w", brandID, err)
	}
	for _, d := range defs {
		d.BrandID = brandID
	}
	snap := NewSnapshot(brandID, defs)

	for {
		old := r.snapshots.Load()
		next := make(map[string]*Snapshot, len(*old)+1)
		for k, v := range *old {
			next[k] = v
		}
		next[brandID] = snap
		if r.snapshots.CompareAndSwap(old, &next) {
			break
		}
	}
	r.metrics.IncCounter("schemaregistry.refresh", 1, "brand_id", brandID)
	return snap, nil
}

// Invalidate drops the cached snapshot for a brand.
func (r *Registry) Invalidate(brandID string) {
	for {
		old := r.snapshots.Load()
		if _, ok := (*old)[brandID]; !ok {
			return
		}
		next := make(map[string]*Snapshot, len(*old))
		for k, v := range *old {
			if k != brandID {
				next[k] = v
			}
		}
		if r.snapshots.CompareAndSwap(old, &next) {
			return
		}
	}
}
