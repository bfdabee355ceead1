package actionregistry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nikunjmattoo/bot-framework-sub000/actionregistry"
)

func TestRegistrySnapshotIsolatesTenants(t *testing.T) {
	loader := actionregistry.NewStaticLoader()
	loader.Set("brandA", "inst1", []*actionregistry.Definition{
		{ActionID: "check_balance", CanonicalName: "check balance", IsActive: true},
	})
	loader.Set("brandB", "inst1", []*actionregistry.Definition{
		{ActionID: "transfer_funds", CanonicalName: "transfer funds", IsActive: true},
	})

	reg := actionregistry.New(loader, nil, nil)

	snapA, err := reg.Snapshot(context.Background(), "brandA", "inst1")
	require.NoError(t, err)
	_, ok := snapA.ByID("transfer_funds")
	assert.False(t, ok, "tenant A must not see tenant B's definitions")

	snapB, err := reg.Snapshot(context.Background(), "brandB", "inst1")
	require.NoError(t, err)
	_, ok = snapB.ByID("transfer_funds")
	assert.True(t, ok)
}

func TestRegistrySkipsInactiveDefinitions(t *testing.T) {
	loader := actionregistry.NewStaticLoader()
	loader.Set("brandA", "inst1", []*actionregistry.Definition{
		{ActionID: "retired_action", CanonicalName: "retired", IsActive: false},
		{ActionID: "live_action", CanonicalName: "live", IsActive: true},
	})

	reg := actionregistry.New(loader, nil, nil)
	snap, err := reg.Snapshot(context.Background(), "brandA", "inst1")
	require.NoError(t, err)

	_, ok := snap.ByID("retired_action")
	assert.False(t, ok)
	_, ok = snap.ByID("live_action")
	assert.True(t, ok)
}

func TestRegistryRefreshSwapsAtomically(t *testing.T) {
	loader := actionregistry.NewStaticLoader()
	loader.Set("brandA", "inst1", []*actionregistry.Definition{
		{ActionID: "a1", CanonicalName: "one", IsActive: true},
	})
	reg := actionregistry.New(loader, nil, nil)

	snap1, err := reg.Snapshot(context.Background(), "brandA", "inst1")
	require.NoError(t, err)
	_, ok := snap1.ByID("a1")
	require.True(t, ok)

	loader.Set("brandA", "inst1", []*actionregistry.Definition{
		{ActionID: "a2", CanonicalName: "two", IsActive: true},
	})
	snap2, err := reg.Refresh(context.Background(), "brandA", "inst1")
	require.NoError(t, err)

	// snap1 is untouched by the refresh: a fresh struct replaced it.
	_, ok = snap1.ByID("a2")
	assert.False(t, ok)
	_, ok = snap2.ByID("a2")
	assert.True(t, ok)
}

func TestInvalidateForcesReload(t *testing.T) {
	loader := actionregistry.NewStaticLoader()
	loader.Set("brandA", "inst1", []*actionregistry.Definition{
		{ActionID: "a1", CanonicalName: "one", IsActive: true},
	})
	reg := actionregistry.New(loader, nil, nil)

	_, err := reg.Snapshot(context.Background(), "brandA", "inst1")
	require.NoError(t, err)

	loader.Set("brandA", "inst1", nil)
	reg.Invalidate("brandA", "inst1")

	snap, err := reg.Snapshot(context.Background(), "brandA", "inst1")
	require.NoError(t, err)
	assert.Empty(t, snap.All())
}
