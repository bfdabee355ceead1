package schemaregistry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
	"github.com/Nikunjmattoo/bot-framework-sub000/schemaregistry"
)

func TestRegistrySnapshotIsolatesBrands(t *testing.T) {
	loader := schemaregistry.NewStaticLoader()
	loader.Set("brandA", []*schemaregistry.Definition{
		{SchemaID: "profile", Keys: []schemaregistry.KeyDefinition{
			{KeyName: "phone", Required: true, CompletionLogic: domain.CompletionNonEmpty},
		}},
	})
	loader.Set("brandB", []*schemaregistry.Definition{
		{SchemaID: "kyc"},
	})

	reg := schemaregistry.New(loader, nil, nil)

	snapA, err := reg.Snapshot(context.Background(), "brandA")
	require.NoError(t, err)
	_, ok := snapA.ByID("kyc")
	assert.False(t, ok)

	def, ok := snapA.ByID("profile")
	require.True(t, ok)
	assert.Len(t, def.RequiredKeys(), 1)
}
