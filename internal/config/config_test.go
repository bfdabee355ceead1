package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nikunjmattoo/bot-framework-sub000/internal/config"
)

const sampleYAML = `
registries:
  actions_dir: ./registries/actions
  schemas_dir: ./registries/schemas
  workflows_dir: ./registries/workflows
brands:
  brand-1:
    popular_actions: ["check_balance", "book_flight"]
    schema_fetch_rate_per_second: 5
    schema_fetch_burst: 10
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "brain.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadParsesRegistriesAndBrands(t *testing.T) {
	path := writeConfig(t, sampleYAML)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "./registries/actions", cfg.Registries.ActionsDir)
	assert.Equal(t, "./registries/workflows", cfg.Registries.WorkflowsDir)
	assert.Equal(t, []string{"check_balance", "book_flight"}, cfg.PopularActions("brand-1"))

	rate, burst := cfg.SchemaFetchLimits("brand-1")
	assert.Equal(t, 5.0, rate)
	assert.Equal(t, 10, burst)
}

func TestPopularActionsEmptyForUnknownBrand(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Nil(t, cfg.PopularActions("brand-unknown"))
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := writeConfig(t, sampleYAML)

	t.Setenv("BRAIN_GRPC_ADDR", ":9999")
	t.Setenv("BRAIN_MONGO_URI", "mongodb://example:27017")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.GRPCAddr)
	assert.Equal(t, "mongodb://example:27017", cfg.MongoURI)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
