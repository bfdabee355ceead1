// Package config loads the Brain's operational configuration from a
// declarative YAML document, mirroring the teacher pack's convention of
// keeping deployment configuration (registry locations, per-brand
// settings, store endpoints) out of Go source. Secrets and
// environment-specific overrides (connection URLs, ports) are read from
// environment variables at startup instead of being committed to YAML,
// the way registry/cmd/registry does it.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// BrandConfig is one brand's per-tenant settings that are not themselves
// an Action or Schema Definition: the popular_actions list the Wire
// Updater surfaces (spec.md §4.12) and a schema fetch rate limit, reported
// by SchemaFetchLimits. cmd/brain does not pass that limit to the schema
// fetcher, so it is not applied to outbound calls.
type BrandConfig struct {
	PopularActions      []string `yaml:"popular_actions"`
	SchemaFetchRatePerS float64  `yaml:"schema_fetch_rate_per_second"`
	SchemaFetchBurst    int      `yaml:"schema_fetch_burst"`
}

// RegistriesConfig locates the declarative YAML documents the Action
// Registry, Schema Registry, and Workflow Definitions loaders read from.
type RegistriesConfig struct {
	ActionsDir   string `yaml:"actions_dir"`
	SchemasDir   string `yaml:"schemas_dir"`
	WorkflowsDir string `yaml:"workflows_dir"`
}

// Config is the Brain's full operational configuration.
type Config struct {
	Registries RegistriesConfig       `yaml:"registries"`
	Brands     map[string]BrandConfig `yaml:"brands"`

	// Overridable via environment at Load time; see applyEnvOverrides.
	GRPCAddr              string
	MongoURI              string
	RedisAddr             string
	CacheTTL              time.Duration
	LockExpiry            time.Duration
	WorkflowSweepInterval time.Duration
}

const (
	defaultGRPCAddr              = ":8443"
	defaultMongoURI              = "mongodb://localhost:27017"
	defaultRedisAddr             = "localhost:6379"
	defaultCacheTTL              = 60 * time.Second
	defaultLockExpiry            = 30 * time.Second
	defaultWorkflowSweepInterval = 30 * time.Second
)

// Load reads and parses the YAML document at path, then applies
// environment variable overrides for the deployment-specific fields that
// are never checked into the declarative document.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// PopularActions returns brandID's configured popular_actions, or nil if
// the brand carries none.
func (c *Config) PopularActions(brandID string) []string {
	return c.Brands[brandID].PopularActions
}

// SchemaFetchLimits returns brandID's outbound schema-fetch rate limit,
// falling back to an unlimited (zero) rate when unconfigured.
func (c *Config) SchemaFetchLimits(brandID string) (ratePerSecond float64, burst int) {
	b := c.Brands[brandID]
	return b.SchemaFetchRatePerS, b.SchemaFetchBurst
}

func (c *Config) applyEnvOverrides() {
	c.GRPCAddr = envOr("BRAIN_GRPC_ADDR", defaultGRPCAddr)
	c.MongoURI = envOr("BRAIN_MONGO_URI", defaultMongoURI)
	c.RedisAddr = envOr("BRAIN_REDIS_ADDR", defaultRedisAddr)
	c.CacheTTL = envDurationOr("BRAIN_SCHEMA_CACHE_TTL", defaultCacheTTL)
	c.LockExpiry = envDurationOr("BRAIN_SESSION_LOCK_EXPIRY", defaultLockExpiry)
	c.WorkflowSweepInterval = envDurationOr("BRAIN_WORKFLOW_SWEEP_INTERVAL", defaultWorkflowSweepInterval)
}

func envOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envDurationOr(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

