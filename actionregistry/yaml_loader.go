package actionregistry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// yamlDocument is the on-disk shape of one instance's action registry
// document: a flat list of action definitions declared outside of Go
// source, the way the teacher keeps registry configuration declarative.
type yamlDocument struct {
	Actions []*Definition `yaml:"actions"`
}

// FileLoader loads action registry documents from
// <dir>/<brand_id>/<instance_id>.yaml.
type FileLoader struct {
	Dir string
}

// NewFileLoader constructs a FileLoader rooted at dir.
func NewFileLoader(dir string) *FileLoader {
	return &FileLoader{Dir: dir}
}

// Load reads and parses the YAML document for (brandID, instanceID).
func (l *FileLoader) Load(_ context.Context, brandID, instanceID string) ([]*Definition, error) {
	path := filepath.Join(l.Dir, brandID, instanceID+".yaml")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("actionregistry: read %s: %w", path, err)
	}
	var doc yamlDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("actionregistry: parse %s: %w", path, err)
	}
	return doc.Actions, nil
}

// StaticLoader serves an in-memory, pre-parsed set of definitions per
// tenant. Used in tests and for programmatic registration.
type StaticLoader struct {
	defs map[string][]*Definition
}

// NewStaticLoader constructs an empty StaticLoader.
func NewStaticLoader() *StaticLoader {
	return &StaticLoader{defs: make(map[string][]*Definition)}
}

// Set registers the definitions for a tenant.
func (l *StaticLoader) Set(brandID, instanceID string, defs []*Definition) {
	l.defs[tenantKey(brandID, instanceID)] = defs
}

// Load returns the definitions previously registered via Set.
func (l *StaticLoader) Load(_ context.Context, brandID, instanceID string) ([]*Definition, error) {
	return l.defs[tenantKey(brandID, instanceID)], nil
}
