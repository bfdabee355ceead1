package schemaregistry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type yamlDocument struct {
	Schemas []*Definition `yaml:"schemas"`
}

// FileLoader loads schema registry documents from <dir>/<brand_id>.yaml.
type FileLoader struct {
	Dir string
}

// NewFileLoader constructs a FileLoader rooted at dir.
func NewFileLoader(dir string) *FileLoader {
	return &FileLoader{Dir: dir}
}

// Load reads and parses the YAML document for brandID.
func (l *FileLoader) Load(_ context.Context, brandID string) ([]*Definition, error) {
	path := filepath.Join(l.Dir, brandID+".yaml")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schemaregistry: read %s: %w", path, err)
	}
	var doc yamlDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("schemaregistry: parse %s: %w", path, err)
	}
	return doc.Schemas, nil
}

// StaticLoader serves pre-parsed definitions per brand, for tests and
// programmatic registration.
type StaticLoader struct {
	defs map[string][]*Definition
}

// NewStaticLoader constructs an empty StaticLoader.
func NewStaticLoader() *StaticLoader {
	return &StaticLoader{defs: make(map[string][]*Definition)}
}

// Set registers the definitions for a brand.
func (l *StaticLoader) Set(brandID string, defs []*Definition) {
	l.defs[brandID] = defs
}

// Load returns the definitions previously registered via Set.
func (l *StaticLoader) Load(_ context.Context, brandID string) ([]*Definition, error) {
	return l.defs[brandID], nil
}
