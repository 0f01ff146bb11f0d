package schema

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Well-known record kinds.
const (
	KindPaper    = "paper"
	KindTaxonomy = "taxonomy"
)

// Registry holds one definition per record kind.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds a definition. Kinds must be unique.
func (r *Registry) Register(def *Definition) error {
	if def == nil {
		return &LoadError{Err: errors.New("definition is nil")}
	}
	kind := strings.TrimSpace(def.Kind)
	if kind == "" {
		return &LoadError{Source: def.Source, Err: errors.New("definition kind is required")}
	}
	if existing, ok := r.defs[kind]; ok {
		return &LoadError{Source: def.Source, Err: fmt.Errorf("duplicate kind %q (already defined by %s)", kind, existing.Source)}
	}
	r.defs[kind] = def
	return nil
}

// LoadDir registers every *.yaml, *.yml and *.json definition in dir.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &LoadError{Source: dir, Err: err}
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !isSchemaFile(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	if len(paths) == 0 {
		return &LoadError{Source: dir, Err: errors.New("no schema definitions found")}
	}
	sort.Strings(paths)
	for _, path := range paths {
		def, err := LoadFile(path)
		if err != nil {
			return err
		}
		if err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the definition for kind.
func (r *Registry) Get(kind string) (*Definition, bool) {
	def, ok := r.defs[kind]
	return def, ok
}

// Require is Get that reports a missing kind as a LoadError.
func (r *Registry) Require(kind string) (*Definition, error) {
	def, ok := r.defs[kind]
	if !ok {
		return nil, &LoadError{Err: fmt.Errorf("no definition registered for kind %q", kind)}
	}
	return def, nil
}

// Kinds lists registered kinds alphabetically.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.defs))
	for kind := range r.defs {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

func isSchemaFile(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") || strings.HasSuffix(lower, ".json")
}
