// Package taxonomy holds the controlled vocabulary of domains and their
// subdomains. Two document layouts are accepted:
//
//	version: 1
//	domains:
//	  - name: chemical
//	    subdomains: [metals, chemical.airpollution.ambient]
//
// or a plain mapping of domain to subdomain list. Subdomains may be written as
// tails ("metals") or full keys ("chemical.metals"); both resolve to the tail.
package taxonomy

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/paper-catalog/internal/schema"
)

// LoadError reports a taxonomy source that cannot be indexed.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("taxonomy: %v", e.Err)
	}
	return fmt.Sprintf("taxonomy: %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Entry is one domain and its valid subdomain tails.
type Entry struct {
	Domain     string   `yaml:"name" json:"domain"`
	Subdomains []string `yaml:"subdomains" json:"subdomains"`
}

// Pair names a domain/subdomain combination observed on a paper.
type Pair struct {
	Domain    string
	Subdomain string
}

// Index maps each domain to its subdomain set.
type Index struct {
	version  int
	entries  []Entry
	byDomain map[string]map[string]struct{}
}

// Option customizes parsing.
type Option func(*parseOptions)

type parseOptions struct {
	def *schema.Definition
}

// WithSchema checks every entry against a taxonomy definition whose fields
// are "name" and "subdomains".
func WithSchema(def *schema.Definition) Option {
	return func(o *parseOptions) {
		o.def = def
	}
}

type rawEntry struct {
	Name       string `yaml:"name"`
	Subdomains []any  `yaml:"subdomains"`
}

type document struct {
	Version int       `yaml:"version"`
	Domains yaml.Node `yaml:"domains"`
}

// Parse builds an index from YAML/JSON bytes.
func Parse(data []byte, opts ...Option) (*Index, error) {
	var options parseOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &LoadError{Err: errors.New("taxonomy payload is empty")}
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Err: fmt.Errorf("decode taxonomy: %w", err)}
	}
	raws, err := decodeDomains(&doc.Domains)
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	idx := &Index{version: doc.Version, byDomain: make(map[string]map[string]struct{}, len(raws))}
	if idx.version == 0 {
		idx.version = 1
	}
	for i, raw := range raws {
		if options.def != nil {
			if err := conformEntry(options.def, raw); err != nil {
				return nil, &LoadError{Err: fmt.Errorf("domains[%d]: %w", i, err)}
			}
		}
		entry, err := normalizeEntry(raw)
		if err != nil {
			return nil, &LoadError{Err: fmt.Errorf("domains[%d]: %w", i, err)}
		}
		if _, exists := idx.byDomain[entry.Domain]; exists {
			return nil, &LoadError{Err: fmt.Errorf("duplicate domain %q", entry.Domain)}
		}
		idx.add(entry)
	}
	return idx, nil
}

// Load reads and indexes the taxonomy at path.
func Load(path string, opts ...Option) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	idx, err := Parse(data, opts...)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			loadErr.Source = path
		}
		return nil, err
	}
	return idx, nil
}

func decodeDomains(node *yaml.Node) ([]rawEntry, error) {
	switch node.Kind {
	case 0:
		return nil, errors.New("domains is required")
	case yaml.SequenceNode:
		var raws []rawEntry
		if err := node.Decode(&raws); err != nil {
			return nil, fmt.Errorf("decode domains: %w", err)
		}
		return raws, nil
	case yaml.MappingNode:
		raws := make([]rawEntry, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var subs []any
			if err := node.Content[i+1].Decode(&subs); err != nil {
				return nil, fmt.Errorf("domain %q: decode subdomains: %w", node.Content[i].Value, err)
			}
			raws = append(raws, rawEntry{Name: node.Content[i].Value, Subdomains: subs})
		}
		return raws, nil
	default:
		return nil, fmt.Errorf("line %d: domains must be a list or mapping", node.Line)
	}
}

func conformEntry(def *schema.Definition, raw rawEntry) error {
	values := map[string]any{"name": raw.Name}
	if raw.Subdomains != nil {
		values["subdomains"] = raw.Subdomains
	}
	issues := def.Conform(values)
	if len(issues) == 0 {
		return nil
	}
	var parts []string
	for _, issue := range issues {
		switch issue.Kind {
		case schema.IssueMissing:
			parts = append(parts, "missing field: "+issue.Field)
		default:
			parts = append(parts, "type mismatch: "+issue.Field)
		}
	}
	return errors.New(strings.Join(parts, "; "))
}

func normalizeEntry(raw rawEntry) (Entry, error) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return Entry{}, errors.New("name is required")
	}
	entry := Entry{Domain: name}
	seen := make(map[string]bool, len(raw.Subdomains))
	for j, value := range raw.Subdomains {
		s, ok := value.(string)
		if !ok {
			return Entry{}, fmt.Errorf("domain %q: subdomains[%d] must be a string", name, j)
		}
		tail := Tail(name, s)
		if tail == "" || seen[tail] {
			continue
		}
		seen[tail] = true
		entry.Subdomains = append(entry.Subdomains, tail)
	}
	if len(entry.Subdomains) == 0 {
		return Entry{}, fmt.Errorf("domain %q has no subdomains", name)
	}
	return entry, nil
}

func (i *Index) add(entry Entry) {
	set := make(map[string]struct{}, len(entry.Subdomains))
	for _, s := range entry.Subdomains {
		set[s] = struct{}{}
	}
	i.byDomain[entry.Domain] = set
	i.entries = append(i.entries, entry)
}

// Tail strips a "domain." prefix from a subdomain key.
func Tail(domain, subdomain string) string {
	s := strings.TrimSpace(subdomain)
	if prefix := domain + "."; strings.HasPrefix(s, prefix) {
		return s[len(prefix):]
	}
	return s
}

// IsValid reports whether domain exists and subdomain is one of its subdomains.
func (i *Index) IsValid(domain, subdomain string) bool {
	if i == nil {
		return false
	}
	set, ok := i.byDomain[domain]
	if !ok {
		return false
	}
	_, ok = set[Tail(domain, subdomain)]
	return ok
}

// Entries returns a copy of the entries in document order.
func (i *Index) Entries() []Entry {
	if i == nil {
		return nil
	}
	out := make([]Entry, len(i.entries))
	for j, e := range i.entries {
		out[j] = Entry{Domain: e.Domain, Subdomains: append([]string(nil), e.Subdomains...)}
	}
	return out
}

// Domains lists domain names in document order.
func (i *Index) Domains() []string {
	if i == nil {
		return nil
	}
	out := make([]string, len(i.entries))
	for j, e := range i.entries {
		out[j] = e.Domain
	}
	return out
}

// Changes summarizes what Sync added.
type Changes struct {
	AddedDomains    []string
	AddedSubdomains []string
}

// Empty reports whether Sync changed nothing.
func (c Changes) Empty() bool {
	return len(c.AddedDomains) == 0 && len(c.AddedSubdomains) == 0
}

// Sync adds every domain and subdomain named in pairs that the index does not
// know yet, then sorts domains by name and subdomains case-insensitively.
func (i *Index) Sync(pairs []Pair) Changes {
	var changes Changes
	sorted := append([]Pair(nil), pairs...)
	sort.Slice(sorted, func(a, b int) bool {
		if sorted[a].Domain != sorted[b].Domain {
			return sorted[a].Domain < sorted[b].Domain
		}
		return sorted[a].Subdomain < sorted[b].Subdomain
	})
	for _, pair := range sorted {
		domain := strings.TrimSpace(pair.Domain)
		tail := Tail(domain, pair.Subdomain)
		if domain == "" || tail == "" {
			continue
		}
		set, ok := i.byDomain[domain]
		if !ok {
			set = make(map[string]struct{})
			i.byDomain[domain] = set
			i.entries = append(i.entries, Entry{Domain: domain})
			changes.AddedDomains = append(changes.AddedDomains, domain)
		}
		if _, ok := set[tail]; ok {
			continue
		}
		set[tail] = struct{}{}
		for j := range i.entries {
			if i.entries[j].Domain == domain {
				i.entries[j].Subdomains = append(i.entries[j].Subdomains, tail)
				break
			}
		}
		changes.AddedSubdomains = append(changes.AddedSubdomains, domain+"."+tail)
	}
	sort.SliceStable(i.entries, func(a, b int) bool { return i.entries[a].Domain < i.entries[b].Domain })
	for j := range i.entries {
		subs := i.entries[j].Subdomains
		sort.SliceStable(subs, func(a, b int) bool { return strings.ToLower(subs[a]) < strings.ToLower(subs[b]) })
	}
	return changes
}

// Marshal renders the index in the list layout.
func (i *Index) Marshal() ([]byte, error) {
	doc := struct {
		Version int     `yaml:"version"`
		Domains []Entry `yaml:"domains"`
	}{Version: i.version, Domains: i.entries}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("taxonomy: encode: %w", err)
	}
	return data, nil
}

// Save writes the index to path, replacing the previous document.
func (i *Index) Save(path string) error {
	data, err := i.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("taxonomy: ensure dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("taxonomy: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("taxonomy: replace %s: %w", path, err)
	}
	return nil
}
