// Package catalogtest writes small sample catalogs for tests.
package catalogtest

import (
	"os"
	"path/filepath"
	"testing"
)

// PaperSchema is the paper definition used by the sample catalog.
const PaperSchema = `kind: paper
fields:
  identifier: {type: string, required: true}
  domain: {type: string, required: true}
  subdomain: {type: string, required: true}
  indicators: {type: "array<string>", required: true}
  data:
    type: object
    required: true
    fields:
      study_type:
        type: string
        enum: [cohort, cross-sectional, case-control, review]
      sample_size: int
      year: int
`

// TaxonomySchema constrains taxonomy entries.
const TaxonomySchema = `kind: taxonomy
fields:
  name: {type: string, required: true}
  subdomains: {type: "array<string>", required: true}
`

// Taxonomy is the sample domain list.
const Taxonomy = `version: 1
domains:
  - name: chemical
    subdomains: [metals, persistent]
  - name: climate
    subdomains: [heat]
  - name: social
    subdomains: [income]
`

// Papers are valid against PaperSchema and Taxonomy, keyed by file name.
var Papers = map[string]string{
	"kim2018.yaml": `identifier: kim2018
domain: climate
subdomain: heat
indicators: [heatwave_days]
data: {study_type: cohort, sample_size: 5400, year: 2018}
`,
	"smith2020.yaml": `domain: chemical
subdomain: chemical.metals
indicators: [lead, mercury]
data: {study_type: cross-sectional, sample_size: 1200, year: 2020}
`,
	"wu2019.yaml": `identifier: wu2019
domain: chemical
subdomain: persistent
indicators: [pfas]
data: {study_type: review, year: 2019}
`,
}

// Option adjusts the written catalog.
type Option func(files map[string]string)

// WithPaper adds or replaces papers/<name>.
func WithPaper(name, body string) Option {
	return func(files map[string]string) {
		files[filepath.Join("papers", name)] = body
	}
}

// WithFile adds or replaces any file relative to the root. An empty body
// removes the file.
func WithFile(rel, body string) Option {
	return func(files map[string]string) {
		if body == "" {
			delete(files, rel)
			return
		}
		files[rel] = body
	}
}

// New writes the sample catalog into a fresh temp dir and returns its root.
func New(t testing.TB, opts ...Option) string {
	t.Helper()
	files := map[string]string{
		filepath.Join("schema", "paper.schema.yaml"):    PaperSchema,
		filepath.Join("schema", "taxonomy.schema.yaml"): TaxonomySchema,
		filepath.Join("taxonomy", "domains.yaml"):       Taxonomy,
	}
	for name, body := range Papers {
		files[filepath.Join("papers", name)] = body
	}
	for _, opt := range opts {
		opt(files)
	}
	root := t.TempDir()
	for rel, body := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("catalogtest: mkdir %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("catalogtest: write %s: %v", rel, err)
		}
	}
	return root
}
