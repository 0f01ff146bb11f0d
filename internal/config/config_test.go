package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	root := t.TempDir()
	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Project.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", cfg.Project.Version)
	}
	if cfg.PapersDir() != filepath.Join(cfg.Root, "papers") {
		t.Fatalf("unexpected papers dir %s", cfg.PapersDir())
	}
	if cfg.TaxonomyPath() != filepath.Join(cfg.Root, "taxonomy", "domains.yaml") {
		t.Fatalf("unexpected taxonomy path %s", cfg.TaxonomyPath())
	}
	if cfg.Workers() != defaultWorkers {
		t.Fatalf("expected %d workers, got %d", defaultWorkers, cfg.Workers())
	}
	if got := strings.Join(cfg.DomainOrder(), ","); got != "chemical,physical,climate,social,built" {
		t.Fatalf("unexpected domain order %s", got)
	}
}

func TestLoadParsesYaml(t *testing.T) {
	root := t.TempDir()
	configYAML := strings.TrimSpace(`
version: 1
papers:
  dir: records
taxonomy:
  path: /etc/catalog/domains.yaml
build:
  output_dir: dist
workers: 8
export:
  title: Literature Map
  domain_order: [social, social, chemical]
`)
	if err := os.WriteFile(filepath.Join(root, FileName), []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !strings.HasPrefix(cfg.PapersDir(), cfg.Root) || filepath.Base(cfg.PapersDir()) != "records" {
		t.Fatalf("expected papers dir to be resolved, got %s", cfg.PapersDir())
	}
	if cfg.TaxonomyPath() != filepath.Clean("/etc/catalog/domains.yaml") {
		t.Fatalf("absolute taxonomy path should be kept, got %s", cfg.TaxonomyPath())
	}
	if cfg.SchemaDir() != filepath.Join(cfg.Root, "schema") {
		t.Fatalf("schema dir should fall back to default, got %s", cfg.SchemaDir())
	}
	if cfg.Workers() != 8 {
		t.Fatalf("expected 8 workers, got %d", cfg.Workers())
	}
	if got := strings.Join(cfg.DomainOrder(), ","); got != "social,chemical" {
		t.Fatalf("domain order should be deduplicated, got %s", got)
	}
	if cfg.MindmapTitle() != "Literature Map" {
		t.Fatalf("wrong title: %s", cfg.MindmapTitle())
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "bad-version", yaml: "version: 3\n"},
		{name: "too-many-workers", yaml: "version: 1\nworkers: 500\n"},
		{name: "output-overlaps-papers", yaml: "version: 1\npapers:\n  dir: papers\nbuild:\n  output_dir: papers\n"},
		{name: "malformed", yaml: "version: [1\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			root := t.TempDir()
			if err := os.WriteFile(filepath.Join(root, FileName), []byte(test.yaml), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(root); err == nil {
				t.Fatalf("expected error but got none")
			}
		})
	}
}

func TestLoadHonorsEnvAndDotEnv(t *testing.T) {
	root := t.TempDir()
	dotEnv := "CATALOG_OUTPUT_DIR=from-dotenv\nCATALOG_PAPERS_DIR=ignored-dotenv\n"
	if err := os.WriteFile(filepath.Join(root, ".env"), []byte(dotEnv), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CATALOG_PAPERS_DIR", "from-env")
	t.Setenv("CATALOG_WORKERS", "2")
	t.Setenv("CATALOG_SERVER_PORT", "9100")
	t.Cleanup(func() { os.Unsetenv("CATALOG_OUTPUT_DIR") })

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if filepath.Base(cfg.PapersDir()) != "from-env" {
		t.Fatalf("process env should win over .env, got %s", cfg.PapersDir())
	}
	if filepath.Base(cfg.OutputDir()) != "from-dotenv" {
		t.Fatalf("expected .env output dir, got %s", cfg.OutputDir())
	}
	if cfg.Workers() != 2 {
		t.Fatalf("expected 2 workers, got %d", cfg.Workers())
	}
	if cfg.Project.Server.Port != 9100 {
		t.Fatalf("expected port 9100, got %d", cfg.Project.Server.Port)
	}
}

func TestInitWritesDefaultConfig(t *testing.T) {
	root := t.TempDir()
	if err := Init(root); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, FileName)); err != nil {
		t.Fatalf("expected %s to exist: %v", FileName, err)
	}
	if _, err := os.Stat(filepath.Join(root, StateDir, "logs")); err != nil {
		t.Fatalf("expected logs dir: %v", err)
	}
	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("default config should load: %v", err)
	}
	if cfg.Project.Server.Port != defaultServerPort {
		t.Fatalf("unexpected port %d", cfg.Project.Server.Port)
	}
}
