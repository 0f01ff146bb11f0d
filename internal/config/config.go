// internal/config/config.go
//
// This package resolves where a catalog keeps its papers, schemas, taxonomy and
// build outputs. Settings come from catalog.yaml in the catalog root, then from
// a .env file, then from CATALOG_* environment variables.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// FileName is the per-catalog configuration file looked up in the root.
	FileName = "catalog.yaml"

	// StateDir holds logs and the run journal. It is safe to delete.
	StateDir = ".catalog"

	defaultPapersDir    = "papers"
	defaultSchemaDir    = "schema"
	defaultTaxonomyPath = "taxonomy/domains.yaml"
	defaultOutputDir    = "build"
	defaultMindmapTitle = "Exposome Mindmap"
	defaultServerHost   = "127.0.0.1"
	defaultServerPort   = 8765
	defaultWorkers      = 4
	maxWorkers          = 64
)

// DefaultDomainOrder is the fixed ordering used by the export and mindmap commands.
var DefaultDomainOrder = []string{"chemical", "physical", "climate", "social", "built"}

const defaultConfigYAML = `# paper catalog configuration
version: 1

papers:
  dir: papers
schema:
  dir: schema
taxonomy:
  path: taxonomy/domains.yaml
build:
  output_dir: build

# Number of paper files parsed concurrently.
workers: 4

export:
  title: Exposome Mindmap
  domain_order: [chemical, physical, climate, social, built]

server:
  host: 127.0.0.1
  port: 8765
`

// PapersConfig locates the paper collection.
type PapersConfig struct {
	Dir string `yaml:"dir"`
}

// SchemaConfig locates schema definitions.
type SchemaConfig struct {
	Dir string `yaml:"dir"`
}

// TaxonomyConfig locates the taxonomy document.
type TaxonomyConfig struct {
	Path string `yaml:"path"`
}

// BuildConfig controls where build outputs are written.
type BuildConfig struct {
	OutputDir string `yaml:"output_dir"`
}

// ExportConfig tunes the flattened export and the mindmap.
type ExportConfig struct {
	Title       string   `yaml:"title,omitempty"`
	DomainOrder []string `yaml:"domain_order,omitempty"`
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
}

// ProjectConfig models catalog.yaml.
type ProjectConfig struct {
	Version  int            `yaml:"version"`
	Papers   PapersConfig   `yaml:"papers"`
	Schema   SchemaConfig   `yaml:"schema"`
	Taxonomy TaxonomyConfig `yaml:"taxonomy"`
	Build    BuildConfig    `yaml:"build"`
	Workers  int            `yaml:"workers,omitempty"`
	Export   ExportConfig   `yaml:"export"`
	Server   ServerConfig   `yaml:"server"`
}

// Config holds the runtime configuration for one catalog.
type Config struct {
	// Root is the catalog directory; relative paths resolve against it.
	Root string

	Project ProjectConfig
}

// Load reads the configuration for the catalog rooted at root. A missing
// catalog.yaml or .env is not an error.
func Load(root string) (*Config, error) {
	abs, err := filepath.Abs(strings.TrimSpace(root))
	if err != nil {
		return nil, fmt.Errorf("config: resolve root: %w", err)
	}
	cfg := &Config{
		Root:    abs,
		Project: defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	if err := loadDotEnv(filepath.Join(abs, ".env")); err != nil {
		return nil, err
	}
	cfg.Project.applyEnvOverrides()
	cfg.Project.applyDefaults()
	cfg.Project.normalize(abs)
	if err := cfg.Project.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Init writes a default catalog.yaml (if absent) and creates the state directory.
func Init(root string) error {
	if err := os.MkdirAll(filepath.Join(root, StateDir, "logs"), 0o755); err != nil {
		return fmt.Errorf("config: ensure state dir: %w", err)
	}
	return ensureProjectConfig(filepath.Join(root, FileName))
}

// PapersDir returns the directory scanned for paper records.
func (c *Config) PapersDir() string { return c.Project.Papers.Dir }

// SchemaDir returns the directory holding schema definitions.
func (c *Config) SchemaDir() string { return c.Project.Schema.Dir }

// TaxonomyPath returns the taxonomy document path.
func (c *Config) TaxonomyPath() string { return c.Project.Taxonomy.Path }

// OutputDir returns the build output directory.
func (c *Config) OutputDir() string { return c.Project.Build.OutputDir }

// Workers returns the paper loading concurrency.
func (c *Config) Workers() int { return c.Project.Workers }

// DomainOrder returns the preferred domain ordering for exports.
func (c *Config) DomainOrder() []string {
	out := make([]string, len(c.Project.Export.DomainOrder))
	copy(out, c.Project.Export.DomainOrder)
	return out
}

// MindmapTitle returns the heading used for mindmap output.
func (c *Config) MindmapTitle() string { return c.Project.Export.Title }

// StatePath returns the .catalog directory for this catalog.
func (c *Config) StatePath() string { return filepath.Join(c.Root, StateDir) }

// LogsDir returns the directory for diagnostic logs.
func (c *Config) LogsDir() string { return filepath.Join(c.StatePath(), "logs") }

// JournalPath returns the run journal file.
func (c *Config) JournalPath() string { return filepath.Join(c.LogsDir(), "journal.log") }

// ConfigPath returns the on-disk location of catalog.yaml.
func (c *Config) ConfigPath() string { return filepath.Join(c.Root, FileName) }

func (c *Config) loadProjectConfig() error {
	path := c.ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	parsed := defaultProjectConfig()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	c.Project = parsed
	return nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version:  1,
		Papers:   PapersConfig{Dir: defaultPapersDir},
		Schema:   SchemaConfig{Dir: defaultSchemaDir},
		Taxonomy: TaxonomyConfig{Path: defaultTaxonomyPath},
		Build:    BuildConfig{OutputDir: defaultOutputDir},
		Workers:  defaultWorkers,
		Export: ExportConfig{
			Title:       defaultMindmapTitle,
			DomainOrder: append([]string(nil), DefaultDomainOrder...),
		},
		Server: ServerConfig{Host: defaultServerHost, Port: defaultServerPort},
	}
}

func (pc *ProjectConfig) applyEnvOverrides() {
	if value := strings.TrimSpace(os.Getenv("CATALOG_PAPERS_DIR")); value != "" {
		pc.Papers.Dir = value
	}
	if value := strings.TrimSpace(os.Getenv("CATALOG_SCHEMA_DIR")); value != "" {
		pc.Schema.Dir = value
	}
	if value := strings.TrimSpace(os.Getenv("CATALOG_TAXONOMY")); value != "" {
		pc.Taxonomy.Path = value
	}
	if value := strings.TrimSpace(os.Getenv("CATALOG_OUTPUT_DIR")); value != "" {
		pc.Build.OutputDir = value
	}
	if value := strings.TrimSpace(os.Getenv("CATALOG_WORKERS")); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			pc.Workers = parsed
		}
	}
	if value := strings.TrimSpace(os.Getenv("CATALOG_SERVER_HOST")); value != "" {
		pc.Server.Host = value
	}
	if value := strings.TrimSpace(os.Getenv("CATALOG_SERVER_PORT")); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			pc.Server.Port = parsed
		}
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Papers.Dir) == "" {
		pc.Papers.Dir = defaultPapersDir
	}
	if strings.TrimSpace(pc.Schema.Dir) == "" {
		pc.Schema.Dir = defaultSchemaDir
	}
	if strings.TrimSpace(pc.Taxonomy.Path) == "" {
		pc.Taxonomy.Path = defaultTaxonomyPath
	}
	if strings.TrimSpace(pc.Build.OutputDir) == "" {
		pc.Build.OutputDir = defaultOutputDir
	}
	if pc.Workers == 0 {
		pc.Workers = defaultWorkers
	}
	if strings.TrimSpace(pc.Export.Title) == "" {
		pc.Export.Title = defaultMindmapTitle
	}
	if len(pc.Export.DomainOrder) == 0 {
		pc.Export.DomainOrder = append([]string(nil), DefaultDomainOrder...)
	}
	if strings.TrimSpace(pc.Server.Host) == "" {
		pc.Server.Host = defaultServerHost
	}
	if pc.Server.Port == 0 {
		pc.Server.Port = defaultServerPort
	}
}

func (pc *ProjectConfig) normalize(base string) {
	pc.Papers.Dir = resolvePath(base, pc.Papers.Dir)
	pc.Schema.Dir = resolvePath(base, pc.Schema.Dir)
	pc.Taxonomy.Path = resolvePath(base, pc.Taxonomy.Path)
	pc.Build.OutputDir = resolvePath(base, pc.Build.OutputDir)
	pc.Export.Title = strings.TrimSpace(pc.Export.Title)
	order := make([]string, 0, len(pc.Export.DomainOrder))
	for _, domain := range pc.Export.DomainOrder {
		domain = strings.TrimSpace(domain)
		if domain == "" || contains(order, domain) {
			continue
		}
		order = append(order, domain)
	}
	pc.Export.DomainOrder = order
	pc.Server.Host = strings.TrimSpace(pc.Server.Host)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version != 1 {
		return fmt.Errorf("unsupported config version %d", pc.Version)
	}
	if pc.Workers < 1 || pc.Workers > maxWorkers {
		return fmt.Errorf("workers must be between 1 and %d, got %d", maxWorkers, pc.Workers)
	}
	if pc.Server.Port < 1 || pc.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", pc.Server.Port)
	}
	if pc.Build.OutputDir == pc.Papers.Dir {
		return fmt.Errorf("build.output_dir must differ from papers.dir")
	}
	return nil
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
