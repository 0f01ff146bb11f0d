// Package catalog runs the load and validate pipeline over one catalog root
// and exposes the result to the command surface, the HTTP API and the browser.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/kingrea/paper-catalog/internal/build"
	"github.com/kingrea/paper-catalog/internal/config"
	"github.com/kingrea/paper-catalog/internal/export"
	"github.com/kingrea/paper-catalog/internal/metrics"
	"github.com/kingrea/paper-catalog/internal/paper"
	"github.com/kingrea/paper-catalog/internal/schema"
	"github.com/kingrea/paper-catalog/internal/taxonomy"
	"github.com/kingrea/paper-catalog/internal/validator"
)

// ErrInvalidRecords is returned by Build when the report has failures and
// invalid records were not explicitly skipped.
var ErrInvalidRecords = errors.New("catalog: invalid records present")

// Catalog is a loaded and validated paper collection.
type Catalog struct {
	Config   *config.Config
	Schema   *schema.Definition
	Taxonomy *taxonomy.Index
	Report   *validator.Report

	papers  []paper.Paper
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option customizes Open.
type Option func(*Catalog)

// WithLogger routes pipeline diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records pipeline statistics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Catalog) {
		c.metrics = m
	}
}

// Open loads the schemas, the taxonomy and every paper under cfg, then
// validates the papers. Schema and taxonomy failures are returned as errors;
// bad papers only show up in the report.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Catalog, error) {
	if cfg == nil {
		return nil, errors.New("catalog: config is nil")
	}
	c := &Catalog{
		Config: cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	registry := schema.NewRegistry()
	if err := registry.LoadDir(cfg.SchemaDir()); err != nil {
		return nil, err
	}
	def, err := registry.Require(schema.KindPaper)
	if err != nil {
		return nil, err
	}
	c.Schema = def
	c.logger.Debug("schemas loaded", "dir", cfg.SchemaDir(), "kinds", registry.Kinds())

	var taxOpts []taxonomy.Option
	if taxDef, ok := registry.Get(schema.KindTaxonomy); ok {
		taxOpts = append(taxOpts, taxonomy.WithSchema(taxDef))
	}
	idx, err := taxonomy.Load(cfg.TaxonomyPath(), taxOpts...)
	if err != nil {
		return nil, err
	}
	c.Taxonomy = idx

	started := time.Now()
	paths, err := paper.Discover(cfg.PapersDir())
	if err != nil {
		return nil, err
	}
	results, err := paper.LoadParallel(ctx, paths, cfg.Workers())
	if err != nil {
		return nil, fmt.Errorf("catalog: load papers: %w", err)
	}
	c.metrics.ObserveStage("load", time.Since(started))
	c.metrics.AddLoaded(len(results))

	started = time.Now()
	report, err := validator.Validate(results, def, idx)
	if err != nil {
		return nil, err
	}
	c.metrics.ObserveStage("validate", time.Since(started))
	c.Report = report

	papers, err := report.ValidPapers()
	if err != nil {
		return nil, err
	}
	c.papers = papers
	c.record()
	return c, nil
}

func (c *Catalog) record() {
	c.metrics.SetOutcome(c.Report.ValidCount(), c.Report.InvalidCount())
	for _, res := range c.Report.Invalid() {
		for _, v := range res.Violations {
			c.metrics.IncViolation(string(v.Rule))
			c.logger.Warn("record invalid",
				"source", res.Source,
				"rule", string(v.Rule),
				"field", v.Field,
				"detail", v.Detail,
			)
		}
	}
	c.logger.Info("catalog validated",
		"root", c.Config.Root,
		"records", len(c.Report.Results),
		"valid", c.Report.ValidCount(),
		"invalid", c.Report.InvalidCount(),
	)
}

// Papers returns the valid papers in load order.
func (c *Catalog) Papers() []paper.Paper {
	return append([]paper.Paper(nil), c.papers...)
}

// Build writes the valid papers in format to the configured output dir.
// Unless skipInvalid is set, any invalid record aborts the build before
// anything is written.
func (c *Catalog) Build(format build.Format, skipInvalid bool) (string, error) {
	if !skipInvalid && !c.Report.Valid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidRecords, c.Report.Summary())
	}
	started := time.Now()
	path, err := build.Write(c.Config.OutputDir(), format, c.papers,
		build.WithColumns(c.Schema.Columns(paper.FieldData)))
	if err != nil {
		return "", err
	}
	c.metrics.ObserveStage("build", time.Since(started))
	c.metrics.IncBuild(string(format))
	c.logger.Info("build written", "format", string(format), "path", path, "papers", len(c.papers))
	return path, nil
}

// ExportRows returns the flattened domain/subdomain/indicator/paper rows of
// the valid papers, sorted by the configured domain order.
func (c *Catalog) ExportRows() []export.Row {
	rows := export.Rows(c.papers)
	export.Sort(rows, c.Config.DomainOrder())
	return rows
}

// SyncTaxonomy adds every domain/subdomain pair used by a paper but missing
// from the taxonomy. The taxonomy file is rewritten unless dryRun is set or
// nothing changed.
func (c *Catalog) SyncTaxonomy(dryRun bool) (taxonomy.Changes, error) {
	changes := c.Taxonomy.Sync(c.Report.Pairs())
	if dryRun || changes.Empty() {
		return changes, nil
	}
	if err := c.Taxonomy.Save(c.Config.TaxonomyPath()); err != nil {
		return changes, err
	}
	c.logger.Info("taxonomy synced",
		"path", c.Config.TaxonomyPath(),
		"domains_added", len(changes.AddedDomains),
		"subdomains_added", len(changes.AddedSubdomains),
	)
	return changes, nil
}
