package catalog_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/paper-catalog/internal/build"
	"github.com/kingrea/paper-catalog/internal/catalog"
	"github.com/kingrea/paper-catalog/internal/catalog/catalogtest"
	"github.com/kingrea/paper-catalog/internal/config"
	"github.com/kingrea/paper-catalog/internal/metrics"
	"github.com/kingrea/paper-catalog/internal/schema"
	"github.com/kingrea/paper-catalog/internal/taxonomy"
)

func open(t *testing.T, root string, opts ...catalog.Option) *catalog.Catalog {
	t.Helper()
	cfg, err := config.Load(root)
	require.NoError(t, err)
	c, err := catalog.Open(context.Background(), cfg, opts...)
	require.NoError(t, err)
	return c
}

func TestOpenValidCatalog(t *testing.T) {
	m := metrics.New()
	c := open(t, catalogtest.New(t), catalog.WithMetrics(m))

	require.True(t, c.Report.Valid(), c.Report.Summary())
	assert.Equal(t, "3 records, 3 valid, 0 invalid", c.Report.Summary())

	var ids []string
	for _, p := range c.Papers() {
		ids = append(ids, p.Identifier)
	}
	assert.Equal(t, []string{"kim2018", "smith2020", "wu2019"}, ids)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.PapersLoaded))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.PapersValid))
}

func TestOpenReportsInvalidPapers(t *testing.T) {
	m := metrics.New()
	root := catalogtest.New(t,
		catalogtest.WithPaper("zdup.yaml", "identifier: kim2018\ndomain: climate\nsubdomain: heat\nindicators: []\ndata: {}\n"),
		catalogtest.WithPaper("zz-bad.yaml", "domain: social\nsubdomain: wealth\nindicators: [gini]\ndata: {study_type: survey}\n"),
	)
	c := open(t, root, catalog.WithMetrics(m))

	assert.False(t, c.Report.Valid())
	assert.Equal(t, 2, c.Report.InvalidCount())
	invalid := c.Report.Invalid()
	assert.Equal(t, []string{"duplicate identifier"}, invalid[0].Messages())
	assert.Equal(t, []string{"type mismatch: data.study_type", "unknown domain/subdomain pair"}, invalid[1].Messages())
	assert.Len(t, c.Papers(), 3)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Violations.WithLabelValues("duplicate_identifier")))
}

func TestOpenFailsOnBadSchemaOrTaxonomy(t *testing.T) {
	cfg, err := config.Load(catalogtest.New(t, catalogtest.WithFile(filepath.Join("schema", "paper.schema.yaml"), "kind: paper\nfields: {title: {type: string}}\n")))
	require.NoError(t, err)
	_, err = catalog.Open(context.Background(), cfg)
	var schemaErr *schema.LoadError
	require.ErrorAs(t, err, &schemaErr)

	cfg, err = config.Load(catalogtest.New(t, catalogtest.WithFile(filepath.Join("taxonomy", "domains.yaml"), "domains:\n  - name: chemical\n    subdomains: 7\n")))
	require.NoError(t, err)
	_, err = catalog.Open(context.Background(), cfg)
	var taxErr *taxonomy.LoadError
	require.ErrorAs(t, err, &taxErr)

	_, err = catalog.Open(context.Background(), nil)
	require.Error(t, err)
}

func TestOpenHonoursCancellation(t *testing.T) {
	cfg, err := config.Load(catalogtest.New(t))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = catalog.Open(ctx, cfg)
	require.ErrorIs(t, err, context.Canceled)
}

func TestBuildRefusesInvalidUnlessSkipped(t *testing.T) {
	root := catalogtest.New(t, catalogtest.WithPaper("bad.yaml", "domain: nowhere\nsubdomain: x\nindicators: []\ndata: {}\n"))
	c := open(t, root)

	_, err := c.Build(build.FormatCSV, false)
	require.True(t, errors.Is(err, catalog.ErrInvalidRecords), "got %v", err)
	_, statErr := os.Stat(filepath.Join(root, "build"))
	assert.True(t, os.IsNotExist(statErr))

	path, err := c.Build(build.FormatJSON, true)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	papers, err := build.ReadJSON(data)
	require.NoError(t, err)
	assert.Len(t, papers, 3)
}

func TestBuildUsesSchemaColumnOrder(t *testing.T) {
	c := open(t, catalogtest.New(t))
	path, err := c.Build(build.FormatCSV, false)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	header, _, _ := strings.Cut(string(data), "\n")
	assert.Equal(t, "identifier,domain,subdomain,indicators,data.study_type,data.sample_size,data.year", header)
}

func TestExportRowsAndSync(t *testing.T) {
	root := catalogtest.New(t, catalogtest.WithPaper("ng2022.yaml", "domain: built\nsubdomain: greenspace\nindicators: [ndvi]\ndata: {}\n"))
	c := open(t, root)

	rows := c.ExportRows()
	require.NotEmpty(t, rows)
	assert.Equal(t, "chemical", rows[0].Domain)
	assert.Equal(t, "metals", rows[0].Subdomain)

	changes, err := c.SyncTaxonomy(true)
	require.NoError(t, err)
	assert.Equal(t, []string{"built"}, changes.AddedDomains)
	before, err := os.ReadFile(filepath.Join(root, "taxonomy", "domains.yaml"))
	require.NoError(t, err)
	assert.Equal(t, catalogtest.Taxonomy, string(before), "dry run must not touch the file")

	c = open(t, root)
	_, err = c.SyncTaxonomy(false)
	require.NoError(t, err)
	reopened := open(t, root)
	assert.True(t, reopened.Report.Valid(), reopened.Report.Summary())
	assert.True(t, reopened.Taxonomy.IsValid("built", "greenspace"))
}
