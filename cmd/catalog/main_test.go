package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/paper-catalog/internal/build"
	"github.com/kingrea/paper-catalog/internal/catalog/catalogtest"
	"github.com/kingrea/paper-catalog/internal/config"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func onlyPapers(papers map[string]string) []catalogtest.Option {
	var opts []catalogtest.Option
	for name := range catalogtest.Papers {
		opts = append(opts, catalogtest.WithFile(filepath.Join("papers", name), ""))
	}
	for name, body := range papers {
		opts = append(opts, catalogtest.WithPaper(name, body))
	}
	return opts
}

func TestValidateTwoFileScenario(t *testing.T) {
	root := catalogtest.New(t, onlyPapers(map[string]string{
		"a.yaml": "domain: chemical\nsubdomain: metals\nindicators: [lead]\ndata: {}\n",
		"b.yaml": "domain: chemical\nsubdomain: made_up\nindicators: [lead]\ndata: {}\n",
	})...)

	code, out, _ := runCLI(t, "-root", root, "validate")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, out, "FAIL "+filepath.Join("papers", "b.yaml")+" (b)")
	assert.Contains(t, out, "  - unknown domain/subdomain pair")
	assert.NotContains(t, out, filepath.Join("papers", "a.yaml"))
	assert.True(t, strings.HasSuffix(out, "2 records, 1 valid, 1 invalid\n"), out)

	code, out, _ = runCLI(t, "-root", root, "validate", "-v")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, out, "ok   "+filepath.Join("papers", "a.yaml"))
}

func TestValidateCleanCatalog(t *testing.T) {
	root := catalogtest.New(t)
	code, out, _ := runCLI(t, "-root", root, "validate")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "3 records, 3 valid, 0 invalid\n", out)

	code, out, _ = runCLI(t, "-root", root, "validate", "-json")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, `"results": [`)
}

func TestFatalSchemaError(t *testing.T) {
	root := catalogtest.New(t, catalogtest.WithFile(filepath.Join("schema", "paper.schema.yaml"), "kind: paper\nfields: {}\n"))
	code, _, errOut := runCLI(t, "-root", root, "validate")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, errOut, "validate: schema")
}

func TestUsageErrors(t *testing.T) {
	code, _, errOut := runCLI(t)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, errOut, "Commands:")

	code, _, errOut = runCLI(t, "frobnicate")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, errOut, `unknown command "frobnicate"`)

	root := catalogtest.New(t)
	code, _, _ = runCLI(t, "-root", root, "validate", "-nope")
	assert.Equal(t, exitUsage, code)

	code, _, _ = runCLI(t, "-root", root, "build", "stray")
	assert.Equal(t, exitUsage, code)
}

func TestBuildFormats(t *testing.T) {
	root := catalogtest.New(t)

	code, _, errOut := runCLI(t, "-root", root, "build", "-format", "xml")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, errOut, `unsupported format "xml"`)
	_, err := os.Stat(filepath.Join(root, "build"))
	assert.True(t, os.IsNotExist(err), "no output may be written for an unsupported format")

	code, out, _ := runCLI(t, "-root", root, "build", "-format", "json")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "wrote "+filepath.Join("build", "catalog.json")+" (3 papers)\n", out)
	first, err := os.ReadFile(filepath.Join(root, "build", "catalog.json"))
	require.NoError(t, err)
	papers, err := build.ReadJSON(first)
	require.NoError(t, err)
	assert.Len(t, papers, 3)

	code, _, _ = runCLI(t, "-root", root, "build", "-format", "json")
	require.Equal(t, exitOK, code)
	second, err := os.ReadFile(filepath.Join(root, "build", "catalog.json"))
	require.NoError(t, err)
	assert.Equal(t, first, second, "rebuilding an unchanged catalog must be byte-identical")
}

func TestBuildWithInvalidRecords(t *testing.T) {
	root := catalogtest.New(t, catalogtest.WithPaper("zz.yaml", "domain: social\nsubdomain: wealth\nindicators: []\ndata: {}\n"))

	code, _, errOut := runCLI(t, "-root", root, "build")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, errOut, "-skip-invalid")

	code, out, _ := runCLI(t, "-root", root, "build", "-skip-invalid")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "skipped 1 invalid records")
}

func TestExportAndMindmapToStdout(t *testing.T) {
	root := catalogtest.New(t)

	code, out, _ := runCLI(t, "-root", root, "export", "-out", "-")
	require.Equal(t, exitOK, code)
	assert.Equal(t, strings.Join([]string{
		"domain,subdomain,indicator,paper",
		"chemical,metals,lead,smith2020",
		"chemical,metals,mercury,smith2020",
		"chemical,persistent,pfas,wu2019",
		"climate,heat,heatwave_days,kim2018",
		"",
	}, "\n"), out)

	code, out, _ = runCLI(t, "-root", root, "mindmap", "-out", "-", "-title", "Test Map", "-domain-order", "climate,chemical")
	require.Equal(t, exitOK, code)
	assert.True(t, strings.HasPrefix(out, "# Test Map\n\n- climate\n  - heat\n    - heatwave_days\n      - `kim2018`\n- chemical\n"), out)

	code, out, _ = runCLI(t, "-root", root, "export")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "(4 rows)")
	_, err := os.Stat(filepath.Join(root, "build", exportFileName))
	assert.NoError(t, err)
}

func TestExportFailureLeavesNoTempFile(t *testing.T) {
	root := catalogtest.New(t)
	blocked := filepath.Join(root, "build", "blocked")
	require.NoError(t, os.MkdirAll(filepath.Join(blocked, "keep"), 0o755))

	code, _, errOut := runCLI(t, "-root", root, "export", "-out", filepath.Join("build", "blocked"))
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, errOut, "export:")

	entries, err := os.ReadDir(filepath.Join(root, "build"))
	require.NoError(t, err)
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	assert.Equal(t, []string{"blocked"}, names)
}

func TestQueryAndSync(t *testing.T) {
	root := catalogtest.New(t, catalogtest.WithPaper("ng2022.yaml", "domain: built\nsubdomain: greenspace\nindicators: [ndvi]\ndata: {}\n"))

	code, out, _ := runCLI(t, "-root", root, "query", "-domain", "chemical")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "smith2020\nwu2019\n", out)

	code, out, _ = runCLI(t, "-root", root, "query", "-group", "-indicator", "lead")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "chemical (1)\n  metals (1)\n  indicators: lead, mercury\n", out)

	code, out, _ = runCLI(t, "-root", root, "sync-taxonomy", "-dry-run")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "+ domain    built")
	assert.Contains(t, out, "dry run")

	code, _, _ = runCLI(t, "-root", root, "sync-taxonomy")
	require.Equal(t, exitOK, code)
	code, _, _ = runCLI(t, "-root", root, "validate")
	assert.Equal(t, exitOK, code)

	code, out, _ = runCLI(t, "-root", root, "sync-taxonomy")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "taxonomy already covers every paper\n", out)
}

func TestHistoryAndMetricsFile(t *testing.T) {
	root := catalogtest.New(t)
	metricsPath := filepath.Join(t.TempDir(), "catalog.prom")

	code, out, _ := runCLI(t, "-root", root, "history")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "no runs recorded yet\n", out)

	code, _, _ = runCLI(t, "-root", root, "-metrics-file", metricsPath, "validate")
	require.Equal(t, exitOK, code)
	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "catalog_papers_loaded_total 3")

	code, out, _ = runCLI(t, "-root", root, "history", "-n", "5")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "INFO  ")
	assert.Contains(t, out, "validate: 3 records, 3 valid, 0 invalid")

	code, _, _ = runCLI(t, "-root", root, "history", "-n", "0")
	assert.Equal(t, exitUsage, code)
}

func TestInitWritesConfig(t *testing.T) {
	root := t.TempDir()
	code, _, _ := runCLI(t, "-root", root, "init")
	require.Equal(t, exitOK, code)
	_, err := os.Stat(filepath.Join(root, config.FileName))
	require.NoError(t, err)

	cfg, err := config.Load(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "papers"), cfg.PapersDir())
}
