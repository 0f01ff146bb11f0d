package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kingrea/paper-catalog/internal/export"
)

const (
	exportFileName  = "domain_subdomain_indicator.csv"
	mindmapFileName = "exposome_mindmap.md"
)

func runExport(ctx context.Context, e *env, args []string) int {
	fs := subcommand(e, "export")
	out := fs.String("out", "", "output path, - for stdout (default <output_dir>/"+exportFileName+")")
	if code, ok := parse(fs, args); !ok {
		return code
	}
	cat, ok := e.open(ctx, "export")
	if !ok {
		return exitFailure
	}
	rows := cat.ExportRows()
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, rows); err != nil {
		return e.fail("export", err)
	}
	path, err := e.emit(*out, filepath.Join(e.cfg.OutputDir(), exportFileName), buf.Bytes())
	if err != nil {
		return e.fail("export", err)
	}
	if path != "" {
		fmt.Fprintf(e.stdout, "wrote %s (%d rows)\n", relative(e.root, path), len(rows))
	}
	e.journal.Info("export: %d rows", len(rows))
	return exitOK
}

func runMindmap(ctx context.Context, e *env, args []string) int {
	fs := subcommand(e, "mindmap")
	out := fs.String("out", "", "output path, - for stdout (default <output_dir>/"+mindmapFileName+")")
	title := fs.String("title", "", "mindmap title (default from catalog.yaml)")
	order := fs.String("domain-order", "", "comma separated domain order; unlisted domains follow alphabetically")
	if code, ok := parse(fs, args); !ok {
		return code
	}
	cat, ok := e.open(ctx, "mindmap")
	if !ok {
		return exitFailure
	}
	if *order != "" {
		var domains []string
		for _, d := range strings.Split(*order, ",") {
			if d = strings.TrimSpace(d); d != "" {
				domains = append(domains, d)
			}
		}
		e.cfg.Project.Export.DomainOrder = domains
	}
	heading := strings.TrimSpace(*title)
	if heading == "" {
		heading = e.cfg.MindmapTitle()
	}
	md := export.Mindmap(cat.ExportRows(), heading)
	path, err := e.emit(*out, filepath.Join(e.cfg.OutputDir(), mindmapFileName), []byte(md))
	if err != nil {
		return e.fail("mindmap", err)
	}
	if path != "" {
		fmt.Fprintf(e.stdout, "wrote %s\n", relative(e.root, path))
	}
	e.journal.Info("mindmap: %s", heading)
	return exitOK
}

// emit writes data to out, or to fallback when out is empty. "-" writes to
// stdout and returns an empty path.
func (e *env) emit(out, fallback string, data []byte) (string, error) {
	switch out = strings.TrimSpace(out); out {
	case "-":
		_, err := e.stdout.Write(data)
		return "", err
	case "":
		out = fallback
	default:
		if !filepath.IsAbs(out) {
			out = filepath.Join(e.cfg.Root, out)
		}
	}
	dir := filepath.Dir(out)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(out)+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), out); err != nil {
		return "", fmt.Errorf("replace %s: %w", out, err)
	}
	return out, nil
}
