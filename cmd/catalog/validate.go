package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/paper-catalog/internal/validator"
)

func runValidate(ctx context.Context, e *env, args []string) int {
	fs := subcommand(e, "validate")
	asJSON := fs.Bool("json", false, "print the report as JSON")
	verbose := fs.Bool("v", false, "also list valid records")
	if code, ok := parse(fs, args); !ok {
		return code
	}
	cat, ok := e.open(ctx, "validate")
	if !ok {
		return exitFailure
	}
	report := cat.Report
	if *asJSON {
		enc := json.NewEncoder(e.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return e.fail("validate", err)
		}
	} else {
		printReport(e.stdout, e.root, report, *verbose)
	}
	if !report.Valid() {
		e.journal.Warn("validate: %s", report.Summary())
		return exitFailure
	}
	e.journal.Info("validate: %s", report.Summary())
	return exitOK
}

// printReport renders one block per failing record followed by the summary.
// Colours are dropped automatically when w is not a terminal.
func printReport(w io.Writer, root string, report *validator.Report, verbose bool) {
	r := lipgloss.NewRenderer(w)
	fail := r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	ok := r.NewStyle().Foreground(lipgloss.Color("#5FD787"))
	muted := r.NewStyle().Foreground(lipgloss.Color("#888888"))

	for _, res := range report.Results {
		label := relative(root, res.Source)
		if res.Identifier != "" {
			label += muted.Render(" (" + res.Identifier + ")")
		}
		if res.IsValid() {
			if verbose {
				fmt.Fprintf(w, "%s   %s\n", ok.Render("ok"), label)
			}
			continue
		}
		fmt.Fprintf(w, "%s %s\n", fail.Render("FAIL"), label)
		for _, msg := range res.Messages() {
			fmt.Fprintf(w, "  - %s\n", msg)
		}
	}
	summary := ok.Render(report.Summary())
	if !report.Valid() {
		summary = fail.Render(report.Summary())
	}
	fmt.Fprintln(w, summary)
}

func relative(root, path string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(abs, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}
