package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/kingrea/paper-catalog/internal/build"
	"github.com/kingrea/paper-catalog/internal/catalog"
)

func runBuild(ctx context.Context, e *env, args []string) int {
	fs := subcommand(e, "build")
	formatName := fs.String("format", string(build.FormatCSV), "output format: csv or json")
	skipInvalid := fs.Bool("skip-invalid", false, "build from valid records even when some records fail")
	if code, ok := parse(fs, args); !ok {
		return code
	}
	format, err := build.ParseFormat(*formatName)
	if err != nil {
		return e.fail("build", err)
	}
	cat, ok := e.open(ctx, "build")
	if !ok {
		return exitFailure
	}
	path, err := cat.Build(format, *skipInvalid)
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidRecords) {
			printReport(e.stderr, e.root, cat.Report, false)
			fmt.Fprintln(e.stderr, "build: refusing to build with invalid records (use -skip-invalid)")
			e.journal.Warn("build: aborted, %s", cat.Report.Summary())
			return exitFailure
		}
		return e.fail("build", err)
	}
	n := len(cat.Papers())
	fmt.Fprintf(e.stdout, "wrote %s (%d papers)\n", relative(e.root, path), n)
	if skipped := cat.Report.InvalidCount(); skipped > 0 {
		fmt.Fprintf(e.stdout, "skipped %d invalid records\n", skipped)
	}
	e.journal.Info("build: %s %d papers -> %s", format, n, path)
	return exitOK
}
