package main

import (
	"context"
	"fmt"
)

func runSyncTaxonomy(ctx context.Context, e *env, args []string) int {
	fs := subcommand(e, "sync-taxonomy")
	dryRun := fs.Bool("dry-run", false, "print the additions without rewriting the taxonomy")
	if code, ok := parse(fs, args); !ok {
		return code
	}
	cat, ok := e.open(ctx, "sync-taxonomy")
	if !ok {
		return exitFailure
	}
	changes, err := cat.SyncTaxonomy(*dryRun)
	if err != nil {
		return e.fail("sync-taxonomy", err)
	}
	if changes.Empty() {
		fmt.Fprintln(e.stdout, "taxonomy already covers every paper")
		return exitOK
	}
	for _, d := range changes.AddedDomains {
		fmt.Fprintf(e.stdout, "+ domain    %s\n", d)
	}
	for _, s := range changes.AddedSubdomains {
		fmt.Fprintf(e.stdout, "+ subdomain %s\n", s)
	}
	if *dryRun {
		fmt.Fprintln(e.stdout, "dry run: taxonomy not written")
		return exitOK
	}
	fmt.Fprintf(e.stdout, "updated %s\n", relative(e.root, e.cfg.TaxonomyPath()))
	e.journal.Info("sync-taxonomy: +%d domains, +%d subdomains", len(changes.AddedDomains), len(changes.AddedSubdomains))
	return exitOK
}
