package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/kingrea/paper-catalog/internal/query"
)

func runQuery(ctx context.Context, e *env, args []string) int {
	fs := subcommand(e, "query")
	var f query.Filter
	fs.StringVar(&f.Domain, "domain", "", "only papers in this domain")
	fs.StringVar(&f.Subdomain, "subdomain", "", "only papers in this subdomain (tail or domain.tail)")
	fs.StringVar(&f.Indicator, "indicator", "", "only papers reporting this indicator")
	fs.StringVar(&f.Text, "q", "", "case-insensitive text match on identifier and indicators")
	group := fs.Bool("group", false, "print per-domain counts instead of identifiers")
	if code, ok := parse(fs, args); !ok {
		return code
	}
	cat, ok := e.open(ctx, "query")
	if !ok {
		return exitFailure
	}
	papers := query.Apply(cat.Papers(), f)
	if !*group {
		for _, p := range papers {
			fmt.Fprintln(e.stdout, p.Identifier)
		}
		return exitOK
	}
	for _, g := range query.GroupByDomain(papers) {
		fmt.Fprintf(e.stdout, "%s (%d)\n", g.Domain, g.Papers)
		for _, s := range g.Subdomains {
			fmt.Fprintf(e.stdout, "  %s (%d)\n", s.Subdomain, s.Papers)
		}
		if len(g.Indicators) > 0 {
			fmt.Fprintf(e.stdout, "  indicators: %s\n", strings.Join(g.Indicators, ", "))
		}
	}
	return exitOK
}
