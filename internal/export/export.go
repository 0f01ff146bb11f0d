// Package export flattens the catalog into domain/subdomain/indicator/paper
// rows and renders them as CSV or as a Markdown mindmap.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/kingrea/paper-catalog/internal/paper"
	"github.com/kingrea/paper-catalog/internal/taxonomy"
)

// None stands in for an empty domain, subdomain or indicator.
const None = "(none)"

// Header is the column order of the flattened CSV.
var Header = []string{"domain", "subdomain", "indicator", "paper"}

// Row is one (domain, subdomain, indicator, paper) tuple.
type Row struct {
	Domain    string
	Subdomain string
	Indicator string
	Paper     string
}

// Rows expands papers into one row per indicator. Papers without indicators
// produce a single (none) row. Subdomains are reduced to their tail and
// duplicate rows are dropped.
func Rows(papers []paper.Paper) []Row {
	seen := make(map[Row]bool)
	var out []Row
	for _, p := range papers {
		indicators := p.Indicators
		if len(indicators) == 0 {
			indicators = []string{None}
		}
		for _, ind := range indicators {
			row := Row{
				Domain:    orNone(p.Domain),
				Subdomain: orNone(taxonomy.Tail(p.Domain, p.Subdomain)),
				Indicator: orNone(ind),
				Paper:     p.Identifier,
			}
			if seen[row] {
				continue
			}
			seen[row] = true
			out = append(out, row)
		}
	}
	return out
}

// Sort orders rows by domain rank, then subdomain, indicator and paper.
// Domains listed in order come first, remaining domains follow alphabetically
// and (none) is always last.
func Sort(rows []Row, order []string) {
	rank := make(map[string]int, len(order))
	for i, d := range order {
		if _, ok := rank[d]; !ok {
			rank[d] = i
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Domain != b.Domain {
			return domainLess(a.Domain, b.Domain, rank)
		}
		if a.Subdomain != b.Subdomain {
			return a.Subdomain < b.Subdomain
		}
		if a.Indicator != b.Indicator {
			return a.Indicator < b.Indicator
		}
		return a.Paper < b.Paper
	})
}

func domainLess(a, b string, rank map[string]int) bool {
	if a == None || b == None {
		return b == None && a != None
	}
	ra, aRanked := rank[a]
	rb, bRanked := rank[b]
	switch {
	case aRanked && bRanked:
		return ra < rb
	case aRanked:
		return true
	case bRanked:
		return false
	}
	return a < b
}

// WriteCSV writes rows with a header line.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Domain, r.Subdomain, r.Indicator, r.Paper}); err != nil {
			return fmt.Errorf("export: write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: flush: %w", err)
	}
	return nil
}

// Mindmap renders sorted rows as a nested Markdown list:
// domain > subdomain > indicator > `paper`.
func Mindmap(rows []Row, title string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	var domain, subdomain, indicator string
	first := true
	for _, r := range rows {
		if first || r.Domain != domain {
			fmt.Fprintf(&b, "- %s\n", r.Domain)
			domain, subdomain, indicator = r.Domain, "", ""
		}
		if first || r.Subdomain != subdomain {
			fmt.Fprintf(&b, "  - %s\n", r.Subdomain)
			subdomain, indicator = r.Subdomain, ""
		}
		if first || r.Indicator != indicator {
			fmt.Fprintf(&b, "    - %s\n", r.Indicator)
			indicator = r.Indicator
		}
		fmt.Fprintf(&b, "      - `%s`\n", r.Paper)
		first = false
	}
	return b.String()
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return None
	}
	return s
}
