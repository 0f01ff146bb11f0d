// Package query filters and groups valid papers.
package query

import (
	"sort"
	"strings"

	"github.com/kingrea/paper-catalog/internal/paper"
	"github.com/kingrea/paper-catalog/internal/taxonomy"
)

// Filter selects papers. Empty fields match everything. Domain, Subdomain and
// Indicator compare exactly (subdomain also accepts the domain.tail form);
// Text is a case-insensitive substring match on identifier and indicators.
type Filter struct {
	Domain    string
	Subdomain string
	Indicator string
	Text      string
}

// IsZero reports whether the filter matches every paper.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Match reports whether p satisfies every set field of f.
func (f Filter) Match(p paper.Paper) bool {
	if f.Domain != "" && p.Domain != f.Domain {
		return false
	}
	if f.Subdomain != "" && taxonomy.Tail(p.Domain, p.Subdomain) != taxonomy.Tail(p.Domain, f.Subdomain) {
		return false
	}
	if f.Indicator != "" && !containsString(p.Indicators, f.Indicator) {
		return false
	}
	if text := strings.ToLower(strings.TrimSpace(f.Text)); text != "" {
		if !strings.Contains(strings.ToLower(p.Identifier), text) && !anyContains(p.Indicators, text) {
			return false
		}
	}
	return true
}

// Apply returns the papers matching f, preserving order.
func Apply(papers []paper.Paper, f Filter) []paper.Paper {
	out := make([]paper.Paper, 0, len(papers))
	for _, p := range papers {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

// Find returns the paper with the given identifier.
func Find(papers []paper.Paper, identifier string) (paper.Paper, bool) {
	for _, p := range papers {
		if p.Identifier == identifier {
			return p, true
		}
	}
	return paper.Paper{}, false
}

// SubdomainCount is the number of papers under one subdomain.
type SubdomainCount struct {
	Subdomain string `json:"subdomain"`
	Papers    int    `json:"papers"`
}

// DomainGroup summarizes the papers of one domain.
type DomainGroup struct {
	Domain     string           `json:"domain"`
	Papers     int              `json:"papers"`
	Subdomains []SubdomainCount `json:"subdomains"`
	Indicators []string         `json:"indicators"`
}

// GroupByDomain groups papers by domain in first-seen order. Subdomains and
// indicators inside a group are sorted.
func GroupByDomain(papers []paper.Paper) []DomainGroup {
	var order []string
	counts := make(map[string]map[string]int)
	indicators := make(map[string]map[string]bool)
	totals := make(map[string]int)
	for _, p := range papers {
		if _, ok := counts[p.Domain]; !ok {
			order = append(order, p.Domain)
			counts[p.Domain] = make(map[string]int)
			indicators[p.Domain] = make(map[string]bool)
		}
		totals[p.Domain]++
		counts[p.Domain][taxonomy.Tail(p.Domain, p.Subdomain)]++
		for _, ind := range p.Indicators {
			indicators[p.Domain][ind] = true
		}
	}
	groups := make([]DomainGroup, 0, len(order))
	for _, domain := range order {
		group := DomainGroup{Domain: domain, Papers: totals[domain], Indicators: []string{}}
		for sub, n := range counts[domain] {
			group.Subdomains = append(group.Subdomains, SubdomainCount{Subdomain: sub, Papers: n})
		}
		sort.Slice(group.Subdomains, func(i, j int) bool {
			return group.Subdomains[i].Subdomain < group.Subdomains[j].Subdomain
		})
		for ind := range indicators[domain] {
			group.Indicators = append(group.Indicators, ind)
		}
		sort.Strings(group.Indicators)
		groups = append(groups, group)
	}
	return groups
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func anyContains(values []string, lowerNeedle string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), lowerNeedle) {
			return true
		}
	}
	return false
}
