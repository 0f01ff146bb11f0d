package validator

import (
	"fmt"

	"github.com/kingrea/paper-catalog/internal/paper"
	"github.com/kingrea/paper-catalog/internal/taxonomy"
)

// Rule identifies which check produced a violation.
type Rule string

const (
	RuleParseFailure        Rule = "parse_failure"
	RuleMissingField        Rule = "missing_field"
	RuleTypeMismatch        Rule = "type_mismatch"
	RuleDuplicateIdentifier Rule = "duplicate_identifier"
	RuleUnknownPair         Rule = "unknown_pair"
)

// Violation is one failed rule on one record.
type Violation struct {
	Rule   Rule   `json:"rule"`
	Field  string `json:"field,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// String renders the canonical, user-facing message for the violation.
func (v Violation) String() string {
	switch v.Rule {
	case RuleParseFailure:
		return "parse failure"
	case RuleMissingField:
		return "missing field: " + v.Field
	case RuleTypeMismatch:
		return "type mismatch: " + v.Field
	case RuleDuplicateIdentifier:
		return "duplicate identifier"
	case RuleUnknownPair:
		return "unknown domain/subdomain pair"
	}
	return string(v.Rule)
}

// Result is the outcome for one source file.
type Result struct {
	Source     string      `json:"source"`
	Identifier string      `json:"identifier,omitempty"`
	Violations []Violation `json:"violations,omitempty"`

	record *paper.Record
}

// IsValid reports whether the record passed every rule.
func (r Result) IsValid() bool {
	return len(r.Violations) == 0
}

// Messages returns the canonical message of each violation in order.
func (r Result) Messages() []string {
	out := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		out[i] = v.String()
	}
	return out
}

// Report captures validation results for the whole catalog, in load order.
type Report struct {
	Results []Result `json:"results"`
}

// Valid reports whether every record passed.
func (r *Report) Valid() bool {
	return r != nil && r.InvalidCount() == 0
}

// InvalidCount returns the number of records with at least one violation.
func (r *Report) InvalidCount() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, res := range r.Results {
		if !res.IsValid() {
			n++
		}
	}
	return n
}

// ValidCount returns the number of records without violations.
func (r *Report) ValidCount() int {
	if r == nil {
		return 0
	}
	return len(r.Results) - r.InvalidCount()
}

// Invalid returns only the failing results.
func (r *Report) Invalid() []Result {
	if r == nil {
		return nil
	}
	var out []Result
	for _, res := range r.Results {
		if !res.IsValid() {
			out = append(out, res)
		}
	}
	return out
}

// ValidPapers decodes the valid records in report order.
func (r *Report) ValidPapers() ([]paper.Paper, error) {
	if r == nil {
		return nil, nil
	}
	out := make([]paper.Paper, 0, len(r.Results))
	for _, res := range r.Results {
		if !res.IsValid() || res.record == nil {
			continue
		}
		p, err := paper.Decode(res.record)
		if err != nil {
			return nil, fmt.Errorf("validator: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Pairs lists the domain/subdomain pairs carried by every loadable record,
// valid or not, in report order.
func (r *Report) Pairs() []taxonomy.Pair {
	if r == nil {
		return nil
	}
	var out []taxonomy.Pair
	for _, res := range r.Results {
		if res.record == nil {
			continue
		}
		domain, ok1 := res.record.String(paper.FieldDomain)
		subdomain, ok2 := res.record.String(paper.FieldSubdomain)
		if ok1 && ok2 {
			out = append(out, taxonomy.Pair{Domain: domain, Subdomain: subdomain})
		}
	}
	return out
}

// Summary returns a one-line count of the report.
func (r *Report) Summary() string {
	if r == nil {
		return "0 records"
	}
	return fmt.Sprintf("%d records, %d valid, %d invalid", len(r.Results), r.ValidCount(), r.InvalidCount())
}
