package validator

import (
	"errors"

	"github.com/kingrea/paper-catalog/internal/paper"
	"github.com/kingrea/paper-catalog/internal/schema"
	"github.com/kingrea/paper-catalog/internal/taxonomy"
)

// Validate checks every loaded result against the paper contract, the paper
// schema and the taxonomy. Bad records become report entries; an error is returned only
// when the schema or taxonomy itself is unusable.
//
// Per record, violations are appended in a fixed order: parse failure,
// missing fields, type mismatches, duplicate identifier, unknown pair.
func Validate(results []paper.Result, def *schema.Definition, idx *taxonomy.Index) (*Report, error) {
	if def == nil {
		return nil, errors.New("validator: schema definition is nil")
	}
	if idx == nil {
		return nil, errors.New("validator: taxonomy index is nil")
	}

	report := &Report{Results: make([]Result, 0, len(results))}
	seenIDs := make(map[string]string, len(results))

	for _, loaded := range results {
		entry := Result{Source: loaded.Source}
		if !loaded.OK() {
			detail := "unreadable"
			if loaded.Err != nil {
				detail = loaded.Err.Err.Error()
			}
			entry.Violations = append(entry.Violations, Violation{Rule: RuleParseFailure, Detail: detail})
			report.Results = append(report.Results, entry)
			continue
		}

		rec := loaded.Record
		entry.record = rec
		id, idIsString := rec.Identifier()
		entry.Identifier = id

		badFields := make(map[string]bool)
		for _, issue := range conform(def, rec.Fields) {
			rule := RuleTypeMismatch
			if issue.Kind == schema.IssueMissing {
				rule = RuleMissingField
			}
			badFields[issue.Field] = true
			entry.Violations = append(entry.Violations, Violation{Rule: rule, Field: issue.Field})
		}

		if idIsString && !badFields[paper.FieldIdentifier] {
			if first, dup := seenIDs[id]; dup {
				entry.Violations = append(entry.Violations, Violation{Rule: RuleDuplicateIdentifier, Field: paper.FieldIdentifier, Detail: first})
			} else {
				seenIDs[id] = loaded.Source
			}
		}

		domain, domainOK := rec.String(paper.FieldDomain)
		subdomain, subOK := rec.String(paper.FieldSubdomain)
		if domainOK && subOK && !badFields[paper.FieldDomain] && !badFields[paper.FieldSubdomain] {
			if !idx.IsValid(domain, subdomain) {
				entry.Violations = append(entry.Violations, Violation{
					Rule:   RuleUnknownPair,
					Field:  paper.FieldDomain,
					Detail: domain + "/" + subdomain,
				})
			}
		}

		report.Results = append(report.Results, entry)
	}
	return report, nil
}

// contract is the record shape every paper must have whatever the configured
// schema declares. Typed papers are decoded from these fields.
var contract = &schema.Definition{
	Kind: schema.KindPaper,
	Fields: []schema.Field{
		{Name: paper.FieldIdentifier, Type: schema.TypeString, Required: true},
		{Name: paper.FieldDomain, Type: schema.TypeString, Required: true},
		{Name: paper.FieldSubdomain, Type: schema.TypeString, Required: true},
		{Name: paper.FieldIndicators, Type: "array<" + schema.TypeString + ">", Required: true},
		{Name: paper.FieldData, Type: schema.TypeObject, Required: true},
	},
}

// conform merges contract issues with the schema's own, keeping all missing
// fields ahead of all mismatches and reporting each field once.
func conform(def *schema.Definition, fields map[string]any) []schema.Issue {
	base := contract.Conform(fields)
	declared := def.Conform(fields)
	seen := make(map[string]bool, len(base)+len(declared))
	var out []schema.Issue
	for _, kind := range []schema.IssueKind{schema.IssueMissing, schema.IssueMismatch} {
		for _, group := range [][]schema.Issue{base, declared} {
			for _, issue := range group {
				if issue.Kind != kind || seen[issue.Field] {
					continue
				}
				seen[issue.Field] = true
				out = append(out, issue)
			}
		}
	}
	return out
}
