package schema

import (
	"math"
	"time"
)

// IssueKind classifies a conformance problem.
type IssueKind int

const (
	IssueMissing IssueKind = iota
	IssueMismatch
)

// Issue is one conformance problem, addressed by dotted field path.
type Issue struct {
	Kind  IssueKind
	Field string
}

// Conform checks values against the definition. All missing required fields
// are reported first, then all type mismatches, each group in field order.
// A field whose value is null counts as absent.
func (d *Definition) Conform(values map[string]any) []Issue {
	if d == nil {
		return nil
	}
	var issues []Issue
	issues = appendMissing(issues, "", d.Fields, values)
	issues = appendMismatches(issues, "", d.Fields, values)
	return issues
}

func appendMissing(issues []Issue, prefix string, fields []Field, values map[string]any) []Issue {
	for _, f := range fields {
		path := joinPath(prefix, f.Name)
		value, present := values[f.Name]
		if !present || value == nil {
			if f.Required {
				issues = append(issues, Issue{Kind: IssueMissing, Field: path})
			}
			continue
		}
		if len(f.Fields) > 0 {
			if nested, ok := value.(map[string]any); ok {
				issues = appendMissing(issues, path, f.Fields, nested)
			}
		}
	}
	return issues
}

func appendMismatches(issues []Issue, prefix string, fields []Field, values map[string]any) []Issue {
	for _, f := range fields {
		path := joinPath(prefix, f.Name)
		value, present := values[f.Name]
		if !present || value == nil {
			continue
		}
		if !Matches(f, value) {
			issues = append(issues, Issue{Kind: IssueMismatch, Field: path})
			continue
		}
		if len(f.Fields) > 0 {
			issues = appendMismatches(issues, path, f.Fields, value.(map[string]any))
		}
	}
	return issues
}

// Matches reports whether value has the shape declared by f. Nested object
// fields are not inspected; Conform walks those separately.
func Matches(f Field, value any) bool {
	if !matchesType(f.Type, value) {
		return false
	}
	if len(f.Enum) > 0 {
		s, _ := value.(string)
		for _, allowed := range f.Enum {
			if s == allowed {
				return true
			}
		}
		return false
	}
	return true
}

func matchesType(t string, value any) bool {
	if inner, ok := arrayElem(t); ok {
		items, ok := value.([]any)
		if !ok {
			return false
		}
		for _, item := range items {
			if !matchesType(inner, item) {
				return false
			}
		}
		return true
	}
	switch t {
	case TypeAny:
		return true
	case TypeString:
		_, ok := value.(string)
		return ok
	case TypeBool:
		_, ok := value.(bool)
		return ok
	case TypeInt:
		return isInteger(value)
	case TypeFloat, TypeNumber:
		return isInteger(value) || isFloat(value)
	case TypeDate:
		switch v := value.(type) {
		case time.Time:
			return true
		case string:
			_, err := time.Parse(time.DateOnly, v)
			return err == nil
		}
		return false
	case TypeArray:
		_, ok := value.([]any)
		return ok
	case TypeObject:
		_, ok := value.(map[string]any)
		return ok
	}
	return false
}

func isInteger(value any) bool {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float64:
		// JSON numbers decode to float64.
		return v == math.Trunc(v) && !math.IsInf(v, 0)
	}
	return false
}

func isFloat(value any) bool {
	switch value.(type) {
	case float32, float64:
		return true
	}
	return false
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
