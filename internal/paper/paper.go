// Package paper reads paper records from the catalog's YAML files.
//
// Loading never stops at a malformed file: every source produces a Result
// that carries either the raw record or the ParseError for that file.
package paper

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Top-level keys of a paper document.
const (
	FieldIdentifier = "identifier"
	FieldDomain     = "domain"
	FieldSubdomain  = "subdomain"
	FieldIndicators = "indicators"
	FieldData       = "data"
)

// ParseError is attached to the Result of a file that could not be read or decoded.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("paper: %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Record is the raw, schema-agnostic content of one paper file.
type Record struct {
	Source string
	Fields map[string]any
	// IdentifierDefaulted is set when the file had no identifier key and the
	// file name stem was used instead.
	IdentifierDefaulted bool
}

// Identifier returns the record's identifier when it is a string.
func (r *Record) Identifier() (string, bool) {
	if r == nil {
		return "", false
	}
	id, ok := r.Fields[FieldIdentifier].(string)
	return id, ok
}

// String returns a top-level string field, if present and a string.
func (r *Record) String(key string) (string, bool) {
	if r == nil {
		return "", false
	}
	value, ok := r.Fields[key].(string)
	return value, ok
}

// Result pairs a source path with either its record or its parse error.
type Result struct {
	Source string
	Record *Record
	Err    *ParseError
}

// OK reports whether the source decoded into a record.
func (r Result) OK() bool {
	return r.Err == nil && r.Record != nil
}

// Paper is the typed form of a record that passed validation.
type Paper struct {
	Identifier string         `json:"identifier"`
	Domain     string         `json:"domain"`
	Subdomain  string         `json:"subdomain"`
	Indicators []string       `json:"indicators"`
	Data       map[string]any `json:"data"`
}

// Parse decodes one paper document. source is used for identifier
// defaulting and error reporting.
func Parse(source string, data []byte) (*Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Source: source, Err: errors.New("document is empty")}
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Source: source, Err: fmt.Errorf("decode yaml: %w", err)}
	}
	fields, ok := Normalize(doc).(map[string]any)
	if !ok {
		return nil, &ParseError{Source: source, Err: fmt.Errorf("top level must be a mapping, got %T", doc)}
	}
	rec := &Record{Source: source, Fields: fields}
	if _, present := fields[FieldIdentifier]; !present {
		fields[FieldIdentifier] = Stem(source)
		rec.IdentifierDefaulted = true
	}
	return rec, nil
}

// LoadFile reads and parses the file at path.
func LoadFile(path string) Result {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Source: path, Err: &ParseError{Source: path, Err: err}}
	}
	rec, err := Parse(path, data)
	if err != nil {
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			parseErr = &ParseError{Source: path, Err: err}
		}
		return Result{Source: path, Err: parseErr}
	}
	return Result{Source: path, Record: rec}
}

// Stem returns the file name without directory or extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Normalize converts decoded YAML into JSON-compatible values: every mapping
// becomes map[string]any and every sequence []any.
func Normalize(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = Normalize(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = Normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Normalize(item)
		}
		return out
	default:
		return v
	}
}

// Decode converts a record into a typed Paper. It expects the record to have
// passed schema validation and reports the first field that does not fit.
func Decode(rec *Record) (Paper, error) {
	if rec == nil {
		return Paper{}, errors.New("paper: record is nil")
	}
	var p Paper
	var ok bool
	if p.Identifier, ok = rec.String(FieldIdentifier); !ok {
		return Paper{}, fmt.Errorf("paper: %s: identifier must be a string", rec.Source)
	}
	if p.Domain, ok = rec.String(FieldDomain); !ok {
		return Paper{}, fmt.Errorf("paper: %s: domain must be a string", rec.Source)
	}
	if p.Subdomain, ok = rec.String(FieldSubdomain); !ok {
		return Paper{}, fmt.Errorf("paper: %s: subdomain must be a string", rec.Source)
	}
	if raw, present := rec.Fields[FieldIndicators]; present && raw != nil {
		items, ok := raw.([]any)
		if !ok {
			return Paper{}, fmt.Errorf("paper: %s: indicators must be a list", rec.Source)
		}
		p.Indicators = make([]string, 0, len(items))
		for i, item := range items {
			s, ok := item.(string)
			if !ok {
				return Paper{}, fmt.Errorf("paper: %s: indicators[%d] must be a string", rec.Source, i)
			}
			p.Indicators = append(p.Indicators, s)
		}
	}
	if raw, present := rec.Fields[FieldData]; present && raw != nil {
		data, ok := raw.(map[string]any)
		if !ok {
			return Paper{}, fmt.Errorf("paper: %s: data must be a mapping", rec.Source)
		}
		p.Data = data
	}
	return p, nil
}
