// Package schema loads the structural contracts that paper and taxonomy
// records must satisfy. A definition is a YAML or JSON document:
//
//	kind: paper
//	fields:
//	  identifier: {type: string, required: true}
//	  domain:     {type: string, required: true}
//	  indicators: {type: "array<string>", required: true}
//	  data:
//	    type: object
//	    required: true
//	    fields:
//	      study_type: {type: string}
//
// Field order is taken from the document and drives violation ordering and
// CSV column ordering downstream.
package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported field types. array<T> is accepted for any supported T.
const (
	TypeString = "string"
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeNumber = "number"
	TypeBool   = "bool"
	TypeDate   = "date"
	TypeArray  = "array"
	TypeObject = "object"
	TypeAny    = "any"
)

var scalarTypes = map[string]bool{
	TypeString: true,
	TypeInt:    true,
	TypeFloat:  true,
	TypeNumber: true,
	TypeBool:   true,
	TypeDate:   true,
	TypeArray:  true,
	TypeObject: true,
	TypeAny:    true,
}

// LoadError reports a schema source that cannot be used for validation.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("schema: %v", e.Err)
	}
	return fmt.Sprintf("schema: %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Field describes one named field of a record.
type Field struct {
	Name        string
	Type        string
	Required    bool
	Enum        []string
	Description string
	// Fields lists the sub-fields of an object field, in document order.
	Fields []Field
}

// Definition is the structural contract for one record kind.
type Definition struct {
	Kind   string
	Source string
	Fields []Field
}

type document struct {
	Kind   string    `yaml:"kind"`
	Fields fieldList `yaml:"fields"`
}

type fieldSpec struct {
	Type        string    `yaml:"type"`
	Required    bool      `yaml:"required"`
	Enum        []string  `yaml:"enum,omitempty"`
	Description string    `yaml:"description,omitempty"`
	Fields      fieldList `yaml:"fields,omitempty"`
}

type fieldList []Field

// UnmarshalYAML keeps mapping order, which a plain map would lose.
func (l *fieldList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: fields must be a mapping of name to field spec", node.Line)
	}
	out := make(fieldList, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		var spec fieldSpec
		if value.Kind == yaml.ScalarNode {
			// shorthand: `name: string`
			spec.Type = value.Value
		} else if err := value.Decode(&spec); err != nil {
			return fmt.Errorf("field %q: %w", key.Value, err)
		}
		out = append(out, Field{
			Name:        strings.TrimSpace(key.Value),
			Type:        strings.TrimSpace(spec.Type),
			Required:    spec.Required,
			Enum:        spec.Enum,
			Description: spec.Description,
			Fields:      []Field(spec.Fields),
		})
	}
	*l = out
	return nil
}

// Parse decodes and checks a definition from YAML/JSON bytes.
func Parse(data []byte) (*Definition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &LoadError{Err: errors.New("definition payload is empty")}
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Err: fmt.Errorf("decode definition: %w", err)}
	}
	def := &Definition{
		Kind:   strings.TrimSpace(doc.Kind),
		Fields: []Field(doc.Fields),
	}
	if err := def.check(); err != nil {
		return nil, &LoadError{Err: err}
	}
	return def, nil
}

// Load reads a definition from r.
func Load(r io.Reader) (*Definition, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, &LoadError{Err: fmt.Errorf("read definition: %w", err)}
	}
	return Parse(content)
}

// LoadFile loads a definition from disk. When the document omits kind, it is
// derived from the file name (paper.schema.json -> paper).
func LoadFile(path string) (*Definition, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	def, err := Parse(content)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			loadErr.Source = path
		}
		return nil, err
	}
	def.Source = filepath.Clean(path)
	if def.Kind == "" {
		def.Kind = kindFromFilename(path)
	}
	return def, nil
}

// Field returns the top-level field with the given name.
func (d *Definition) Field(name string) (Field, bool) {
	if d == nil {
		return Field{}, false
	}
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Required lists the names of required top-level fields in order.
func (d *Definition) Required() []string {
	if d == nil {
		return nil
	}
	var names []string
	for _, f := range d.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// Columns returns the dotted leaf paths declared beneath an object field.
// Used to give CSV data columns a stable, schema-defined order.
func (d *Definition) Columns(name string) []string {
	f, ok := d.Field(name)
	if !ok {
		return nil
	}
	return leafPaths("", f.Fields)
}

func leafPaths(prefix string, fields []Field) []string {
	var out []string
	for _, f := range fields {
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}
		if len(f.Fields) > 0 {
			out = append(out, leafPaths(path, f.Fields)...)
			continue
		}
		out = append(out, path)
	}
	return out
}

func (d *Definition) check() error {
	if len(d.Fields) == 0 {
		return errors.New("definition declares no fields")
	}
	if err := checkFields("", d.Fields); err != nil {
		return err
	}
	if len(d.Required()) == 0 {
		return errors.New("definition must mark at least one field as required")
	}
	return nil
}

func checkFields(prefix string, fields []Field) error {
	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}
		if f.Name == "" {
			return fmt.Errorf("fields[%d]: name is required", i)
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate field %q", path)
		}
		seen[f.Name] = true
		if !IsValidType(f.Type) {
			return fmt.Errorf("field %q: invalid type %q", path, f.Type)
		}
		if len(f.Enum) > 0 && f.Type != TypeString {
			return fmt.Errorf("field %q: enum is only supported on string fields", path)
		}
		if len(f.Fields) > 0 {
			if f.Type != TypeObject {
				return fmt.Errorf("field %q: nested fields require type object", path)
			}
			if err := checkFields(path, f.Fields); err != nil {
				return err
			}
		}
	}
	return nil
}

// IsValidType reports whether t is a supported field type, including array<T>.
func IsValidType(t string) bool {
	if inner, ok := arrayElem(t); ok {
		return IsValidType(inner)
	}
	return scalarTypes[t]
}

func arrayElem(t string) (string, bool) {
	if strings.HasPrefix(t, "array<") && strings.HasSuffix(t, ">") {
		return strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(t, "array<"), ">")), true
	}
	return "", false
}

func kindFromFilename(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.TrimSuffix(base, ".schema")
}
