// Package build turns valid papers into consolidated CSV or JSON outputs.
// Output depends only on the input order and content, so repeated builds of
// an unchanged catalog are byte-identical.
package build

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kingrea/paper-catalog/internal/paper"
)

// Format names a supported output encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// IndicatorDelimiter joins list values inside a CSV cell.
const IndicatorDelimiter = ";"

// BaseColumns lead every CSV header.
var BaseColumns = []string{"identifier", "domain", "subdomain", "indicators"}

// UnsupportedFormatError is returned for any format other than csv or json.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("build: unsupported format %q (want csv or json)", e.Format)
}

// ParseFormat validates a user-supplied format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatCSV, FormatJSON:
		return f, nil
	}
	return "", &UnsupportedFormatError{Format: name}
}

// FileName returns the output file name for a format.
func (f Format) FileName() string {
	return "catalog." + string(f)
}

// Option customizes a build.
type Option func(*options)

type options struct {
	columns []string
}

// WithColumns fixes the order of the leading data columns in CSV output.
// Paths are dotted, relative to the data mapping.
func WithColumns(paths []string) Option {
	return func(o *options) {
		o.columns = append([]string(nil), paths...)
	}
}

// Build renders papers in the given format.
func Build(papers []paper.Paper, format Format, opts ...Option) ([]byte, error) {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	switch format {
	case FormatCSV:
		return buildCSV(papers, o)
	case FormatJSON:
		return buildJSON(papers)
	}
	return nil, &UnsupportedFormatError{Format: string(format)}
}

// Write builds papers and replaces <dir>/catalog.<format>. Nothing is written
// when the build fails.
func Write(dir string, format Format, papers []paper.Paper, opts ...Option) (string, error) {
	data, err := Build(papers, format, opts...)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("build: ensure output dir: %w", err)
	}
	path := filepath.Join(dir, format.FileName())
	tmp, err := os.CreateTemp(dir, ".catalog-*.tmp")
	if err != nil {
		return "", fmt.Errorf("build: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("build: write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("build: close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("build: replace %s: %w", path, err)
	}
	return path, nil
}

func buildJSON(papers []paper.Paper) ([]byte, error) {
	out := make([]paper.Paper, len(papers))
	for i, p := range papers {
		p.Data, _ = markFloats(p.Data).(map[string]any)
		out[i] = p
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("build: encode json: %w", err)
	}
	return append(data, '\n'), nil
}

// ReadJSON reloads papers from a JSON build.
func ReadJSON(data []byte) ([]paper.Paper, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("build: decode json: %w", err)
	}
	out := make([]paper.Paper, 0, len(raw))
	for i, fields := range raw {
		fields, _ = restoreNumbers(fields).(map[string]any)
		p, err := paper.Decode(&paper.Record{Source: fmt.Sprintf("[%d]", i), Fields: fields})
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// jsonFloat always encodes with a fraction or exponent so that ReadJSON can
// tell it apart from an integer.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil, fmt.Errorf("unsupported float value %v", v)
	}
	format := byte('f')
	if abs := math.Abs(v); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	b := strconv.AppendFloat(nil, v, format, -1, 64)
	if !bytes.ContainsAny(b, ".eE") {
		b = append(b, ".0"...)
	}
	return b, nil
}

// markFloats copies value, wrapping every float64 in jsonFloat.
func markFloats(value any) any {
	switch v := value.(type) {
	case map[string]any:
		if v == nil {
			return v
		}
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = markFloats(item)
		}
		return out
	case []any:
		if v == nil {
			return v
		}
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = markFloats(item)
		}
		return out
	case float64:
		return jsonFloat(v)
	case float32:
		return jsonFloat(v)
	default:
		return v
	}
}

// restoreNumbers turns json.Number back into the int, uint64 or float64 that
// the YAML decoder would have produced. Literals with a fraction or exponent
// are floats.
func restoreNumbers(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, item := range v {
			v[key] = restoreNumbers(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = restoreNumbers(item)
		}
		return v
	case json.Number:
		lit := v.String()
		if !strings.ContainsAny(lit, ".eE") {
			if n, err := strconv.ParseInt(lit, 10, 0); err == nil {
				return int(n)
			}
			if n, err := strconv.ParseUint(lit, 10, 64); err == nil {
				return n
			}
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return lit
	default:
		return v
	}
}

func buildCSV(papers []paper.Paper, o options) ([]byte, error) {
	rows := make([]map[string]string, len(papers))
	extra := make(map[string]bool)
	declared := make(map[string]bool, len(o.columns))
	for _, c := range o.columns {
		declared[c] = true
	}
	for i, p := range papers {
		flat := make(map[string]string)
		flatten("", p.Data, flat)
		rows[i] = flat
		for path := range flat {
			if !declared[path] {
				extra[path] = true
			}
		}
	}
	dataColumns := append([]string(nil), o.columns...)
	var rest []string
	for path := range extra {
		rest = append(rest, path)
	}
	sort.Strings(rest)
	dataColumns = append(dataColumns, rest...)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := append([]string(nil), BaseColumns...)
	for _, c := range dataColumns {
		header = append(header, "data."+c)
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("build: write csv header: %w", err)
	}
	for i, p := range papers {
		record := []string{p.Identifier, p.Domain, p.Subdomain, strings.Join(p.Indicators, IndicatorDelimiter)}
		for _, c := range dataColumns {
			record = append(record, rows[i][c])
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("build: write csv row %s: %w", p.Identifier, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("build: flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// flatten writes every leaf of value into out under its dotted path.
func flatten(prefix string, value map[string]any, out map[string]string) {
	for key, item := range value {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if nested, ok := item.(map[string]any); ok && len(nested) > 0 {
			flatten(path, nested, out)
			continue
		}
		out[path] = cell(item)
	}
}

func cell(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.Format(time.RFC3339)
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = cell(item)
		}
		return strings.Join(parts, IndicatorDelimiter)
	case map[string]any:
		if len(v) == 0 {
			return ""
		}
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	default:
		return fmt.Sprint(v)
	}
}
