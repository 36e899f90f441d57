// Package normalize converts the external tool's textual output into
// structured values. The tool is not consistent: depending on the
// command it returns CSV with a header row, a single JSON object, a
// JSON array, or a bare scalar. Each decoder here handles one shape;
// which shape applies is declared per action at registry construction.
package normalize

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Shape is the declared output encoding of an action.
type Shape string

const (
	// Table is CSV with one header line and zero or more data rows.
	Table Shape = "table"
	// JSON is a single object or an array of objects, sniffed at runtime
	// because the tool emits one or the other depending on cardinality.
	JSON Shape = "json"
	// Scalar is a bare integer or boolean literal.
	Scalar Shape = "scalar"
	// SideEffect means no structured payload: success is the exit status.
	SideEffect Shape = "side_effect"
)

// DecodeTable parses header-plus-rows CSV, mapping positional fields to
// the given column names. The header line is skipped; output with only
// a header yields an empty collection, not an error. Surrounding quote
// characters are stripped by the CSV reader.
func DecodeTable(text string, columns []string) ([]map[string]string, error) {
	r := csv.NewReader(strings.NewReader(strings.TrimSpace(text)))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) <= 1 {
		return []map[string]string{}, nil
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) < len(columns) {
			continue
		}
		row := make(map[string]string, len(columns))
		for i, col := range columns {
			row[col] = rec[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// DecodeObjects parses JSON output that may be a single object or an
// array of objects, sniffing the first non-whitespace character.
// Empty output decodes to an empty collection (a listing with nothing
// to list); anything else that is not JSON is an error.
func DecodeObjects(text string) ([]map[string]any, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, nil
	}
	switch trimmed[0] {
	case '{':
		var obj map[string]any
		if err := json.UnmarshalFromString(trimmed, &obj); err != nil {
			return nil, fmt.Errorf("parse json object: %w", err)
		}
		return []map[string]any{obj}, nil
	case '[':
		var objs []map[string]any
		if err := json.UnmarshalFromString(trimmed, &objs); err != nil {
			return nil, fmt.Errorf("parse json array: %w", err)
		}
		return objs, nil
	default:
		return nil, fmt.Errorf("expected json, got %q", snippet(trimmed))
	}
}

// DecodeObject parses output that must be exactly one JSON object.
func DecodeObject(text string) (map[string]any, error) {
	objs, err := DecodeObjects(text)
	if err != nil {
		return nil, err
	}
	if len(objs) != 1 {
		return nil, fmt.Errorf("expected a single json object, got %d", len(objs))
	}
	return objs[0], nil
}

// Count parses a bare integer scalar. Empty output counts as zero (the
// query matched nothing); non-numeric text is an error rather than a
// silent zero, so a broken tool is not mistaken for absence.
func Count(text string) (int64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("expected integer scalar, got %q", snippet(trimmed))
	}
	return n, nil
}

// Truthy parses a case-insensitive boolean literal. Empty output is
// false; anything other than true/false is an error.
func Truthy(text string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "true":
		return true, nil
	case "false", "":
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean scalar, got %q", snippet(text))
	}
}

// Lookup translates categorical numeric codes into named states. Codes
// outside the table map to Unknown instead of failing.
type Lookup map[int64]string

// Unknown is the catch-all name for codes missing from a lookup table.
const Unknown = "Unknown"

// Name resolves a code of any numeric runtime type. JSON decoding
// yields float64, CSV yields strings; both are accepted.
func (l Lookup) Name(code any) string {
	var n int64
	switch c := code.(type) {
	case int64:
		n = c
	case int:
		n = int64(c)
	case float64:
		n = int64(c)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(c), 10, 64)
		if err != nil {
			// Some tool versions emit the name directly instead of the code.
			if name, ok := l.byName(c); ok {
				return name
			}
			return Unknown
		}
		n = parsed
	default:
		return Unknown
	}
	if name, ok := l[n]; ok {
		return name
	}
	return Unknown
}

func (l Lookup) byName(s string) (string, bool) {
	for _, name := range l {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return name, true
		}
	}
	return "", false
}

// Str extracts a string field with a typed-default fallback: absent or
// differently-typed fields yield def, never an error.
func Str(m map[string]any, key, def string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return def
}

// Num extracts a numeric field, tolerating the float64 that JSON
// decoding produces. Absent or non-numeric fields yield def.
func Num(m map[string]any, key string, def int64) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return def
	}
}

// snippet trims long raw output for error messages.
func snippet(s string) string {
	if len(s) <= 120 {
		return s
	}
	return s[:120] + "..."
}
