// Package action defines the typed action contract: parameter schemas,
// input validation/coercion, and the failure taxonomy shared by every
// stage of the dispatch pipeline.
package action

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the declared type of a single action parameter.
type Kind string

const (
	String Kind = "string"
	Int    Kind = "int"
	Bool   Kind = "bool"
)

// Param describes one expected input of an action. Optional parameters
// carry a Default whose dynamic type must match Kind.
type Param struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Kind        Kind   `json:"kind"`
	Required    bool   `json:"required,omitempty"`
	Default     any    `json:"default,omitempty"`
}

// Definition is the immutable, human-readable description of one action.
// Definitions are built once at registry construction and never mutated.
type Definition struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params,omitempty"`
}

// Check verifies the schema invariants: unique parameter names, and a
// type-consistent default on every optional parameter.
func (d Definition) Check() error {
	seen := make(map[string]bool, len(d.Params))
	for _, p := range d.Params {
		if seen[p.Name] {
			return fmt.Errorf("action %q: duplicate parameter %q", d.Name, p.Name)
		}
		seen[p.Name] = true

		if p.Required {
			continue
		}
		if p.Default == nil {
			return fmt.Errorf("action %q: optional parameter %q has no default", d.Name, p.Name)
		}
		if _, err := coerce(p.Kind, p.Default); err != nil {
			return fmt.Errorf("action %q: parameter %q default does not match kind %s", d.Name, p.Name, p.Kind)
		}
	}
	return nil
}

// Args holds validated, concretely-typed argument values for a single
// invocation. Values are string, int64, or bool.
type Args map[string]any

// String returns the named argument as a string ("" when absent).
func (a Args) String(name string) string {
	v, _ := a[name].(string)
	return v
}

// Int returns the named argument as an int64 (0 when absent).
func (a Args) Int(name string) int64 {
	v, _ := a[name].(int64)
	return v
}

// Bool returns the named argument as a bool (false when absent).
func (a Args) Bool(name string) bool {
	v, _ := a[name].(bool)
	return v
}

// Result is the normalized outcome of a successful action. Every result
// carries a "success" field plus action-specific fields.
type Result map[string]any

// Validate coerces a loosely-typed input map against the definition's
// parameter schema. Required parameters must be present; optional ones
// are filled from their defaults. Keys not declared in the schema are
// ignored for forward compatibility. Validate has no side effects.
func Validate(def Definition, in map[string]any) (Args, error) {
	args := make(Args, len(def.Params))
	for _, p := range def.Params {
		raw, ok := in[p.Name]
		if !ok {
			if p.Required {
				return nil, MissingParam(def.Name, p.Name)
			}
			// Defaults were checked at construction time.
			v, _ := coerce(p.Kind, p.Default)
			args[p.Name] = v
			continue
		}
		v, err := coerce(p.Kind, raw)
		if err != nil {
			return nil, Mismatch(def.Name, p.Name, p.Kind, raw)
		}
		args[p.Name] = v
	}
	return args, nil
}

// coerce converts a dynamically-typed value to the concrete Go type for
// the given kind. JSON decoders hand integers over as float64, so
// integral floats are accepted; numeric and boolean strings parse too.
func coerce(kind Kind, v any) (any, error) {
	switch kind {
	case String:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case Int:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int64:
			return n, nil
		case float64:
			if n == float64(int64(n)) {
				return int64(n), nil
			}
		case string:
			if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
				return i, nil
			}
		}
	case Bool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(b)) {
			case "true":
				return true, nil
			case "false":
				return false, nil
			}
		}
	}
	return nil, fmt.Errorf("cannot interpret %v as %s", v, kind)
}
