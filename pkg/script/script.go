// Package script builds PowerShell command text for the process
// executor. Values are embedded as single-quoted literals with the
// quote character doubled, so user-supplied names can never alter the
// statement structure.
package script

import (
	"fmt"
	"strings"
)

// Script is an ordered sequence of statements rendered as one
// multi-statement command, so a logical action costs a single
// subprocess invocation.
type Script struct {
	stmts []string
}

// New returns an empty script.
func New() *Script {
	return &Script{}
}

// Add appends a statement. Arguments are substituted with fmt verbs;
// any user-supplied string must be passed through Quote first.
func (s *Script) Add(format string, args ...any) *Script {
	s.stmts = append(s.stmts, fmt.Sprintf(format, args...))
	return s
}

// AddNonFatal appends a best-effort statement whose own failure must
// not abort the statements that follow it. The statement is wrapped in
// try/catch at the script level, so the executor never sees its error.
func (s *Script) AddNonFatal(format string, args ...any) *Script {
	stmt := fmt.Sprintf(format, args...)
	s.stmts = append(s.stmts, "try { "+stmt+" } catch { }")
	return s
}

// Len returns the number of statements.
func (s *Script) Len() int { return len(s.stmts) }

// String renders the statements as a single semicolon-joined command.
func (s *Script) String() string {
	return strings.Join(s.stmts, "; ")
}

// Quote renders v as a PowerShell single-quoted string literal.
// Inside single quotes PowerShell performs no interpolation; the only
// character needing escape is the quote itself, which is doubled.
func Quote(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}
