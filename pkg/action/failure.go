package action

import (
	"errors"
	"fmt"
	"time"
)

// FailureKind tags which pipeline stage produced a failure.
type FailureKind string

const (
	FailUnknownAction   FailureKind = "unknown_action"
	FailMissingParam    FailureKind = "missing_parameter"
	FailTypeMismatch    FailureKind = "type_mismatch"
	FailSpawn           FailureKind = "spawn"
	FailExecution       FailureKind = "execution"
	FailMalformedOutput FailureKind = "malformed_output"
	FailTimeout         FailureKind = "timeout"
)

// Failure is the single error type returned by the dispatch pipeline.
// Every failure carries a message sufficient to diagnose which stage
// failed and why; failures are returned, never panicked.
type Failure struct {
	Kind    FailureKind
	Action  string
	Param   string // offending parameter, for validation failures
	Message string
	Raw     string // raw output that failed to parse, for malformed_output
	Stderr  string // captured stderr, for execution failures
	Err     error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: [%s] %s", f.Action, f.Kind, f.Message)
}

func (f *Failure) Unwrap() error { return f.Err }

// KindOf extracts the failure kind from an error chain, or "" when the
// error is not a pipeline failure.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// NotFound reports a request for an action the registry does not know.
func NotFound(name string) *Failure {
	return &Failure{
		Kind:    FailUnknownAction,
		Action:  name,
		Message: fmt.Sprintf("action %q not found", name),
	}
}

// MissingParam reports an absent required parameter.
func MissingParam(act, param string) *Failure {
	return &Failure{
		Kind:    FailMissingParam,
		Action:  act,
		Param:   param,
		Message: fmt.Sprintf("required parameter %q is missing", param),
	}
}

// Mismatch reports a parameter value that cannot be coerced to its
// declared kind.
func Mismatch(act, param string, kind Kind, got any) *Failure {
	return &Failure{
		Kind:    FailTypeMismatch,
		Action:  act,
		Param:   param,
		Message: fmt.Sprintf("parameter %q: expected %s, got %T (%v)", param, kind, got, got),
	}
}

// Spawn reports a transport-level failure launching the external tool.
func Spawn(act string, err error) *Failure {
	return &Failure{
		Kind:    FailSpawn,
		Action:  act,
		Message: fmt.Sprintf("spawn external tool: %v", err),
		Err:     err,
	}
}

// ExecFailed reports a non-zero exit from the external tool, carrying
// its captured stderr as the diagnosis.
func ExecFailed(act, stderr string) *Failure {
	return &Failure{
		Kind:    FailExecution,
		Action:  act,
		Message: fmt.Sprintf("external tool failed: %s", stderr),
		Stderr:  stderr,
	}
}

// Malformed reports output that could not be parsed in the declared
// shape. The raw text is carried so the contract break is visible.
func Malformed(act, raw string, err error) *Failure {
	return &Failure{
		Kind:    FailMalformedOutput,
		Action:  act,
		Message: fmt.Sprintf("cannot parse tool output: %v", err),
		Raw:     raw,
		Err:     err,
	}
}

// TimedOut reports an external tool call that exceeded its bounded wait.
func TimedOut(act string, limit time.Duration) *Failure {
	return &Failure{
		Kind:    FailTimeout,
		Action:  act,
		Message: fmt.Sprintf("external tool did not finish within %s", limit),
	}
}
