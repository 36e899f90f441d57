// Package registry is the action dispatcher: an immutable table mapping
// each action name to its parameter schema, script builder, and output
// decoder. Execute composes validate → render → run → normalize and
// funnels every stage failure into a single tagged error.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ormasoftchile/hvcpi/pkg/action"
	"github.com/ormasoftchile/hvcpi/pkg/normalize"
	"github.com/ormasoftchile/hvcpi/pkg/script"
	"github.com/ormasoftchile/hvcpi/pkg/shell"
)

// Action binds one definition to its script-construction and
// output-parsing strategies. The output shape is declared here, at
// construction time, not re-sniffed per call.
type Action struct {
	action.Definition

	// Shape declares how the tool encodes this action's output.
	Shape normalize.Shape

	// Build renders the command text from validated arguments.
	Build func(args action.Args) *script.Script

	// Parse converts raw output into the normalized result. It receives
	// the validated arguments so best-effort fallbacks can synthesize a
	// result from the inputs. May be nil for SideEffect actions, which
	// then produce the plain success envelope.
	Parse func(args action.Args, res *shell.Result) (action.Result, error)
}

// Registry dispatches actions. It holds no mutable state after
// construction and is safe for concurrent use; each invocation owns
// its own arguments, subprocess, and result.
type Registry struct {
	order   []string
	actions map[string]Action
	runner  shell.Runner
	log     zerolog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger attaches a logger for per-invocation debug records.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// New builds the registry, checking every definition's schema
// invariants up front so a malformed catalog fails fast.
func New(runner shell.Runner, actions []Action, opts ...Option) (*Registry, error) {
	if runner == nil {
		return nil, errors.New("registry: nil runner")
	}
	r := &Registry{
		actions: make(map[string]Action, len(actions)),
		runner:  runner,
		log:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(r)
	}
	for _, a := range actions {
		if _, dup := r.actions[a.Name]; dup {
			return nil, fmt.Errorf("registry: duplicate action %q", a.Name)
		}
		if err := a.Definition.Check(); err != nil {
			return nil, fmt.Errorf("registry: %w", err)
		}
		if a.Build == nil {
			return nil, fmt.Errorf("registry: action %q has no script builder", a.Name)
		}
		if a.Parse == nil && a.Shape != normalize.SideEffect {
			return nil, fmt.Errorf("registry: action %q declares shape %s but has no parser", a.Name, a.Shape)
		}
		r.actions[a.Name] = a
		r.order = append(r.order, a.Name)
	}
	return r, nil
}

// Actions returns the catalog definitions in registration order.
func (r *Registry) Actions() []action.Definition {
	defs := make([]action.Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.actions[name].Definition)
	}
	return defs
}

// Describe returns the definition for one action.
func (r *Registry) Describe(name string) (action.Definition, bool) {
	a, ok := r.actions[name]
	return a.Definition, ok
}

// Execute runs one action through the full pipeline. Any stage failure
// short-circuits the remaining stages and comes back as an
// *action.Failure; no stage is invoked for an unknown action name.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]any) (action.Result, error) {
	act, ok := r.actions[name]
	if !ok {
		return nil, action.NotFound(name)
	}

	args, err := action.Validate(act.Definition, params)
	if err != nil {
		return nil, err
	}

	command := act.Build(args).String()

	res, err := r.runner.Run(ctx, command)
	if err != nil {
		var timeout *shell.TimeoutError
		if errors.As(err, &timeout) {
			return nil, action.TimedOut(name, timeout.Limit)
		}
		return nil, action.Spawn(name, err)
	}

	r.log.Debug().
		Str("action", name).
		Int("exit", res.ExitCode).
		Dur("duration", res.Duration).
		Msg("action executed")

	if !res.Succeeded() {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = fmt.Sprintf("exit status %d", res.ExitCode)
		}
		return nil, action.ExecFailed(name, msg)
	}

	if act.Parse == nil {
		return action.Result{"success": true}, nil
	}
	out, err := act.Parse(args, res)
	if err != nil {
		return nil, action.Malformed(name, res.Stdout, err)
	}
	return out, nil
}
