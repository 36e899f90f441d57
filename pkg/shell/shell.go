// Package shell runs rendered command text through PowerShell with a
// fixed invocation policy: no profile, no prompts, no progress chatter,
// bypassed execution policy. One subprocess per call, blocking until
// the process exits or the bounded timeout fires.
package shell

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TimeoutError reports an invocation that exceeded the bounded wait.
type TimeoutError struct {
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("tool did not finish within %s", e.Limit)
}

// DefaultTimeout bounds a single tool invocation unless overridden.
var DefaultTimeout = 60 * time.Second

// Result holds the raw output of one tool invocation. It is produced
// once per call and handed straight to the normalizer.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Succeeded reports whether the process exited zero.
func (r *Result) Succeeded() bool { return r.ExitCode == 0 }

// Runner abstracts the external tool boundary so the dispatch pipeline
// can be tested against fakes.
type Runner interface {
	Run(ctx context.Context, command string) (*Result, error)
}

// PowerShell is the production Runner. The zero value is not usable;
// construct with New.
type PowerShell struct {
	binary  string
	timeout time.Duration
	log     zerolog.Logger
	redact  func(string) string
}

// Option configures a PowerShell runner.
type Option func(*PowerShell)

// WithTimeout bounds each invocation; zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(p *PowerShell) { p.timeout = d }
}

// WithLogger attaches a logger; scripts are logged at debug level.
func WithLogger(log zerolog.Logger) Option {
	return func(p *PowerShell) { p.log = log }
}

// WithRedaction applies fn to command text and stderr before logging.
func WithRedaction(fn func(string) string) Option {
	return func(p *PowerShell) { p.redact = fn }
}

// New returns a runner for the given binary. An empty binary selects
// the platform default (powershell.exe on Windows, pwsh elsewhere).
func New(binary string, opts ...Option) *PowerShell {
	if binary == "" {
		binary = DefaultBinary()
	}
	p := &PowerShell{
		binary:  binary,
		timeout: DefaultTimeout,
		log:     zerolog.Nop(),
		redact:  func(s string) string { return s },
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// DefaultBinary is the platform's conventional PowerShell executable.
func DefaultBinary() string {
	if runtime.GOOS == "windows" {
		return "powershell.exe"
	}
	return "pwsh"
}

// warmOnce guards the one-time tool warm-up. The first caller pays the
// startup cost; warm-up failure is never fatal, the real invocation
// will surface any problem itself.
var warmOnce sync.Once

// Warm primes the external tool so the first real call does not absorb
// the interpreter's cold-start latency. Idempotent across the process.
func (p *PowerShell) Warm() {
	warmOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		cmd := exec.CommandContext(ctx, p.binary, p.argv("$PSVersionTable.PSVersion.Major")...)
		if err := cmd.Run(); err != nil {
			p.log.Debug().Err(err).Msg("tool warm-up skipped")
			return
		}
		p.log.Debug().Str("binary", p.binary).Msg("tool warmed up")
	})
}

// Run executes the command text in one subprocess and blocks until it
// terminates. A non-zero exit is not an error at this level: the
// Result carries the exit code and captured stderr. Errors are
// reserved for the transport: spawn failures and the timeout bound.
func (p *PowerShell) Run(ctx context.Context, command string) (*Result, error) {
	p.Warm()

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	p.log.Debug().Str("binary", p.binary).Msg("running script: " + p.redact(command))

	start := time.Now()
	cmd := exec.CommandContext(ctx, p.binary, p.argv(wrap(command))...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	duration := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		return nil, &TimeoutError{Limit: p.timeout}
	}

	exitCode := 0
	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return nil, err
		}
		exitCode = exitErr.ExitCode()
	}

	res := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
		Duration: duration,
	}
	if !res.Succeeded() {
		p.log.Debug().Int("exit", exitCode).Msg("tool failed: " + p.redact(res.Stderr))
	}
	return res, nil
}

// argv builds the fixed invocation flags around the command text. The
// policy is not per-call configurable: non-interactive, no profile,
// bypassed execution policy, hidden window where the OS supports it.
func (p *PowerShell) argv(command string) []string {
	args := []string{
		"-NoLogo",
		"-NoProfile",
		"-NonInteractive",
		"-ExecutionPolicy", "Bypass",
	}
	if runtime.GOOS == "windows" {
		args = append(args, "-WindowStyle", "Hidden")
	}
	return append(args, "-Command", command)
}

// wrap surrounds the script so progress chatter is suppressed and any
// statement error terminates with a non-zero exit.
func wrap(command string) string {
	return "& { $ProgressPreference = 'SilentlyContinue'; $ErrorActionPreference = 'Stop'; " + command + " }"
}
