// Package config loads and validates the provider settings file: the
// fallbacks applied to optional action parameters, the shell binary
// and timeout, and output redaction rules. Parsing is strict — unknown
// fields are rejected — and validation runs in three phases:
// structural (YAML decode), semantic (JSON Schema), and domain rules.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ormasoftchile/hvcpi/pkg/hyperv"
)

// Config is the root of the provider settings file.
type Config struct {
	Defaults hyperv.Defaults `yaml:"defaults" json:"defaults"`
	Shell    Shell           `yaml:"shell,omitempty" json:"shell,omitempty"`
	Redact   []RedactionRule `yaml:"redact,omitempty" json:"redact,omitempty"`
	Policy   Policy          `yaml:"policy,omitempty" json:"policy,omitempty"`
}

// Policy restricts which catalog actions may be dispatched. Patterns
// are shell globs matched against action names.
type Policy struct {
	AllowActions []string `yaml:"allow_actions,omitempty" json:"allow_actions,omitempty"`
	DenyActions  []string `yaml:"deny_actions,omitempty" json:"deny_actions,omitempty"`
}

// Shell configures how the external tool is invoked.
type Shell struct {
	Binary         string `yaml:"binary,omitempty" json:"binary,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty"`
}

// RedactionRule masks sensitive values in logged script text and
// surfaced tool errors.
type RedactionRule struct {
	Pattern string `yaml:"pattern" json:"pattern" jsonschema:"required"`
	Replace string `yaml:"replace,omitempty" json:"replace,omitempty"`
}

// Default returns the stock configuration used when no file is given.
func Default() *Config {
	return &Config{
		Defaults: hyperv.DefaultSettings(),
		Shell:    Shell{TimeoutSeconds: 60},
	}
}

// Load reads a settings file with strict unknown-field rejection.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes settings from a reader. Absent fields keep the stock
// defaults so a partial file only overrides what it names.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if err == io.EOF {
			return cfg, nil
		}
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// ShellBinary resolves the tool binary. Resolution order: config file,
// HVCPI_SHELL environment variable, platform default (empty string —
// the shell package picks the platform binary).
func (c *Config) ShellBinary() string {
	return firstOf(c.Shell.Binary, os.Getenv("HVCPI_SHELL"))
}

// Timeout resolves the per-invocation bound. HVCPI_TIMEOUT_SECONDS
// overrides the file; zero disables the bound.
func (c *Config) Timeout() time.Duration {
	if env := os.Getenv("HVCPI_TIMEOUT_SECONDS"); env != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(env)); err == nil && n >= 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(c.Shell.TimeoutSeconds) * time.Second
}

// firstOf returns the first non-empty string from the arguments.
func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ValidateDomain performs Phase 3 domain-level validation.
// Returns a slice of errors; empty means valid.
func ValidateDomain(cfg *Config) []*ValidationError {
	var errs []*ValidationError

	if cfg.Defaults.MemoryMB <= 0 {
		errs = append(errs, &ValidationError{
			Phase:    "domain",
			Path:     "defaults.memory_mb",
			Message:  fmt.Sprintf("memory_mb must be positive, got %d", cfg.Defaults.MemoryMB),
			Severity: "error",
		})
	}
	if cfg.Defaults.CPUCount <= 0 {
		errs = append(errs, &ValidationError{
			Phase:    "domain",
			Path:     "defaults.cpu_count",
			Message:  fmt.Sprintf("cpu_count must be positive, got %d", cfg.Defaults.CPUCount),
			Severity: "error",
		})
	}
	if g := cfg.Defaults.Generation; g != 1 && g != 2 {
		errs = append(errs, &ValidationError{
			Phase:    "domain",
			Path:     "defaults.generation",
			Message:  fmt.Sprintf("generation must be 1 or 2, got %d", g),
			Severity: "error",
		})
	}
	if cfg.Defaults.SwitchName == "" {
		errs = append(errs, &ValidationError{
			Phase:    "domain",
			Path:     "defaults.switch_name",
			Message:  "switch_name must not be empty",
			Severity: "error",
		})
	}
	switch strings.ToUpper(cfg.Defaults.ControllerType) {
	case "IDE", "SCSI", "DVD":
	default:
		errs = append(errs, &ValidationError{
			Phase:    "domain",
			Path:     "defaults.controller_type",
			Message:  fmt.Sprintf("controller_type must be IDE, SCSI, or DVD, got %q", cfg.Defaults.ControllerType),
			Severity: "error",
		})
	}

	if cfg.Shell.TimeoutSeconds < 0 {
		errs = append(errs, &ValidationError{
			Phase:    "domain",
			Path:     "shell.timeout_seconds",
			Message:  "timeout_seconds must not be negative",
			Severity: "error",
		})
	}
	if cfg.Shell.TimeoutSeconds == 0 {
		errs = append(errs, &ValidationError{
			Phase:    "domain",
			Path:     "shell.timeout_seconds",
			Message:  "timeout disabled: a hung tool will block its invocation indefinitely",
			Severity: "warning",
		})
	}

	for i, rule := range cfg.Redact {
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			errs = append(errs, &ValidationError{
				Phase:    "domain",
				Path:     fmt.Sprintf("redact[%d].pattern", i),
				Message:  fmt.Sprintf("invalid regex pattern %q: %v", rule.Pattern, err),
				Severity: "error",
			})
		}
	}

	for i, pattern := range cfg.Policy.AllowActions {
		if _, err := filepath.Match(pattern, "probe"); err != nil {
			errs = append(errs, &ValidationError{
				Phase:    "domain",
				Path:     fmt.Sprintf("policy.allow_actions[%d]", i),
				Message:  fmt.Sprintf("invalid glob pattern %q", pattern),
				Severity: "error",
			})
		}
	}
	for i, pattern := range cfg.Policy.DenyActions {
		if _, err := filepath.Match(pattern, "probe"); err != nil {
			errs = append(errs, &ValidationError{
				Phase:    "domain",
				Path:     fmt.Sprintf("policy.deny_actions[%d]", i),
				Message:  fmt.Sprintf("invalid glob pattern %q", pattern),
				Severity: "error",
			})
		}
	}

	return errs
}
