package config

import (
	"strings"
	"testing"
	"time"
)

func TestParsePartialOverrides(t *testing.T) {
	cfg, err := Parse(strings.NewReader("defaults:\n  memory_mb: 4096\n  cpu_count: 2\n  generation: 2\n  switch_name: Lab\n  controller_type: SCSI\nshell:\n  timeout_seconds: 30\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Defaults.MemoryMB != 4096 {
		t.Errorf("memory_mb = %d, want 4096", cfg.Defaults.MemoryMB)
	}
	if cfg.Defaults.SwitchName != "Lab" {
		t.Errorf("switch_name = %q, want Lab", cfg.Defaults.SwitchName)
	}
	if cfg.Timeout() != 30*time.Second {
		t.Errorf("timeout = %s, want 30s", cfg.Timeout())
	}
}

func TestParseEmptyKeepsDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Default()
	if cfg.Defaults != want.Defaults {
		t.Errorf("defaults = %+v, want %+v", cfg.Defaults, want.Defaults)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	if _, err := Parse(strings.NewReader("defautls:\n  memory_mb: 1\n")); err == nil {
		t.Error("expected error for misspelled top-level key")
	}
}

func TestShellBinaryResolutionOrder(t *testing.T) {
	cfg := Default()
	cfg.Shell.Binary = "pwsh-preview"
	t.Setenv("HVCPI_SHELL", "pwsh-env")
	if got := cfg.ShellBinary(); got != "pwsh-preview" {
		t.Errorf("file value must win: got %q", got)
	}

	cfg.Shell.Binary = ""
	if got := cfg.ShellBinary(); got != "pwsh-env" {
		t.Errorf("env fallback: got %q", got)
	}
}

func TestTimeoutEnvOverride(t *testing.T) {
	cfg := Default()
	t.Setenv("HVCPI_TIMEOUT_SECONDS", "5")
	if cfg.Timeout() != 5*time.Second {
		t.Errorf("timeout = %s, want 5s", cfg.Timeout())
	}
}

func TestValidateDomain(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"zero memory", func(c *Config) { c.Defaults.MemoryMB = 0 }, "defaults.memory_mb"},
		{"zero cpus", func(c *Config) { c.Defaults.CPUCount = 0 }, "defaults.cpu_count"},
		{"bad generation", func(c *Config) { c.Defaults.Generation = 3 }, "defaults.generation"},
		{"empty switch", func(c *Config) { c.Defaults.SwitchName = "" }, "defaults.switch_name"},
		{"bad controller", func(c *Config) { c.Defaults.ControllerType = "USB" }, "defaults.controller_type"},
		{"negative timeout", func(c *Config) { c.Shell.TimeoutSeconds = -1 }, "shell.timeout_seconds"},
		{"bad redact regex", func(c *Config) {
			c.Redact = []RedactionRule{{Pattern: "["}}
		}, "redact[0].pattern"},
		{"bad allow glob", func(c *Config) {
			c.Policy.AllowActions = []string{"["}
		}, "policy.allow_actions[0]"},
		{"bad deny glob", func(c *Config) {
			c.Policy.DenyActions = []string{"["}
		}, "policy.deny_actions[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := ValidateDomain(cfg)
			found := false
			for _, e := range errs {
				if e.Path == tt.path && e.Severity == "error" {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error at %s, got %v", tt.path, errs)
			}
		})
	}
}

func TestValidateDomainWarnsOnDisabledTimeout(t *testing.T) {
	cfg := Default()
	cfg.Shell.TimeoutSeconds = 0
	errs := ValidateDomain(cfg)
	if HasErrors(errs) {
		t.Errorf("disabled timeout must be a warning, got %v", errs)
	}
	if len(errs) == 0 {
		t.Error("expected a warning for disabled timeout")
	}
}

func TestValidateStockConfig(t *testing.T) {
	if errs := Validate(Default()); HasErrors(errs) {
		t.Errorf("stock config must validate cleanly, got %v", errs)
	}
}

func TestValidateFileMissingPath(t *testing.T) {
	_, errs := ValidateFile("testdata/does-not-exist.yaml")
	if !HasErrors(errs) {
		t.Fatal("expected a structural error for a missing file")
	}
	if errs[0].Phase != "structural" {
		t.Errorf("phase = %q, want structural", errs[0].Phase)
	}
}

func TestGenerateJSONSchema(t *testing.T) {
	data, err := GenerateJSONSchema()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"provider-config-v0.json", "defaults", "redact"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("schema missing %q", want)
		}
	}
}
