package shell

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestArgvInvocationPolicy(t *testing.T) {
	p := New("pwsh")
	argv := p.argv("Get-VM")

	for _, flag := range []string{"-NoLogo", "-NoProfile", "-NonInteractive", "Bypass"} {
		found := false
		for _, a := range argv {
			if a == flag {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("argv missing policy flag %s: %v", flag, argv)
		}
	}

	// The command text is always the final argument, preceded by -Command.
	if argv[len(argv)-2] != "-Command" || argv[len(argv)-1] != "Get-VM" {
		t.Errorf("argv does not end with -Command <script>: %v", argv)
	}
}

func TestWrapSuppressesChatterAndStopsOnError(t *testing.T) {
	got := wrap("Get-VM")
	if !strings.Contains(got, "$ProgressPreference = 'SilentlyContinue'") {
		t.Errorf("wrap missing progress suppression: %s", got)
	}
	if !strings.Contains(got, "$ErrorActionPreference = 'Stop'") {
		t.Errorf("wrap missing terminating error preference: %s", got)
	}
	if !strings.HasPrefix(got, "& {") || !strings.HasSuffix(got, "}") {
		t.Errorf("wrap not a script block: %s", got)
	}
}

func TestRunSpawnFailure(t *testing.T) {
	p := New("hvcpi-test-no-such-binary", WithTimeout(5*time.Second))
	if _, err := p.Run(context.Background(), "Get-VM"); err == nil {
		t.Fatal("expected spawn error for missing binary")
	}
}

func TestResultSucceeded(t *testing.T) {
	if !(&Result{ExitCode: 0}).Succeeded() {
		t.Error("exit 0 should succeed")
	}
	if (&Result{ExitCode: 1}).Succeeded() {
		t.Error("exit 1 should not succeed")
	}
}

func TestDefaultBinaryPerPlatform(t *testing.T) {
	p := New("")
	if p.binary == "" {
		t.Fatal("empty default binary")
	}
	if !strings.HasPrefix(p.binary, "pwsh") && !strings.HasPrefix(p.binary, "powershell") {
		t.Errorf("unexpected default binary %q", p.binary)
	}
}
