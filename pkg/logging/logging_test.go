package logging

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		raw  string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"nonsense", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Setenv("HVCPI_LOG_LEVEL", tt.raw)
		if got := levelFromEnv(); got != tt.want {
			t.Errorf("levelFromEnv(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}

func TestInitSetsAppField(t *testing.T) {
	logger := Init("hvcpi-test")
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Errorf("default level = %s, want info", logger.GetLevel())
	}
}
