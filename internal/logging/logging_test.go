package logging

import (
	"testing"

	"go.uber.org/zap"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level   string
		format  string
		wantErr bool
	}{
		{"info", "console", false},
		{"DEBUG", "json", false},
		{"warn", "", false},
		{"loud", "console", true},
	}
	for _, tt := range tests {
		_, err := New(tt.level, tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%q, %q) error = %v, wantErr %v", tt.level, tt.format, err, tt.wantErr)
		}
	}
}

func TestSetupReplacesGlobals(t *testing.T) {
	before := zap.L()
	restore, err := Setup("warn", "json")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if zap.L() == before {
		t.Error("expected global logger to change")
	}
	if zap.L().Core().Enabled(zap.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	restore()
	if zap.L() != before {
		t.Error("expected restore to reinstate previous logger")
	}
}
