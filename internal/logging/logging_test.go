package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLogger_JSONLevelAndComponent(t *testing.T) {
	var buf bytes.Buffer
	lg := NewLogger(Options{Level: "debug", Writer: &buf, Component: "observe"})
	lg.Debug("poll", "observation", "applications/1/observations/a")

	out := strings.TrimSpace(buf.String())
	if !strings.Contains(out, `"level":"DEBUG"`) {
		t.Fatalf("expected DEBUG level, got %s", out)
	}
	if !strings.Contains(out, `"component":"observe"`) {
		t.Fatalf("expected component field, got %s", out)
	}
}

func TestNewLogger_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	lg := NewLogger(Options{Level: "chatty", Writer: &buf})

	lg.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug record emitted at default level: %s", buf.String())
	}
	lg.Info("visible")
	if !strings.Contains(buf.String(), `"level":"INFO"`) {
		t.Fatalf("info record missing: %s", buf.String())
	}
}

func TestDiscard_DropsRecords(t *testing.T) {
	lg := Discard()
	lg.Error("nobody hears this")
}
