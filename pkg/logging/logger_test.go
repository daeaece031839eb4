package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		got, ok := ParseLevel(in)
		if !ok || got != want {
			t.Fatalf("ParseLevel(%q) = %v,%v want %v", in, got, ok, want)
		}
	}
	if _, ok := ParseLevel("loud"); ok {
		t.Fatalf("expected unknown level rejected")
	}
}

func TestComponentLoggerJSON(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	base := InitLogger(&buf, "debug", "json")
	NewComponentLogger(base, "call").Info("call_stage_changed", "to", "ivr")
	out := buf.String()
	if !strings.Contains(out, `"component":"call"`) {
		t.Fatalf("expected component attr, got %s", out)
	}
	if !strings.Contains(out, `"msg":"call_stage_changed"`) {
		t.Fatalf("expected message, got %s", out)
	}
}

func TestInvalidFormatFallsBackToText(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	InitLogger(&buf, "info", "xml")
	if !strings.Contains(buf.String(), "invalid log format") {
		t.Fatalf("expected warning for bad format, got %s", buf.String())
	}
}
