package configutil

import (
	"strings"
	"testing"
	"time"
)

type voiceSettings struct {
	APIKey  string        `mapstructure:"api_key"`
	VoiceID string        `mapstructure:"voice_id"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func TestDecodeSettingsMatchesLooseKeys(t *testing.T) {
	var out voiceSettings
	err := DecodeSettings(map[string]any{"API-KEY": "k", "voiceId": "v", "timeout": "2s"},
		Schema{Required: []string{"api_key"}, Optional: []string{"voice_id", "timeout"}}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.APIKey != "k" || out.VoiceID != "v" || out.Timeout != 2*time.Second {
		t.Fatalf("unexpected decode result: %+v", out)
	}
}

func TestValidateSettingsReportsMissingAndUnknown(t *testing.T) {
	err := ValidateSettings(map[string]any{"api_key": "  ", "colour": "red"}, Schema{Required: []string{"api_key"}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "missing: api_key") || !strings.Contains(err.Error(), "unknown: colour") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestValidateSettingsAllowUnknown(t *testing.T) {
	if err := ValidateSettings(map[string]any{"extra": 1}, Schema{AllowUnknown: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMillis(t *testing.T) {
	if got := Millis(0, time.Second); got != time.Second {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := Millis(180, time.Second); got != 180*time.Millisecond {
		t.Fatalf("expected 180ms, got %v", got)
	}
}
