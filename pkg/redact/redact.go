package redact

import (
	"regexp"
	"strings"
	"sync/atomic"
)

var enabled atomic.Bool

var (
	emailRe = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	phoneRe = regexp.MustCompile(`\b\+?\d[\d\s\-]{7,}\d\b`)
	otpRe   = regexp.MustCompile(`\b\d{4,6}\b`)
)

// SetEnabled toggles PII redaction.
func SetEnabled(v bool) {
	enabled.Store(v)
}

// Enabled returns true when redaction is active.
func Enabled() bool {
	return enabled.Load()
}

// Text redacts emails and phone numbers when enabled.
func Text(in string) string {
	if !enabled.Load() || strings.TrimSpace(in) == "" {
		return in
	}
	out := emailRe.ReplaceAllString(in, "[REDACTED_EMAIL]")
	out = phoneRe.ReplaceAllString(out, "[REDACTED_PHONE]")
	return out
}

// Phone masks all but the last two digits of a phone number when enabled.
func Phone(in string) string {
	if !enabled.Load() || in == "" {
		return in
	}
	if len(in) <= 2 {
		return strings.Repeat("*", len(in))
	}
	return strings.Repeat("*", len(in)-2) + in[len(in)-2:]
}

// Answer redacts identity digits and one-time codes inside a spoken answer.
func Answer(key, in string) string {
	if !enabled.Load() {
		return in
	}
	switch key {
	case "aadhaar_last4", "aadhaar_otp":
		return otpRe.ReplaceAllString(in, "[REDACTED_CODE]")
	}
	return Text(in)
}
