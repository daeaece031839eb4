package redact

import (
	"strings"
	"testing"
)

func TestRedactDisabled(t *testing.T) {
	SetEnabled(false)
	in := "email a@b.com and phone +91 98765 43210"
	if got := Text(in); got != in {
		t.Fatalf("expected no redaction, got %q", got)
	}
	if got := Phone("9876543210"); got != "9876543210" {
		t.Fatalf("expected phone untouched, got %q", got)
	}
}

func TestRedactEnabled(t *testing.T) {
	SetEnabled(true)
	defer SetEnabled(false)
	in := "email a@b.com and phone +91 98765 43210"
	got := Text(in)
	if got == in {
		t.Fatalf("expected redaction")
	}
	if want := "[REDACTED_EMAIL]"; !strings.Contains(got, want) {
		t.Fatalf("expected %q in output", want)
	}
	if want := "[REDACTED_PHONE]"; !strings.Contains(got, want) {
		t.Fatalf("expected %q in output", want)
	}
}

func TestPhoneMask(t *testing.T) {
	SetEnabled(true)
	defer SetEnabled(false)
	if got := Phone("9876543210"); got != "********10" {
		t.Fatalf("unexpected mask %q", got)
	}
	if got := Phone("7"); got != "*" {
		t.Fatalf("unexpected short mask %q", got)
	}
}

func TestAnswerCodes(t *testing.T) {
	SetEnabled(true)
	defer SetEnabled(false)
	if got := Answer("aadhaar_otp", "my otp is 482913"); strings.Contains(got, "482913") {
		t.Fatalf("expected otp redacted, got %q", got)
	}
	if got := Answer("name", "Ravi Kumar"); got != "Ravi Kumar" {
		t.Fatalf("expected name untouched, got %q", got)
	}
}
