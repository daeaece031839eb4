package observers

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/skillcall/pkg/metrics"
	"github.com/harunnryd/skillcall/pkg/redact"
)

func TestTimelineObserverWritesJSONL(t *testing.T) {
	dir := t.TempDir()
	obs := NewTimelineObserver(dir)

	obs.RecordEvent(metrics.Event{
		Name: "call_stage",
		Time: time.Now(),
		Tags: map[string]string{"session_id": "sess-1", "to": "ivr"},
	})
	obs.RecordEvent(metrics.Event{Name: "orphan", Time: time.Now()})
	_ = obs.Close()

	b, err := os.ReadFile(filepath.Join(dir, "sess-1.jsonl"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if !strings.Contains(string(b), `"event":"call_stage"`) || !strings.Contains(string(b), `"to":"ivr"`) {
		t.Fatalf("unexpected timeline content: %s", b)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected a single timeline file, got %d", len(entries))
	}
}

func TestTimelineObserverRedactsAnswers(t *testing.T) {
	redact.SetEnabled(true)
	defer redact.SetEnabled(false)

	dir := t.TempDir()
	obs := NewTimelineObserver(dir)
	obs.RecordEvent(metrics.Event{
		Name:   "answer_submitted",
		Time:   time.Now(),
		Tags:   map[string]string{"session_id": "sess-2"},
		Fields: map[string]any{"question_key": "aadhaar_otp", "answer": "482913", "phone": "9876543210"},
	})
	obs.RecordEvent(metrics.Event{Name: "call_ended", Time: time.Now(), Tags: map[string]string{"session_id": "sess-2"}})

	b, err := os.ReadFile(filepath.Join(dir, "sess-2.jsonl"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if strings.Contains(string(b), "482913") || strings.Contains(string(b), "9876543210") {
		t.Fatalf("expected pii to be redacted: %s", b)
	}
}

func TestTurnLatencyObserverLogsOnSubmit(t *testing.T) {
	var buf bytes.Buffer
	obs := NewTurnLatencyObserver(slog.New(slog.NewTextHandler(&buf, nil)))
	start := time.Now()
	tags := map[string]string{"session_id": "s"}
	obs.RecordEvent(metrics.Event{Name: "question_spoken", Time: start, Tags: tags})
	obs.RecordEvent(metrics.Event{Name: "voice_stage", Time: start.Add(time.Second), Tags: map[string]string{"session_id": "s", "to": "listening"}})
	obs.RecordEvent(metrics.Event{Name: "answer_submitted", Time: start.Add(3 * time.Second), Tags: map[string]string{"session_id": "s", "question_key": "name"}})

	out := buf.String()
	if !strings.Contains(out, "turn_latency") || !strings.Contains(out, "speak_ms=1000") || !strings.Contains(out, "total_ms=3000") {
		t.Fatalf("unexpected log: %s", out)
	}
}

func TestPurgeOlderThanRemovesOnlyStaleTimelines(t *testing.T) {
	dir := t.TempDir()
	obs := NewTimelineObserver(dir)
	defer obs.Close()
	obs.RecordEvent(metrics.Event{Name: "call_started", Time: time.Now(), Tags: map[string]string{"session_id": "live"}})

	old := filepath.Join(dir, "old.jsonl")
	fresh := filepath.Join(dir, "fresh.jsonl")
	notes := filepath.Join(dir, "notes.txt")
	for _, p := range []string{old, fresh, notes} {
		if err := os.WriteFile(p, []byte("{}\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	past := time.Now().Add(-72 * time.Hour)
	for _, p := range []string{old, notes, filepath.Join(dir, "live.jsonl")} {
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	n, err := obs.PurgeOlderThan(24 * time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 removal, got %d", n)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("old timeline should be gone: %v", err)
	}
	for _, p := range []string{fresh, notes, filepath.Join(dir, "live.jsonl")} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("%s should remain: %v", filepath.Base(p), err)
		}
	}
}

func TestPurgeOlderThanMissingDir(t *testing.T) {
	obs := NewTimelineObserver(filepath.Join(t.TempDir(), "missing"))
	if n, err := obs.PurgeOlderThan(time.Hour); n != 0 || err != nil {
		t.Fatalf("missing dir should be a no-op, got %d %v", n, err)
	}
}
