package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/harunnryd/skillcall/pkg/backend"
	"github.com/harunnryd/skillcall/pkg/call"
	"github.com/harunnryd/skillcall/pkg/logging"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func record(id string, outcome call.Outcome, ended time.Time) call.CallRecord {
	return call.CallRecord{
		SessionID:   id,
		Phone:       "9876543210",
		LanguageKey: "2",
		Language:    "Hindi",
		Stage:       call.StageDone,
		Answers:     []call.Answer{{Key: "name", Text: "Ravi"}, {Key: "skill", Text: "plumber"}},
		Profile:     backend.Profile{"name": "Ravi", "daily_rate": float64(700)},
		Outcome:     outcome,
		StartedAt:   ended.Add(-time.Minute),
		EndedAt:     ended,
	}
}

func TestRecordRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()
	if err := s.Record(ctx, record("s1", call.OutcomeReviewed, now)); err != nil {
		t.Fatalf("record: %v", err)
	}
	got, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one record, got %d", len(got))
	}
	rec := got[0]
	if rec.Stage != call.StageDone || rec.Outcome != call.OutcomeReviewed || rec.Language != "Hindi" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if len(rec.Answers) != 2 || rec.Answers[1].Text != "plumber" {
		t.Fatalf("answers not preserved: %+v", rec.Answers)
	}
	if rec.Profile.DailyRate() != "700" {
		t.Fatalf("profile not preserved: %v", rec.Profile)
	}
	if rec.EndedAt.Sub(now).Abs() > time.Millisecond {
		t.Fatalf("time not preserved: %v vs %v", rec.EndedAt, now)
	}
}

func TestLaterRecordReplacesEarlier(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()
	_ = s.Record(ctx, record("s1", call.OutcomeReviewed, now))
	saved := record("s1", call.OutcomeSaved, now.Add(time.Second))
	saved.WorkerID = "w-9"
	_ = s.Record(ctx, saved)
	_ = s.Record(ctx, record("s2", call.OutcomeSaveFailed, now.Add(2*time.Second)))
	_ = s.Record(ctx, call.CallRecord{SessionID: "s3", Outcome: call.OutcomeHungUp, Stage: call.StageInterview, EndedAt: now})

	recent, _ := s.Recent(ctx, 10)
	if len(recent) != 3 || recent[0].SessionID != "s2" {
		t.Fatalf("unexpected recent order %+v", recent)
	}
	unsaved, err := s.Unsaved(ctx)
	if err != nil {
		t.Fatalf("unsaved: %v", err)
	}
	if len(unsaved) != 1 || unsaved[0].SessionID != "s2" {
		t.Fatalf("expected only s2 unsaved, got %+v", unsaved)
	}
}

type stubSaver struct {
	fail  map[string]bool
	saved []string
}

func (s *stubSaver) SaveProfile(ctx context.Context, phone string, profile backend.Profile) (backend.SaveResponse, error) {
	if s.fail[profile.Name()] {
		return backend.SaveResponse{}, errors.New("db down")
	}
	s.saved = append(s.saved, profile.Name())
	return backend.SaveResponse{Success: true, WorkerID: "w-" + profile.Name()}, nil
}

func TestRetryUnsaved(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()
	ok := record("s1", call.OutcomeSaveFailed, now)
	bad := record("s2", call.OutcomeReviewed, now.Add(time.Second))
	bad.Profile = backend.Profile{"name": "Meena"}
	_ = s.Record(ctx, ok)
	_ = s.Record(ctx, bad)

	saver := &stubSaver{fail: map[string]bool{"Meena": true}}
	n, err := RetryUnsaved(ctx, s, saver, logging.Discard())
	if err != nil || n != 1 {
		t.Fatalf("expected one saved, got %d %v", n, err)
	}
	unsaved, _ := s.Unsaved(ctx)
	if len(unsaved) != 1 || unsaved[0].SessionID != "s2" {
		t.Fatalf("expected s2 still unsaved, got %+v", unsaved)
	}
	recent, _ := s.Recent(ctx, 10)
	for _, r := range recent {
		if r.SessionID == "s1" && (r.Outcome != call.OutcomeSaved || r.WorkerID != "w-Ravi") {
			t.Fatalf("s1 not marked saved: %+v", r)
		}
	}
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.sqlite")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if err := s.Record(context.Background(), record("s1", call.OutcomeSaved, time.Now())); err != nil {
		t.Fatalf("record: %v", err)
	}
}
