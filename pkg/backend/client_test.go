package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/harunnryd/skillcall/pkg/errorsx"
	"github.com/harunnryd/skillcall/pkg/logging"
	"github.com/harunnryd/skillcall/pkg/resilience"
)

func newClient(t *testing.T, h http.HandlerFunc, cfg Config) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg.BaseURL = srv.URL
	cfg.Logger = logging.Discard()
	return New(cfg)
}

func TestQuestionsRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ai-call/questions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var req QuestionsRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(QuestionsResponse{
			Language:  "Hindi",
			Questions: []Question{{Key: "name", Text: "आपका नाम?"}, {Key: "skill", Text: req.LanguageKey}},
		})
	}, Config{APIPrefix: "api", Retries: 2})

	resp, err := c.Questions(context.Background(), "9876543210", "2")
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if calls.Load() != 2 || len(resp.Questions) != 2 || resp.Questions[1].Text != "2" {
		t.Fatalf("unexpected result %+v after %d calls", resp, calls.Load())
	}
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"detail":"Invalid language key. Choose 1-8."}`, http.StatusBadRequest)
	}, Config{Retries: 3})

	_, err := c.Questions(context.Background(), "9876543210", "9")
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadRequest {
		t.Fatalf("expected status error, got %v", err)
	}
	if errorsx.Reason(err) != errorsx.ReasonQuestionsFetch {
		t.Fatalf("expected questions_fetch reason, got %s", errorsx.Reason(err))
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestRateLimitSurfaces(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}, Config{})
	_, err := c.TTS(context.Background(), "hello", "English")
	if !resilience.IsRateLimit(err) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

func TestTokenAndSaveQuery(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("phone") != "9876543210" {
			t.Errorf("phone query missing: %s", r.URL.RawQuery)
		}
		var p Profile
		_ = json.NewDecoder(r.Body).Decode(&p)
		_ = json.NewEncoder(w).Encode(SaveResponse{Success: true, WorkerID: "w1", Message: "Profile saved for " + p.Name()})
	}, Config{Token: "tok"})

	resp, err := c.SaveProfile(context.Background(), "9876543210", Profile{"name": "Ravi"})
	if err != nil || resp.WorkerID != "w1" || resp.Message != "Profile saved for Ravi" {
		t.Fatalf("unexpected save %+v %v", resp, err)
	}
}

func TestExtractWithoutProfileFails(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success": true}`)
	}, Config{})
	_, err := c.ExtractProfile(context.Background(), ExtractRequest{Answers: map[string]string{"name": "Ravi"}})
	if errorsx.Reason(err) != errorsx.ReasonExtract {
		t.Fatalf("expected extract reason, got %v", err)
	}
}

func TestTranscribeVoiceMultipart(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse: %v", err)
		}
		f, hdr, err := r.FormFile("audio")
		if err != nil {
			t.Errorf("audio: %v", err)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		if hdr.Filename != "recording.wav" || !bytes.HasPrefix(b, []byte("RIFF")) {
			t.Errorf("unexpected upload %s %q", hdr.Filename, b)
		}
		_ = json.NewEncoder(w).Encode(VoiceAnswerResponse{QuestionKey: r.FormValue("question_key"), Transcript: r.FormValue("language")})
	}, Config{})

	wav := []byte("RIFF\x24\x00\x00\x00WAVEfmt ")
	resp, err := c.TranscribeVoice(context.Background(), VoiceAnswer{Phone: "9876543210", Language: "Tamil", QuestionKey: "skill", Audio: wav})
	if err != nil || resp.QuestionKey != "skill" || resp.Transcript != "Tamil" {
		t.Fatalf("unexpected transcript %+v %v", resp, err)
	}
}

func TestTranscribeVoiceKeepsFilename(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, hdr, err := r.FormFile("audio")
		if err != nil || hdr.Filename != "answer.webm" {
			t.Errorf("unexpected audio part %v %v", hdr, err)
		}
		_ = json.NewEncoder(w).Encode(VoiceAnswerResponse{Transcript: "ok"})
	}, Config{})

	in := VoiceAnswer{Phone: "9876543210", Language: "Hindi", QuestionKey: "name", Filename: "answer.webm", Audio: []byte{0x1A, 0x45, 0xDF, 0xA3}}
	if _, err := c.TranscribeVoice(context.Background(), in); err != nil {
		t.Fatalf("transcribe: %v", err)
	}
}

func TestProfileAccessors(t *testing.T) {
	p := Profile{"name": "Ravi", "daily_rate": float64(750), "specializations": "pipes, taps ,"}
	if p.DailyRate() != "750" || p.Name() != "Ravi" || p.Bio() != "" {
		t.Fatalf("unexpected accessors %v", p)
	}
	if s := p.Specializations(); len(s) != 2 || s[1] != "taps" {
		t.Fatalf("unexpected specializations %v", s)
	}
	p["specializations"] = []any{"wiring", " "}
	if s := p.Specializations(); len(s) != 1 || s[0] != "wiring" {
		t.Fatalf("unexpected list specializations %v", s)
	}
}
