package upload

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/skillcall/pkg/adapters/stt"
	"github.com/harunnryd/skillcall/pkg/backend"
	"github.com/harunnryd/skillcall/pkg/logging"
)

// endlessSource streams a fixed payload and then blocks until closed.
type endlessSource struct {
	payload string
	err     error
}

func (s endlessSource) Available() error { return s.err }

func (s endlessSource) Open(ctx context.Context) (io.ReadCloser, error) {
	r, w := io.Pipe()
	go func() { _, _ = io.Copy(w, strings.NewReader(s.payload)) }()
	return r, nil
}

type stubTranscriber struct {
	got  backend.VoiceAnswer
	text string
	err  error
}

func (s *stubTranscriber) TranscribeVoice(ctx context.Context, in backend.VoiceAnswer) (backend.VoiceAnswerResponse, error) {
	s.got = in
	if s.err != nil {
		return backend.VoiceAnswerResponse{}, s.err
	}
	return backend.VoiceAnswerResponse{QuestionKey: in.QuestionKey, Transcript: s.text}, nil
}

func TestUploadTranscribesClip(t *testing.T) {
	tr := &stubTranscriber{text: "Ravi Kumar"}
	r := New(Config{Source: endlessSource{payload: "RIFFpcm"}, Transcriber: tr, Clip: 20 * time.Millisecond, Logger: logging.Discard()})
	c, err := r.Listen(context.Background(), stt.Request{Phone: "9876543210", Locale: "hi-IN", Language: "Hindi", QuestionKey: "name"})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	text, err := c.Result()
	if err != nil || text != "Ravi Kumar" {
		t.Fatalf("unexpected result %q %v", text, err)
	}
	if string(tr.got.Audio) != "RIFFpcm" || tr.got.QuestionKey != "name" || tr.got.Language != "Hindi" || tr.got.Filename != "recording.wav" {
		t.Fatalf("unexpected upload %+v", tr.got)
	}
}

func TestUploadAbort(t *testing.T) {
	tr := &stubTranscriber{text: "never"}
	r := New(Config{Source: endlessSource{payload: "pcm"}, Transcriber: tr, Clip: time.Hour, Logger: logging.Discard()})
	c, _ := r.Listen(context.Background(), stt.Request{})
	c.Abort()
	if _, err := c.Result(); !errors.Is(err, stt.ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
}

func TestUploadErrors(t *testing.T) {
	tr := &stubTranscriber{err: errors.New("backend down")}
	r := New(Config{Source: endlessSource{payload: "pcm"}, Transcriber: tr, Clip: 10 * time.Millisecond, Logger: logging.Discard()})
	c, _ := r.Listen(context.Background(), stt.Request{})
	if _, err := c.Result(); err == nil || errors.Is(err, stt.ErrAborted) {
		t.Fatalf("expected upload error, got %v", err)
	}

	r = New(Config{Source: endlessSource{}, Transcriber: tr, Clip: 10 * time.Millisecond, Logger: logging.Discard()})
	c, _ = r.Listen(context.Background(), stt.Request{})
	if _, err := c.Result(); err == nil {
		t.Fatalf("expected empty recording error")
	}
}

func TestUploadCheck(t *testing.T) {
	if got, _ := New(Config{}).Check(context.Background()); got != stt.Unsupported {
		t.Fatalf("expected unsupported without source")
	}
	r := New(Config{Source: endlessSource{err: errors.New("no mic")}, Transcriber: &stubTranscriber{}})
	if got, _ := r.Check(context.Background()); got != stt.Unsupported {
		t.Fatalf("expected unsupported without microphone")
	}
}
