package deepgram

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"

	"github.com/harunnryd/skillcall/pkg/adapters/stt"
	"github.com/harunnryd/skillcall/pkg/logging"
)

type pipeSource struct {
	mu      sync.Mutex
	err     error
	readers []*io.PipeReader
}

func (s *pipeSource) Available() error { return s.err }

func (s *pipeSource) Open(ctx context.Context) (io.ReadCloser, error) {
	r, w := io.Pipe()
	go func() { _, _ = w.Write([]byte{0, 0, 0, 0}) }()
	s.mu.Lock()
	s.readers = append(s.readers, r)
	s.mu.Unlock()
	return r, nil
}

type fakeStreamer struct {
	connect bool
	mu      sync.Mutex
	stopped bool
}

func (f *fakeStreamer) Connect() bool { return f.connect }

func (f *fakeStreamer) Stream(r io.Reader) error {
	_, err := io.Copy(io.Discard, r)
	return err
}

func (f *fakeStreamer) Stop() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *fakeStreamer) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

type fixture struct {
	rec      *Recognizer
	streamer *fakeStreamer
	opts     *interfaces.LiveTranscriptionOptions
	cb       *callback
}

func newFixture(connect bool) *fixture {
	f := &fixture{streamer: &fakeStreamer{connect: connect}}
	f.rec = New(Config{APIKey: "key", Source: &pipeSource{}, Logger: logging.Discard()})
	f.rec.dial = func(ctx context.Context, apiKey string, opts *interfaces.LiveTranscriptionOptions, cb msginterfaces.LiveMessageCallback) (streamer, error) {
		f.opts = opts
		f.cb = cb.(*callback)
		return f.streamer, nil
	}
	return f
}

func TestCheckCapability(t *testing.T) {
	if got, _ := New(Config{Source: &pipeSource{}}).Check(context.Background()); got != stt.Unsupported {
		t.Fatalf("missing key should be unsupported, got %s", got)
	}
	if got, _ := New(Config{APIKey: "k", Source: &pipeSource{err: errors.New("no mic")}}).Check(context.Background()); got != stt.Unsupported {
		t.Fatalf("missing microphone should be unsupported, got %s", got)
	}
	if got, err := New(Config{APIKey: "k", Source: &pipeSource{}}).Check(context.Background()); got != stt.Supported || err != nil {
		t.Fatalf("expected supported, got %s %v", got, err)
	}
}

func TestCaptureJoinsFinalSegments(t *testing.T) {
	f := newFixture(true)
	c, err := f.rec.Listen(context.Background(), stt.Request{Locale: "ta-IN", SessionID: "s1"})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	if f.opts.Language != "ta-IN" || f.opts.UtteranceEndMs != "1500" || !f.opts.InterimResults {
		t.Fatalf("unexpected options %+v", f.opts)
	}
	f.cb.onTranscript("my name", false, false)
	f.cb.onTranscript("my name", true, false)
	f.cb.onTranscript("is Ravi", true, true)
	text, err := c.Result()
	if err != nil || text != "my name is Ravi" {
		t.Fatalf("unexpected result %q %v", text, err)
	}
	waitStopped(t, f.streamer)
}

func TestUtteranceEndResolves(t *testing.T) {
	f := newFixture(true)
	c, _ := f.rec.Listen(context.Background(), stt.Request{Locale: "hi-IN"})
	_ = f.cb.UtteranceEnd(&msginterfaces.UtteranceEndResponse{})
	f.cb.onTranscript("plumber", true, false)
	_ = f.cb.UtteranceEnd(&msginterfaces.UtteranceEndResponse{})
	if text, _ := c.Result(); text != "plumber" {
		t.Fatalf("unexpected result %q", text)
	}
}

func TestAbortStopsCapture(t *testing.T) {
	f := newFixture(true)
	c, _ := f.rec.Listen(context.Background(), stt.Request{Locale: "en-IN"})
	c.Abort()
	c.Abort()
	if _, err := c.Result(); !errors.Is(err, stt.ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	waitStopped(t, f.streamer)
}

func TestVendorErrorFailsCapture(t *testing.T) {
	f := newFixture(true)
	c, _ := f.rec.Listen(context.Background(), stt.Request{Locale: "en-IN"})
	_ = f.cb.Error(&msginterfaces.ErrorResponse{ErrCode: "NET-0001", ErrMsg: "closed"})
	if _, err := c.Result(); err == nil || errors.Is(err, stt.ErrAborted) {
		t.Fatalf("expected vendor error, got %v", err)
	}
}

func TestConnectFailure(t *testing.T) {
	f := newFixture(false)
	if _, err := f.rec.Listen(context.Background(), stt.Request{}); err == nil {
		t.Fatalf("expected connect failure")
	}
}

func TestMaxDurationEndsCapture(t *testing.T) {
	f := newFixture(true)
	f.rec.cfg.MaxDuration = 50 * time.Millisecond
	c, _ := f.rec.Listen(context.Background(), stt.Request{})
	f.cb.onTranscript("partial answer", true, false)
	text, err := c.Result()
	if err != nil || text != "partial answer" {
		t.Fatalf("unexpected result %q %v", text, err)
	}
}

func waitStopped(t *testing.T, s *fakeStreamer) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if s.isStopped() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("streamer was not stopped")
}
