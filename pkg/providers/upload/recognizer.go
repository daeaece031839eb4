package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/skillcall/pkg/adapters/stt"
	"github.com/harunnryd/skillcall/pkg/backend"
)

// Transcriber turns one recorded answer into text.
type Transcriber interface {
	TranscribeVoice(ctx context.Context, in backend.VoiceAnswer) (backend.VoiceAnswerResponse, error)
}

type Config struct {
	Source      stt.AudioSource
	Transcriber Transcriber
	// Clip is how long each answer is recorded before upload.
	Clip time.Duration
	// Filename names the uploaded part; its suffix must match the container
	// the source records.
	Filename string
	Logger   *slog.Logger
}

// Recognizer records a fixed-length clip and uploads it to the backend
// voice-answer endpoint for transcription.
type Recognizer struct {
	cfg Config
	log *slog.Logger
}

func New(cfg Config) *Recognizer {
	if cfg.Clip <= 0 {
		cfg.Clip = 8 * time.Second
	}
	if cfg.Filename == "" {
		cfg.Filename = backend.DefaultVoiceFilename
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Recognizer{cfg: cfg, log: log.With(slog.String("component", "upload_stt"))}
}

func (r *Recognizer) Name() string { return "upload_stt" }

func (r *Recognizer) Check(ctx context.Context) (stt.Capability, error) {
	if r.cfg.Source == nil || r.cfg.Transcriber == nil {
		return stt.Unsupported, errors.New("upload recognizer not configured")
	}
	if err := r.cfg.Source.Available(); err != nil {
		return stt.Unsupported, err
	}
	return stt.Supported, nil
}

func (r *Recognizer) Listen(ctx context.Context, req stt.Request) (stt.Capture, error) {
	ctx, cancel := context.WithCancel(ctx)
	stream, err := r.cfg.Source.Open(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open audio source: %w", err)
	}
	c := &capture{done: make(chan struct{}), cancel: cancel, stream: stream}
	go r.run(ctx, c, req)
	return c, nil
}

func (r *Recognizer) run(ctx context.Context, c *capture, req stt.Request) {
	timer := time.AfterFunc(r.cfg.Clip, func() { _ = c.stream.Close() })
	defer timer.Stop()

	var buf bytes.Buffer
	_, readErr := io.Copy(&buf, c.stream)
	_ = c.stream.Close()
	if c.isAborted() {
		c.finish("", stt.ErrAborted)
		return
	}
	if buf.Len() == 0 {
		if readErr == nil {
			readErr = errors.New("empty recording")
		}
		c.finish("", fmt.Errorf("record: %w", readErr))
		return
	}
	resp, err := r.cfg.Transcriber.TranscribeVoice(ctx, backend.VoiceAnswer{
		Phone:       req.Phone,
		Language:    req.Language,
		QuestionKey: req.QuestionKey,
		Filename:    r.cfg.Filename,
		Audio:       buf.Bytes(),
	})
	if c.isAborted() {
		c.finish("", stt.ErrAborted)
		return
	}
	if err != nil {
		c.finish("", err)
		return
	}
	r.log.Debug("upload_transcribed", slog.String("session_id", req.SessionID), slog.Int("size_bytes", buf.Len()))
	c.finish(resp.Transcript, nil)
}

type capture struct {
	cancel context.CancelFunc
	stream io.ReadCloser

	mu      sync.Mutex
	aborted bool

	once sync.Once
	done chan struct{}
	text string
	err  error
}

func (c *capture) finish(text string, err error) {
	c.once.Do(func() {
		c.text, c.err = text, err
		close(c.done)
		c.cancel()
	})
}

func (c *capture) isAborted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aborted
}

func (c *capture) Result() (string, error) {
	<-c.done
	return c.text, c.err
}

func (c *capture) Abort() {
	c.mu.Lock()
	c.aborted = true
	c.mu.Unlock()
	c.cancel()
	_ = c.stream.Close()
}

var _ stt.Recognizer = (*Recognizer)(nil)
