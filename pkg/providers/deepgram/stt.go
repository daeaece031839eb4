package deepgram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	"github.com/harunnryd/skillcall/pkg/adapters/stt"
	"github.com/harunnryd/skillcall/pkg/logging"
)

type Config struct {
	APIKey         string
	Model          string
	Encoding       string
	SampleRate     int
	Channels       int
	UtteranceEndMS int
	// MaxDuration ends a capture that never reaches an utterance end.
	MaxDuration time.Duration
	Source      stt.AudioSource
	Logger      *slog.Logger
}

// streamer is the part of the Deepgram websocket client a capture drives.
type streamer interface {
	Connect() bool
	Stream(r io.Reader) error
	Stop()
}

type dialFunc func(ctx context.Context, apiKey string, opts *interfaces.LiveTranscriptionOptions, cb msginterfaces.LiveMessageCallback) (streamer, error)

func dialDeepgram(ctx context.Context, apiKey string, opts *interfaces.LiveTranscriptionOptions, cb msginterfaces.LiveMessageCallback) (streamer, error) {
	ws, err := client.NewWSUsingCallback(ctx, apiKey, &interfaces.ClientOptions{EnableKeepAlive: true}, opts, cb)
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// Recognizer streams microphone audio to Deepgram live transcription and
// resolves each capture at the first utterance end.
type Recognizer struct {
	cfg    Config
	dial   dialFunc
	logger *slog.Logger
}

func New(cfg Config) *Recognizer {
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if cfg.Encoding == "" {
		cfg.Encoding = "linear16"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels == 0 {
		cfg.Channels = 1
	}
	if cfg.UtteranceEndMS == 0 {
		cfg.UtteranceEndMS = 1500
	}
	if cfg.MaxDuration == 0 {
		cfg.MaxDuration = 30 * time.Second
	}
	base := cfg.Logger
	if base == nil {
		base = slog.Default()
	}
	return &Recognizer{cfg: cfg, dial: dialDeepgram, logger: logging.NewComponentLogger(base, "deepgram_stt")}
}

func (r *Recognizer) Name() string { return "deepgram_stt" }

func (r *Recognizer) Check(ctx context.Context) (stt.Capability, error) {
	if r.cfg.APIKey == "" {
		return stt.Unsupported, errors.New("deepgram api key not configured")
	}
	if r.cfg.Source == nil {
		return stt.Unsupported, errors.New("no audio source configured")
	}
	if err := r.cfg.Source.Available(); err != nil {
		return stt.Unsupported, err
	}
	return stt.Supported, nil
}

func (r *Recognizer) Listen(ctx context.Context, req stt.Request) (stt.Capture, error) {
	ctx, cancel := context.WithCancel(ctx)
	audio, err := r.cfg.Source.Open(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open audio source: %w", err)
	}

	c := newCapture()
	opts := &interfaces.LiveTranscriptionOptions{
		Model:          r.cfg.Model,
		Language:       req.Locale,
		Encoding:       r.cfg.Encoding,
		SampleRate:     r.cfg.SampleRate,
		Channels:       r.cfg.Channels,
		InterimResults: true,
		VadEvents:      true,
		SmartFormat:    true,
		Punctuate:      true,
		UtteranceEndMs: strconv.Itoa(r.cfg.UtteranceEndMS),
	}
	cb := &callback{capture: c, logger: r.logger.With(slog.String("session_id", req.SessionID), slog.String("question_key", req.QuestionKey))}
	ws, err := r.dial(ctx, r.cfg.APIKey, opts, cb)
	if err != nil {
		cancel()
		_ = audio.Close()
		return nil, fmt.Errorf("deepgram client: %w", err)
	}
	if !ws.Connect() {
		cancel()
		_ = audio.Close()
		return nil, errors.New("deepgram connection failed")
	}

	timer := time.AfterFunc(r.cfg.MaxDuration, func() { c.finish(c.collected(), nil) })
	c.stop = func() {
		timer.Stop()
		cancel()
		_ = audio.Close()
		go ws.Stop()
	}
	go func() {
		if err := ws.Stream(audio); err != nil && ctx.Err() == nil {
			c.finish("", fmt.Errorf("deepgram stream: %w", err))
		}
	}()
	r.logger.Info("deepgram_capture_started", slog.String("session_id", req.SessionID), slog.String("locale", req.Locale))
	return c, nil
}

type capture struct {
	mu     sync.Mutex
	finals []string

	once sync.Once
	done chan struct{}
	text string
	err  error
	stop func()
}

func newCapture() *capture {
	return &capture{done: make(chan struct{})}
}

func (c *capture) add(text string) {
	c.mu.Lock()
	c.finals = append(c.finals, text)
	c.mu.Unlock()
}

func (c *capture) collected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.TrimSpace(strings.Join(c.finals, " "))
}

func (c *capture) finish(text string, err error) {
	c.once.Do(func() {
		c.text, c.err = text, err
		close(c.done)
		if c.stop != nil {
			c.stop()
		}
	})
}

func (c *capture) Result() (string, error) {
	<-c.done
	return c.text, c.err
}

func (c *capture) Abort() { c.finish("", stt.ErrAborted) }

type callback struct {
	capture *capture
	logger  *slog.Logger
}

func (cb *callback) Open(or *msginterfaces.OpenResponse) error {
	cb.logger.Debug("deepgram_connection_opened")
	return nil
}

func (cb *callback) Message(mr *msginterfaces.MessageResponse) error {
	if len(mr.Channel.Alternatives) == 0 {
		return nil
	}
	cb.onTranscript(mr.Channel.Alternatives[0].Transcript, mr.IsFinal, mr.SpeechFinal)
	return nil
}

// onTranscript keeps final segments and resolves the capture once the
// speaker has finished a phrase.
func (cb *callback) onTranscript(text string, isFinal, speechFinal bool) {
	text = strings.TrimSpace(text)
	if isFinal && text != "" {
		cb.capture.add(text)
	}
	if speechFinal {
		if got := cb.capture.collected(); got != "" {
			cb.logger.Debug("deepgram_speech_final")
			cb.capture.finish(got, nil)
		}
	}
}

func (cb *callback) Metadata(md *msginterfaces.MetadataResponse) error { return nil }

func (cb *callback) SpeechStarted(ssr *msginterfaces.SpeechStartedResponse) error {
	cb.logger.Debug("deepgram_speech_started")
	return nil
}

func (cb *callback) UtteranceEnd(ur *msginterfaces.UtteranceEndResponse) error {
	if got := cb.capture.collected(); got != "" {
		cb.capture.finish(got, nil)
	}
	return nil
}

func (cb *callback) Close(cr *msginterfaces.CloseResponse) error {
	cb.capture.finish(cb.capture.collected(), nil)
	return nil
}

func (cb *callback) Error(er *msginterfaces.ErrorResponse) error {
	cb.logger.Error("deepgram_error", slog.String("error_code", er.ErrCode), slog.String("error_message", er.ErrMsg))
	cb.capture.finish("", fmt.Errorf("deepgram %s: %s", er.ErrCode, er.ErrMsg))
	return nil
}

func (cb *callback) UnhandledEvent(byData []byte) error { return nil }

var (
	_ stt.Recognizer                    = (*Recognizer)(nil)
	_ msginterfaces.LiveMessageCallback = (*callback)(nil)
)
