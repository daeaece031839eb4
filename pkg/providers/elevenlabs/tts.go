package elevenlabs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/harunnryd/skillcall/pkg/adapters/tts"
	"github.com/harunnryd/skillcall/pkg/resilience"
)

const defaultBaseURL = "wss://api.elevenlabs.io"

type Config struct {
	APIKey       string
	VoiceID      string
	ModelID      string
	OutputFormat string
	// BaseURL overrides the websocket host, mainly for tests.
	BaseURL string
	Logger  *slog.Logger
}

// Synthesizer speaks one question per websocket session against the
// stream-input endpoint and returns the concatenated MP3 chunks.
type Synthesizer struct {
	cfg    Config
	dialer websocket.Dialer
	log    *slog.Logger
}

func New(cfg Config) *Synthesizer {
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "mp3_44100_128"
	}
	if cfg.ModelID == "" {
		cfg.ModelID = "eleven_multilingual_v2"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Synthesizer{
		cfg:    cfg,
		dialer: websocket.Dialer{Proxy: http.ProxyFromEnvironment},
		log:    log.With(slog.String("component", "elevenlabs_tts")),
	}
}

func (s *Synthesizer) Name() string { return "elevenlabs_tts" }

func (s *Synthesizer) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if s.cfg.APIKey == "" || s.cfg.VoiceID == "" {
		return nil, errors.New("missing elevenlabs config")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("elevenlabs: empty text")
	}

	conn, resp, err := s.dialer.DialContext(ctx, s.buildURL(), http.Header{
		"xi-api-key": []string{s.cfg.APIKey},
	})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
			s.log.Error("elevenlabs_rate_limited", slog.String("status", resp.Status))
			return nil, resilience.RateLimitError{Provider: "elevenlabs", Message: resp.Status}
		}
		return nil, fmt.Errorf("elevenlabs dial: %w", err)
	}
	defer conn.Close()

	var closeOnce sync.Once
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			closeOnce.Do(func() { _ = conn.Close() })
		case <-stop:
		}
	}()
	defer close(stop)

	messages := []map[string]any{
		{
			"text": " ",
			"voice_settings": map[string]any{
				"stability":        0.5,
				"similarity_boost": 0.8,
			},
		},
		{"text": text + " ", "try_trigger_generation": true},
		{"text": ""},
	}
	for _, m := range messages {
		if err := conn.WriteJSON(m); err != nil {
			return nil, fmt.Errorf("elevenlabs write: %w", err)
		}
	}

	var audio bytes.Buffer
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) && audio.Len() > 0 {
				break
			}
			return nil, fmt.Errorf("elevenlabs read: %w", err)
		}
		chunk, final, err := decodeMessage(data)
		if err != nil {
			s.log.Warn("elevenlabs_bad_message", slog.String("error", err.Error()))
			continue
		}
		audio.Write(chunk)
		if final {
			break
		}
	}
	if audio.Len() == 0 {
		return nil, errors.New("elevenlabs: no audio received")
	}
	s.log.Debug("elevenlabs_synthesized", slog.String("language", language), slog.Int("size_bytes", audio.Len()))
	return audio.Bytes(), nil
}

func (s *Synthesizer) buildURL() string {
	q := url.Values{}
	q.Set("model_id", s.cfg.ModelID)
	q.Set("output_format", s.cfg.OutputFormat)
	return strings.TrimRight(s.cfg.BaseURL, "/") + "/v1/text-to-speech/" + url.PathEscape(s.cfg.VoiceID) + "/stream-input?" + q.Encode()
}

// decodeMessage returns the audio carried by one server message and whether
// it is the last one.
func decodeMessage(data []byte) ([]byte, bool, error) {
	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, false, err
	}
	final, _ := msg["isFinal"].(bool)
	var encoded string
	for _, key := range []string{"audio", "audio_base_64", "audio_base64"} {
		if a, ok := msg[key].(string); ok {
			encoded = a
			break
		}
	}
	if encoded == "" {
		return nil, final, nil
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, final, err
	}
	return raw, final, nil
}

var _ tts.Synthesizer = (*Synthesizer)(nil)
