package elevenlabs

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/harunnryd/skillcall/pkg/logging"
	"github.com/harunnryd/skillcall/pkg/resilience"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSynthesizeConcatenatesChunks(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var gotKey, gotPath string
	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("xi-api-key")
		gotPath = r.URL.Path
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for i := 0; i < 3; i++ {
			var msg map[string]any
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			texts = append(texts, msg["text"].(string))
		}
		_ = conn.WriteJSON(map[string]any{"audio": base64.StdEncoding.EncodeToString([]byte("ID3a"))})
		_ = conn.WriteJSON(map[string]any{"alignment": map[string]any{}})
		_ = conn.WriteJSON(map[string]any{"audio": base64.StdEncoding.EncodeToString([]byte("bc")), "isFinal": true})
	}))
	defer srv.Close()

	s := New(Config{APIKey: "k", VoiceID: "voice", BaseURL: wsURL(srv), Logger: logging.Discard()})
	audio, err := s.Synthesize(context.Background(), "What is your name?", "English")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if string(audio) != "ID3abc" {
		t.Fatalf("unexpected audio %q", audio)
	}
	if gotKey != "k" || gotPath != "/v1/text-to-speech/voice/stream-input" {
		t.Fatalf("unexpected request key=%q path=%q", gotKey, gotPath)
	}
	if len(texts) != 3 || texts[1] != "What is your name? " || texts[2] != "" {
		t.Fatalf("unexpected messages %q", texts)
	}
}

func TestSynthesizeRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := New(Config{APIKey: "k", VoiceID: "voice", BaseURL: wsURL(srv), Logger: logging.Discard()})
	_, err := s.Synthesize(context.Background(), "hi", "English")
	if !resilience.IsRateLimit(err) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

func TestSynthesizeRequiresConfig(t *testing.T) {
	if _, err := New(Config{}).Synthesize(context.Background(), "hi", "English"); err == nil {
		t.Fatalf("expected missing config error")
	}
}
