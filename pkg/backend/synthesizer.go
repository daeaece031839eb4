package backend

import (
	"context"

	"github.com/harunnryd/skillcall/pkg/adapters/tts"
)

// Synthesizer speaks question text through the backend's /tts endpoint.
type Synthesizer struct {
	client *Client
}

func NewSynthesizer(c *Client) *Synthesizer {
	return &Synthesizer{client: c}
}

func (s *Synthesizer) Name() string { return "backend_tts" }

func (s *Synthesizer) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	return s.client.TTS(ctx, text, language)
}

var _ tts.Synthesizer = (*Synthesizer)(nil)
