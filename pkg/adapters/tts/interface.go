package tts

import (
	"context"
)

// Synthesizer turns question text into an MP3 payload for a language.
type Synthesizer interface {
	// Name returns adapter name for logging.
	Name() string
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}

// Player starts playback of an encoded audio payload. Play returns an error
// when playback cannot start (bad payload, missing device); once started, the
// outcome is reported through the returned Playback.
type Player interface {
	Name() string
	Play(ctx context.Context, audio []byte) (Playback, error)
}

// Playback is a single active playback. Done is closed exactly once when
// playback ends, fails or is stopped; Err reports the failure, if any.
type Playback interface {
	Done() <-chan struct{}
	Err() error
	// Stop halts playback. Safe to call more than once and after Done.
	Stop()
}

// SynthesizerFunc adapts a function to the Synthesizer interface.
type SynthesizerFunc func(ctx context.Context, text, language string) ([]byte, error)

func (f SynthesizerFunc) Name() string { return "func" }

func (f SynthesizerFunc) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	return f(ctx, text, language)
}
