package mock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/harunnryd/skillcall/pkg/adapters/tts"
)

// Synthesizer returns a fixed payload for every text and records the calls.
type Synthesizer struct {
	Audio []byte
	Err   error

	mu    sync.Mutex
	texts []string
}

func NewSynthesizer() *Synthesizer {
	return &Synthesizer{Audio: []byte("ID3mock")}
}

func (s *Synthesizer) Name() string { return "mock_tts" }

func (s *Synthesizer) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	s.mu.Lock()
	s.texts = append(s.texts, text)
	err := s.Err
	audio := append([]byte(nil), s.Audio...)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return audio, nil
}

// Texts returns every text passed to Synthesize, in order.
func (s *Synthesizer) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

// Player hands out Playbacks that end after Delay, or only when Finish is
// called when Delay is zero.
type Player struct {
	Delay    time.Duration
	StartErr error

	mu    sync.Mutex
	plays []*Playback
}

func NewPlayer(delay time.Duration) *Player {
	return &Player{Delay: delay}
}

func (p *Player) Name() string { return "mock_player" }

func (p *Player) Play(ctx context.Context, audio []byte) (tts.Playback, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.StartErr != nil {
		return nil, p.StartErr
	}
	pb := &Playback{done: make(chan struct{}), Audio: audio}
	p.plays = append(p.plays, pb)
	if p.Delay > 0 {
		time.AfterFunc(p.Delay, func() { pb.Finish(nil) })
	}
	return pb, nil
}

// Plays returns every playback started so far.
func (p *Player) Plays() []*Playback {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Playback(nil), p.plays...)
}

// Last returns the most recent playback or nil.
func (p *Player) Last() *Playback {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.plays) == 0 {
		return nil
	}
	return p.plays[len(p.plays)-1]
}

// Active counts playbacks that have not finished or been stopped.
func (p *Player) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, pb := range p.plays {
		if !pb.finished() {
			n++
		}
	}
	return n
}

// ErrStopped is reported by a Playback halted through Stop.
var ErrStopped = errors.New("playback stopped")

type Playback struct {
	Audio []byte

	once    sync.Once
	done    chan struct{}
	mu      sync.Mutex
	err     error
	stopped bool
}

// Finish ends the playback with err. Only the first call has an effect.
func (p *Playback) Finish(err error) {
	p.once.Do(func() {
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
		close(p.done)
	})
}

func (p *Playback) Done() <-chan struct{} { return p.done }

func (p *Playback) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Playback) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	p.Finish(ErrStopped)
}

// Stopped reports whether Stop was called.
func (p *Playback) Stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

func (p *Playback) finished() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

var (
	_ tts.Synthesizer = (*Synthesizer)(nil)
	_ tts.Player      = (*Player)(nil)
)
