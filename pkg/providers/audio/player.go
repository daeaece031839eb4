package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hajimehoshi/go-mp3"

	"github.com/harunnryd/skillcall/pkg/adapters/tts"
	"github.com/harunnryd/skillcall/pkg/errorsx"
)

// ErrStopped is reported by a playback halted through Stop.
var ErrStopped = errors.New("playback stopped")

func decode(audio []byte) (*mp3.Decoder, error) {
	if len(audio) == 0 {
		return nil, errorsx.New(errorsx.ReasonTTSDecode)
	}
	d, err := mp3.NewDecoder(bytes.NewReader(audio))
	if err != nil {
		return nil, errorsx.Wrap(fmt.Errorf("decode mp3: %w", err), errorsx.ReasonTTSDecode)
	}
	return d, nil
}

// Duration reports the playing time of an MP3 clip.
func Duration(audio []byte) (time.Duration, error) {
	d, err := decode(audio)
	if err != nil {
		return 0, err
	}
	if d.SampleRate() <= 0 || d.Length() <= 0 {
		return 0, errorsx.New(errorsx.ReasonTTSDecode)
	}
	// go-mp3 always yields 16-bit stereo.
	samples := d.Length() / 4
	return time.Duration(samples) * time.Second / time.Duration(d.SampleRate()), nil
}

type playback struct {
	done chan struct{}
	once sync.Once
	mu   sync.Mutex
	err  error
	halt func()
}

func newPlayback() *playback {
	return &playback{done: make(chan struct{})}
}

func (p *playback) finish(err error) {
	p.once.Do(func() {
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
		close(p.done)
	})
}

func (p *playback) Done() <-chan struct{} { return p.done }

func (p *playback) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *playback) Stop() {
	p.finish(ErrStopped)
	if p.halt != nil {
		p.halt()
	}
}

// ClockPlayer plays nothing audible. It holds each clip for its decoded
// length, which keeps the call flow realistic on machines without a sound
// device.
type ClockPlayer struct {
	// Speed divides the clip length; zero means real time.
	Speed float64
	log   *slog.Logger
}

func NewClockPlayer(speed float64, log *slog.Logger) *ClockPlayer {
	if log == nil {
		log = slog.Default()
	}
	return &ClockPlayer{Speed: speed, log: log.With(slog.String("component", "clock_player"))}
}

func (p *ClockPlayer) Name() string { return "clock_player" }

func (p *ClockPlayer) Play(ctx context.Context, audio []byte) (tts.Playback, error) {
	dur, err := Duration(audio)
	if err != nil {
		return nil, err
	}
	if p.Speed > 0 {
		dur = time.Duration(float64(dur) / p.Speed)
	}
	pb := newPlayback()
	timer := time.AfterFunc(dur, func() { pb.finish(nil) })
	pb.halt = func() { timer.Stop() }
	go func() {
		select {
		case <-ctx.Done():
			timer.Stop()
			pb.finish(ctx.Err())
		case <-pb.done:
		}
	}()
	p.log.Debug("clock_playback_started", slog.Duration("duration", dur))
	return pb, nil
}

// ExecPlayer decodes MP3 and pipes 16-bit stereo PCM into an external
// command such as aplay. The {rate} placeholder in Args is replaced with the
// clip's sample rate.
type ExecPlayer struct {
	Command string
	Args    []string
	log     *slog.Logger
}

func NewExecPlayer(command string, args []string, log *slog.Logger) *ExecPlayer {
	if command == "" {
		command = "aplay"
		args = []string{"-q", "-f", "S16_LE", "-c", "2", "-r", "{rate}"}
	}
	if log == nil {
		log = slog.Default()
	}
	return &ExecPlayer{Command: command, Args: args, log: log.With(slog.String("component", "exec_player"))}
}

func (p *ExecPlayer) Name() string { return "exec_player" }

func (p *ExecPlayer) Play(ctx context.Context, audio []byte) (tts.Playback, error) {
	d, err := decode(audio)
	if err != nil {
		return nil, err
	}
	rate := strconv.Itoa(d.SampleRate())
	args := make([]string, len(p.Args))
	for i, a := range p.Args {
		args[i] = strings.ReplaceAll(a, "{rate}", rate)
	}
	cmd := exec.Command(p.Command, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonTTSPlayback)
	}
	if err := cmd.Start(); err != nil {
		return nil, errorsx.Wrap(fmt.Errorf("start %s: %w", p.Command, err), errorsx.ReasonTTSPlayback)
	}

	pb := newPlayback()
	pb.halt = func() { _ = cmd.Process.Kill() }
	go func() {
		_, copyErr := io.Copy(stdin, d)
		_ = stdin.Close()
		waitErr := cmd.Wait()
		switch {
		case waitErr != nil:
			pb.finish(errorsx.Wrap(waitErr, errorsx.ReasonTTSPlayback))
		case copyErr != nil:
			pb.finish(errorsx.Wrap(copyErr, errorsx.ReasonTTSPlayback))
		default:
			pb.finish(nil)
		}
	}()
	go func() {
		select {
		case <-ctx.Done():
			pb.Stop()
		case <-pb.done:
		}
	}()
	p.log.Debug("exec_playback_started", slog.String("command", p.Command), slog.String("rate", rate))
	return pb, nil
}

var (
	_ tts.Player = (*ClockPlayer)(nil)
	_ tts.Player = (*ExecPlayer)(nil)
)
