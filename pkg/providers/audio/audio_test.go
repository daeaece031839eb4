package audio

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/skillcall/pkg/errorsx"
	"github.com/harunnryd/skillcall/pkg/logging"
)

// silentMP3 builds n silent frames.
func silentMP3(n int) []byte {
	return Silence(time.Duration(n) * FrameLength)
}

func TestDurationOfSilentClip(t *testing.T) {
	dur, err := Duration(silentMP3(40))
	if err != nil {
		t.Fatalf("duration: %v", err)
	}
	if dur < 500*time.Millisecond || dur > 1500*time.Millisecond {
		t.Fatalf("unexpected duration %v", dur)
	}
}

func TestDecodeFailureIsReasoned(t *testing.T) {
	p := NewClockPlayer(0, logging.Discard())
	_, err := p.Play(context.Background(), []byte("not audio at all"))
	if !errorsx.HasReason(err, errorsx.ReasonTTSDecode) {
		t.Fatalf("expected tts_decode, got %v", err)
	}
	if _, err := Duration(nil); !errorsx.HasReason(err, errorsx.ReasonTTSDecode) {
		t.Fatalf("expected tts_decode for empty audio, got %v", err)
	}
}

func TestClockPlayerFinishes(t *testing.T) {
	p := NewClockPlayer(100, logging.Discard())
	pb, err := p.Play(context.Background(), silentMP3(40))
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	select {
	case <-pb.Done():
	case <-time.After(time.Second):
		t.Fatalf("playback did not finish")
	}
	if pb.Err() != nil {
		t.Fatalf("unexpected error %v", pb.Err())
	}
}

func TestClockPlayerStop(t *testing.T) {
	p := NewClockPlayer(0, logging.Discard())
	pb, err := p.Play(context.Background(), silentMP3(40))
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	pb.Stop()
	<-pb.Done()
	if !errors.Is(pb.Err(), ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", pb.Err())
	}
}

func TestExecPlayerPipesPCM(t *testing.T) {
	p := NewExecPlayer("cat", nil, logging.Discard())
	pb, err := p.Play(context.Background(), silentMP3(10))
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	select {
	case <-pb.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("playback did not finish")
	}
	if pb.Err() != nil {
		t.Fatalf("unexpected error %v", pb.Err())
	}
}

func TestExecPlayerStopKills(t *testing.T) {
	p := NewExecPlayer("sleep", []string{"5"}, logging.Discard())
	pb, err := p.Play(context.Background(), silentMP3(10))
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	pb.Stop()
	select {
	case <-pb.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("stop did not end playback")
	}
	if !errors.Is(pb.Err(), ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", pb.Err())
	}
}

func TestExecPlayerMissingCommand(t *testing.T) {
	p := NewExecPlayer("definitely-not-a-player", nil, logging.Discard())
	_, err := p.Play(context.Background(), silentMP3(2))
	if !errorsx.HasReason(err, errorsx.ReasonTTSPlayback) {
		t.Fatalf("expected tts_playback, got %v", err)
	}
}

func TestRecorderStreamsStdout(t *testing.T) {
	r := NewRecorder("echo", []string{"pcm"})
	if err := r.Available(); err != nil {
		t.Fatalf("echo should be available: %v", err)
	}
	stream, err := r.Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, _ := io.ReadAll(stream)
	_ = stream.Close()
	if string(data) != "pcm\n" {
		t.Fatalf("unexpected recording %q", data)
	}
	if err := NewRecorder("definitely-not-a-recorder", nil).Available(); err == nil {
		t.Fatalf("expected missing recorder")
	}
}

func TestRecorderDefaults(t *testing.T) {
	if args := strings.Join(NewRecorder("", nil).Args, " "); !strings.HasSuffix(args, "-t raw") {
		t.Fatalf("streaming recorder should emit raw pcm, got %q", args)
	}
	clip := NewClipRecorder("", nil)
	if clip.Command != "arecord" || !strings.HasSuffix(strings.Join(clip.Args, " "), "-t wav") {
		t.Fatalf("clip recorder should emit wav, got %s %q", clip.Command, clip.Args)
	}
	if custom := NewClipRecorder("sox", []string{"-d"}); custom.Args[0] != "-d" {
		t.Fatalf("explicit args should be kept, got %q", custom.Args)
	}
}
