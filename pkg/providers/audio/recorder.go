package audio

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// Recorder captures microphone audio through an external command that writes
// the recording to stdout.
type Recorder struct {
	Command string
	Args    []string
}

// NewRecorder defaults to 16 kHz mono linear PCM from arecord.
func NewRecorder(command string, args []string) *Recorder {
	if command == "" {
		command = "arecord"
		args = []string{"-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "raw"}
	}
	return &Recorder{Command: command, Args: args}
}

// NewClipRecorder defaults to a WAV container for uploads that are decoded by
// file type rather than streamed.
func NewClipRecorder(command string, args []string) *Recorder {
	if command == "" {
		command = "arecord"
		args = []string{"-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "wav"}
	}
	return &Recorder{Command: command, Args: args}
}

// Available reports whether the recording command can be found.
func (r *Recorder) Available() error {
	if _, err := exec.LookPath(r.Command); err != nil {
		return fmt.Errorf("recorder %s: %w", r.Command, err)
	}
	return nil
}

// Open starts a recording. Closing the stream stops the command.
func (r *Recorder) Open(ctx context.Context) (io.ReadCloser, error) {
	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, r.Command, r.Args...)
	out, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start %s: %w", r.Command, err)
	}
	return &recording{Reader: out, cmd: cmd, cancel: cancel}, nil
}

type recording struct {
	io.Reader
	cmd    *exec.Cmd
	cancel context.CancelFunc
	once   sync.Once
}

func (r *recording) Close() error {
	r.once.Do(func() {
		r.cancel()
		_ = r.cmd.Wait()
	})
	return nil
}
