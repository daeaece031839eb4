package stt

import (
	"context"
	"errors"
	"io"
)

// Capability is the outcome of probing whether speech capture can run.
type Capability int

const (
	Supported Capability = iota
	Unsupported
	Errored
)

func (c Capability) String() string {
	switch c {
	case Supported:
		return "supported"
	case Unsupported:
		return "unsupported"
	default:
		return "errored"
	}
}

// ErrAborted is reported by a Capture stopped through Abort.
var ErrAborted = errors.New("capture aborted")

// Request describes one listening turn.
type Request struct {
	SessionID   string
	Phone       string
	Locale      string
	Language    string
	LanguageKey string
	QuestionKey string
}

// Recognizer captures one spoken answer per Listen call.
type Recognizer interface {
	// Name returns adapter name for logging.
	Name() string
	// Check probes microphone and vendor availability.
	Check(ctx context.Context) (Capability, error)
	// Listen starts a capture. An error means the capture never started.
	Listen(ctx context.Context, req Request) (Capture, error)
}

// Capture is a single active capture. Result blocks until one outcome is
// available: transcript text (possibly empty), an error, or ErrAborted.
type Capture interface {
	Result() (string, error)
	// Abort stops capture. Safe to call more than once.
	Abort()
}

// AudioSource yields raw microphone audio for recognizers that need it.
type AudioSource interface {
	// Available reports an error when no recording device can be used.
	Available() error
	// Open starts recording. Closing the stream stops it.
	Open(ctx context.Context) (io.ReadCloser, error)
}
