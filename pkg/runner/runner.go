package runner

import (
	"bytes"
	"context"
	"io"
	"strconv"

	"github.com/dimiro1/banner"
)

type State int

const (
	StateNew State = iota
	StateStarting
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type Runner interface {
	Run(ctx context.Context) error
	Stop() error
	State() State
}

type Hooks struct {
	OnStart func()
	OnStop  func()
}

// Drainer releases what a service held once it has stopped. ctx carries the
// drain deadline.
type Drainer interface {
	Drain(ctx context.Context) error
}

type DrainFunc func(ctx context.Context) error

func (f DrainFunc) Drain(ctx context.Context) error { return f(ctx) }

// Version is stamped at build time with -ldflags "-X .../pkg/runner.Version=v1.2.3".
var Version = "dev"

// PrintBanner writes the ASCII-art title and version to w.
func PrintBanner(w io.Writer, title string, color bool) {
	tpl := "{{ .Title " + strconv.Quote(title) + " \"\" 0 }}\nVersion: " + Version + "\n"
	banner.Init(w, true, color, bytes.NewBufferString(tpl))
}
