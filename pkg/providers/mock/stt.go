package mock

import (
	"context"
	"sync"
	"time"

	"github.com/harunnryd/skillcall/pkg/adapters/stt"
)

// Recognizer is a scripted speech capture. With Delay set, each capture
// answers with the next entry of Transcripts; otherwise a capture waits for
// Deliver or Abort.
type Recognizer struct {
	Capability stt.Capability
	CheckErr   error
	ListenErr  error
	Delay      time.Duration

	mu          sync.Mutex
	transcripts []string
	captures    []*Capture
	requests    []stt.Request
}

func NewRecognizer(transcripts ...string) *Recognizer {
	return &Recognizer{Capability: stt.Supported, transcripts: transcripts}
}

func (r *Recognizer) Name() string { return "mock_stt" }

func (r *Recognizer) Check(ctx context.Context) (stt.Capability, error) {
	return r.Capability, r.CheckErr
}

func (r *Recognizer) Listen(ctx context.Context, req stt.Request) (stt.Capture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ListenErr != nil {
		return nil, r.ListenErr
	}
	c := &Capture{out: make(chan captureResult, 1)}
	r.captures = append(r.captures, c)
	r.requests = append(r.requests, req)
	if r.Delay > 0 {
		text := ""
		if len(r.transcripts) > 0 {
			text = r.transcripts[0]
			r.transcripts = r.transcripts[1:]
		}
		time.AfterFunc(r.Delay, func() { c.Deliver(text, nil) })
	}
	return c, nil
}

// Captures returns every capture started so far.
func (r *Recognizer) Captures() []*Capture {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Capture(nil), r.captures...)
}

// Requests returns the request of every Listen call.
func (r *Recognizer) Requests() []stt.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]stt.Request(nil), r.requests...)
}

// Last returns the most recent capture or nil.
func (r *Recognizer) Last() *Capture {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.captures) == 0 {
		return nil
	}
	return r.captures[len(r.captures)-1]
}

// Active counts captures that have neither delivered nor been aborted.
func (r *Recognizer) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.captures {
		if !c.closed() {
			n++
		}
	}
	return n
}

type captureResult struct {
	text string
	err  error
}

type Capture struct {
	once    sync.Once
	out     chan captureResult
	mu      sync.Mutex
	done    bool
	aborted bool
}

// Deliver completes the capture. Only the first outcome is kept.
func (c *Capture) Deliver(text string, err error) {
	c.once.Do(func() {
		c.mu.Lock()
		c.done = true
		c.mu.Unlock()
		c.out <- captureResult{text: text, err: err}
	})
}

func (c *Capture) Result() (string, error) {
	res := <-c.out
	c.out <- res
	return res.text, res.err
}

func (c *Capture) Abort() {
	c.mu.Lock()
	c.aborted = true
	c.mu.Unlock()
	c.Deliver("", stt.ErrAborted)
}

// Aborted reports whether Abort was called.
func (c *Capture) Aborted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aborted
}

func (c *Capture) closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

var _ stt.Recognizer = (*Recognizer)(nil)
