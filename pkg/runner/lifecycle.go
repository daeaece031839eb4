package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// Service is the blocking body of a runner. It must return once ctx is done.
type Service func(ctx context.Context) error

type Options struct {
	Title string
	// Banner receives the startup banner; nil skips it.
	Banner  io.Writer
	Color   bool
	Serve   Service
	Drainer Drainer
	Hooks   Hooks
	Timeout time.Duration
}

// LifecycleRunner runs one service from start to drained stop. Stop may be
// called from any goroutine; the drain runs once.
type LifecycleRunner struct {
	state    int32
	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	onceStop sync.Once
	opts     Options
	stopErr  error
}

func NewLifecycleRunner(opts Options) *LifecycleRunner {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &LifecycleRunner{
		state:  int32(StateNew),
		ctx:    ctx,
		cancel: cancel,
		opts:   opts,
	}
}

// Run blocks until the service returns or ctx is done, then drains. The
// service error and the drain error are both reported.
func (r *LifecycleRunner) Run(ctx context.Context) error {
	if !r.casState(StateNew, StateStarting) {
		return fmt.Errorf("invalid state transition from %s", r.State())
	}
	if r.opts.Banner != nil {
		PrintBanner(r.opts.Banner, r.opts.Title, r.opts.Color)
	}
	r.mu.Lock()
	if ctx != nil {
		early := r.ctx.Err() != nil
		r.ctx, r.cancel = context.WithCancel(ctx)
		// a Stop before Run still stops
		if early {
			r.cancel()
		}
	}
	runCtx := r.ctx
	r.mu.Unlock()

	if r.opts.Hooks.OnStart != nil {
		r.opts.Hooks.OnStart()
	}
	r.setState(StateRunning)

	var serveErr error
	if r.opts.Serve != nil {
		serveErr = r.opts.Serve(runCtx)
	} else {
		<-runCtx.Done()
	}
	return errors.Join(serveErr, r.stop())
}

// Stop cancels the service and waits for the drain.
func (r *LifecycleRunner) Stop() error {
	r.mu.Lock()
	r.cancel()
	r.mu.Unlock()
	if r.State() == StateNew {
		return nil
	}
	return r.stop()
}

func (r *LifecycleRunner) State() State {
	return State(atomic.LoadInt32(&r.state))
}

func (r *LifecycleRunner) stop() error {
	r.onceStop.Do(func() {
		r.mu.Lock()
		r.cancel()
		r.mu.Unlock()
		r.setState(StateDraining)
		if r.opts.Drainer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), r.opts.Timeout)
			defer cancel()
			done := make(chan error, 1)
			go func() { done <- r.opts.Drainer.Drain(ctx) }()
			select {
			case err := <-done:
				if err != nil {
					r.stopErr = fmt.Errorf("drain: %w", err)
				}
			case <-ctx.Done():
				r.stopErr = errors.New("drain timeout")
			}
		}
		if r.opts.Hooks.OnStop != nil {
			r.opts.Hooks.OnStop()
		}
		r.setState(StateStopped)
	})
	return r.stopErr
}

func (r *LifecycleRunner) casState(from, to State) bool {
	return atomic.CompareAndSwapInt32(&r.state, int32(from), int32(to))
}

func (r *LifecycleRunner) setState(s State) {
	atomic.StoreInt32(&r.state, int32(s))
}
