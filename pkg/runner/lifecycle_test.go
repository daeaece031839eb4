package runner

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRunDrainsAfterCancel(t *testing.T) {
	var order []string
	r := NewLifecycleRunner(Options{
		Serve: func(ctx context.Context) error {
			order = append(order, "serve")
			<-ctx.Done()
			return nil
		},
		Drainer: DrainFunc(func(ctx context.Context) error {
			order = append(order, "drain")
			return nil
		}),
		Hooks: Hooks{
			OnStart: func() { order = append(order, "start") },
			OnStop:  func() { order = append(order, "stop") },
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	deadline := time.Now().Add(time.Second)
	for r.State() != StateRunning && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := strings.Join(order, ","); got != "start,serve,drain,stop" {
		t.Fatalf("unexpected order %s", got)
	}
	if r.State() != StateStopped {
		t.Fatalf("expected stopped, got %s", r.State())
	}
}

func TestRunReportsServeAndDrainErrors(t *testing.T) {
	serveErr := errors.New("listen failed")
	r := NewLifecycleRunner(Options{
		Serve:   func(context.Context) error { return serveErr },
		Drainer: DrainFunc(func(context.Context) error { return errors.New("flush failed") }),
	})
	err := r.Run(context.Background())
	if !errors.Is(err, serveErr) || !strings.Contains(err.Error(), "drain: flush failed") {
		t.Fatalf("expected both errors, got %v", err)
	}
}

func TestDrainTimeout(t *testing.T) {
	r := NewLifecycleRunner(Options{
		Serve: func(context.Context) error { return nil },
		Drainer: DrainFunc(func(context.Context) error {
			time.Sleep(200 * time.Millisecond)
			return nil
		}),
		Timeout: 10 * time.Millisecond,
	})
	if err := r.Run(context.Background()); err == nil || !strings.Contains(err.Error(), "drain timeout") {
		t.Fatalf("expected drain timeout, got %v", err)
	}
}

func TestRunTwiceFails(t *testing.T) {
	r := NewLifecycleRunner(Options{Serve: func(context.Context) error { return nil }})
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := r.Run(context.Background()); err == nil {
		t.Fatalf("second run should fail")
	}
}

func TestStopBeforeRun(t *testing.T) {
	r := NewLifecycleRunner(Options{})
	if err := r.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("run should return at once after an early stop")
	}
}

func TestBannerCarriesVersion(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "SKILLCALL", false)
	if !strings.Contains(buf.String(), "Version: "+Version) {
		t.Fatalf("banner missing version:\n%s", buf.String())
	}
}
