package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryPolicyStopsOnSuccess(t *testing.T) {
	p := NewRetryPolicy(3, time.Millisecond)
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("flaky")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestRetryPolicyNonRetryable(t *testing.T) {
	p := NewRetryPolicy(3, time.Millisecond)
	p.Retryable = func(error) bool { return false }
	calls := 0
	_ = p.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("bad request")
	})
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestRetryPolicyHonoursCancel(t *testing.T) {
	p := NewRetryPolicy(5, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := p.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("down")
	})
	if err == nil || calls != 1 {
		t.Fatalf("expected one failed attempt, got calls=%d err=%v", calls, err)
	}
}

func TestCircuitBreakerOpensAndCloses(t *testing.T) {
	now := time.Unix(1000, 0)
	cb := NewCircuitBreaker(2, time.Minute)
	cb.now = func() time.Time { return now }

	cb.OnError(errors.New("x"))
	if !cb.Allow() {
		t.Fatalf("breaker should still allow after one failure")
	}
	cb.OnError(errors.New("y"))
	if cb.Allow() {
		t.Fatalf("breaker should be open")
	}
	now = now.Add(2 * time.Minute)
	if !cb.Allow() {
		t.Fatalf("breaker should allow after cooldown")
	}
}

func TestCircuitBreakerRateLimitOnly(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute)
	cb.RateLimitOnly = true
	cb.OnError(errors.New("boom"))
	if cb.Open() {
		t.Fatalf("non rate-limit error must not trip")
	}
	cb.OnError(RateLimitError{Provider: "elevenlabs"})
	if !cb.Open() {
		t.Fatalf("rate limit should trip")
	}
}
