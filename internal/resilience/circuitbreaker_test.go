package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	b := NewBreaker(BreakerConfig{Name: "test", Trip: 3, CoolDown: time.Hour})
	fail := func() error { return errBoom }

	for i := 0; i < 3; i++ {
		if err := b.Do(fail); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if got := b.State(); got != BreakerOpen {
		t.Fatalf("state = %v, want open", got)
	}
	if err := b.Do(fail); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("open breaker let a call through: %v", err)
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	b := NewBreaker(BreakerConfig{Name: "test", Trip: 2, CoolDown: time.Hour})
	if err := b.Do(func() error { return errBoom }); err == nil {
		t.Fatal("expected failure")
	}
	if err := b.Do(func() error { return nil }); err != nil {
		t.Fatalf("success call: %v", err)
	}
	if err := b.Do(func() error { return errBoom }); !errors.Is(err, errBoom) {
		t.Fatalf("call after reset: %v", err)
	}
	if got := b.State(); got != BreakerClosed {
		t.Fatalf("state = %v, want closed after interleaved success", got)
	}
}

func TestBreakerProbesAndCloses(t *testing.T) {
	t.Parallel()

	b := NewBreaker(BreakerConfig{Name: "test", Trip: 1, CoolDown: time.Millisecond, Probes: 2})
	if err := b.Do(func() error { return errBoom }); err == nil {
		t.Fatal("expected failure")
	}
	time.Sleep(5 * time.Millisecond)

	if got := b.State(); got != BreakerHalfOpen {
		t.Fatalf("state = %v, want half-open after cool-down", got)
	}
	for i := 0; i < 2; i++ {
		if err := b.Do(func() error { return nil }); err != nil {
			t.Fatalf("probe %d: %v", i, err)
		}
	}
	if got := b.State(); got != BreakerClosed {
		t.Fatalf("state = %v, want closed after probes", got)
	}
}

func TestBreakerReopensOnProbeFailure(t *testing.T) {
	t.Parallel()

	b := NewBreaker(BreakerConfig{Name: "test", Trip: 1, CoolDown: time.Millisecond, Probes: 2})
	if err := b.Do(func() error { return errBoom }); err == nil {
		t.Fatal("expected failure")
	}
	time.Sleep(5 * time.Millisecond)

	if err := b.Do(func() error { return errBoom }); !errors.Is(err, errBoom) {
		t.Fatalf("probe: %v", err)
	}
	if got := b.State(); got != BreakerOpen {
		t.Fatalf("state = %v, want re-opened", got)
	}
}

func TestBreakerReset(t *testing.T) {
	t.Parallel()

	b := NewBreaker(BreakerConfig{Name: "test", Trip: 1, CoolDown: time.Hour})
	if err := b.Do(func() error { return errBoom }); err == nil {
		t.Fatal("expected failure")
	}
	b.Reset()
	if got := b.State(); got != BreakerClosed {
		t.Fatalf("state = %v, want closed after reset", got)
	}
	if err := b.Do(func() error { return nil }); err != nil {
		t.Fatalf("call after reset: %v", err)
	}
}
