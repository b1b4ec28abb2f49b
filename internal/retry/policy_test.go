package retry

import (
	"context"
	"testing"
	"time"

	"git.home.luguber.info/inful/margin/internal/config"
)

// TestDefaultPolicy verifies the baseline default values.
func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.Mode != config.RetryBackoffFixed {
		t.Fatalf("expected fixed default mode got %s", p.Mode)
	}
	if p.Attempts() != 5 {
		t.Fatalf("expected 5 attempts got %d", p.Attempts())
	}
	if d := p.Delay(1); d != 2*time.Second {
		t.Fatalf("expected 2s pause got %v", d)
	}
}

// TestNewPolicyOverrides checks override precedence and clamping when initial > max.
func TestNewPolicyOverrides(t *testing.T) {
	p := NewPolicy(config.RetryBackoffLinear, 5*time.Second, 2*time.Second, 5)
	if p.Initial != 2*time.Second {
		t.Fatalf("expected clamped initial 2s got %v", p.Initial)
	}
	if p.Mode != config.RetryBackoffLinear {
		t.Fatalf("expected linear mode got %s", p.Mode)
	}
	if p.MaxRetries != 5 {
		t.Fatalf("expected maxRetries 5 got %d", p.MaxRetries)
	}
	if p := NewPolicy("bogus", 0, 0, -1); p != DefaultPolicy() {
		t.Fatalf("expected defaults for invalid input got %+v", p)
	}
}

// TestDelayModes ensures fixed, linear, exponential behave and respect cap.
func TestDelayModes(t *testing.T) {
	linear := NewPolicy(config.RetryBackoffLinear, 100*time.Millisecond, 250*time.Millisecond, 5)
	for attempt, want := range map[int]time.Duration{1: 100 * time.Millisecond, 2: 200 * time.Millisecond, 3: 250 * time.Millisecond} {
		if got := linear.Delay(attempt); got != want {
			t.Fatalf("linear attempt %d expected %v got %v", attempt, want, got)
		}
	}
	exp := NewPolicy(config.RetryBackoffExponential, 50*time.Millisecond, 160*time.Millisecond, 5)
	for attempt, want := range map[int]time.Duration{1: 50 * time.Millisecond, 2: 100 * time.Millisecond, 3: 160 * time.Millisecond} {
		if got := exp.Delay(attempt); got != want {
			t.Fatalf("exponential attempt %d expected %v got %v", attempt, want, got)
		}
	}
	if d := exp.Delay(0); d != 0 {
		t.Fatalf("expected zero delay for first attempt got %v", d)
	}
}

func TestFromConfig(t *testing.T) {
	p := FromConfig(config.CriticalCSSConfig{Attempts: 3, RetryDelay: 10 * time.Millisecond, Backoff: config.RetryBackoffFixed})
	if p.Attempts() != 3 || p.Delay(2) != 10*time.Millisecond {
		t.Fatalf("unexpected policy %+v", p)
	}
}

func TestContextSleepCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := ContextSleep(ctx, time.Hour); err == nil {
		t.Fatal("expected context error")
	}
	if time.Since(start) > time.Second {
		t.Fatal("sleep ignored cancellation")
	}
}
