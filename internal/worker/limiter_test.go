package worker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 1 {
		t.Errorf("expected default burst 1 for negative input, got %d", l2.defaultBurst)
	}
}

func TestNewPerMinuteLimiter(t *testing.T) {
	if NewPerMinuteLimiter(0) != nil {
		t.Error("expected nil limiter for 0 rpm")
	}

	l := NewPerMinuteLimiter(30)
	if l == nil {
		t.Fatal("expected limiter for 30 rpm")
	}
	if l.defaultBurst != 1 {
		t.Errorf("expected burst 1, got %d", l.defaultBurst)
	}

	l = NewPerMinuteLimiter(600)
	if l.defaultBurst != 10 {
		t.Errorf("expected burst 10, got %d", l.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "gemini/gemini-2.5-flash"); err != nil {
		t.Errorf("wait failed: %v", err)
	}

	// Different key should also work
	if err := limiter.Wait(ctx, "gemini/gemini-2.5-pro"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_WaitCanceled(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	key := "gemini/gemini-2.5-flash"
	if err := limiter.Wait(context.Background(), key); err != nil {
		t.Fatalf("first request should pass: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx, key)
	if err == nil {
		t.Fatal("expected wait to fail once the budget is exhausted")
	}
	if errors.Is(err, context.Canceled) {
		t.Errorf("expected deadline-related error, got %v", err)
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewLimiter(1, 1)
	key := "gemini/a"

	if err := limiter.Wait(context.Background(), key); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, key); err == nil {
		t.Error("expected second wait on an exhausted key to fail")
	}
	if err := limiter.Wait(ctx, "gemini/b"); err != nil {
		t.Errorf("expected other key to pass, got %v", err)
	}
}
