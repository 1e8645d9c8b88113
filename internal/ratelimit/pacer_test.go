package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestWaitPausesFirstRequest(t *testing.T) {
	t.Parallel()

	p := New(50 * time.Millisecond)
	start := time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("first Wait() returned after %v, want at least the delay", elapsed)
	}
}

func TestWaitSpacesRequests(t *testing.T) {
	t.Parallel()

	p := New(30 * time.Millisecond)
	start := time.Now()
	for range 3 {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Fatalf("3 waits took %v, want roughly 3 delays", elapsed)
	}
}

func TestWaitPausesAfterIdleGap(t *testing.T) {
	t.Parallel()

	p := New(50 * time.Millisecond)
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	// Let the token refill, as between two separately triggered jobs.
	time.Sleep(120 * time.Millisecond)
	start := time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("Wait() after idle gap returned in %v, want the full delay", elapsed)
	}
}

func TestWaitDisabledDelay(t *testing.T) {
	t.Parallel()

	p := New(0)
	start := time.Now()
	for range 10 {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("disabled pacer blocked for %v", elapsed)
	}
}

func TestWaitCanceledContext(t *testing.T) {
	t.Parallel()

	p := New(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Wait(ctx); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
