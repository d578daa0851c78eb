package limiterd_test

import (
	"testing"

	"github.com/krishna-kudari/limiterd"
)

func TestFixedWindowCountsWithinWindow(t *testing.T) {
	lim, err := limiterd.NewFixedWindow(5, 10, at(0))
	if err != nil {
		t.Fatalf("NewFixedWindow: %v", err)
	}

	wantRemaining := []int64{4, 3, 2, 1, 0}
	for i, want := range wantRemaining {
		allowed, remaining := lim.Allow(at(float64(i)))
		if !allowed {
			t.Fatalf("call %d: expected allowed", i)
		}
		if remaining != want {
			t.Errorf("call %d: remaining = %d, want %d", i, remaining, want)
		}
	}
	if allowed, _ := lim.Allow(at(9.5)); allowed {
		t.Fatal("expected blocked at window limit")
	}
}

func TestFixedWindowResetsAtBoundary(t *testing.T) {
	lim, err := limiterd.NewFixedWindow(5, 10, at(0))
	if err != nil {
		t.Fatalf("NewFixedWindow: %v", err)
	}

	// The documented boundary burst: 5 admissions just before the window
	// edge and 5 more just after, 10 allowed within 0.2s of each other.
	for i := 0; i < 5; i++ {
		if allowed, _ := lim.Allow(at(9.9)); !allowed {
			t.Fatalf("pre-boundary call %d: expected allowed", i)
		}
	}
	for i := 0; i < 5; i++ {
		if allowed, _ := lim.Allow(at(10.1)); !allowed {
			t.Fatalf("post-boundary call %d: expected allowed", i)
		}
	}
	if allowed, _ := lim.Allow(at(10.1)); allowed {
		t.Fatal("expected blocked after second window fills")
	}
}

func TestFixedWindowStartAdvancesToNow(t *testing.T) {
	lim, err := limiterd.NewFixedWindow(1, 10, at(0))
	if err != nil {
		t.Fatalf("NewFixedWindow: %v", err)
	}
	lim.Allow(at(0))

	// After a long gap the window re-anchors at the observed time.
	if allowed, _ := lim.Allow(at(35)); !allowed {
		t.Fatal("t=35: expected allowed in fresh window")
	}
	if allowed, _ := lim.Allow(at(44)); allowed {
		t.Fatal("t=44: expected blocked, still inside re-anchored window")
	}
	if allowed, _ := lim.Allow(at(45)); !allowed {
		t.Fatal("t=45: expected allowed, window rolled again")
	}
}
