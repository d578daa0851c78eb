package limiterd_test

import (
	"testing"

	"github.com/krishna-kudari/limiterd"
)

func TestSlidingWindowSmoothsBoundary(t *testing.T) {
	lim, err := limiterd.NewSlidingWindow(5, 10, at(0))
	if err != nil {
		t.Fatalf("NewSlidingWindow: %v", err)
	}

	for i := 0; i < 5; i++ {
		if allowed, _ := lim.Allow(at(0)); !allowed {
			t.Fatalf("call %d: expected allowed", i)
		}
	}
	if allowed, _ := lim.Allow(at(0)); allowed {
		t.Fatal("expected blocked at limit")
	}

	// At t=11 the previous window still weighs 0.9, so the estimate
	// (5*0.9 = 4.5) leaves room for exactly one admission.
	var allowed int
	for i := 0; i < 5; i++ {
		if ok, _ := lim.Allow(at(11)); ok {
			allowed++
		}
	}
	if allowed > 5 {
		t.Fatalf("allowed %d in overlapping window, invariant is <= 5", allowed)
	}
	if allowed != 1 {
		t.Fatalf("allowed %d at t=11, want 1 (weighted estimate 4.5)", allowed)
	}
}

func TestSlidingWindowFullResetAfterLongGap(t *testing.T) {
	lim, err := limiterd.NewSlidingWindow(5, 10, at(0))
	if err != nil {
		t.Fatalf("NewSlidingWindow: %v", err)
	}
	for i := 0; i < 5; i++ {
		lim.Allow(at(0))
	}

	// A gap of two full windows discards all history.
	wantRemaining := []int64{4, 3, 2, 1, 0}
	for i, want := range wantRemaining {
		allowed, remaining := lim.Allow(at(25))
		if !allowed {
			t.Fatalf("call %d after gap: expected allowed", i)
		}
		if remaining != want {
			t.Errorf("call %d after gap: remaining = %d, want %d", i, remaining, want)
		}
	}
}

func TestSlidingWindowAdmissionBound(t *testing.T) {
	lim, err := limiterd.NewSlidingWindow(5, 10, at(0))
	if err != nil {
		t.Fatalf("NewSlidingWindow: %v", err)
	}

	// Hammer half-second ticks across three windows; no 10s span may
	// admit more than 2*5-1 requests.
	var admitted []float64
	for tick := 0.0; tick < 30; tick += 0.5 {
		if ok, _ := lim.Allow(at(tick)); ok {
			admitted = append(admitted, tick)
		}
	}
	for i := range admitted {
		count := 1
		for j := i + 1; j < len(admitted) && admitted[j]-admitted[i] < 10; j++ {
			count++
		}
		if count > 9 {
			t.Fatalf("window starting at t=%.1f admitted %d, want <= 9", admitted[i], count)
		}
	}
}
