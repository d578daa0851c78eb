package limiterd_test

import (
	"testing"

	"github.com/krishna-kudari/limiterd"
)

func TestLeakyBucketFillThenDrain(t *testing.T) {
	lim, err := limiterd.NewLeakyBucket(5, 10, at(0))
	if err != nil {
		t.Fatalf("NewLeakyBucket: %v", err)
	}

	t.Run("queue admits up to capacity", func(t *testing.T) {
		wantRemaining := []int64{4, 3, 2, 1, 0}
		for i, want := range wantRemaining {
			allowed, remaining := lim.Allow(at(0))
			if !allowed {
				t.Fatalf("call %d: expected allowed", i)
			}
			if remaining != want {
				t.Errorf("call %d: remaining = %d, want %d", i, remaining, want)
			}
		}
		for i := 0; i < 2; i++ {
			if allowed, _ := lim.Allow(at(0)); allowed {
				t.Fatalf("overflow call %d: expected blocked", i)
			}
		}
	})

	t.Run("one slot leaks after 1/rate seconds", func(t *testing.T) {
		// leak rate = 5/10 = 0.5/s, so one request drains by t=2.
		allowed, remaining := lim.Allow(at(2))
		if !allowed || remaining != 0 {
			t.Fatalf("post-leak call = (%v, %d), want (true, 0)", allowed, remaining)
		}
		if allowed, _ := lim.Allow(at(2)); allowed {
			t.Fatal("queue full again: expected blocked")
		}
	})
}

func TestLeakyBucketPreservesFractionalLeak(t *testing.T) {
	lim, err := limiterd.NewLeakyBucket(2, 10, at(0))
	if err != nil {
		t.Fatalf("NewLeakyBucket: %v", err)
	}
	lim.Allow(at(0))
	lim.Allow(at(0))

	// leak rate 0.2/s. At t=4 only 0.8 of a request has leaked, so the
	// anchor must not move; the whole request then drains at t=5.
	if allowed, _ := lim.Allow(at(4)); allowed {
		t.Fatal("t=4: expected blocked, no whole request leaked yet")
	}
	allowed, _ := lim.Allow(at(5))
	if !allowed {
		t.Fatal("t=5: expected allowed after a full leak interval")
	}
}

func TestLeakyBucketDrainsCompletely(t *testing.T) {
	lim, err := limiterd.NewLeakyBucket(3, 3, at(0))
	if err != nil {
		t.Fatalf("NewLeakyBucket: %v", err)
	}
	for i := 0; i < 3; i++ {
		lim.Allow(at(0))
	}

	// rate 1/s: all three resident requests leak by t=10.
	allowed, remaining := lim.Allow(at(10))
	if !allowed || remaining != 2 {
		t.Fatalf("post-drain call = (%v, %d), want (true, 2)", allowed, remaining)
	}
}
