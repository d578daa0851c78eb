package limiterd_test

import (
	"testing"
	"time"

	"github.com/krishna-kudari/limiterd"
)

func TestVirtualClock(t *testing.T) {
	vc := limiterd.NewVirtualClock(base)

	if !vc.Now().Equal(base) {
		t.Fatalf("Now() = %v, want %v", vc.Now(), base)
	}

	vc.Advance(90 * time.Second)
	if want := base.Add(90 * time.Second); !vc.Now().Equal(want) {
		t.Fatalf("after Advance: Now() = %v, want %v", vc.Now(), want)
	}

	// Negative advances are ignored; virtual time never runs backwards.
	vc.Advance(-time.Hour)
	if want := base.Add(90 * time.Second); !vc.Now().Equal(want) {
		t.Fatalf("after negative Advance: Now() = %v, want %v", vc.Now(), want)
	}

	vc.Set(base.Add(time.Hour))
	if want := base.Add(time.Hour); !vc.Now().Equal(want) {
		t.Fatalf("after Set: Now() = %v, want %v", vc.Now(), want)
	}
}

func TestSystemClockTracksWallTime(t *testing.T) {
	before := time.Now()
	got := limiterd.SystemClock{}.Now()
	after := time.Now()
	if got.Before(before) || got.After(after) {
		t.Fatalf("SystemClock.Now() = %v outside [%v, %v]", got, before, after)
	}
}
