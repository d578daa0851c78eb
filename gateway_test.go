package limiterd_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/krishna-kudari/limiterd"
	"github.com/krishna-kudari/limiterd/store"
	"github.com/krishna-kudari/limiterd/store/memory"
)

func putAPIKey(t *testing.T, st store.ConfigStore, key string) {
	t.Helper()
	err := st.PutAPIKey(context.Background(), &store.APIKey{
		ID:        uuid.NewString(),
		Name:      "test",
		Key:       key,
		CreatedAt: base,
	})
	if err != nil {
		t.Fatalf("PutAPIKey: %v", err)
	}
}

func newTestGateway(t *testing.T, st store.ConfigStore, vc *limiterd.VirtualClock, opts ...limiterd.GatewayOption) *limiterd.Gateway {
	t.Helper()
	reg := limiterd.NewRegistry(st, limiterd.WithRegistryClock(vc))
	an := limiterd.NewAnalytics(limiterd.DefaultRingSize)
	opts = append([]limiterd.GatewayOption{limiterd.WithClock(vc)}, opts...)
	return limiterd.NewGateway(st, reg, an, opts...)
}

func TestGatewayUnknownKey(t *testing.T) {
	st := memory.New()
	gw := newTestGateway(t, st, limiterd.NewVirtualClock(base))

	if _, err := gw.Decide(context.Background(), "missing", "/x"); !errors.Is(err, limiterd.ErrUnknownKey) {
		t.Fatalf("err = %v, want ErrUnknownKey", err)
	}
	if s := gw.Analytics().Summary(); s.TotalRequests != 0 {
		t.Fatal("unknown-key requests must not reach analytics")
	}
}

func TestGatewayConfiguredKey(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	vc := limiterd.NewVirtualClock(base)
	gw := newTestGateway(t, st, vc)

	putAPIKey(t, st, "k1")
	putConfig(t, st, "k1", limiterd.FixedWindow, 2, 10, base)

	for i := 0; i < 2; i++ {
		dec, err := gw.Decide(ctx, "k1", "/x")
		if err != nil {
			t.Fatalf("Decide %d: %v", i, err)
		}
		if !dec.Allowed || dec.Algorithm != limiterd.FixedWindow {
			t.Fatalf("decision %d = %+v", i, dec)
		}
		if !dec.Timestamp.Equal(vc.Now()) {
			t.Errorf("decision %d timestamp = %v, want clock time", i, dec.Timestamp)
		}
	}

	dec, err := gw.Decide(ctx, "k1", "/x")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if dec.Allowed {
		t.Fatal("third decision should be blocked")
	}

	// Every decision lands in analytics, allowed and blocked alike.
	s := gw.Analytics().Summary()
	if s.TotalRequests != 3 || s.AllowedRequests != 2 || s.BlockedRequests != 1 {
		t.Fatalf("summary = %+v", s)
	}
	recent := gw.Analytics().Recent(10)
	if len(recent) != 3 {
		t.Fatalf("ring has %d entries, want 3", len(recent))
	}
	if recent[0].Allowed || !recent[1].Allowed {
		t.Fatal("ring order must be newest first")
	}
	if recent[0].Endpoint != "/x" || recent[0].APIKey != "k1" {
		t.Fatalf("log entry = %+v", recent[0])
	}
}

func TestGatewayDefaultPolicy(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	vc := limiterd.NewVirtualClock(base)
	gw := newTestGateway(t, st, vc)

	putAPIKey(t, st, "k1")

	// No config: token bucket 100/60s kicks in. 100 allowed, 101st blocked.
	for i := 0; i < 100; i++ {
		dec, err := gw.Decide(ctx, "k1", "/x")
		if err != nil {
			t.Fatalf("Decide %d: %v", i, err)
		}
		if !dec.Allowed {
			t.Fatalf("decision %d: expected allowed under default policy", i)
		}
		if dec.Algorithm != limiterd.TokenBucket {
			t.Fatalf("decision %d algorithm = %q", i, dec.Algorithm)
		}
	}
	dec, err := gw.Decide(ctx, "k1", "/x")
	if err != nil {
		t.Fatalf("Decide 101: %v", err)
	}
	if dec.Allowed {
		t.Fatal("101st decision should be blocked")
	}
}

func TestGatewayDeterministicUnderVirtualClock(t *testing.T) {
	run := func() []bool {
		st := memory.New()
		vc := limiterd.NewVirtualClock(base)
		gw := newTestGateway(t, st, vc)
		putAPIKey(t, st, "k1")
		putConfig(t, st, "k1", limiterd.TokenBucket, 5, 10, base)

		var out []bool
		for i := 0; i < 20; i++ {
			dec, err := gw.Decide(context.Background(), "k1", "/x")
			if err != nil {
				t.Fatalf("Decide: %v", err)
			}
			out = append(out, dec.Allowed)
			vc.Advance(500 * time.Millisecond)
		}
		return out
	}

	first, second := run(), run()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("run diverged at decision %d: %v vs %v", i, first, second)
		}
	}
}

type countingObserver struct {
	decisions int
	allowed   int
	drops     int
}

func (o *countingObserver) Decision(_ string, allowed bool, _ time.Duration) {
	o.decisions++
	if allowed {
		o.allowed++
	}
}

func (o *countingObserver) LogDropped() { o.drops++ }

func TestGatewayNotifiesObserver(t *testing.T) {
	st := memory.New()
	obs := &countingObserver{}
	gw := newTestGateway(t, st, limiterd.NewVirtualClock(base), limiterd.WithObserver(obs))

	putAPIKey(t, st, "k1")
	putConfig(t, st, "k1", limiterd.FixedWindow, 1, 60, base)

	gw.Decide(context.Background(), "k1", "/x")
	gw.Decide(context.Background(), "k1", "/x")

	if obs.decisions != 2 || obs.allowed != 1 {
		t.Fatalf("observer saw %d decisions (%d allowed), want 2 (1 allowed)", obs.decisions, obs.allowed)
	}
}

func TestGatewayResetStats(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	vc := limiterd.NewVirtualClock(base)
	gw := newTestGateway(t, st, vc)

	putAPIKey(t, st, "k1")
	putConfig(t, st, "k1", limiterd.TokenBucket, 1, 60, base)
	gw.Decide(ctx, "k1", "/x")
	gw.Decide(ctx, "k1", "/x")
	if err := st.AppendLog(ctx, logEntry("persisted", limiterd.TokenBucket, true)); err != nil {
		t.Fatalf("AppendLog: %v", err)
	}

	if err := gw.ResetStats(ctx); err != nil {
		t.Fatalf("ResetStats: %v", err)
	}

	if s := gw.Analytics().Summary(); s.TotalRequests != 0 || len(s.AlgorithmStats) != 0 {
		t.Fatalf("post-reset summary = %+v", s)
	}
	if gw.Registry().Len() != 0 {
		t.Fatal("reset must discard live instances")
	}
	if n, _ := st.CountLogs(ctx); n != 0 {
		t.Fatalf("persisted logs = %d, want 0", n)
	}

	// The next decision starts from a fresh instance.
	dec, err := gw.Decide(ctx, "k1", "/x")
	if err != nil {
		t.Fatalf("Decide after reset: %v", err)
	}
	if !dec.Allowed {
		t.Fatal("fresh instance should allow")
	}
}

func TestGatewayPersistsThroughLogWriter(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	vc := limiterd.NewVirtualClock(base)

	w := limiterd.NewLogWriter(st, nil)
	gw := newTestGateway(t, st, vc, limiterd.WithLogWriter(w))

	putAPIKey(t, st, "k1")
	putConfig(t, st, "k1", limiterd.TokenBucket, 5, 10, base)

	for i := 0; i < 8; i++ {
		if _, err := gw.Decide(ctx, "k1", "/x"); err != nil {
			t.Fatalf("Decide %d: %v", i, err)
		}
	}
	w.Close()

	n, err := st.CountLogs(ctx)
	if err != nil {
		t.Fatalf("CountLogs: %v", err)
	}
	if n != 8 {
		t.Fatalf("persisted %d records, want 8", n)
	}
	logs, err := st.RecentLogs(ctx, 100)
	if err != nil {
		t.Fatalf("RecentLogs: %v", err)
	}
	var allowed int
	for _, l := range logs {
		if l.Allowed {
			allowed++
		}
	}
	if allowed != 5 {
		t.Fatalf("persisted %d allowed records, want 5", allowed)
	}
}
