package mongo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/krishna-kudari/limiterd/store"
)

// newTestStore skips when no local MongoDB is reachable, so these
// integration tests are a no-op in environments without one.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	st, err := New(ctx, "mongodb://localhost:27017", "limiterd_test")
	if err != nil {
		t.Skipf("mongodb not available: %v", err)
	}
	if err := st.client.Database("limiterd_test").Drop(ctx); err != nil {
		t.Fatalf("drop test db: %v", err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		st.client.Database("limiterd_test").Drop(ctx)
		st.Close(ctx)
	})
	return st
}

func TestAPIKeyLookupByToken(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	if _, err := st.FindAPIKey(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	rec := &store.APIKey{
		ID:        "id-1",
		Name:      "tenant",
		Key:       "api_key_abc",
		CreatedAt: time.Unix(1700000000, 0).UTC(),
	}
	if err := st.PutAPIKey(ctx, rec); err != nil {
		t.Fatalf("PutAPIKey: %v", err)
	}

	// The lookup must match the api_key field the record is stored
	// under, not the Go field name.
	got, err := st.FindAPIKey(ctx, "api_key_abc")
	if err != nil {
		t.Fatalf("FindAPIKey: %v", err)
	}
	if got.ID != rec.ID || got.Name != rec.Name || got.Key != rec.Key {
		t.Fatalf("got %+v, want %+v", got, rec)
	}

	if n, _ := st.CountAPIKeys(ctx); n != 1 {
		t.Fatalf("CountAPIKeys = %d, want 1", n)
	}
	keys, err := st.ListAPIKeys(ctx)
	if err != nil {
		t.Fatalf("ListAPIKeys: %v", err)
	}
	if len(keys) != 1 || keys[0].Key != "api_key_abc" {
		t.Fatalf("keys = %+v", keys)
	}
}

func TestConfigCollectionAndOrdering(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	if got := st.configs.Name(); got != "rate_limit_configs" {
		t.Fatalf("configs collection = %q, want rate_limit_configs", got)
	}

	if _, err := st.LatestConfigFor(ctx, "k1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	put := func(id, algo string, createdAt time.Time) {
		t.Helper()
		err := st.PutConfig(ctx, &store.Config{
			ID:            id,
			APIKey:        "k1",
			Algorithm:     algo,
			MaxRequests:   10,
			WindowSeconds: 60,
			CreatedAt:     createdAt,
		})
		if err != nil {
			t.Fatalf("PutConfig: %v", err)
		}
	}

	base := time.Unix(1700000000, 0).UTC()
	put("first", "token_bucket", base)
	put("second", "fixed_window", base.Add(time.Minute))
	put("stale", "leaky_bucket", base.Add(30*time.Second))

	cfg, err := st.LatestConfigFor(ctx, "k1")
	if err != nil {
		t.Fatalf("LatestConfigFor: %v", err)
	}
	if cfg.ID != "second" || cfg.Algorithm != "fixed_window" {
		t.Fatalf("latest = %+v, want second", cfg)
	}

	if n, _ := st.CountConfigs(ctx); n != 3 {
		t.Fatalf("CountConfigs = %d, want 3", n)
	}
}

func TestLogsNewestFirst(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	for i := 0; i < 5; i++ {
		err := st.AppendLog(ctx, &store.RequestLog{
			ID:        fmt.Sprintf("log-%d", i),
			APIKey:    "k1",
			Algorithm: "token_bucket",
			Allowed:   i%2 == 0,
			Timestamp: time.Unix(1700000000+int64(i), 0).UTC(),
		})
		if err != nil {
			t.Fatalf("AppendLog: %v", err)
		}
	}

	logs, err := st.RecentLogs(ctx, 2)
	if err != nil {
		t.Fatalf("RecentLogs: %v", err)
	}
	if len(logs) != 2 || logs[0].ID != "log-4" || logs[1].ID != "log-3" {
		t.Fatalf("logs = %+v, want newest first", logs)
	}

	if n, _ := st.CountLogs(ctx); n != 5 {
		t.Fatalf("CountLogs = %d, want 5", n)
	}

	if err := st.DeleteAllLogs(ctx); err != nil {
		t.Fatalf("DeleteAllLogs: %v", err)
	}
	if n, _ := st.CountLogs(ctx); n != 0 {
		t.Fatalf("after delete: CountLogs = %d, want 0", n)
	}
}
