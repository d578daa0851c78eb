// Package memory provides an in-memory implementation of store.ConfigStore.
//
// This is useful for testing and single-process deployments that don't need
// durable configuration. All state is lost on restart.
package memory

import (
	"context"
	"sync"

	"github.com/krishna-kudari/limiterd/store"
)

// Store implements store.ConfigStore with in-memory state.
// All operations are thread-safe.
type Store struct {
	mu      sync.RWMutex
	keys    []store.APIKey
	byToken map[string]int // token -> index into keys
	configs []store.Config
	logs    []store.RequestLog
}

var _ store.ConfigStore = (*Store)(nil)

// New creates an empty in-memory Store.
func New() *Store {
	return &Store{byToken: make(map[string]int)}
}

func (s *Store) PutAPIKey(_ context.Context, rec *store.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byToken[rec.Key] = len(s.keys)
	s.keys = append(s.keys, *rec)
	return nil
}

func (s *Store) ListAPIKeys(_ context.Context) ([]store.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.APIKey, len(s.keys))
	copy(out, s.keys)
	return out, nil
}

func (s *Store) FindAPIKey(_ context.Context, key string) (*store.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byToken[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	rec := s.keys[i]
	return &rec, nil
}

func (s *Store) CountAPIKeys(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.keys)), nil
}

func (s *Store) PutConfig(_ context.Context, cfg *store.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs = append(s.configs, *cfg)
	return nil
}

func (s *Store) ListConfigs(_ context.Context) ([]store.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Config, len(s.configs))
	copy(out, s.configs)
	return out, nil
}

func (s *Store) LatestConfigFor(_ context.Context, key string) (*store.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *store.Config
	for i := range s.configs {
		cfg := &s.configs[i]
		if cfg.APIKey != key {
			continue
		}
		// Insertion order breaks CreatedAt ties.
		if latest == nil || !cfg.CreatedAt.Before(latest.CreatedAt) {
			latest = cfg
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	cfg := *latest
	return &cfg, nil
}

func (s *Store) CountConfigs(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.configs)), nil
}

func (s *Store) AppendLog(_ context.Context, entry *store.RequestLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, *entry)
	return nil
}

func (s *Store) RecentLogs(_ context.Context, limit int) ([]store.RequestLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.logs) {
		limit = len(s.logs)
	}
	out := make([]store.RequestLog, 0, limit)
	for i := len(s.logs) - 1; i >= len(s.logs)-limit; i-- {
		out = append(out, s.logs[i])
	}
	return out, nil
}

func (s *Store) CountLogs(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.logs)), nil
}

func (s *Store) DeleteAllLogs(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = nil
	return nil
}

func (s *Store) Close(_ context.Context) error { return nil }
