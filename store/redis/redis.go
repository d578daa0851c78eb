// Package redis provides a Redis-backed ConfigStore.
//
// Layout: API keys live in a hash keyed by token, configurations in a
// global list plus one list per API key (the per-key list tail is the
// active configuration), and decision records in a list pushed newest
// first. Values are JSON documents.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/krishna-kudari/limiterd/store"
)

const (
	keysHash   = "limiterd:keys"
	configsKey = "limiterd:configs"
	logsKey    = "limiterd:logs"
)

// Store persists keys, configurations and decision records in Redis.
type Store struct {
	client *redis.Client
}

var _ store.ConfigStore = (*Store)(nil)

// New connects to addr and pings to fail fast on an unreachable server.
func New(ctx context.Context, addr string) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	return &Store{client: client}, nil
}

// NewFromClient wraps an existing client, for tests.
func NewFromClient(client *redis.Client) *Store {
	return &Store{client: client}
}

func configsFor(apiKey string) string {
	return configsKey + ":" + apiKey
}

func (s *Store) PutAPIKey(ctx context.Context, key *store.APIKey) error {
	raw, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("redis: marshal api key: %w", err)
	}
	if err := s.client.HSet(ctx, keysHash, key.Key, raw).Err(); err != nil {
		return fmt.Errorf("redis: store api key: %w", err)
	}
	return nil
}

func (s *Store) ListAPIKeys(ctx context.Context) ([]store.APIKey, error) {
	raw, err := s.client.HGetAll(ctx, keysHash).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list api keys: %w", err)
	}
	out := make([]store.APIKey, 0, len(raw))
	for _, v := range raw {
		var k store.APIKey
		if err := json.Unmarshal([]byte(v), &k); err != nil {
			return nil, fmt.Errorf("redis: decode api key: %w", err)
		}
		out = append(out, k)
	}
	return out, nil
}

func (s *Store) FindAPIKey(ctx context.Context, key string) (*store.APIKey, error) {
	raw, err := s.client.HGet(ctx, keysHash, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: find api key: %w", err)
	}
	var k store.APIKey
	if err := json.Unmarshal([]byte(raw), &k); err != nil {
		return nil, fmt.Errorf("redis: decode api key: %w", err)
	}
	return &k, nil
}

func (s *Store) CountAPIKeys(ctx context.Context) (int64, error) {
	n, err := s.client.HLen(ctx, keysHash).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: count api keys: %w", err)
	}
	return n, nil
}

func (s *Store) PutConfig(ctx context.Context, cfg *store.Config) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("redis: marshal config: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, configsKey, raw)
	pipe.RPush(ctx, configsFor(cfg.APIKey), raw)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: store config: %w", err)
	}
	return nil
}

func (s *Store) ListConfigs(ctx context.Context) ([]store.Config, error) {
	raw, err := s.client.LRange(ctx, configsKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list configs: %w", err)
	}
	out := make([]store.Config, 0, len(raw))
	for _, v := range raw {
		var cfg store.Config
		if err := json.Unmarshal([]byte(v), &cfg); err != nil {
			return nil, fmt.Errorf("redis: decode config: %w", err)
		}
		out = append(out, cfg)
	}
	return out, nil
}

// LatestConfigFor returns the tail of the per-key configuration list,
// which is always the most recently stored configuration.
func (s *Store) LatestConfigFor(ctx context.Context, apiKey string) (*store.Config, error) {
	raw, err := s.client.LIndex(ctx, configsFor(apiKey), -1).Result()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: find config: %w", err)
	}
	var cfg store.Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("redis: decode config: %w", err)
	}
	return &cfg, nil
}

func (s *Store) CountConfigs(ctx context.Context) (int64, error) {
	n, err := s.client.LLen(ctx, configsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: count configs: %w", err)
	}
	return n, nil
}

func (s *Store) AppendLog(ctx context.Context, entry *store.RequestLog) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("redis: marshal log: %w", err)
	}
	if err := s.client.LPush(ctx, logsKey, raw).Err(); err != nil {
		return fmt.Errorf("redis: store log: %w", err)
	}
	return nil
}

// RecentLogs returns up to limit decision records, newest first.
func (s *Store) RecentLogs(ctx context.Context, limit int) ([]store.RequestLog, error) {
	if limit <= 0 {
		return nil, nil
	}
	raw, err := s.client.LRange(ctx, logsKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list logs: %w", err)
	}
	out := make([]store.RequestLog, 0, len(raw))
	for _, v := range raw {
		var entry store.RequestLog
		if err := json.Unmarshal([]byte(v), &entry); err != nil {
			return nil, fmt.Errorf("redis: decode log: %w", err)
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *Store) CountLogs(ctx context.Context) (int64, error) {
	n, err := s.client.LLen(ctx, logsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: count logs: %w", err)
	}
	return n, nil
}

func (s *Store) DeleteAllLogs(ctx context.Context) error {
	if err := s.client.Del(ctx, logsKey).Err(); err != nil {
		return fmt.Errorf("redis: delete logs: %w", err)
	}
	return nil
}

func (s *Store) Close(_ context.Context) error {
	return s.client.Close()
}
