// Package store defines the persistence contract for the rate limiter
// service: API key records, rate limit configurations, and the append-only
// request log.
//
// Three implementations are provided: a document store on MongoDB
// (store/mongo), a Redis-backed store (store/redis), and an in-memory store
// for tests and single-process deployments (store/memory).
//
// Algorithm state is never persisted here; it lives in the engine's
// in-memory registry and is rebuilt from configurations on demand.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by lookups when no matching record exists.
var ErrNotFound = errors.New("store: not found")

// APIKey identifies a tenant. Records are created once and never mutated.
type APIKey struct {
	ID        string    `json:"id" bson:"id"`
	Name      string    `json:"name" bson:"name"`
	Key       string    `json:"api_key" bson:"api_key"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Config is a rate limit policy for one API key. Inserting a new Config for
// the same key supersedes earlier ones: the most recent CreatedAt wins.
type Config struct {
	ID            string    `json:"id" bson:"id"`
	APIKey        string    `json:"api_key" bson:"api_key"`
	Algorithm     string    `json:"algorithm" bson:"algorithm"`
	MaxRequests   int64     `json:"max_requests" bson:"max_requests"`
	WindowSeconds int64     `json:"window_seconds" bson:"window_seconds"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
}

// RequestLog records a single rate limit decision.
type RequestLog struct {
	ID             string    `json:"id" bson:"id"`
	APIKey         string    `json:"api_key" bson:"api_key"`
	Endpoint       string    `json:"endpoint" bson:"endpoint"`
	Algorithm      string    `json:"algorithm" bson:"algorithm"`
	Allowed        bool      `json:"allowed" bson:"allowed"`
	Timestamp      time.Time `json:"timestamp" bson:"timestamp"`
	RemainingQuota int64     `json:"remaining_quota" bson:"remaining_quota"`
}

// ConfigStore is the persistence surface consumed by the engine and the
// HTTP handlers. Implementations must be safe for concurrent use.
type ConfigStore interface {
	// PutAPIKey inserts a new API key record.
	PutAPIKey(ctx context.Context, rec *APIKey) error

	// ListAPIKeys returns all key records, oldest first.
	ListAPIKeys(ctx context.Context) ([]APIKey, error)

	// FindAPIKey looks up a record by its opaque key token.
	// Returns ErrNotFound if the key is unknown.
	FindAPIKey(ctx context.Context, key string) (*APIKey, error)

	// CountAPIKeys returns the number of key records.
	CountAPIKeys(ctx context.Context) (int64, error)

	// PutConfig inserts a rate limit configuration. Earlier configurations
	// for the same key are kept; LatestConfigFor resolves the winner.
	PutConfig(ctx context.Context, cfg *Config) error

	// ListConfigs returns all configurations, oldest first.
	ListConfigs(ctx context.Context) ([]Config, error)

	// LatestConfigFor returns the most recent configuration for key,
	// or ErrNotFound if the key has never been configured.
	LatestConfigFor(ctx context.Context, key string) (*Config, error)

	// CountConfigs returns the number of configuration records.
	CountConfigs(ctx context.Context) (int64, error)

	// AppendLog appends one decision record.
	AppendLog(ctx context.Context, entry *RequestLog) error

	// RecentLogs returns up to limit records, newest first.
	RecentLogs(ctx context.Context, limit int) ([]RequestLog, error)

	// CountLogs returns the number of persisted decision records.
	CountLogs(ctx context.Context) (int64, error)

	// DeleteAllLogs removes every persisted decision record.
	DeleteAllLogs(ctx context.Context) error

	// Close releases any resources held by the store.
	Close(ctx context.Context) error
}

// LogAppender is the subset of ConfigStore needed by the background
// log writer.
type LogAppender interface {
	AppendLog(ctx context.Context, entry *RequestLog) error
}
