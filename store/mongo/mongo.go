// Package mongo provides a MongoDB-backed ConfigStore.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/krishna-kudari/limiterd/store"
)

const (
	keysCollection    = "api_keys"
	configsCollection = "rate_limit_configs"
	logsCollection    = "request_logs"
)

// Store persists keys, configurations and decision records in MongoDB.
type Store struct {
	client  *mongo.Client
	keys    *mongo.Collection
	configs *mongo.Collection
	logs    *mongo.Collection
}

var _ store.ConfigStore = (*Store)(nil)

// New connects to uri and uses database db. Connect is lazy in the driver,
// so New pings to fail fast on an unreachable server.
func New(ctx context.Context, uri, db string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	d := client.Database(db)
	return &Store{
		client:  client,
		keys:    d.Collection(keysCollection),
		configs: d.Collection(configsCollection),
		logs:    d.Collection(logsCollection),
	}, nil
}

func (s *Store) PutAPIKey(ctx context.Context, key *store.APIKey) error {
	if _, err := s.keys.InsertOne(ctx, key); err != nil {
		return fmt.Errorf("mongo: insert api key: %w", err)
	}
	return nil
}

func (s *Store) ListAPIKeys(ctx context.Context) ([]store.APIKey, error) {
	cur, err := s.keys.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("mongo: list api keys: %w", err)
	}
	var out []store.APIKey
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("mongo: decode api keys: %w", err)
	}
	return out, nil
}

func (s *Store) FindAPIKey(ctx context.Context, key string) (*store.APIKey, error) {
	var k store.APIKey
	err := s.keys.FindOne(ctx, bson.D{{Key: "api_key", Value: key}}).Decode(&k)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: find api key: %w", err)
	}
	return &k, nil
}

func (s *Store) CountAPIKeys(ctx context.Context) (int64, error) {
	n, err := s.keys.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("mongo: count api keys: %w", err)
	}
	return n, nil
}

func (s *Store) PutConfig(ctx context.Context, cfg *store.Config) error {
	if _, err := s.configs.InsertOne(ctx, cfg); err != nil {
		return fmt.Errorf("mongo: insert config: %w", err)
	}
	return nil
}

func (s *Store) ListConfigs(ctx context.Context) ([]store.Config, error) {
	cur, err := s.configs.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("mongo: list configs: %w", err)
	}
	var out []store.Config
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("mongo: decode configs: %w", err)
	}
	return out, nil
}

// LatestConfigFor returns the most recently created configuration for
// apiKey, or store.ErrNotFound when none exists.
func (s *Store) LatestConfigFor(ctx context.Context, apiKey string) (*store.Config, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var cfg store.Config
	err := s.configs.FindOne(ctx, bson.D{{Key: "api_key", Value: apiKey}}, opts).Decode(&cfg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: find config: %w", err)
	}
	return &cfg, nil
}

func (s *Store) CountConfigs(ctx context.Context) (int64, error) {
	n, err := s.configs.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("mongo: count configs: %w", err)
	}
	return n, nil
}

func (s *Store) AppendLog(ctx context.Context, entry *store.RequestLog) error {
	if _, err := s.logs.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("mongo: insert log: %w", err)
	}
	return nil
}

// RecentLogs returns up to limit decision records, newest first.
func (s *Store) RecentLogs(ctx context.Context, limit int) ([]store.RequestLog, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := s.logs.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: list logs: %w", err)
	}
	var out []store.RequestLog
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("mongo: decode logs: %w", err)
	}
	return out, nil
}

func (s *Store) CountLogs(ctx context.Context) (int64, error) {
	n, err := s.logs.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("mongo: count logs: %w", err)
	}
	return n, nil
}

func (s *Store) DeleteAllLogs(ctx context.Context) error {
	if _, err := s.logs.DeleteMany(ctx, bson.D{}); err != nil {
		return fmt.Errorf("mongo: delete logs: %w", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
