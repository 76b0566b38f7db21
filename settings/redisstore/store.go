// Package redisstore persists settings snapshots in Redis as JSON documents.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-roomsync/settings"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "roomsync:settings:"

// Store implements settings.Store on a Redis client.
type Store[T any] struct {
	client redis.Cmdable
	prefix string
}

// Option configures a Store.
type Option func(*config)

type config struct {
	prefix string
}

// WithPrefix replaces DefaultPrefix. An empty prefix stores bare keys.
func WithPrefix(prefix string) Option {
	return func(cfg *config) {
		cfg.prefix = prefix
	}
}

type record[T any] struct {
	Snapshot T             `json:"snapshot"`
	Meta     settings.Meta `json:"meta"`
}

// New wraps client.
func New[T any](client redis.Cmdable, opts ...Option) *Store[T] {
	cfg := config{prefix: DefaultPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Store[T]{client: client, prefix: cfg.prefix}
}

// Key returns the Redis key used for key.
func (s *Store[T]) Key(key string) string {
	return s.prefix + key
}

// Load implements settings.Store.
func (s *Store[T]) Load(ctx context.Context, key string) (T, settings.Meta, bool, error) {
	var zero T
	if strings.TrimSpace(key) == "" {
		return zero, settings.Meta{}, false, fmt.Errorf("redisstore: key is required")
	}
	payload, err := s.client.Get(ctx, s.Key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, settings.Meta{}, false, nil
	}
	if err != nil {
		return zero, settings.Meta{}, false, fmt.Errorf("redisstore: get %q: %w", key, err)
	}
	var rec record[T]
	if err := json.Unmarshal(payload, &rec); err != nil {
		return zero, settings.Meta{}, false, fmt.Errorf("redisstore: decode %q: %w", key, err)
	}
	return rec.Snapshot, rec.Meta, true, nil
}

// Save implements settings.Store. Records do not expire.
func (s *Store[T]) Save(ctx context.Context, key string, snapshot T, meta settings.Meta) (settings.Meta, error) {
	if strings.TrimSpace(key) == "" {
		return settings.Meta{}, fmt.Errorf("redisstore: key is required")
	}
	payload, err := json.Marshal(record[T]{Snapshot: snapshot, Meta: meta})
	if err != nil {
		return settings.Meta{}, fmt.Errorf("redisstore: encode %q: %w", key, err)
	}
	if err := s.client.Set(ctx, s.Key(key), payload, 0).Err(); err != nil {
		return settings.Meta{}, fmt.Errorf("redisstore: set %q: %w", key, err)
	}
	return meta, nil
}

// Delete removes key.
func (s *Store[T]) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.Key(key)).Err(); err != nil {
		return fmt.Errorf("redisstore: del %q: %w", key, err)
	}
	return nil
}
