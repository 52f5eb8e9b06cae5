// Package redisstore persists wizard states in Redis as JSON strings with a
// sliding expiry.
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	store := redisstore.New(client, redisstore.WithTTL(time.Hour))
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-formflow/pkg/wizard"
)

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 24 * time.Hour

// DefaultPrefix namespaces session keys.
const DefaultPrefix = "formflow:wizard:"

// Client is the subset of redis.Cmdable the store needs.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

var _ wizard.Store = (*Store)(nil)

// Option configures the Store.
type Option func(*Store)

// WithTTL sets the session expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// Store implements wizard.Store backed by Redis. The caller owns the client
// lifecycle.
type Store struct {
	client Client
	ttl    time.Duration
	prefix string
}

// New creates a Redis-backed store.
func New(client Client, opts ...Option) *Store {
	s := &Store{client: client, ttl: DefaultTTL, prefix: DefaultPrefix}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load implements wizard.Store.
func (s *Store) Load(ctx context.Context, id string) (wizard.State, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return wizard.State{}, wizard.ErrSessionNotFound
	}
	if err != nil {
		return wizard.State{}, fmt.Errorf("redisstore: get %s: %w", id, err)
	}
	var st wizard.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return wizard.State{}, fmt.Errorf("redisstore: decode %s: %w", id, err)
	}
	return st, nil
}

// Save implements wizard.Store.
func (s *Store) Save(ctx context.Context, id string, st wizard.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("redisstore: encode %s: %w", id, err)
	}
	if err := s.client.Set(ctx, s.key(id), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redisstore: set %s: %w", id, err)
	}
	return nil
}

// Delete implements wizard.Store.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("redisstore: del %s: %w", id, err)
	}
	return nil
}

func (s *Store) key(id string) string {
	return s.prefix + id
}
