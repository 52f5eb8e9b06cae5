package uniqueness

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultKey is the Redis set holding registered values.
const DefaultKey = "formflow:registered:email"

// SetClient is the subset of redis.Cmdable the Redis checker needs.
type SetClient interface {
	SIsMember(ctx context.Context, key string, member interface{}) *redis.BoolCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
}

// Redis checks membership in a Redis set. The caller owns the client
// lifecycle.
type Redis struct {
	client SetClient
	key    string
}

// NewRedis builds a checker over key. An empty key selects DefaultKey.
func NewRedis(client SetClient, key string) *Redis {
	if key == "" {
		key = DefaultKey
	}
	return &Redis{client: client, key: key}
}

// Check implements validation.Checker.
func (r *Redis) Check(ctx context.Context, value string) (bool, error) {
	taken, err := r.client.SIsMember(ctx, r.key, normalise(value)).Result()
	if err != nil {
		return false, fmt.Errorf("uniqueness: sismember %s: %w", r.key, err)
	}
	return !taken, nil
}

// Reserve adds value to the set.
func (r *Redis) Reserve(ctx context.Context, value string) error {
	if err := r.client.SAdd(ctx, r.key, normalise(value)).Err(); err != nil {
		return fmt.Errorf("uniqueness: sadd %s: %w", r.key, err)
	}
	return nil
}
