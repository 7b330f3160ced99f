package mitigation

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// RedisMirror mirrors denylist changes into a Redis sorted set scored by
// detection time, so external enforcement points share one denylist.
// It implements the Mirror interface.
type RedisMirror struct {
	client *redis.Client
	key    string
}

// NewRedisMirror connects to Redis and verifies the connection.
func NewRedisMirror(addr, password string, db int, key string) (*RedisMirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Printf("Connected to Redis denylist mirror at %s (key %q)", addr, key)

	return &RedisMirror{client: client, key: key}, nil
}

// Add records a denied source with its detection time as the score.
func (m *RedisMirror) Add(ctx context.Context, src string, detectedAt float64) error {
	return m.client.ZAdd(ctx, m.key, redis.Z{Score: detectedAt, Member: src}).Err()
}

// Remove drops an evicted source from the mirrored denylist.
func (m *RedisMirror) Remove(ctx context.Context, src string) error {
	return m.client.ZRem(ctx, m.key, src).Err()
}

// Close releases the Redis connection.
func (m *RedisMirror) Close() error {
	return m.client.Close()
}
