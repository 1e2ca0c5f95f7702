package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AdamBeresnev/esports-bracket/internal/bracket"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "bracket:"

func Key(tournamentID string) string {
	return keyPrefix + tournamentID
}

// BracketCache keeps read copies of brackets in Redis. The database stays the source of truth.
type BracketCache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *BracketCache {
	return &BracketCache{client: client, ttl: ttl}
}

// NewFromURL connects to the Redis server at url, e.g. redis://localhost:6379/0.
func NewFromURL(ctx context.Context, url string, ttl time.Duration) (*BracketCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return New(client, ttl), nil
}

// Get returns the cached bracket. A miss is not an error.
func (c *BracketCache) Get(ctx context.Context, tournamentID string) (*bracket.Structure, bool, error) {
	data, err := c.client.Get(ctx, Key(tournamentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var b bracket.Structure
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached bracket: %w", err)
	}
	return &b, true, nil
}

func (c *BracketCache) Set(ctx context.Context, b *bracket.Structure) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, Key(b.TournamentID), data, c.ttl).Err()
}

func (c *BracketCache) Delete(ctx context.Context, tournamentID string) error {
	return c.client.Del(ctx, Key(tournamentID)).Err()
}

func (c *BracketCache) Close() error {
	return c.client.Close()
}
