package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pedidos-service/internal/models"
	"pedidos-service/internal/service"

	"github.com/go-redis/redis/v8"
)

const statsKey = "pedidos:stats"

// Client caches the dashboard statistics in Redis. Statistics are the hot
// read path; mutations invalidate the cache through the stats worker.
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ service.StatsCache = (*Client)(nil)

// NewClient creates a new Redis client
func NewClient(addr, password string, db int, ttl time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb, ttl: ttl}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetStatistics returns the cached statistics, or (nil, nil) on a miss.
func (c *Client) GetStatistics(ctx context.Context) (*models.Statistics, error) {
	data, err := c.rdb.Get(ctx, statsKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stats cache: %w", err)
	}

	var stats models.Statistics
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("failed to decode cached stats: %w", err)
	}
	return &stats, nil
}

// SetStatistics stores the statistics with the configured TTL.
func (c *Client) SetStatistics(ctx context.Context, stats *models.Statistics) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}
	return c.rdb.Set(ctx, statsKey, data, c.ttl).Err()
}

// InvalidateStatistics drops the cached statistics.
func (c *Client) InvalidateStatistics(ctx context.Context) error {
	return c.rdb.Del(ctx, statsKey).Err()
}
