package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/redis/go-redis/v9"
)

var logger = loggo.GetLogger("sink.redis")

// Client wraps the Redis client with the downloads registry schema
type Client struct {
	rdb *redis.Client
	now func() time.Time
}

// NewClient creates a new Redis client
func NewClient(host string, port string, password string) (*Client, error) {
	addr := fmt.Sprintf("%s:%s", host, port)

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Annotate(err, "failed to connect to Redis")
	}

	logger.Infof("connected to Redis at %s", addr)
	return &Client{rdb: rdb, now: time.Now}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the connection is still usable
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// GetClient returns the underlying Redis client (for advanced operations)
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}
