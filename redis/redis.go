package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sharedcode/xa"
)

type client struct {
	conn *Connection
}

// NewClient returns a cache client over the package's singleton connection.
// OpenConnection must have been called beforehand.
func NewClient() xa.Cache {
	return &client{
		conn: connection,
	}
}

// keyNotFound will detect whether error signifies key not found by Redis.
func (c client) keyNotFound(err error) bool {
	return err == redis.Nil
}

// Ping tests connectivity for redis (PONG should be returned).
func (c client) Ping(ctx context.Context) error {
	if c.conn == nil {
		return fmt.Errorf("Redis connection is not open, 'can't create new client")
	}
	return c.conn.Client.Ping(ctx).Err()
}

// Set executes the redis Set command.
func (c client) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	if c.conn == nil {
		return fmt.Errorf("Redis connection is not open, 'can't create new client")
	}
	// No caching if expiration < 0.
	if expiration < 0 {
		return nil
	}
	return c.conn.Client.Set(ctx, key, value, expiration).Err()
}

// Get executes the redis Get command.
func (c client) Get(ctx context.Context, key string) (bool, string, error) {
	if c.conn == nil {
		return false, "", fmt.Errorf("Redis connection is not open, 'can't create new client")
	}
	v, err := c.conn.Client.Get(ctx, key).Result()
	if err != nil {
		if c.keyNotFound(err) {
			return false, "", nil
		}
		return false, "", err
	}
	return true, v, nil
}

// GetEx executes the redis GetEx command, extending the key's TTL when found.
func (c client) GetEx(ctx context.Context, key string, expiration time.Duration) (bool, string, error) {
	if c.conn == nil {
		return false, "", fmt.Errorf("Redis connection is not open, 'can't create new client")
	}
	v, err := c.conn.Client.GetEx(ctx, key, expiration).Result()
	if err != nil {
		if c.keyNotFound(err) {
			return false, "", nil
		}
		return false, "", err
	}
	return true, v, nil
}

// Delete removes the given keys; returns false when none were found.
func (c client) Delete(ctx context.Context, keys []string) (bool, error) {
	if c.conn == nil {
		return false, fmt.Errorf("Redis connection is not open, 'can't create new client")
	}
	n, err := c.conn.Client.Del(ctx, keys...).Result()
	if err != nil {
		if c.keyNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return n > 0, nil
}
