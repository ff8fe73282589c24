package redis

import (
	"context"
	"time"

	v9 "github.com/redis/go-redis/v9"
	"github.com/tironinho/kronos-sub000/pkg/errors"
	"github.com/tironinho/kronos-sub000/pkg/logger"
)

type client struct {
	logger  logger.Interface
	config  *Config
	cmdable v9.Cmdable
}

// NewClient creates a new Redis client with the provided logger and configuration.
func NewClient(log logger.Interface, config *Config) Client {
	return &client{
		logger: log,
		config: config,
	}
}

// Connect validates the configuration and establishes the connection.
func (c *client) Connect(ctx context.Context) error {
	if c.config == nil {
		return errors.NewErrorDetails("Redis config is nil", string(errors.RedisConfigError), "connect")
	}
	if len(c.config.Addrs) == 0 {
		return errors.NewErrorDetails("Redis addresses are empty", string(errors.RedisConfigError), "connect")
	}
	if c.config.Mode != Standalone && c.config.Mode != Cluster {
		return errors.NewErrorDetails("Invalid Redis mode", string(errors.RedisConfigError), "connect")
	}
	if c.config.ConnectTimeout <= 0 {
		return errors.NewErrorDetails("Invalid Redis connect timeout", string(errors.RedisConfigError), "connect")
	}
	if c.config.PoolSize <= 0 {
		return errors.NewErrorDetails("Invalid Redis pool size", string(errors.RedisConfigError), "connect")
	}

	switch c.config.Mode {
	case Standalone:
		c.cmdable = v9.NewClient(&v9.Options{
			Addr:            c.config.Addrs[0],
			Username:        c.config.Username,
			Password:        c.config.Password,
			DB:              c.config.DB,
			MaxRetries:      c.config.MaxRetries,
			MinRetryBackoff: c.config.MinRetryBackoff,
			MaxRetryBackoff: c.config.MaxRetryBackoff,
			DialTimeout:     c.config.ConnectTimeout,
			ReadTimeout:     c.config.ConnectTimeout,
			WriteTimeout:    c.config.ConnectTimeout,
			PoolSize:        c.config.PoolSize,
			MinIdleConns:    c.config.MinIdleConns,
			MaxIdleConns:    c.config.MaxIdleConns,
			ConnMaxLifetime: c.config.ConnMaxLifetime,
			ConnMaxIdleTime: c.config.ConnMaxIdleTime,
			PoolTimeout:     c.config.PoolTimeout,
		})
	case Cluster:
		c.cmdable = v9.NewClusterClient(&v9.ClusterOptions{
			Addrs:           c.config.Addrs,
			Username:        c.config.Username,
			Password:        c.config.Password,
			MaxRetries:      c.config.MaxRetries,
			MinRetryBackoff: c.config.MinRetryBackoff,
			MaxRetryBackoff: c.config.MaxRetryBackoff,
			DialTimeout:     c.config.ConnectTimeout,
			ReadTimeout:     c.config.ConnectTimeout,
			WriteTimeout:    c.config.ConnectTimeout,
			PoolSize:        c.config.PoolSize,
			MinIdleConns:    c.config.MinIdleConns,
			MaxIdleConns:    c.config.MaxIdleConns,
			ConnMaxLifetime: c.config.ConnMaxLifetime,
			ConnMaxIdleTime: c.config.ConnMaxIdleTime,
			PoolTimeout:     c.config.PoolTimeout,
		})
	}

	if err := c.Ping(ctx); err != nil {
		return errors.NewErrorDetails(err.Error(), string(errors.RedisConnectionError), "connect")
	}

	c.logger.InfoContext(ctx, "redis connected", logger.Field{
		Key:   "mode",
		Value: string(c.config.Mode),
	})
	return nil
}

// Disconnect closes the underlying connection.
func (c *client) Disconnect(ctx context.Context) error {
	switch conn := c.cmdable.(type) {
	case *v9.Client:
		return conn.Close()
	case *v9.ClusterClient:
		return conn.Close()
	}
	return nil
}

// Ping checks the connection.
func (c *client) Ping(ctx context.Context) error {
	if err := c.cmdable.Ping(ctx).Err(); err != nil {
		return errors.NewErrorDetails(err.Error(), string(errors.RedisConnectionError), "ping")
	}
	return nil
}

func (c *client) key(key string) string {
	return c.config.PrefixKey + key
}

// Get returns the value stored at key. A missing key yields an empty string
// and no error.
func (c *client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.cmdable.Get(ctx, c.key(key)).Result()
	if err != nil {
		if err == v9.Nil {
			return "", nil
		}
		return "", errors.NewErrorDetails(err.Error(), string(errors.RedisGetError), key)
	}
	return val, nil
}

// Set stores a value at key with the given expiration.
func (c *client) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if err := c.cmdable.Set(ctx, c.key(key), value, expiration).Err(); err != nil {
		return errors.NewErrorDetails(err.Error(), string(errors.RedisSetError), key)
	}
	return nil
}

// SetNX stores a value at key only if it does not exist yet.
func (c *client) SetNX(ctx context.Context, key string, value any, expiration time.Duration) (bool, error) {
	ok, err := c.cmdable.SetNX(ctx, c.key(key), value, expiration).Result()
	if err != nil {
		return false, errors.NewErrorDetails(err.Error(), string(errors.RedisSetError), key)
	}
	return ok, nil
}

// Del removes the given keys.
func (c *client) Del(ctx context.Context, keys ...string) (int64, error) {
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = c.key(k)
	}
	n, err := c.cmdable.Del(ctx, prefixed...).Result()
	if err != nil {
		return 0, errors.NewErrorDetails(err.Error(), string(errors.RedisSetError), "del")
	}
	return n, nil
}

// HGet returns a hash field value.
func (c *client) HGet(ctx context.Context, key, field string) (string, error) {
	val, err := c.cmdable.HGet(ctx, c.key(key), field).Result()
	if err != nil {
		if err == v9.Nil {
			return "", nil
		}
		return "", errors.NewErrorDetails(err.Error(), string(errors.RedisGetError), key)
	}
	return val, nil
}

// HSet sets hash fields on key.
func (c *client) HSet(ctx context.Context, key string, values map[string]any) (int64, error) {
	n, err := c.cmdable.HSet(ctx, c.key(key), values).Result()
	if err != nil {
		return 0, errors.NewErrorDetails(err.Error(), string(errors.RedisSetError), key)
	}
	return n, nil
}
