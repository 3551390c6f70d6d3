package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"medcontent-subscription/internal/config"
)

// Nil is returned by Get for absent keys.
const Nil = redis.Nil

type RedisClient interface {
	Ping(ctx context.Context) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	// IncrWindow increments key and starts its expiry window when it has none.
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
	Del(ctx context.Context, keys ...string) error
	// DelIfEquals removes key only while it still holds value.
	DelIfEquals(ctx context.Context, key, value string) (bool, error)
	Close() error
}

var _ RedisClient = (*Client)(nil)

type Client struct {
	cli *redis.Client
}

func NewClient(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		// plain host:port
		opts = &redis.Options{Addr: cfg.URL}
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return &Client{cli: c}, nil
}

func (c *Client) Ping(ctx context.Context) error { return c.cli.Ping(ctx).Err() }

func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.cli.Set(ctx, key, value, expiration).Err()
}

func (c *Client) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return c.cli.SetNX(ctx, key, value, expiration).Result()
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.cli.Get(ctx, key).Result()
}

var luaIncrWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n`)

func (c *Client) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	return luaIncrWindow.Run(ctx, c.cli, []string{key}, window.Milliseconds()).Int64()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	return c.cli.Del(ctx, keys...).Err()
}

var luaDelIfEquals = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

func (c *Client) DelIfEquals(ctx context.Context, key, value string) (bool, error) {
	n, err := luaDelIfEquals.Run(ctx, c.cli, []string{key}, value).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (c *Client) Close() error { return c.cli.Close() }

// FlushDB wipes the selected database. Used by the manual test reset tool only.
func (c *Client) FlushDB(ctx context.Context) error { return c.cli.FlushDB(ctx).Err() }
