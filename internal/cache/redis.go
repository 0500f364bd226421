package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/newthinker/signaledge/internal/core"
)

// RedisConfig configures the Redis cache
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// Redis stores series as JSON values under prefix:source:symbol:start:end
type Redis struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis creates a Redis cache and pings the server
func NewRedis(cfg RedisConfig) (*Redis, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("redis ping: %w", err))
	}

	return NewRedisWithClient(client, cfg.Prefix, cfg.TTL), nil
}

// NewRedisWithClient wraps an existing client
func NewRedisWithClient(client *goredis.Client, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "signaledge:prices"
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) key(k Key) string {
	return r.prefix + ":" + k.String()
}

func (r *Redis) Get(ctx context.Context, key Key) (core.PriceSeries, bool, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return core.PriceSeries{}, false, nil
	}
	if err != nil {
		return core.PriceSeries{}, false, core.WrapError(core.ErrStorageFailed, err)
	}

	series, err := decodeSeries(data)
	if err != nil {
		return core.PriceSeries{}, false, core.WrapError(core.ErrStorageFailed, err)
	}
	return series, true, nil
}

func (r *Redis) Put(ctx context.Context, key Key, series core.PriceSeries) error {
	data, err := encodeSeries(series)
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	if err := r.client.Set(ctx, r.key(key), data, r.ttl).Err(); err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, key Key) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	return nil
}

func (r *Redis) InvalidateSource(ctx context.Context, source string) error {
	return r.deleteMatching(ctx, r.prefix+":"+source+":*")
}

func (r *Redis) Clear(ctx context.Context) error {
	return r.deleteMatching(ctx, r.prefix+":*")
}

func (r *Redis) deleteMatching(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= 100 {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return core.WrapError(core.ErrStorageFailed, err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	if len(batch) > 0 {
		if err := r.client.Del(ctx, batch...).Err(); err != nil {
			return core.WrapError(core.ErrStorageFailed, err)
		}
	}
	return nil
}

// Close closes the underlying client
func (r *Redis) Close() error {
	return r.client.Close()
}

func encodeSeries(s core.PriceSeries) ([]byte, error) {
	return json.Marshal(s)
}

func decodeSeries(data []byte) (core.PriceSeries, error) {
	var s core.PriceSeries
	if err := json.Unmarshal(data, &s); err != nil {
		return core.PriceSeries{}, fmt.Errorf("decoding cached series: %w", err)
	}
	return s, nil
}
