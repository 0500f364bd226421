package collector

import (
	"context"
	"time"

	"github.com/newthinker/signaledge/internal/cache"
	"github.com/newthinker/signaledge/internal/core"
	"go.uber.org/zap"
)

// CacheRecorder counts cache lookups by result (hit, miss, error)
type CacheRecorder interface {
	RecordCacheRequest(result string)
}

type nopCacheRecorder struct{}

func (nopCacheRecorder) RecordCacheRequest(string) {}

// Cached wraps a collector with an explicit price cache
type Cached struct {
	inner    Collector
	cache    cache.Cache
	logger   *zap.Logger
	recorder CacheRecorder
}

// NewCached returns a collector that consults c before calling inner.
// A nil logger or recorder is replaced by a no-op.
func NewCached(inner Collector, c cache.Cache, logger *zap.Logger, recorder CacheRecorder) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopCacheRecorder{}
	}
	return &Cached{inner: inner, cache: c, logger: logger, recorder: recorder}
}

func (c *Cached) Name() string {
	return c.inner.Name()
}

func (c *Cached) FetchHistory(ctx context.Context, symbol string, start, end time.Time) (core.PriceSeries, error) {
	key := cache.Key{Source: c.inner.Name(), Symbol: symbol, Start: start, End: end}

	series, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		// A broken cache degrades to a direct fetch.
		c.recorder.RecordCacheRequest("error")
		c.logger.Warn("price cache lookup failed", zap.String("key", key.String()), zap.Error(err))
	case ok:
		c.recorder.RecordCacheRequest("hit")
		c.logger.Debug("price cache hit", zap.String("key", key.String()))
		return series, nil
	default:
		c.recorder.RecordCacheRequest("miss")
	}

	series, err = c.inner.FetchHistory(ctx, symbol, start, end)
	if err != nil {
		return core.PriceSeries{}, err
	}

	if err := c.cache.Put(ctx, key, series); err != nil {
		c.logger.Warn("price cache store failed", zap.String("key", key.String()), zap.Error(err))
	}
	return series, nil
}

// Invalidate drops the cached entry for one fetch
func (c *Cached) Invalidate(ctx context.Context, symbol string, start, end time.Time) error {
	return c.cache.Invalidate(ctx, cache.Key{Source: c.inner.Name(), Symbol: symbol, Start: start, End: end})
}
