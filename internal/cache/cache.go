// Package cache memoizes fetched price series under an explicit key.
//
// Entries live until their TTL passes or the caller invalidates them; there is
// no process-wide cache.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/newthinker/signaledge/internal/core"
)

// Key identifies a fetch by source, symbol and requested date range
type Key struct {
	Source string
	Symbol string
	Start  time.Time
	End    time.Time
}

// String renders the key as source:symbol:start:end with open bounds as "open"
func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s:%s", k.Source, k.Symbol, dateOrOpen(k.Start), dateOrOpen(k.End))
}

func dateOrOpen(t time.Time) string {
	if t.IsZero() {
		return "open"
	}
	return t.UTC().Format("2006-01-02")
}

// Cache stores price series by key
type Cache interface {
	// Get returns the cached series and whether it was found
	Get(ctx context.Context, key Key) (core.PriceSeries, bool, error)

	// Put stores a series under key
	Put(ctx context.Context, key Key, series core.PriceSeries) error

	// Invalidate removes one key
	Invalidate(ctx context.Context, key Key) error

	// InvalidateSource removes every key of a source
	InvalidateSource(ctx context.Context, source string) error

	// Clear removes everything
	Clear(ctx context.Context) error
}
