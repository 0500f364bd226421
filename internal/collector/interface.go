package collector

import (
	"context"
	"time"

	"github.com/newthinker/signaledge/internal/core"
)

// Config holds collector configuration
type Config struct {
	Enabled bool
	Timeout time.Duration
	BaseURL string
	Dir     string
	Extra   map[string]any
}

// Collector fetches daily closing prices for one symbol.
// A zero start or end leaves that side of the range open.
type Collector interface {
	Name() string
	FetchHistory(ctx context.Context, symbol string, start, end time.Time) (core.PriceSeries, error)
}
