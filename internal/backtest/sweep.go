package backtest

import (
	"context"
	"runtime"
	"sort"

	"github.com/newthinker/signaledge/internal/core"
	"github.com/sourcegraph/conc/pool"
)

type sweepItem struct {
	index  int
	result *Result
}

// Sweep evaluates several parameter sets over the same series in parallel.
// Results are returned in the order of sets. The first failure cancels the rest.
func Sweep(ctx context.Context, series core.PriceSeries, sets []Params, maxWorkers int) ([]*Result, error) {
	if len(sets) == 0 {
		return nil, nil
	}
	if maxWorkers <= 0 {
		maxWorkers = runtime.GOMAXPROCS(0)
	}

	p := pool.NewWithResults[sweepItem]().
		WithMaxGoroutines(maxWorkers).
		WithContext(ctx).
		WithCancelOnError()

	for i, params := range sets {
		p.Go(func(ctx context.Context) (sweepItem, error) {
			if err := ctx.Err(); err != nil {
				return sweepItem{}, err
			}
			res, err := Evaluate(series, params)
			if err != nil {
				return sweepItem{}, err
			}
			return sweepItem{index: i, result: res}, nil
		})
	}

	items, err := p.Wait()
	if err != nil {
		return nil, err
	}

	sort.Slice(items, func(a, b int) bool { return items[a].index < items[b].index })
	results := make([]*Result, len(items))
	for i, it := range items {
		results[i] = it.result
	}
	return results, nil
}

// Best returns the result with the highest total return, or nil
func Best(results []*Result) *Result {
	var best *Result
	for _, r := range results {
		if r == nil {
			continue
		}
		if best == nil || r.Summary.TotalReturn > best.Summary.TotalReturn {
			best = r
		}
	}
	return best
}
