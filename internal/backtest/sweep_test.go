package backtest

import (
	"context"
	"testing"

	"github.com/newthinker/signaledge/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweep_PreservesOrder(t *testing.T) {
	series := makeSeries(randomWalk(300, 11))
	var sets []Params
	for _, p := range []int{10, 20, 50, 100, 150, 200} {
		params := DefaultParams()
		params.SMAPeriod = p
		sets = append(sets, params)
	}

	results, err := Sweep(context.Background(), series, sets, 3)
	require.NoError(t, err)
	require.Len(t, results, len(sets))

	for i, res := range results {
		assert.Equal(t, sets[i].SMAPeriod, res.Params.SMAPeriod)
		want, err := Evaluate(series, sets[i])
		require.NoError(t, err)
		assert.Equal(t, want, res, "parallel run must equal a sequential run")
	}
}

func TestSweep_Error(t *testing.T) {
	series := makeSeries(randomWalk(100, 1))
	sets := []Params{DefaultParams(), {SMAPeriod: 2}}

	_, err := Sweep(context.Background(), series, sets, 0)
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}

func TestSweep_Empty(t *testing.T) {
	results, err := Sweep(context.Background(), makeSeries([]float64{1}), nil, 2)
	assert.NoError(t, err)
	assert.Nil(t, results)
}

func TestBest(t *testing.T) {
	a := &Result{Summary: RiskSummary{TotalReturn: 0.1}}
	b := &Result{Summary: RiskSummary{TotalReturn: 0.3}}
	c := &Result{Summary: RiskSummary{TotalReturn: -0.2}}

	assert.Same(t, b, Best([]*Result{a, nil, b, c}))
	assert.Nil(t, Best(nil))
}
