package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/signaledge/internal/backtest"
	"github.com/newthinker/signaledge/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func entry(id, symbol string, created time.Time) Entry {
	return Entry{
		RunID:            id,
		Symbol:           symbol,
		Source:           "yahoo",
		CreatedAt:        created,
		StartDate:        time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC),
		EndDate:          time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC),
		Params:           backtest.DefaultParams(),
		TotalReturn:      0.42,
		AnnualizedReturn: 0.09,
		Volatility:       core.Some(0.15),
		MaxDrawdown:      0.21,
		SharpeRatio:      core.None(),
		BenchmarkReturn:  0.55,
		ExcessReturn:     -0.13,
		Trades:           7,
	}
}

func TestStore_SaveGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	want := entry("run-1", "SPY", created)
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.False(t, got.SharpeRatio.Valid)
	assert.True(t, got.Volatility.Valid)
}

func TestStore_GetMissing(t *testing.T) {
	s := openStore(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestStore_List(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(ctx, entry("a", "SPY", base)))
	require.NoError(t, s.Save(ctx, entry("b", "QQQ", base.Add(time.Hour))))
	require.NoError(t, s.Save(ctx, entry("c", "SPY", base.Add(2*time.Hour))))

	spy, err := s.List(ctx, "SPY", 10)
	require.NoError(t, err)
	require.Len(t, spy, 2)
	assert.Equal(t, "c", spy[0].RunID)
	assert.Equal(t, "a", spy[1].RunID)

	all, err := s.List(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "c", all[0].RunID)
	assert.Equal(t, "b", all[1].RunID)

	none, err := s.List(ctx, "IWM", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_SaveReport(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	series := core.PriceSeries{Symbol: "SPY", Source: "csv"}
	for i, c := range []float64{100, 102, 101, 103, 105, 104, 107, 103, 100, 104} {
		series.Observations = append(series.Observations, core.PriceObservation{Time: day.AddDate(0, 0, i), Close: c})
	}
	params := backtest.DefaultParams()
	params.SMAPeriod = 5
	result, err := backtest.Evaluate(series, params)
	require.NoError(t, err)

	report := &backtest.Report{RunID: "r", CreatedAt: day, Result: result}
	require.NoError(t, s.SaveReport(ctx, report))

	got, err := s.Get(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, EntryFromReport(report), got)

	assert.ErrorIs(t, s.SaveReport(ctx, nil), core.ErrInvalidInput)
}
