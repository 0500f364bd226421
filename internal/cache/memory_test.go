package cache

import (
	"context"
	"testing"
	"time"

	"github.com/newthinker/signaledge/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSeries(symbol string) core.PriceSeries {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	return core.PriceSeries{
		Symbol: symbol,
		Source: "yahoo",
		Observations: []core.PriceObservation{
			{Time: day, Close: 100},
			{Time: day.AddDate(0, 0, 1), Close: 101},
		},
	}
}

func TestKey_String(t *testing.T) {
	k := Key{Source: "yahoo", Symbol: "SPY", Start: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, "yahoo:SPY:2020-01-01:open", k.String())
}

func TestMemory_PutGet(t *testing.T) {
	m := NewMemory(10, 0)
	ctx := context.Background()
	key := Key{Source: "yahoo", Symbol: "SPY"}

	_, ok, err := m.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Put(ctx, key, sampleSeries("SPY")))
	got, ok, err := m.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleSeries("SPY"), got)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	m := NewMemory(10, 0)
	ctx := context.Background()
	key := Key{Source: "yahoo", Symbol: "SPY"}
	require.NoError(t, m.Put(ctx, key, sampleSeries("SPY")))

	got, _, _ := m.Get(ctx, key)
	got.Observations[0].Close = -1

	again, _, _ := m.Get(ctx, key)
	assert.Equal(t, 100.0, again.Observations[0].Close)
}

func TestMemory_TTL(t *testing.T) {
	m := NewMemory(10, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()
	key := Key{Source: "yahoo", Symbol: "SPY"}

	require.NoError(t, m.Put(ctx, key, sampleSeries("SPY")))
	_, ok, _ := m.Get(ctx, key)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, _ = m.Get(ctx, key)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestMemory_EvictsOldest(t *testing.T) {
	m := NewMemory(2, 0)
	ctx := context.Background()

	for _, sym := range []string{"A", "B", "C"} {
		require.NoError(t, m.Put(ctx, Key{Source: "yahoo", Symbol: sym}, sampleSeries(sym)))
	}

	assert.Equal(t, 2, m.Len())
	_, ok, _ := m.Get(ctx, Key{Source: "yahoo", Symbol: "A"})
	assert.False(t, ok)
	_, ok, _ = m.Get(ctx, Key{Source: "yahoo", Symbol: "C"})
	assert.True(t, ok)
}

func TestMemory_Invalidate(t *testing.T) {
	m := NewMemory(10, 0)
	ctx := context.Background()
	keys := []Key{
		{Source: "yahoo", Symbol: "SPY"},
		{Source: "yahoo", Symbol: "QQQ"},
		{Source: "csv", Symbol: "SPY"},
	}
	for _, k := range keys {
		require.NoError(t, m.Put(ctx, k, sampleSeries(k.Symbol)))
	}

	require.NoError(t, m.Invalidate(ctx, keys[0]))
	assert.Equal(t, 2, m.Len())

	require.NoError(t, m.InvalidateSource(ctx, "yahoo"))
	assert.Equal(t, 1, m.Len())
	_, ok, _ := m.Get(ctx, keys[2])
	assert.True(t, ok)

	require.NoError(t, m.Clear(ctx))
	assert.Equal(t, 0, m.Len())
}

func TestMemory_ImplementsCache(t *testing.T) {
	var _ Cache = (*Memory)(nil)
	var _ Cache = (*Redis)(nil)
}
