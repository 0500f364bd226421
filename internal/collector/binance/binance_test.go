package binance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/newthinker/signaledge/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// klineServer answers with one kline per day between startTime and endTime
func klineServer(t *testing.T, requests *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(requests, 1)
		q := r.URL.Query()
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "1d", q.Get("interval"))

		if q.Get("symbol") == "NOPEUSDT" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
			return
		}

		startMs, _ := strconv.ParseInt(q.Get("startTime"), 10, 64)
		endMs, _ := strconv.ParseInt(q.Get("endTime"), 10, 64)
		limit, _ := strconv.Atoi(q.Get("limit"))

		var klines [][]any
		for ts := startMs; ts <= endMs && len(klines) < limit; ts += day.Milliseconds() {
			n := float64(len(klines))
			klines = append(klines, []any{
				float64(ts), "1", "1", "1", strconv.FormatFloat(100+n, 'f', 2, 64), "12.5", float64(ts + day.Milliseconds() - 1),
			})
		}
		json.NewEncoder(w).Encode(klines)
	}))
}

func TestBinance_Name(t *testing.T) {
	b := New()
	if b.Name() != "binance" {
		t.Errorf("expected 'binance', got '%s'", b.Name())
	}
}

func TestBinance_FetchHistory(t *testing.T) {
	var requests int32
	srv := klineServer(t, &requests)
	defer srv.Close()

	b := New(WithBaseURL(srv.URL))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	s, err := b.FetchHistory(context.Background(), "btcusdt", start, end)
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", s.Symbol)
	assert.Equal(t, "binance", s.Source)
	require.Len(t, s.Observations, 10)
	assert.Equal(t, start, s.Observations[0].Time)
	assert.Equal(t, end, s.Observations[9].Time)
	assert.Equal(t, 100.0, s.Observations[0].Close)
	require.NotNil(t, s.Observations[0].Volume)
	assert.Equal(t, 12.5, *s.Observations[0].Volume)
	assert.EqualValues(t, 1, requests)
}

func TestBinance_FetchHistory_Pages(t *testing.T) {
	var requests int32
	srv := klineServer(t, &requests)
	defer srv.Close()

	b := New(WithBaseURL(srv.URL))
	start := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1499)

	s, err := b.FetchHistory(context.Background(), "ETHUSDT", start, end)
	require.NoError(t, err)

	assert.Len(t, s.Observations, 1500)
	assert.EqualValues(t, 2, requests)
	assert.Equal(t, end, s.Observations[len(s.Observations)-1].Time)
}

func TestBinance_FetchHistory_Errors(t *testing.T) {
	var requests int32
	srv := klineServer(t, &requests)
	defer srv.Close()

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer failing.Close()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 5)

	tests := []struct {
		name    string
		baseURL string
		symbol  string
		wantErr *core.Error
	}{
		{"invalid symbol", srv.URL, "BTC/USDT", core.ErrInvalidInput},
		{"unknown pair", srv.URL, "NOPEUSDT", core.ErrNoData},
		{"rate limited", failing.URL, "BTCUSDT", core.ErrSourceFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(WithBaseURL(tt.baseURL))
			_, err := b.FetchHistory(context.Background(), tt.symbol, start, end)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBinance_FetchHistory_EmptyRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	b := New(WithBaseURL(srv.URL))
	_, err := b.FetchHistory(context.Background(), "BTCUSDT",
		time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2010, 2, 1, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, core.ErrNoData)
}
