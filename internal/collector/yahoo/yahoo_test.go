package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/newthinker/signaledge/internal/collector"
	"github.com/newthinker/signaledge/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYahoo_ImplementsCollector(t *testing.T) {
	var _ collector.Collector = (*Yahoo)(nil)
}

func TestYahoo_Name(t *testing.T) {
	y := New()
	if y.Name() != "yahoo" {
		t.Errorf("expected 'yahoo', got '%s'", y.Name())
	}
}

func TestYahoo_ToYahooSymbol(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"AAPL", "AAPL"},
		{"0700.HK", "0700.HK"},
		{"600519.SH", "600519.SS"}, // Shanghai -> SS for Yahoo
		{"000001.SZ", "000001.SZ"},
	}

	y := New()
	for _, tc := range tests {
		got := y.toYahooSymbol(tc.input)
		if got != tc.expected {
			t.Errorf("toYahooSymbol(%s) = %s, want %s", tc.input, got, tc.expected)
		}
	}
}

func TestValidateSymbol(t *testing.T) {
	tests := []struct {
		symbol string
		valid  bool
	}{
		{"SPY", true},
		{"^GSPC", true},
		{"BRK-B", true},
		{"600519.SH", true},
		{"", false},
		{"SPY;DROP", false},
		{"../etc", false},
	}
	for _, tc := range tests {
		err := validateSymbol(tc.symbol)
		assert.Equal(t, tc.valid, err == nil, "symbol %q", tc.symbol)
	}
}

const chartJSON = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "SPY", "currency": "USD", "gmtoffset": -14400},
      "timestamp": [1704205800, 1704292200, 1704378600, 1704465000],
      "indicators": {
        "quote": [{
          "close": [472.65, null, 467.28, 467.92],
          "volume": [123000, 0, 98000, null]
        }],
        "adjclose": [{"adjclose": [460.1, null, 455.0, 455.6]}]
      }
    }],
    "error": null
  }
}`

func TestYahoo_FetchHistory(t *testing.T) {
	var gotPath, gotInterval string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotInterval = r.URL.Query().Get("interval")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chartJSON))
	}))
	defer srv.Close()

	y := New(WithBaseURL(srv.URL))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	s, err := y.FetchHistory(context.Background(), "SPY", start, end)
	require.NoError(t, err)

	assert.Equal(t, "/SPY", gotPath)
	assert.Equal(t, "1d", gotInterval)
	assert.Equal(t, "SPY", s.Symbol)
	assert.Equal(t, "yahoo", s.Source)

	// the null close is dropped
	require.Equal(t, 3, s.Len())
	assert.Equal(t, []float64{472.65, 467.28, 467.92}, s.Closes())
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), s.Start())
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), s.End())
	require.NotNil(t, s.Observations[0].Volume)
	assert.Equal(t, 123000.0, *s.Observations[0].Volume)
	assert.Nil(t, s.Observations[2].Volume)
}

func TestYahoo_FetchHistory_Adjusted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chartJSON))
	}))
	defer srv.Close()

	y := New(WithBaseURL(srv.URL), WithAdjustedClose(true))
	s, err := y.FetchHistory(context.Background(), "SPY", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, []float64{460.1, 455.0, 455.6}, s.Closes())
}

func TestYahoo_FetchHistory_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"not found", http.StatusNotFound, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`, core.ErrNoData},
		{"server error", http.StatusInternalServerError, `oops`, core.ErrSourceFailed},
		{"api error", http.StatusOK, `{"chart":{"result":null,"error":{"code":"Bad Request","description":"invalid range"}}}`, core.ErrSourceFailed},
		{"empty result", http.StatusOK, `{"chart":{"result":[],"error":null}}`, core.ErrNoData},
		{"all closes null", http.StatusOK, `{"chart":{"result":[{"meta":{},"timestamp":[1704205800],"indicators":{"quote":[{"close":[null]}]}}],"error":null}}`, core.ErrNoData},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := New(WithBaseURL(srv.URL)).FetchHistory(context.Background(), "SPY", time.Time{}, time.Time{})
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestYahoo_FetchHistory_InvalidInput(t *testing.T) {
	y := New(WithBaseURL("http://127.0.0.1:0"))

	_, err := y.FetchHistory(context.Background(), "bad symbol", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	_, err = y.FetchHistory(context.Background(), "SPY", day, day.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestYahoo_FetchHistory_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chartJSON))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(WithBaseURL(srv.URL)).FetchHistory(ctx, "SPY", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, core.ErrSourceFailed)
}
