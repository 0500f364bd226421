package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/newthinker/signaledge/internal/collector"
	"github.com/newthinker/signaledge/internal/core"
	"github.com/newthinker/signaledge/internal/series"
)

const (
	defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	defaultTimeout = 10 * time.Second
)

// validSymbol matches symbols like SPY, ^GSPC, BRK-B, 600519.SH, 0700.HK
var validSymbol = regexp.MustCompile(`^\^?[A-Za-z0-9-]{1,10}(\.[A-Za-z]{1,4})?$`)

// validateSymbol checks if a symbol has valid format
func validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if len(symbol) > 20 {
		return fmt.Errorf("symbol too long: %s", symbol)
	}
	if !validSymbol.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

// Yahoo fetches daily closes from the Yahoo Finance chart API
type Yahoo struct {
	client   *http.Client
	baseURL  string
	adjusted bool
	now      func() time.Time
}

// Option configures a Yahoo collector
type Option func(*Yahoo)

// WithBaseURL points the collector at another chart endpoint
func WithBaseURL(u string) Option {
	return func(y *Yahoo) { y.baseURL = strings.TrimRight(u, "/") }
}

// WithTimeout sets the HTTP client timeout
func WithTimeout(d time.Duration) Option {
	return func(y *Yahoo) {
		if d > 0 {
			y.client.Timeout = d
		}
	}
}

// WithAdjustedClose uses split and dividend adjusted closes when available
func WithAdjustedClose(on bool) Option {
	return func(y *Yahoo) { y.adjusted = on }
}

// New creates a new Yahoo collector
func New(opts ...Option) *Yahoo {
	y := &Yahoo{
		client:  &http.Client{Timeout: defaultTimeout},
		baseURL: defaultBaseURL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

// NewFromConfig creates a collector from generic collector settings
func NewFromConfig(cfg collector.Config) *Yahoo {
	opts := []Option{WithTimeout(cfg.Timeout)}
	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}
	if adj, ok := cfg.Extra["adjusted"].(bool); ok {
		opts = append(opts, WithAdjustedClose(adj))
	}
	return New(opts...)
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

// toYahooSymbol converts internal symbol format to Yahoo format
func (y *Yahoo) toYahooSymbol(symbol string) string {
	// Shanghai stocks: 600519.SH -> 600519.SS
	if strings.HasSuffix(symbol, ".SH") {
		return strings.TrimSuffix(symbol, ".SH") + ".SS"
	}
	return symbol
}

// FetchHistory fetches daily closes between start and end
func (y *Yahoo) FetchHistory(ctx context.Context, symbol string, start, end time.Time) (core.PriceSeries, error) {
	if err := validateSymbol(symbol); err != nil {
		return core.PriceSeries{}, core.WrapError(core.ErrInvalidInput, err)
	}
	if end.IsZero() {
		end = y.now()
	}
	if !start.IsZero() && !start.Before(end) {
		return core.PriceSeries{}, core.WrapError(core.ErrInvalidInput,
			fmt.Errorf("start %s is not before end %s", start.Format("2006-01-02"), end.Format("2006-01-02")))
	}

	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("period1", fmt.Sprintf("%d", start.Unix()))
	if start.IsZero() {
		q.Set("period1", "0")
	}
	// period2 is exclusive, include the end day
	q.Set("period2", fmt.Sprintf("%d", end.Add(24*time.Hour).Unix()))
	q.Set("events", "div,split")
	endpoint := fmt.Sprintf("%s/%s?%s", y.baseURL, url.PathEscape(y.toYahooSymbol(symbol)), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return core.PriceSeries{}, core.WrapError(core.ErrSourceFailed, err)
	}
	req.Header.Set("User-Agent", "signaledge/1.0")

	resp, err := y.client.Do(req)
	if err != nil {
		return core.PriceSeries{}, core.WrapError(core.ErrSourceFailed, fmt.Errorf("fetching history: %w", err))
	}
	defer resp.Body.Close()

	var result chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if resp.StatusCode != http.StatusOK {
			return core.PriceSeries{}, core.WrapError(core.ErrSourceFailed, fmt.Errorf("unexpected status: %d", resp.StatusCode))
		}
		return core.PriceSeries{}, core.WrapError(core.ErrSourceFailed, fmt.Errorf("decoding response: %w", err))
	}

	if result.Chart.Error != nil {
		if result.Chart.Error.Code == "Not Found" {
			return core.PriceSeries{}, core.WrapError(core.ErrNoData, fmt.Errorf("yahoo: %s", result.Chart.Error.Description))
		}
		return core.PriceSeries{}, core.WrapError(core.ErrSourceFailed, fmt.Errorf("yahoo error: %s", result.Chart.Error.Description))
	}
	if resp.StatusCode != http.StatusOK {
		return core.PriceSeries{}, core.WrapError(core.ErrSourceFailed, fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}
	if len(result.Chart.Result) == 0 {
		return core.PriceSeries{}, core.WrapError(core.ErrNoData, fmt.Errorf("no data for symbol: %s", symbol))
	}

	rows := y.toRows(result.Chart.Result[0])
	s, _, err := series.Normalize(symbol, y.Name(), rows)
	if err != nil {
		return core.PriceSeries{}, err
	}
	return s, nil
}

// toRows maps chart arrays to raw rows dated at the exchange's local day
func (y *Yahoo) toRows(r chartResult) []series.RawRow {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	quotes := r.Indicators.Quote[0]

	closes := quotes.Close
	if y.adjusted && len(r.Indicators.AdjClose) > 0 && len(r.Indicators.AdjClose[0].AdjClose) == len(r.Timestamp) {
		closes = r.Indicators.AdjClose[0].AdjClose
	}

	offset := time.Duration(r.Meta.GMTOffset) * time.Second
	rows := make([]series.RawRow, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		local := time.Unix(ts, 0).UTC().Add(offset)
		row := series.RawRow{
			Time: time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC),
		}
		if i < len(closes) {
			row.Close = closes[i]
		}
		if i < len(quotes.Volume) && quotes.Volume[i] != nil {
			v := *quotes.Volume[i]
			row.Volume = &v
		}
		rows = append(rows, row)
	}
	return rows
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol    string `json:"symbol"`
	Currency  string `json:"currency"`
	GMTOffset int64  `json:"gmtoffset"`
}

type indicators struct {
	Quote    []quoteIndicator `json:"quote"`
	AdjClose []struct {
		AdjClose []*float64 `json:"adjclose"`
	} `json:"adjclose"`
}

type quoteIndicator struct {
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}
