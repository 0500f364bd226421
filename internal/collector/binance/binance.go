// Package binance fetches daily closes for spot pairs from the Binance klines API.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/signaledge/internal/collector"
	"github.com/newthinker/signaledge/internal/core"
	"github.com/newthinker/signaledge/internal/series"
)

const (
	defaultBaseURL = "https://api.binance.com"
	defaultTimeout = 10 * time.Second

	// pageLimit is the most klines Binance returns per request
	pageLimit = 1000
	day       = 24 * time.Hour
)

var validSymbol = regexp.MustCompile(`^[A-Z0-9]{2,20}$`)

// Binance implements collector.Collector for Binance spot pairs such as BTCUSDT
type Binance struct {
	client  *http.Client
	baseURL string
}

// Option configures a Binance collector
type Option func(*Binance)

// WithBaseURL points the collector at another API host
func WithBaseURL(u string) Option {
	return func(b *Binance) { b.baseURL = strings.TrimRight(u, "/") }
}

// WithTimeout sets the HTTP client timeout
func WithTimeout(d time.Duration) Option {
	return func(b *Binance) {
		if d > 0 {
			b.client.Timeout = d
		}
	}
}

// New creates a new Binance collector
func New(opts ...Option) *Binance {
	b := &Binance{
		client:  &http.Client{Timeout: defaultTimeout},
		baseURL: defaultBaseURL,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewFromConfig creates a collector from generic collector settings
func NewFromConfig(cfg collector.Config) *Binance {
	opts := []Option{WithTimeout(cfg.Timeout)}
	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}
	return New(opts...)
}

func (b *Binance) Name() string {
	return "binance"
}

// FetchHistory returns one close per UTC day in [start, end], paging through
// the klines endpoint as needed.
func (b *Binance) FetchHistory(ctx context.Context, symbol string, start, end time.Time) (core.PriceSeries, error) {
	symbol = strings.ToUpper(symbol)
	if !validSymbol.MatchString(symbol) {
		return core.PriceSeries{}, core.WrapError(core.ErrInvalidInput, fmt.Errorf("invalid pair %q", symbol))
	}

	from := start.UTC().Truncate(day)
	until := end.UTC().Truncate(day).Add(day - time.Millisecond)

	var rows []series.RawRow
	for from.Before(until) {
		page, err := b.fetchPage(ctx, symbol, from, until)
		if err != nil {
			return core.PriceSeries{}, err
		}
		rows = append(rows, page...)
		if len(page) < pageLimit {
			break
		}
		from = page[len(page)-1].Time.Add(day)
	}

	if len(rows) == 0 {
		return core.PriceSeries{}, core.WrapError(core.ErrNoData,
			fmt.Errorf("no klines for %s between %s and %s", symbol, start.Format("2006-01-02"), end.Format("2006-01-02")))
	}

	s, _, err := series.Normalize(symbol, b.Name(), rows)
	return s, err
}

func (b *Binance) fetchPage(ctx context.Context, symbol string, from, until time.Time) ([]series.RawRow, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", "1d")
	q.Set("startTime", strconv.FormatInt(from.UnixMilli(), 10))
	q.Set("endTime", strconv.FormatInt(until.UnixMilli(), 10))
	q.Set("limit", strconv.Itoa(pageLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/api/v3/klines?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, core.WrapError(core.ErrSourceFailed, fmt.Errorf("fetching klines: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		// unknown pairs are rejected with 400 and code -1121
		var apiErr apiError
		json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Code == -1121 {
			return nil, core.WrapError(core.ErrNoData, fmt.Errorf("%s: %s", symbol, apiErr.Msg))
		}
		return nil, core.WrapError(core.ErrSourceFailed, fmt.Errorf("binance: %s", apiErr.Msg))
	case resp.StatusCode != http.StatusOK:
		return nil, core.WrapError(core.ErrSourceFailed, fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	var klines [][]any
	if err := json.NewDecoder(resp.Body).Decode(&klines); err != nil {
		return nil, core.WrapError(core.ErrSourceFailed, fmt.Errorf("decoding response: %w", err))
	}

	rows := make([]series.RawRow, 0, len(klines))
	for _, k := range klines {
		if len(k) < 6 {
			continue
		}

		openTime, _ := k[0].(float64)
		closeStr, _ := k[4].(string)
		volumeStr, _ := k[5].(string)

		row := series.RawRow{Time: time.UnixMilli(int64(openTime)).UTC().Truncate(day)}
		if c, err := strconv.ParseFloat(closeStr, 64); err == nil {
			row.Close = &c
		}
		if v, err := strconv.ParseFloat(volumeStr, 64); err == nil {
			row.Volume = &v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}
