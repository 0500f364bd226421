package backtest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/signaledge/internal/core"
	"go.uber.org/zap"
)

// Source supplies a normalized price series for a date range
type Source interface {
	FetchHistory(ctx context.Context, symbol string, start, end time.Time) (core.PriceSeries, error)
}

// Recorder receives run metrics
type Recorder interface {
	RecordBacktest(status string, duration float64)
	RecordSignals(signal string, count int)
}

type nopRecorder struct{}

func (nopRecorder) RecordBacktest(string, float64) {}
func (nopRecorder) RecordSignals(string, int)      {}

// Backtester fetches price history and evaluates it
type Backtester struct {
	source   Source
	logger   *zap.Logger
	recorder Recorder
	now      func() time.Time
}

// Option configures a Backtester
type Option func(*Backtester)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(b *Backtester) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(b *Backtester) {
		if r != nil {
			b.recorder = r
		}
	}
}

// New creates a new Backtester with the given price source
func New(source Source, opts ...Option) *Backtester {
	b := &Backtester{
		source:   source,
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run fetches the series for symbol over [start, end] and evaluates it
func (b *Backtester) Run(ctx context.Context, symbol string, start, end time.Time, params Params) (*Report, error) {
	if b.source == nil {
		return nil, core.WrapError(core.ErrConfigMissing, nil)
	}

	began := b.now()
	series, err := b.source.FetchHistory(ctx, symbol, start, end)
	if err != nil {
		b.recorder.RecordBacktest("failed", time.Since(began).Seconds())
		b.logger.Warn("fetching history failed",
			zap.String("symbol", symbol),
			zap.Error(err),
		)
		return nil, err
	}

	return b.evaluate(ctx, series, params, began)
}

// RunSeries evaluates a series already in hand, e.g. one read from a file
func (b *Backtester) RunSeries(ctx context.Context, series core.PriceSeries, params Params) (*Report, error) {
	return b.evaluate(ctx, series, params, b.now())
}

func (b *Backtester) evaluate(ctx context.Context, series core.PriceSeries, params Params, began time.Time) (*Report, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	result, err := Evaluate(series, params)
	duration := time.Since(began)
	if err != nil {
		b.recorder.RecordBacktest("failed", duration.Seconds())
		return nil, err
	}

	b.recorder.RecordBacktest("complete", duration.Seconds())
	b.recorder.RecordSignals(core.SignalBuy.String(), result.Signals.Buys)
	b.recorder.RecordSignals(core.SignalSell.String(), result.Signals.Sells)

	report := &Report{
		RunID:     uuid.NewString(),
		CreatedAt: b.now().UTC(),
		Result:    result,
	}

	b.logger.Info("backtest complete",
		zap.String("run_id", report.RunID),
		zap.String("symbol", result.Symbol),
		zap.Int("bars", len(result.Rows)),
		zap.Int("sma_period", params.SMAPeriod),
		zap.Int("trades", result.Trades),
		zap.Float64("total_return", result.Summary.TotalReturn),
		zap.Float64("benchmark_return", result.Benchmark.TotalReturn),
		zap.Duration("duration", duration),
	)

	return report, nil
}
