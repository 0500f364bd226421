// Package app wires configuration into a ready backtesting service shared by
// the CLI and the HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/newthinker/signaledge/internal/backtest"
	"github.com/newthinker/signaledge/internal/cache"
	"github.com/newthinker/signaledge/internal/collector"
	"github.com/newthinker/signaledge/internal/collector/binance"
	"github.com/newthinker/signaledge/internal/collector/csvfile"
	"github.com/newthinker/signaledge/internal/collector/yahoo"
	"github.com/newthinker/signaledge/internal/commentary"
	"github.com/newthinker/signaledge/internal/config"
	"github.com/newthinker/signaledge/internal/core"
	"github.com/newthinker/signaledge/internal/llm"
	"github.com/newthinker/signaledge/internal/llm/factory"
	"github.com/newthinker/signaledge/internal/metrics"
	"github.com/newthinker/signaledge/internal/storage/archive"
	"github.com/newthinker/signaledge/internal/storage/history"
	"go.uber.org/zap"
)

// Request describes one backtest to run
type Request struct {
	Source     string          `json:"source"`
	Symbol     string          `json:"symbol"`
	Start      time.Time       `json:"start"`
	End        time.Time       `json:"end"`
	Params     backtest.Params `json:"params"`
	Archive    bool            `json:"archive"`
	Commentary bool            `json:"commentary"`
}

// Outcome is a finished run plus what was done with it
type Outcome struct {
	Report          *backtest.Report       `json:"report"`
	ArchivePath     string                 `json:"archive_path,omitempty"`
	Commentary      *commentary.Commentary `json:"commentary,omitempty"`
	CommentaryError string                 `json:"commentary_error,omitempty"`
}

// App is the main application orchestrator
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	metrics    *metrics.Registry
	collectors *collector.Registry
	cache      cache.Cache
	history    *history.Store
	reports    *archive.ReportStore
	provider   llm.Provider
	narrator   *commentary.Narrator

	extra   []collector.Collector
	closers []func() error
}

// Option overrides a component that would otherwise be built from config
type Option func(*App)

// WithCollector registers an additional price source
func WithCollector(c collector.Collector) Option {
	return func(a *App) { a.extra = append(a.extra, c) }
}

// WithCache sets the price cache
func WithCache(c cache.Cache) Option {
	return func(a *App) { a.cache = c }
}

// WithHistory sets the run history store
func WithHistory(h *history.Store) Option {
	return func(a *App) { a.history = h }
}

// WithReportStore sets the report archive
func WithReportStore(r *archive.ReportStore) Option {
	return func(a *App) { a.reports = r }
}

// WithLLM sets the commentary provider
func WithLLM(p llm.Provider) Option {
	return func(a *App) { a.provider = p }
}

// WithMetrics records backtest and cache metrics into reg
func WithMetrics(reg *metrics.Registry) Option {
	return func(a *App) { a.metrics = reg }
}

// New creates a new App instance
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Defaults()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{
		cfg:        cfg,
		logger:     logger,
		collectors: collector.NewRegistry(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.init(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init() error {
	if a.cache == nil {
		c, err := a.buildCache()
		if err != nil {
			return err
		}
		a.cache = c
	}

	var recorder collector.CacheRecorder
	if a.metrics != nil {
		recorder = a.metrics
	}
	sources := append(a.configuredSources(), a.extra...)
	for _, src := range sources {
		if a.cache != nil {
			src = collector.NewCached(src, a.cache, a.logger, recorder)
		}
		a.collectors.Register(src)
	}

	if a.history == nil && a.cfg.Storage.History.Path != "" {
		h, err := history.Open(a.cfg.Storage.History.Path)
		if err != nil {
			return err
		}
		a.history = h
		a.closers = append(a.closers, h.Close)
	}

	if a.reports == nil && a.cfg.Storage.Archive.Type != "" {
		store, err := a.buildArchive()
		if err != nil {
			return err
		}
		a.reports = archive.NewReportStore(store)
	}

	if a.provider == nil && a.cfg.LLM.Provider != "" {
		p, err := factory.New(a.cfg.LLM)
		if err != nil {
			return err
		}
		a.provider = p
	}
	if a.provider != nil {
		a.narrator = commentary.New(a.provider, commentary.Config{MaxTokens: a.cfg.LLM.MaxTokens}, a.logger)
	}

	a.logger.Debug("app initialized",
		zap.Strings("sources", a.collectors.Names()),
		zap.Bool("cache", a.cache != nil),
		zap.Bool("history", a.history != nil),
		zap.Bool("archive", a.reports != nil),
		zap.Bool("commentary", a.narrator != nil),
	)
	return nil
}

func (a *App) buildCache() (cache.Cache, error) {
	c := a.cfg.Cache
	switch c.Type {
	case "memory":
		return cache.NewMemory(c.MaxEntries, c.TTL), nil
	case "redis":
		r, err := cache.NewRedis(cache.RedisConfig{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			Prefix:   c.Redis.Prefix,
			TTL:      c.TTL,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, r.Close)
		return r, nil
	default:
		return nil, nil
	}
}

func (a *App) configuredSources() []collector.Collector {
	var sources []collector.Collector
	s := a.cfg.Sources
	if s.Yahoo.Enabled {
		sources = append(sources, yahoo.NewFromConfig(collector.Config{
			Enabled: true,
			Timeout: s.Yahoo.Timeout,
			BaseURL: s.Yahoo.BaseURL,
			Extra:   map[string]any{"adjusted": s.Yahoo.Adjusted},
		}))
	}
	if s.Binance.Enabled {
		sources = append(sources, binance.NewFromConfig(collector.Config{
			Enabled: true,
			Timeout: s.Binance.Timeout,
			BaseURL: s.Binance.BaseURL,
		}))
	}
	if s.CSV.Enabled {
		sources = append(sources, csvfile.New(s.CSV.Dir))
	}
	return sources
}

func (a *App) buildArchive() (archive.Storage, error) {
	c := a.cfg.Storage.Archive
	switch c.Type {
	case "localfs":
		return archive.NewLocalFS(c.Path)
	case "s3":
		return archive.NewS3(archive.S3Config{
			Bucket:    c.S3.Bucket,
			Endpoint:  c.S3.Endpoint,
			Region:    c.S3.Region,
			AccessKey: c.S3.AccessKey,
			SecretKey: c.S3.SecretKey,
			Prefix:    c.S3.Prefix,
		})
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown archive type: %s", c.Type))
	}
}

// Config returns the configuration the app was built from
func (a *App) Config() *config.Config {
	return a.cfg
}

// Sources returns the registered source names
func (a *App) Sources() []string {
	return a.collectors.Names()
}

// DefaultParams returns the configured engine parameters
func (a *App) DefaultParams() backtest.Params {
	return a.cfg.Backtest
}

func (a *App) backtester(source backtest.Source) *backtest.Backtester {
	opts := []backtest.Option{backtest.WithLogger(a.logger)}
	if a.metrics != nil {
		opts = append(opts, backtest.WithRecorder(a.metrics))
	}
	return backtest.New(source, opts...)
}

func (a *App) source(name string) (collector.Collector, error) {
	if name == "" {
		name = a.cfg.Sources.Default
	}
	return a.collectors.Lookup(name)
}

// Backtest fetches, evaluates and stores one run
func (a *App) Backtest(ctx context.Context, req Request) (*Outcome, error) {
	src, err := a.source(req.Source)
	if err != nil {
		return nil, err
	}

	report, err := a.backtester(src).Run(ctx, req.Symbol, req.Start, req.End, req.Params)
	if err != nil {
		return nil, err
	}
	return a.finish(ctx, report, req)
}

// BacktestSeries evaluates a series already loaded, e.g. from a CSV file
func (a *App) BacktestSeries(ctx context.Context, series core.PriceSeries, req Request) (*Outcome, error) {
	report, err := a.backtester(nil).RunSeries(ctx, series, req.Params)
	if err != nil {
		return nil, err
	}
	return a.finish(ctx, report, req)
}

// finish persists the report and attaches commentary. Storage failures fail
// the run; commentary failures are reported on the outcome.
func (a *App) finish(ctx context.Context, report *backtest.Report, req Request) (*Outcome, error) {
	out := &Outcome{Report: report}

	if a.history != nil {
		if err := a.history.SaveReport(ctx, report); err != nil {
			return nil, err
		}
	}

	if req.Archive {
		if a.reports == nil {
			return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("no report archive configured"))
		}
		p, err := a.reports.Save(ctx, report)
		if err != nil {
			return nil, err
		}
		out.ArchivePath = p
		a.logger.Info("report archived", zap.String("run_id", report.RunID), zap.String("path", p))
	}

	if req.Commentary {
		if a.narrator == nil {
			out.CommentaryError = "no llm provider configured"
		} else if c, err := a.narrator.Explain(ctx, report); err != nil {
			a.logger.Warn("commentary failed", zap.String("run_id", report.RunID), zap.Error(err))
			out.CommentaryError = err.Error()
		} else {
			out.Commentary = c
		}
	}

	return out, nil
}

// Sweep runs the same series under each parameter set and returns results in
// input order. The series is fetched once.
func (a *App) Sweep(ctx context.Context, req Request, sets []backtest.Params) ([]*backtest.Result, error) {
	src, err := a.source(req.Source)
	if err != nil {
		return nil, err
	}
	series, err := src.FetchHistory(ctx, req.Symbol, req.Start, req.End)
	if err != nil {
		return nil, err
	}
	return a.SweepSeries(ctx, series, sets)
}

// SweepSeries runs a sweep over a series already in hand
func (a *App) SweepSeries(ctx context.Context, series core.PriceSeries, sets []backtest.Params) ([]*backtest.Result, error) {
	began := time.Now()
	results, err := backtest.Sweep(ctx, series, sets, a.cfg.Sweep.MaxWorkers)
	if err != nil {
		return nil, err
	}
	a.logger.Info("sweep complete",
		zap.String("symbol", series.Symbol),
		zap.Int("configurations", len(sets)),
		zap.Duration("duration", time.Since(began)),
	)
	return results, nil
}

// History lists stored runs, newest first
func (a *App) History(ctx context.Context, symbol string, limit int) ([]history.Entry, error) {
	if a.history == nil {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("no history store configured"))
	}
	return a.history.List(ctx, symbol, limit)
}

// LoadReport reads an archived report
func (a *App) LoadReport(ctx context.Context, symbol, runID string) (*backtest.Report, error) {
	if a.reports == nil {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("no report archive configured"))
	}
	return a.reports.Load(ctx, symbol, runID)
}

// ClearCache drops cached prices for one source, or all when source is empty
func (a *App) ClearCache(ctx context.Context, source string) error {
	if a.cache == nil {
		return nil
	}
	if source == "" {
		return a.cache.Clear(ctx)
	}
	return a.cache.InvalidateSource(ctx, source)
}

// Close releases databases and connections
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
