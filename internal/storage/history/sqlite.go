// Package history keeps a queryable log of completed backtest runs in SQLite.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/newthinker/signaledge/internal/backtest"
	"github.com/newthinker/signaledge/internal/core"
)

// Entry is one stored run summary
type Entry struct {
	RunID            string          `json:"run_id"`
	Symbol           string          `json:"symbol"`
	Source           string          `json:"source"`
	CreatedAt        time.Time       `json:"created_at"`
	StartDate        time.Time       `json:"start_date"`
	EndDate          time.Time       `json:"end_date"`
	Params           backtest.Params `json:"params"`
	TotalReturn      float64         `json:"total_return"`
	AnnualizedReturn float64         `json:"annualized_return"`
	Volatility       core.NullFloat  `json:"volatility"`
	MaxDrawdown      float64         `json:"max_drawdown"`
	SharpeRatio      core.NullFloat  `json:"sharpe_ratio"`
	BenchmarkReturn  float64         `json:"benchmark_return"`
	ExcessReturn     float64         `json:"excess_return"`
	Trades           int             `json:"trades"`
}

// EntryFromReport flattens a report into a history entry
func EntryFromReport(r *backtest.Report) Entry {
	res := r.Result
	return Entry{
		RunID:            r.RunID,
		Symbol:           res.Symbol,
		Source:           res.Source,
		CreatedAt:        r.CreatedAt,
		StartDate:        res.StartDate,
		EndDate:          res.EndDate,
		Params:           res.Params,
		TotalReturn:      res.Summary.TotalReturn,
		AnnualizedReturn: res.Summary.AnnualizedReturn,
		Volatility:       res.Summary.Volatility,
		MaxDrawdown:      res.Summary.MaxDrawdown,
		SharpeRatio:      res.Summary.SharpeRatio,
		BenchmarkReturn:  res.Benchmark.TotalReturn,
		ExcessReturn:     res.ExcessReturn,
		Trades:           res.Trades,
	}
}

// Store writes and reads run history
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at dbPath
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("sqlite open: %w", err))
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id            TEXT PRIMARY KEY,
			symbol            TEXT NOT NULL,
			source            TEXT NOT NULL,
			created_at        INTEGER NOT NULL,
			start_date        INTEGER NOT NULL,
			end_date          INTEGER NOT NULL,
			params            TEXT NOT NULL,
			total_return      REAL NOT NULL,
			annualized_return REAL NOT NULL,
			volatility        REAL,
			max_drawdown      REAL NOT NULL,
			sharpe_ratio      REAL,
			benchmark_return  REAL NOT NULL,
			excess_return     REAL NOT NULL,
			trades            INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_symbol_created ON runs(symbol, created_at DESC);
	`)
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, fmt.Errorf("sqlite create schema: %w", err))
	}
	return nil
}

// Save records a completed run
func (s *Store) Save(ctx context.Context, e Entry) error {
	params, err := json.Marshal(e.Params)
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, fmt.Errorf("encoding params: %w", err))
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (run_id, symbol, source, created_at, start_date, end_date, params,
			total_return, annualized_return, volatility, max_drawdown, sharpe_ratio,
			benchmark_return, excess_return, trades)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.RunID, e.Symbol, e.Source, e.CreatedAt.UnixMilli(), e.StartDate.Unix(), e.EndDate.Unix(), string(params),
		e.TotalReturn, e.AnnualizedReturn, nullable(e.Volatility), e.MaxDrawdown, nullable(e.SharpeRatio),
		e.BenchmarkReturn, e.ExcessReturn, e.Trades)
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, fmt.Errorf("sqlite insert run: %w", err))
	}
	return nil
}

// SaveReport records a report's summary
func (s *Store) SaveReport(ctx context.Context, r *backtest.Report) error {
	if r == nil || r.Result == nil {
		return core.WrapError(core.ErrInvalidInput, fmt.Errorf("empty report"))
	}
	return s.Save(ctx, EntryFromReport(r))
}

const selectColumns = `SELECT run_id, symbol, source, created_at, start_date, end_date, params,
	total_return, annualized_return, volatility, max_drawdown, sharpe_ratio,
	benchmark_return, excess_return, trades FROM runs`

// List returns the newest runs first; an empty symbol lists every symbol
func (s *Store) List(ctx context.Context, symbol string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	var (
		rows *sql.Rows
		err  error
	)
	if symbol == "" {
		rows, err = s.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, selectColumns+` WHERE symbol = ? ORDER BY created_at DESC LIMIT ?`, symbol, limit)
	}
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("sqlite query runs: %w", err))
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	return entries, nil
}

// Get returns one run by id
func (s *Store) Get(ctx context.Context, runID string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE run_id = ?`, runID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, core.WrapError(core.ErrNotFound, fmt.Errorf("run %s", runID))
	}
	return e, err
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var (
		e                   Entry
		created, start, end int64
		params              string
		volatility, sharpe  sql.NullFloat64
	)
	err := sc.Scan(&e.RunID, &e.Symbol, &e.Source, &created, &start, &end, &params,
		&e.TotalReturn, &e.AnnualizedReturn, &volatility, &e.MaxDrawdown, &sharpe,
		&e.BenchmarkReturn, &e.ExcessReturn, &e.Trades)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, err
	}
	if err != nil {
		return Entry{}, core.WrapError(core.ErrStorageFailed, fmt.Errorf("sqlite scan run: %w", err))
	}

	if err := json.Unmarshal([]byte(params), &e.Params); err != nil {
		return Entry{}, core.WrapError(core.ErrStorageFailed, fmt.Errorf("decoding params: %w", err))
	}
	e.CreatedAt = time.UnixMilli(created).UTC()
	e.StartDate = time.Unix(start, 0).UTC()
	e.EndDate = time.Unix(end, 0).UTC()
	e.Volatility = fromNullable(volatility)
	e.SharpeRatio = fromNullable(sharpe)
	return e, nil
}

func nullable(f core.NullFloat) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f.Value, Valid: f.Valid}
}

func fromNullable(n sql.NullFloat64) core.NullFloat {
	if !n.Valid {
		return core.None()
	}
	return core.Some(n.Float64)
}
