package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/newthinker/signaledge/internal/core"
	"github.com/newthinker/signaledge/internal/signal"
)

// TradingDays is the number of periods per year used for annualization
const TradingDays = 252

// SMA period bounds accepted by Params.Validate
const (
	MinSMAPeriod = 5
	MaxSMAPeriod = 200
)

// Params holds the options of one backtest run
type Params struct {
	SMAPeriod             int     `mapstructure:"sma_period" json:"sma_period"`
	AnnualCashYieldPct    float64 `mapstructure:"annual_cash_yield_pct" json:"annual_cash_yield_pct"`
	VolatilityGateEnabled bool    `mapstructure:"volatility_gate_enabled" json:"volatility_gate_enabled"`
	MinSignalSpacingDays  int     `mapstructure:"min_signal_spacing_days" json:"min_signal_spacing_days"`
	MinMovePct            float64 `mapstructure:"min_move_pct" json:"min_move_pct"`

	SignalMode          signal.Mode `mapstructure:"signal_mode" json:"signal_mode,omitempty"`
	VolatilityThreshold float64     `mapstructure:"volatility_threshold" json:"volatility_threshold,omitempty"` // fixed gate instead of the regime mean
	GateSells           bool        `mapstructure:"gate_sells" json:"gate_sells,omitempty"`
	AllowShort          bool        `mapstructure:"allow_short" json:"allow_short,omitempty"`
	DisableCashParking  bool        `mapstructure:"disable_cash_parking" json:"disable_cash_parking,omitempty"`
}

// DefaultParams mirrors the original app: SMA 50 and a 2.5% cash yield
func DefaultParams() Params {
	return Params{
		SMAPeriod:          50,
		AnnualCashYieldPct: 2.5,
		SignalMode:         signal.ModeCrossover,
	}
}

// SignalConfig maps the run options onto the signal pipeline
func (p Params) SignalConfig() signal.Config {
	cfg := signal.Config{
		Mode:           p.SignalMode,
		VolatilityGate: signal.GateOff,
		GateSells:      p.GateSells,
		MinMovePct:     p.MinMovePct,
		MinSpacing:     p.MinSignalSpacingDays,
	}
	if cfg.Mode == "" {
		cfg.Mode = signal.ModeCrossover
	}
	if p.VolatilityGateEnabled {
		cfg.VolatilityGate = signal.GateRegime
		if p.VolatilityThreshold > 0 {
			cfg.VolatilityGate = signal.GateThreshold
			cfg.VolatilityThreshold = p.VolatilityThreshold
		}
	}
	return cfg
}

// Validate checks the parameters for errors.
func (p Params) Validate() error {
	if p.SMAPeriod < MinSMAPeriod || p.SMAPeriod > MaxSMAPeriod {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("sma_period must be between %d and %d, got %d", MinSMAPeriod, MaxSMAPeriod, p.SMAPeriod))
	}
	if p.AnnualCashYieldPct < 0 || math.IsNaN(p.AnnualCashYieldPct) || math.IsInf(p.AnnualCashYieldPct, 0) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("annual_cash_yield_pct must be a non-negative number, got %f", p.AnnualCashYieldPct))
	}
	if p.VolatilityThreshold < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("volatility_threshold cannot be negative, got %f", p.VolatilityThreshold))
	}
	return p.SignalConfig().Validate()
}

// ReturnRecord is the accounting for one bar
type ReturnRecord struct {
	Held           core.Position  `json:"held"` // position decided at the previous close
	MarketReturn   core.NullFloat `json:"market_return"`
	StrategyReturn float64        `json:"strategy_return"`
	CashReturn     float64        `json:"cash_return"`
	CombinedReturn float64        `json:"combined_return"`
	Equity         float64        `json:"equity"`
}

// RiskSummary holds performance statistics
type RiskSummary struct {
	TotalReturn            float64        `json:"total_return"`
	AnnualizedReturn       float64        `json:"annualized_return"`        // compounded
	SimpleAnnualizedReturn core.NullFloat `json:"simple_annualized_return"` // mean daily return * 252
	Volatility             core.NullFloat `json:"volatility"`               // annualized
	MaxDrawdown            float64        `json:"max_drawdown"`             // positive fraction of the peak
	SharpeRatio            core.NullFloat `json:"sharpe_ratio"`
	TimeInMarket           float64        `json:"time_in_market"` // fraction of bars held long or short
	Periods                int            `json:"periods"`
}

// Row is one line of the output table
type Row struct {
	Date            time.Time      `json:"date"`
	Close           float64        `json:"close"`
	SMA             core.NullFloat `json:"sma"`
	Volatility      core.NullFloat `json:"volatility"`
	Signal          core.Signal    `json:"signal"`
	Position        core.Position  `json:"position"`
	MarketReturn    core.NullFloat `json:"market_return"`
	StrategyReturn  float64        `json:"strategy_return"`
	CashReturn      float64        `json:"cash_return"`
	CombinedReturn  float64        `json:"combined_return"`
	Equity          float64        `json:"equity"`
	BenchmarkEquity float64        `json:"benchmark_equity"`
}

// SignalStats summarizes the signal pipeline of a run
type SignalStats struct {
	Buys       int            `json:"buys"`
	Sells      int            `json:"sells"`
	Candidates int            `json:"candidates"`
	Suppressed map[string]int `json:"suppressed,omitempty"`
}

// Result holds the complete output of one evaluation
type Result struct {
	Symbol       string      `json:"symbol"`
	Source       string      `json:"source"`
	StartDate    time.Time   `json:"start_date"`
	EndDate      time.Time   `json:"end_date"`
	Params       Params      `json:"params"`
	Rows         []Row       `json:"rows"`
	Summary      RiskSummary `json:"summary"`
	Benchmark    RiskSummary `json:"benchmark"`     // buy and hold over the same closes
	ExcessReturn float64     `json:"excess_return"` // strategy total return minus benchmark total return
	Trades       int         `json:"trades"`
	Signals      SignalStats `json:"signals"`
}

// RecentRows returns the last n rows of the table
func (r *Result) RecentRows(n int) []Row {
	if n <= 0 || len(r.Rows) == 0 {
		return nil
	}
	if n > len(r.Rows) {
		n = len(r.Rows)
	}
	return r.Rows[len(r.Rows)-n:]
}

// SignalRows returns only the rows where a signal fired
func (r *Result) SignalRows() []Row {
	var rows []Row
	for _, row := range r.Rows {
		if row.Signal != core.SignalNone {
			rows = append(rows, row)
		}
	}
	return rows
}

// Report wraps a Result with run identity
type Report struct {
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	Result    *Result   `json:"result"`
}
