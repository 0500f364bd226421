package backtest

import (
	"fmt"
	"math"

	"github.com/newthinker/signaledge/internal/core"
)

// AccountConfig controls how idle capital is credited
type AccountConfig struct {
	AnnualCashYieldPct float64
	CashParking        bool // credit the daily cash rate while flat
}

// DailyCashRate converts an annual percentage yield to a per-bar rate
func DailyCashRate(annualYieldPct float64) float64 {
	return math.Pow(1+annualYieldPct/100, 1.0/TradingDays) - 1
}

// Account realizes returns for each bar. The return at t uses the position
// decided at t-1; bar 0 has no prior position and keeps equity at 1.
func Account(closes []float64, positions []core.Position, cfg AccountConfig) ([]ReturnRecord, error) {
	if len(closes) != len(positions) {
		return nil, core.WrapError(core.ErrInvalidInput,
			fmt.Errorf("%d positions for %d closes", len(positions), len(closes)))
	}
	if len(closes) == 0 {
		return nil, core.ErrNoData
	}

	cashRate := DailyCashRate(cfg.AnnualCashYieldPct)
	records := make([]ReturnRecord, len(closes))
	records[0] = ReturnRecord{Held: core.PositionFlat, Equity: 1}

	equity := 1.0
	for t := 1; t < len(closes); t++ {
		held := positions[t-1]
		market := closes[t]/closes[t-1] - 1

		rec := ReturnRecord{
			Held:         held,
			MarketReturn: core.Some(market),
		}
		switch held {
		case core.PositionLong:
			rec.StrategyReturn = market
		case core.PositionShort:
			rec.StrategyReturn = -market
		default:
			if cfg.CashParking {
				rec.CashReturn = cashRate
			}
		}
		rec.CombinedReturn = rec.StrategyReturn + rec.CashReturn

		equity *= 1 + rec.CombinedReturn
		rec.Equity = equity
		records[t] = rec
	}

	return records, nil
}

// Compound returns the equity curve of one unit grown by returns
func Compound(returns []float64) []float64 {
	equity := make([]float64, len(returns))
	cumulative := 1.0
	for i, r := range returns {
		cumulative *= 1 + r
		equity[i] = cumulative
	}
	return equity
}
