package backtest

import (
	"github.com/newthinker/signaledge/internal/core"
	"github.com/newthinker/signaledge/internal/indicator"
	"github.com/newthinker/signaledge/internal/position"
	"github.com/newthinker/signaledge/internal/signal"
)

// Evaluate runs the full pipeline over an immutable series:
// indicators -> signals -> positions -> returns -> statistics.
// It never modifies series and returns identical output for identical input.
func Evaluate(series core.PriceSeries, params Params) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if series.Len() == 0 {
		return nil, core.ErrNoData
	}

	closes := series.Closes()

	frame, err := indicator.Compute(closes, params.SMAPeriod)
	if err != nil {
		return nil, err
	}

	sigOut, err := signal.Generate(closes, frame, params.SignalConfig())
	if err != nil {
		return nil, err
	}

	positions := position.Track(sigOut.Signals, params.AllowShort)

	records, err := Account(closes, positions, AccountConfig{
		AnnualCashYieldPct: params.AnnualCashYieldPct,
		CashParking:        !params.DisableCashParking,
	})
	if err != nil {
		return nil, err
	}

	benchmark, err := buyAndHold(closes, params.AnnualCashYieldPct)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, len(closes))
	for t, obs := range series.Observations {
		rec := records[t]
		rows[t] = Row{
			Date:            obs.Time,
			Close:           obs.Close,
			SMA:             frame.SMA[t],
			Volatility:      frame.Volatility[t],
			Signal:          sigOut.Signals[t],
			Position:        positions[t],
			MarketReturn:    rec.MarketReturn,
			StrategyReturn:  rec.StrategyReturn,
			CashReturn:      rec.CashReturn,
			CombinedReturn:  rec.CombinedReturn,
			Equity:          rec.Equity,
			BenchmarkEquity: benchmark[t].Equity,
		}
	}

	summary := Summarize(records, params.AnnualCashYieldPct)
	benchSummary := Summarize(benchmark, params.AnnualCashYieldPct)

	return &Result{
		Symbol:       series.Symbol,
		Source:       series.Source,
		StartDate:    series.Start(),
		EndDate:      series.End(),
		Params:       params,
		Rows:         rows,
		Summary:      summary,
		Benchmark:    benchSummary,
		ExcessReturn: summary.TotalReturn - benchSummary.TotalReturn,
		Trades:       position.Entries(positions),
		Signals: SignalStats{
			Buys:       sigOut.Count(core.SignalBuy),
			Sells:      sigOut.Count(core.SignalSell),
			Candidates: sigOut.Candidates,
			Suppressed: sigOut.Suppressed,
		},
	}, nil
}

// buyAndHold holds long from the first close with no cash credit
func buyAndHold(closes []float64, annualCashYieldPct float64) ([]ReturnRecord, error) {
	positions := make([]core.Position, len(closes))
	for i := range positions {
		positions[i] = core.PositionLong
	}
	return Account(closes, positions, AccountConfig{AnnualCashYieldPct: annualCashYieldPct})
}
