package backtest

import (
	"math"

	"github.com/newthinker/signaledge/internal/core"
	"github.com/newthinker/signaledge/internal/indicator"
)

// Summarize computes performance statistics from a run's records
func Summarize(records []ReturnRecord, annualCashYieldPct float64) RiskSummary {
	n := len(records)
	if n == 0 {
		return RiskSummary{}
	}

	equity := make([]float64, n)
	for i, r := range records {
		equity[i] = r.Equity
	}

	// Bar 0 carries no realized return
	returns := make([]float64, 0, n-1)
	var held int
	for _, r := range records[1:] {
		returns = append(returns, r.CombinedReturn)
		if r.Held != core.PositionFlat {
			held++
		}
	}

	final := equity[n-1]
	summary := RiskSummary{
		TotalReturn:      final - 1,
		AnnualizedReturn: annualize(final, n),
		MaxDrawdown:      MaxDrawdown(equity),
		Periods:          n,
	}
	if len(returns) > 0 {
		summary.TimeInMarket = float64(held) / float64(len(returns))
		summary.SimpleAnnualizedReturn = core.Some(mean(returns) * TradingDays)
	}

	if sd := indicator.StdDev(returns); sd.Valid {
		summary.Volatility = core.Some(sd.Value * math.Sqrt(TradingDays))
	}
	summary.SharpeRatio = sharpe(summary.AnnualizedReturn, summary.Volatility, annualCashYieldPct)

	return summary
}

// annualize compounds final equity over n bars to a yearly rate
func annualize(final float64, n int) float64 {
	if final <= 0 {
		return -1
	}
	return math.Pow(final, float64(TradingDays)/float64(n)) - 1
}

// minVolatility is the annualized volatility below which Sharpe is undefined
const minVolatility = 1e-12

// sharpe is absent when volatility is absent or zero
func sharpe(annualized float64, volatility core.NullFloat, annualCashYieldPct float64) core.NullFloat {
	if !volatility.Valid || volatility.Value < minVolatility {
		return core.None()
	}
	return core.Some((annualized - annualCashYieldPct/100) / volatility.Value)
}

// MaxDrawdown finds the largest peak-to-trough decline as a positive fraction
func MaxDrawdown(equity []float64) float64 {
	var maxDD float64
	var peak float64

	for _, e := range equity {
		if e > peak {
			peak = e
		}
		if peak > 0 {
			dd := (peak - e) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}

	return maxDD
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
