package backtest

import (
	"fmt"

	"github.com/newthinker/signaledge/internal/core"
)

// FormatPct renders a fraction as a percentage with two decimals, 0.02 -> "2.00%"
func FormatPct(f float64) string {
	return fmt.Sprintf("%.2f%%", f*100)
}

// FormatNullPct renders an optional fraction, "n/a" when absent
func FormatNullPct(f core.NullFloat) string {
	if !f.Valid {
		return "n/a"
	}
	return FormatPct(f.Value)
}

// FormatRatio renders an optional ratio with two decimals, "n/a" when absent
func FormatRatio(f core.NullFloat) string {
	if !f.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", f.Value)
}

// SummaryLines returns label/value pairs for display in a fixed order
func SummaryLines(s RiskSummary) [][2]string {
	return [][2]string{
		{"Total return", FormatPct(s.TotalReturn)},
		{"Annualized return", FormatPct(s.AnnualizedReturn)},
		{"Volatility", FormatNullPct(s.Volatility)},
		{"Max drawdown", FormatPct(s.MaxDrawdown)},
		{"Sharpe ratio", FormatRatio(s.SharpeRatio)},
		{"Time in market", FormatPct(s.TimeInMarket)},
	}
}
