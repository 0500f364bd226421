package backtest

import (
	"encoding/csv"
	"io"
	"strconv"
)

var tableHeader = []string{
	"date", "close", "sma", "volatility", "signal", "position",
	"market_return", "strategy_return", "cash_return", "combined_return",
	"equity", "benchmark_equity",
}

// WriteCSV writes the output table, leaving absent values empty
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(tableHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Date.Format("2006-01-02"),
			formatF(r.Close),
			formatNull(r.SMA.Value, r.SMA.Valid),
			formatNull(r.Volatility.Value, r.Volatility.Valid),
			strconv.Itoa(int(r.Signal)),
			strconv.Itoa(int(r.Position)),
			formatNull(r.MarketReturn.Value, r.MarketReturn.Valid),
			formatF(r.StrategyReturn),
			formatF(r.CashReturn),
			formatF(r.CombinedReturn),
			formatF(r.Equity),
			formatF(r.BenchmarkEquity),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func formatNull(f float64, valid bool) string {
	if !valid {
		return ""
	}
	return formatF(f)
}
