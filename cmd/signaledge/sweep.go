package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/newthinker/signaledge/internal/app"
	"github.com/newthinker/signaledge/internal/backtest"
	"github.com/newthinker/signaledge/internal/core"
	"github.com/spf13/cobra"
)

var (
	sweepCSV     string
	sweepSymbol  string
	sweepSource  string
	sweepFrom    string
	sweepTo      string
	sweepPeriods string
	sweepEngine  *engineFlags
)

var sweepCmd = &cobra.Command{
	Use:     "sweep",
	Short:   "Compare SMA periods on the same price series",
	Example: `  signaledge sweep --symbol SPY --from 2010-01-01 --periods 20,50,100,200`,
	RunE:    runSweep,
}

func init() {
	fs := sweepCmd.Flags()
	fs.StringVar(&sweepCSV, "csv", "", "CSV file with date and close columns")
	fs.StringVar(&sweepSymbol, "symbol", "", "symbol to fetch from a price source")
	fs.StringVar(&sweepSource, "source", "", "price source name (defaults to sources.default)")
	fs.StringVar(&sweepFrom, "from", "", "start date YYYY-MM-DD")
	fs.StringVar(&sweepTo, "to", "", "end date YYYY-MM-DD (defaults to today)")
	fs.StringVar(&sweepPeriods, "periods", "20,50,100,200", "comma separated SMA periods")
	sweepEngine = bindEngineFlags(fs)

	sweepCmd.MarkFlagsMutuallyExclusive("csv", "symbol")
	sweepCmd.MarkFlagsOneRequired("csv", "symbol")

	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	periods, err := parsePeriods(sweepPeriods)
	if err != nil {
		return err
	}

	a, log, err := newApp()
	if err != nil {
		return err
	}
	defer log.Sync()
	defer a.Close()

	base, err := sweepEngine.apply(a.DefaultParams())
	if err != nil {
		return err
	}
	sets := make([]backtest.Params, len(periods))
	for i, n := range periods {
		sets[i] = base
		sets[i].SMAPeriod = n
		if err := sets[i].Validate(); err != nil {
			return err
		}
	}

	ctx := cmd.Context()

	var results []*backtest.Result
	if sweepCSV != "" {
		var s core.PriceSeries
		if s, err = readSeriesFile(sweepCSV, log); err != nil {
			return err
		}
		results, err = a.SweepSeries(ctx, s, sets)
	} else {
		if sweepFrom == "" {
			return fmt.Errorf("--from is required with --symbol")
		}
		req := app.Request{Source: sweepSource, Symbol: sweepSymbol}
		if req.Start, req.End, err = parseRange(sweepFrom, sweepTo, time.Now()); err != nil {
			return err
		}
		results, err = a.Sweep(ctx, req, sets)
	}
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SMA\tTotal\tAnnualized\tVolatility\tMax DD\tSharpe\tTrades\tvs B&H")
	for _, r := range results {
		s := r.Summary
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.Params.SMAPeriod,
			backtest.FormatPct(s.TotalReturn),
			backtest.FormatPct(s.AnnualizedReturn),
			backtest.FormatNullPct(s.Volatility),
			backtest.FormatPct(s.MaxDrawdown),
			backtest.FormatRatio(s.SharpeRatio),
			r.Trades,
			backtest.FormatPct(r.ExcessReturn),
		)
	}
	tw.Flush()

	if best := backtest.Best(results); best != nil {
		fmt.Fprintf(w, "\nBest total return: %d-day SMA (%s); buy and hold %s\n",
			best.Params.SMAPeriod,
			backtest.FormatPct(best.Summary.TotalReturn),
			backtest.FormatPct(best.Benchmark.TotalReturn),
		)
	}
	return nil
}
