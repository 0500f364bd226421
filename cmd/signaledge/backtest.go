package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/newthinker/signaledge/internal/app"
	"github.com/newthinker/signaledge/internal/backtest"
	"github.com/newthinker/signaledge/internal/core"
	"github.com/newthinker/signaledge/internal/series"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// recentRows is how many trailing table rows the report prints
const recentRows = 30

var (
	backtestCSV        string
	backtestSymbol     string
	backtestSource     string
	backtestFrom       string
	backtestTo         string
	backtestOut        string
	backtestArchive    bool
	backtestCommentary bool
	backtestEngine     *engineFlags
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Backtest the SMA strategy on one price series",
	Long: `Run the SMA signal strategy against a daily close series and show its
performance next to buying and holding. The series comes from a CSV file
(--csv) or from a configured price source (--symbol, --source, --from, --to).`,
	Example: `  signaledge backtest --csv data/SPY.csv --sma 50
  signaledge backtest --symbol SPY --from 2015-01-01 --vol-gate --out spy.csv`,
	RunE: runBacktest,
}

func init() {
	fs := backtestCmd.Flags()
	fs.StringVar(&backtestCSV, "csv", "", "CSV file with date and close columns")
	fs.StringVar(&backtestSymbol, "symbol", "", "symbol to fetch from a price source")
	fs.StringVar(&backtestSource, "source", "", "price source name (defaults to sources.default)")
	fs.StringVar(&backtestFrom, "from", "", "start date YYYY-MM-DD")
	fs.StringVar(&backtestTo, "to", "", "end date YYYY-MM-DD (defaults to today)")
	fs.StringVar(&backtestOut, "out", "", "write the full output table to this CSV file")
	fs.BoolVar(&backtestArchive, "archive", false, "store the report in the configured archive")
	fs.BoolVar(&backtestCommentary, "commentary", false, "ask the configured LLM to explain the result")
	backtestEngine = bindEngineFlags(fs)

	backtestCmd.MarkFlagsMutuallyExclusive("csv", "symbol")
	backtestCmd.MarkFlagsOneRequired("csv", "symbol")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	a, log, err := newApp()
	if err != nil {
		return err
	}
	defer log.Sync()
	defer a.Close()

	params, err := backtestEngine.apply(a.DefaultParams())
	if err != nil {
		return err
	}

	req := app.Request{
		Source:     backtestSource,
		Symbol:     backtestSymbol,
		Params:     params,
		Archive:    backtestArchive,
		Commentary: backtestCommentary,
	}

	ctx := cmd.Context()

	var out *app.Outcome
	if backtestCSV != "" {
		s, err := readSeriesFile(backtestCSV, log)
		if err != nil {
			return err
		}
		out, err = a.BacktestSeries(ctx, s, req)
		if err != nil {
			return err
		}
	} else {
		if backtestFrom == "" {
			return fmt.Errorf("--from is required with --symbol")
		}
		req.Start, req.End, err = parseRange(backtestFrom, backtestTo, time.Now())
		if err != nil {
			return err
		}
		out, err = a.Backtest(ctx, req)
		if err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	printReport(w, out.Report)

	if backtestOut != "" {
		if err := writeTable(backtestOut, out.Report.Result.Rows); err != nil {
			return err
		}
		fmt.Fprintf(w, "\nTable written to %s\n", backtestOut)
	}
	if out.ArchivePath != "" {
		fmt.Fprintf(w, "Report archived at %s\n", out.ArchivePath)
	}
	if backtestCommentary {
		fmt.Fprintln(w)
		if out.Commentary != nil {
			fmt.Fprintln(w, "=== Commentary ===")
			fmt.Fprintln(w, out.Commentary.Text)
		} else {
			fmt.Fprintf(w, "Commentary unavailable: %s\n", out.CommentaryError)
		}
	}
	return nil
}

// readSeriesFile loads a CSV file; the symbol is the file name without extension
func readSeriesFile(path string, log *zap.Logger) (core.PriceSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.PriceSeries{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	rows, err := series.ReadCSV(f)
	if err != nil {
		return core.PriceSeries{}, err
	}

	symbol := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	s, rep, err := series.Normalize(strings.ToUpper(symbol), "csv", rows)
	if err != nil {
		return core.PriceSeries{}, err
	}
	if rep.Dropped() > 0 {
		log.Warn("dropped unusable rows",
			zap.String("file", path),
			zap.Int("dropped", rep.Dropped()),
			zap.Int("kept", rep.Kept),
		)
	}
	return s, nil
}

func writeTable(path string, rows []backtest.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := backtest.WriteCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printReport(w io.Writer, report *backtest.Report) {
	r := report.Result
	p := r.Params

	fmt.Fprintln(w, "=== signaledge Backtest ===")
	fmt.Fprintf(w, "Symbol:   %s (%s)\n", r.Symbol, r.Source)
	fmt.Fprintf(w, "Period:   %s to %s (%d bars)\n",
		r.StartDate.Format(dateLayout), r.EndDate.Format(dateLayout), len(r.Rows))
	fmt.Fprintf(w, "Rule:     %d-day SMA, %s", p.SMAPeriod, p.SignalConfig().Mode)
	if p.VolatilityGateEnabled {
		fmt.Fprint(w, ", volatility gate")
	}
	fmt.Fprintf(w, ", cash yield %.2f%%\n", p.AnnualCashYieldPct)
	fmt.Fprintf(w, "Run:      %s\n\n", report.RunID)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tStrategy\tBuy & Hold")
	strategy := backtest.SummaryLines(r.Summary)
	bench := backtest.SummaryLines(r.Benchmark)
	for i := range strategy {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", strategy[i][0], strategy[i][1], bench[i][1])
	}
	fmt.Fprintf(tw, "Excess return\t%s\t\n", backtest.FormatPct(r.ExcessReturn))
	fmt.Fprintf(tw, "Trades\t%d\t\n", r.Trades)
	tw.Flush()

	fmt.Fprintf(w, "\nSignals: %d buy, %d sell\n", r.Signals.Buys, r.Signals.Sells)
	fmt.Fprintf(w, "\nLast %d rows:\n", recentRows)

	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "date\tclose\tsma\tsignal\tposition\tequity\t")
	for _, row := range r.RecentRows(recentRows) {
		sma := "-"
		if row.SMA.Valid {
			sma = fmt.Sprintf("%.2f", row.SMA.Value)
		}
		sig := ""
		if row.Signal != core.SignalNone {
			sig = row.Signal.String()
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%s\t%s\t%s\t%.4f\t\n",
			row.Date.Format(dateLayout), row.Close, sma, sig, row.Position, row.Equity)
	}
	tw.Flush()
}
