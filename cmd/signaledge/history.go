package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/newthinker/signaledge/internal/backtest"
	"github.com/spf13/cobra"
)

var (
	historySymbol string
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored backtest runs, newest first",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historySymbol, "symbol", "", "only runs for this symbol")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of runs")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, log, err := newApp()
	if err != nil {
		return err
	}
	defer log.Sync()
	defer a.Close()

	entries, err := a.History(cmd.Context(), historySymbol, historyLimit)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(w, "No stored runs")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tCREATED\tSYMBOL\tPERIOD\tSMA\tTOTAL\tSHARPE\tVS B&H\tTRADES")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s..%s\t%d\t%s\t%s\t%s\t%d\n",
			e.RunID,
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
			e.Symbol,
			e.StartDate.Format(dateLayout), e.EndDate.Format(dateLayout),
			e.Params.SMAPeriod,
			backtest.FormatPct(e.TotalReturn),
			backtest.FormatRatio(e.SharpeRatio),
			backtest.FormatPct(e.ExcessReturn),
			e.Trades,
		)
	}
	return tw.Flush()
}
