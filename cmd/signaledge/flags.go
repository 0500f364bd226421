package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/signaledge/internal/backtest"
	"github.com/newthinker/signaledge/internal/signal"
	"github.com/spf13/pflag"
)

const dateLayout = "2006-01-02"

// engineFlags binds the engine parameters to command flags. Only flags the
// user set override the configured defaults.
type engineFlags struct {
	set *pflag.FlagSet

	smaPeriod   int
	cashYield   float64
	volGate     bool
	volLimit    float64
	gateSells   bool
	spacing     int
	minMove     float64
	mode        string
	allowShort  bool
	noCashYield bool
}

func bindEngineFlags(fs *pflag.FlagSet) *engineFlags {
	f := &engineFlags{set: fs}
	d := backtest.DefaultParams()
	fs.IntVar(&f.smaPeriod, "sma", d.SMAPeriod, "SMA period in trading days (5-200)")
	fs.Float64Var(&f.cashYield, "cash-yield", d.AnnualCashYieldPct, "annual yield on idle cash, percent")
	fs.BoolVar(&f.volGate, "vol-gate", false, "only buy in the low volatility regime")
	fs.Float64Var(&f.volLimit, "vol-threshold", 0, "fixed volatility limit for the gate instead of the regime mean")
	fs.BoolVar(&f.gateSells, "gate-sells", false, "only sell in the high volatility regime")
	fs.IntVar(&f.spacing, "spacing", 0, "minimum trading days between signals")
	fs.Float64Var(&f.minMove, "min-move", 0, "minimum trailing price move for a signal, percent")
	fs.StringVar(&f.mode, "mode", string(signal.ModeCrossover), "signal rule: crossover or level")
	fs.BoolVar(&f.allowShort, "short", false, "go short on sell signals instead of flat")
	fs.BoolVar(&f.noCashYield, "no-cash-yield", false, "idle cash earns nothing")
	return f
}

// apply overlays the flags the user set onto base
func (f *engineFlags) apply(base backtest.Params) (backtest.Params, error) {
	p := base
	changed := f.set.Changed
	if changed("sma") {
		p.SMAPeriod = f.smaPeriod
	}
	if changed("cash-yield") {
		p.AnnualCashYieldPct = f.cashYield
	}
	if changed("vol-gate") {
		p.VolatilityGateEnabled = f.volGate
	}
	if changed("vol-threshold") {
		p.VolatilityThreshold = f.volLimit
		p.VolatilityGateEnabled = p.VolatilityGateEnabled || f.volLimit > 0
	}
	if changed("gate-sells") {
		p.GateSells = f.gateSells
	}
	if changed("spacing") {
		p.MinSignalSpacingDays = f.spacing
	}
	if changed("min-move") {
		p.MinMovePct = f.minMove
	}
	if changed("mode") {
		p.SignalMode = signal.Mode(f.mode)
	}
	if changed("short") {
		p.AllowShort = f.allowShort
	}
	if changed("no-cash-yield") {
		p.DisableCashParking = f.noCashYield
	}
	return p, p.Validate()
}

// parseRange reads --from and --to; an empty --to means today
func parseRange(from, to string, now time.Time) (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid from date format (expected YYYY-MM-DD): %w", err)
	}

	end := now.UTC().Truncate(24 * time.Hour)
	if to != "" {
		if end, err = time.Parse(dateLayout, to); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date format (expected YYYY-MM-DD): %w", err)
		}
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date must be after start date")
	}
	return start, end, nil
}

// parsePeriods reads a comma separated list such as "20,50,100"
func parsePeriods(s string) ([]int, error) {
	var periods []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid period %q", part)
		}
		periods = append(periods, n)
	}
	if len(periods) == 0 {
		return nil, fmt.Errorf("no periods given")
	}
	return periods, nil
}
