// Package signal turns closes and their indicators into buy/sell decisions.
//
// Every rule reads only values at or before the bar being decided, so a
// signal at index t never changes when closes after t change.
package signal

import (
	"fmt"

	"github.com/newthinker/signaledge/internal/core"
	"github.com/newthinker/signaledge/internal/indicator"
)

// Output is the result of Generate
type Output struct {
	Signals    []core.Signal  `json:"signals"`
	Candidates int            `json:"candidates"`
	Suppressed map[string]int `json:"suppressed"`
}

// Count returns how many signals of the given kind were emitted
func (o Output) Count(s core.Signal) int {
	n := 0
	for _, v := range o.Signals {
		if v == s {
			n++
		}
	}
	return n
}

// filter decides whether a candidate signal at index t survives
type filter struct {
	name  string
	allow func(t int, s core.Signal) bool
}

// Generate runs the base rule and the configured filters over closes
func Generate(closes []float64, frame indicator.Frame, cfg Config) (Output, error) {
	if err := cfg.Validate(); err != nil {
		return Output{}, err
	}
	cfg = cfg.withDefaults()

	if frame.Len() != len(closes) || len(frame.Volatility) != len(closes) {
		return Output{}, core.WrapError(core.ErrInvalidInput,
			fmt.Errorf("indicator frame has %d values for %d closes", frame.Len(), len(closes)))
	}

	base := baseRule(cfg.Mode, closes, frame.SMA)
	filters := buildFilters(cfg, closes, frame.Volatility)

	out := Output{
		Signals:    make([]core.Signal, len(closes)),
		Suppressed: make(map[string]int, len(filters)),
	}

	for t := range closes {
		s := base(t)
		if s == core.SignalNone {
			continue
		}
		out.Candidates++

		allowed := true
		for _, f := range filters {
			if !f.allow(t, s) {
				out.Suppressed[f.name]++
				allowed = false
				break
			}
		}
		if allowed {
			out.Signals[t] = s
		}
	}

	return out, nil
}

// baseRule returns the unfiltered decision for index t
func baseRule(mode Mode, closes []float64, sma []core.NullFloat) func(t int) core.Signal {
	return func(t int) core.Signal {
		if !sma[t].Valid {
			return core.SignalNone
		}

		var buy, sell bool
		switch mode {
		case ModeLevel:
			buy = closes[t] > sma[t].Value
			sell = closes[t] < sma[t].Value
		default:
			if t == 0 || !sma[t-1].Valid {
				return core.SignalNone
			}
			prevAbove := closes[t-1] > sma[t-1].Value
			prevBelow := closes[t-1] < sma[t-1].Value
			buy = !prevAbove && closes[t] > sma[t].Value
			sell = !prevBelow && closes[t] < sma[t].Value
		}

		// Sell wins a tie
		switch {
		case sell:
			return core.SignalSell
		case buy:
			return core.SignalBuy
		default:
			return core.SignalNone
		}
	}
}

// buildFilters assembles the enabled filters in evaluation order.
// Spacing runs last because it tracks the signals that actually fire.
func buildFilters(cfg Config, closes []float64, vol []core.NullFloat) []filter {
	var filters []filter

	if cfg.VolatilityGate != GateOff {
		filters = append(filters, volatilityGate(cfg, vol))
	}
	if cfg.MinMovePct > 0 {
		filters = append(filters, minMove(cfg, closes))
	}
	if cfg.MinSpacing > 1 {
		filters = append(filters, spacing(cfg.MinSpacing))
	}

	return filters
}

func volatilityGate(cfg Config, vol []core.NullFloat) filter {
	ref := make([]core.NullFloat, len(vol))
	switch cfg.VolatilityGate {
	case GateThreshold:
		for i := range ref {
			ref[i] = core.Some(cfg.VolatilityThreshold)
		}
	default:
		ref = ExpandingMean(vol)
	}

	return filter{
		name: "volatility_gate",
		allow: func(t int, s core.Signal) bool {
			if s == core.SignalSell && !cfg.GateSells {
				return true
			}
			if !vol[t].Valid || !ref[t].Valid {
				return false
			}
			if s == core.SignalBuy {
				return vol[t].Value < ref[t].Value
			}
			return vol[t].Value >= ref[t].Value
		},
	}
}

// minMove requires the trailing move over max(MinSpacing, 1) bars to reach
// MinMovePct percent.
func minMove(cfg Config, closes []float64) filter {
	k := cfg.MinSpacing
	if k < 1 {
		k = 1
	}

	return filter{
		name: "min_move",
		allow: func(t int, _ core.Signal) bool {
			if t < k {
				return false
			}
			move := closes[t]/closes[t-k] - 1
			if move < 0 {
				move = -move
			}
			return move*100 >= cfg.MinMovePct
		},
	}
}

// spacing drops signals until n bars have passed since the last one fired
func spacing(n int) filter {
	last := -1
	return filter{
		name: "min_spacing",
		allow: func(t int, _ core.Signal) bool {
			if last >= 0 && t < last+n {
				return false
			}
			last = t
			return true
		},
	}
}

// ExpandingMean returns, for each index, the mean of the valid values seen so far
func ExpandingMean(values []core.NullFloat) []core.NullFloat {
	out := make([]core.NullFloat, len(values))
	var sum float64
	var n int
	for i, v := range values {
		if v.Valid {
			sum += v.Value
			n++
		}
		if n > 0 {
			out[i] = core.Some(sum / float64(n))
		}
	}
	return out
}
