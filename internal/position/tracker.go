// Package position converts sparse signals into a held position per bar.
package position

import "github.com/newthinker/signaledge/internal/core"

// Track forward-fills the last non-neutral signal. A Buy goes Long, a Sell goes
// Flat, or Short when allowShort is set. Bars before the first signal are Flat
// and the final state is left open.
func Track(signals []core.Signal, allowShort bool) []core.Position {
	positions := make([]core.Position, len(signals))

	current := core.PositionFlat
	for t, s := range signals {
		switch s {
		case core.SignalBuy:
			current = core.PositionLong
		case core.SignalSell:
			if allowShort {
				current = core.PositionShort
			} else {
				current = core.PositionFlat
			}
		}
		positions[t] = current
	}

	return positions
}

// Change marks a bar where the held position differs from the bar before
type Change struct {
	Index int           `json:"index"`
	From  core.Position `json:"from"`
	To    core.Position `json:"to"`
}

// Changes lists every transition, treating the bar before index 0 as Flat
func Changes(positions []core.Position) []Change {
	var changes []Change
	prev := core.PositionFlat
	for t, p := range positions {
		if p != prev {
			changes = append(changes, Change{Index: t, From: prev, To: p})
			prev = p
		}
	}
	return changes
}

// Entries counts transitions into a non-flat position
func Entries(positions []core.Position) int {
	n := 0
	for _, c := range Changes(positions) {
		if c.To != core.PositionFlat {
			n++
		}
	}
	return n
}
