// Package series turns untrusted price rows into a PriceSeries.
package series

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/newthinker/signaledge/internal/core"
)

// RawRow is a price row as read from a file or a remote source.
// A nil Close marks a missing value.
type RawRow struct {
	Time   time.Time
	Close  *float64
	Volume *float64
}

// Report counts the rows dropped by Normalize
type Report struct {
	Input          int `json:"input"`
	Kept           int `json:"kept"`
	MissingClose   int `json:"missing_close"`
	NonPositive    int `json:"non_positive"`
	MissingTime    int `json:"missing_time"`
	DuplicateTimes int `json:"duplicate_times"`
}

// Dropped returns the total number of rows that were discarded
func (r Report) Dropped() int {
	return r.Input - r.Kept
}

// Normalize sorts rows by time, drops unusable rows and collapses duplicate
// timestamps, keeping the last row seen for a timestamp.
func Normalize(symbol, source string, rows []RawRow) (core.PriceSeries, Report, error) {
	rep := Report{Input: len(rows)}

	usable := make([]RawRow, 0, len(rows))
	for _, r := range rows {
		switch {
		case r.Time.IsZero():
			rep.MissingTime++
		case r.Close == nil || math.IsNaN(*r.Close) || math.IsInf(*r.Close, 0):
			rep.MissingClose++
		case *r.Close <= 0:
			rep.NonPositive++
		default:
			usable = append(usable, r)
		}
	}

	// Stable so that "last occurrence wins" refers to input order.
	sort.SliceStable(usable, func(i, j int) bool {
		return usable[i].Time.Before(usable[j].Time)
	})

	obs := make([]core.PriceObservation, 0, len(usable))
	for _, r := range usable {
		o := core.PriceObservation{Time: r.Time, Close: *r.Close, Volume: r.Volume}
		if n := len(obs); n > 0 && obs[n-1].Time.Equal(r.Time) {
			obs[n-1] = o
			rep.DuplicateTimes++
			continue
		}
		obs = append(obs, o)
	}
	rep.Kept = len(obs)

	if len(obs) == 0 {
		return core.PriceSeries{}, rep, core.WrapError(core.ErrNoData,
			fmt.Errorf("%d rows read, none usable", rep.Input))
	}

	return core.PriceSeries{
		Symbol:       symbol,
		Source:       source,
		Observations: obs,
	}, rep, nil
}

// FromObservations validates an already-built slice of observations without
// reordering it. Sources that decode into observations directly use it.
func FromObservations(symbol, source string, obs []core.PriceObservation) (core.PriceSeries, Report, error) {
	rows := make([]RawRow, len(obs))
	for i := range obs {
		c := obs[i].Close
		rows[i] = RawRow{Time: obs[i].Time, Close: &c, Volume: obs[i].Volume}
	}
	return Normalize(symbol, source, rows)
}
