package core

import (
	"encoding/json"
	"math"
	"time"
)

// PriceObservation is a single daily close
type PriceObservation struct {
	Time   time.Time `json:"date"`
	Close  float64   `json:"close"`
	Volume *float64  `json:"volume,omitempty"`
}

// PriceSeries is an ordered run of observations for one instrument.
// Observations are strictly increasing in time with Close > 0; use
// series.Normalize to build one from untrusted rows.
type PriceSeries struct {
	Symbol       string             `json:"symbol"`
	Source       string             `json:"source"`
	Observations []PriceObservation `json:"observations"`
}

// Len returns the number of observations
func (s PriceSeries) Len() int {
	return len(s.Observations)
}

// Closes returns a fresh slice of closing prices
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Observations))
	for i, o := range s.Observations {
		closes[i] = o.Close
	}
	return closes
}

// Start returns the first timestamp, or the zero time for an empty series
func (s PriceSeries) Start() time.Time {
	if len(s.Observations) == 0 {
		return time.Time{}
	}
	return s.Observations[0].Time
}

// End returns the last timestamp, or the zero time for an empty series
func (s PriceSeries) End() time.Time {
	if len(s.Observations) == 0 {
		return time.Time{}
	}
	return s.Observations[len(s.Observations)-1].Time
}

// Signal is a directional decision taken at a bar close
type Signal int

const (
	SignalSell Signal = -1
	SignalNone Signal = 0
	SignalBuy  Signal = 1
)

func (s Signal) String() string {
	switch s {
	case SignalBuy:
		return "buy"
	case SignalSell:
		return "sell"
	default:
		return "none"
	}
}

// Position is the exposure held after a bar close
type Position int

const (
	PositionShort Position = -1
	PositionFlat  Position = 0
	PositionLong  Position = 1
)

func (p Position) String() string {
	switch p {
	case PositionLong:
		return "long"
	case PositionShort:
		return "short"
	default:
		return "flat"
	}
}

// NullFloat is a float64 that may be absent. Absent values marshal to null.
type NullFloat struct {
	Value float64
	Valid bool
}

// Some returns a valid NullFloat, or an absent one if v is NaN or infinite
func Some(v float64) NullFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NullFloat{}
	}
	return NullFloat{Value: v, Valid: true}
}

// None returns an absent NullFloat
func None() NullFloat {
	return NullFloat{}
}

// MarshalJSON implements json.Marshaler
func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// UnmarshalJSON implements json.Unmarshaler
func (n *NullFloat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = NullFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = NullFloat{Value: v, Valid: true}
	return nil
}
