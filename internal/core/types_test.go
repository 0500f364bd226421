package core

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestPriceSeries_Accessors(t *testing.T) {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	s := PriceSeries{
		Symbol: "SPY",
		Observations: []PriceObservation{
			{Time: base, Close: 100},
			{Time: base.AddDate(0, 0, 1), Close: 101},
		},
	}

	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
	closes := s.Closes()
	closes[0] = 999
	if s.Observations[0].Close != 100 {
		t.Error("Closes() must return a copy")
	}
	if !s.Start().Equal(base) || !s.End().Equal(base.AddDate(0, 0, 1)) {
		t.Error("unexpected start/end")
	}

	var empty PriceSeries
	if !empty.Start().IsZero() || !empty.End().IsZero() {
		t.Error("empty series should have zero start/end")
	}
}

func TestSignal_String(t *testing.T) {
	signals := []Signal{SignalBuy, SignalSell, SignalNone}
	expected := []string{"buy", "sell", "none"}

	for i, s := range signals {
		if s.String() != expected[i] {
			t.Errorf("expected %s, got %s", expected[i], s)
		}
	}
}

func TestPosition_String(t *testing.T) {
	positions := []Position{PositionLong, PositionFlat, PositionShort}
	expected := []string{"long", "flat", "short"}

	for i, p := range positions {
		if p.String() != expected[i] {
			t.Errorf("expected %s, got %s", expected[i], p)
		}
	}
}

func TestSome_RejectsNonFinite(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		want bool
	}{
		{"finite", 1.5, true},
		{"zero", 0, true},
		{"nan", math.NaN(), false},
		{"inf", math.Inf(1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Some(tt.v).Valid; got != tt.want {
				t.Errorf("Some(%v).Valid = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestNullFloat_JSON(t *testing.T) {
	data, err := json.Marshal([]NullFloat{Some(1.25), None()})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "[1.25,null]" {
		t.Errorf("unexpected json: %s", data)
	}

	var got []NullFloat
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got[0].Valid || got[0].Value != 1.25 {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1].Valid {
		t.Error("got[1] should be absent")
	}
}
