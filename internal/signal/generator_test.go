package signal

import (
	"math"
	"math/rand"
	"testing"

	"github.com/newthinker/signaledge/internal/core"
	"github.com/newthinker/signaledge/internal/indicator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closes with SMA(3) crossing down at 3, up at 4 and down at 6
var crossCloses = []float64{10, 10, 10, 9, 12, 13, 8}

func generate(t *testing.T, closes []float64, window int, cfg Config) Output {
	t.Helper()
	frame, err := indicator.Compute(closes, window)
	require.NoError(t, err)
	out, err := Generate(closes, frame, cfg)
	require.NoError(t, err)
	return out
}

func signals(vals ...int) []core.Signal {
	out := make([]core.Signal, len(vals))
	for i, v := range vals {
		out[i] = core.Signal(v)
	}
	return out
}

func TestGenerate_Crossover(t *testing.T) {
	out := generate(t, crossCloses, 3, DefaultConfig())

	assert.Equal(t, signals(0, 0, 0, -1, 1, 0, -1), out.Signals)
	assert.Equal(t, 3, out.Candidates)
	assert.Equal(t, 1, out.Count(core.SignalBuy))
	assert.Equal(t, 2, out.Count(core.SignalSell))
}

func TestGenerate_Level(t *testing.T) {
	out := generate(t, crossCloses, 3, Config{Mode: ModeLevel})

	assert.Equal(t, signals(0, 0, 0, -1, 1, 1, -1), out.Signals)
}

func TestGenerate_MinSpacing(t *testing.T) {
	out := generate(t, crossCloses, 3, Config{Mode: ModeLevel, MinSpacing: 2})

	assert.Equal(t, signals(0, 0, 0, -1, 0, 1, 0), out.Signals)
	assert.Equal(t, 2, out.Suppressed["min_spacing"])
}

func TestGenerate_MinMove(t *testing.T) {
	// 9/10 is a 10% move, 12/9 and 8/13 are above 20%
	out := generate(t, crossCloses, 3, Config{MinMovePct: 20})

	assert.Equal(t, signals(0, 0, 0, 0, 1, 0, -1), out.Signals)
	assert.Equal(t, 1, out.Suppressed["min_move"])
}

func TestGenerate_VolatilityThreshold(t *testing.T) {
	// vol[3] ~ 0.071, vol[4] ~ 0.306, vol[6] ~ 0.331
	cfg := Config{VolatilityGate: GateThreshold, VolatilityThreshold: 0.2}

	out := generate(t, crossCloses, 3, cfg)
	assert.Equal(t, signals(0, 0, 0, -1, 0, 0, -1), out.Signals, "buy in high volatility is suppressed")

	cfg.GateSells = true
	out = generate(t, crossCloses, 3, cfg)
	assert.Equal(t, signals(0, 0, 0, 0, 0, 0, -1), out.Signals, "sell in low volatility is suppressed")
	assert.Equal(t, 2, out.Suppressed["volatility_gate"])
}

func TestGenerate_VolatilityRegime(t *testing.T) {
	out := generate(t, crossCloses, 3, Config{VolatilityGate: GateRegime})

	// vol[4] is above the expanding mean of vol[2..4]
	assert.Equal(t, core.SignalNone, out.Signals[4])
	assert.Equal(t, 1, out.Suppressed["volatility_gate"])
}

func TestGenerate_WarmUpIsNone(t *testing.T) {
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100 + 10*math.Sin(float64(i)/3)
	}

	out := generate(t, closes, 50, Config{Mode: ModeLevel})
	for i := 0; i <= 48; i++ {
		assert.Equal(t, core.SignalNone, out.Signals[i], "index %d", i)
	}
}

func TestGenerate_ShortSeries(t *testing.T) {
	out := generate(t, []float64{1, 2, 3}, 5, DefaultConfig())
	assert.Equal(t, signals(0, 0, 0), out.Signals)
}

func TestGenerate_FrameMismatch(t *testing.T) {
	frame, err := indicator.Compute([]float64{1, 2, 3}, 2)
	require.NoError(t, err)

	_, err = Generate([]float64{1, 2}, frame, DefaultConfig())
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestGenerate_NoLookAhead(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	closes := make([]float64, 300)
	closes[0] = 100
	for i := 1; i < len(closes); i++ {
		closes[i] = closes[i-1] * (1 + rng.NormFloat64()*0.02)
	}

	configs := []Config{
		DefaultConfig(),
		{Mode: ModeLevel},
		{Mode: ModeCrossover, VolatilityGate: GateRegime, GateSells: true, MinMovePct: 0.5, MinSpacing: 5},
		{Mode: ModeLevel, VolatilityGate: GateThreshold, VolatilityThreshold: 0.02, MinSpacing: 3},
	}

	for _, cfg := range configs {
		base := generate(t, closes, 20, cfg)

		for _, cut := range []int{25, 100, 250} {
			mutated := append([]float64(nil), closes...)
			for i := cut + 1; i < len(mutated); i++ {
				mutated[i] = mutated[i] * (1.5 + 0.5*math.Cos(float64(i)))
			}
			got := generate(t, mutated, 20, cfg)
			assert.Equal(t, base.Signals[:cut+1], got.Signals[:cut+1],
				"mode=%s gate=%s cut=%d", cfg.Mode, cfg.VolatilityGate, cut)
		}
	}
}

func TestExpandingMean(t *testing.T) {
	in := []core.NullFloat{core.None(), core.Some(2), core.None(), core.Some(4)}
	got := ExpandingMean(in)

	assert.False(t, got[0].Valid)
	assert.Equal(t, core.Some(2), got[1])
	assert.Equal(t, core.Some(2), got[2])
	assert.Equal(t, core.Some(3), got[3])
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", DefaultConfig(), false},
		{"empty uses defaults", Config{}, false},
		{"unknown mode", Config{Mode: "momentum"}, true},
		{"unknown gate", Config{VolatilityGate: "vix"}, true},
		{"threshold without value", Config{VolatilityGate: GateThreshold}, true},
		{"threshold with value", Config{VolatilityGate: GateThreshold, VolatilityThreshold: 0.01}, false},
		{"negative move", Config{MinMovePct: -1}, true},
		{"negative spacing", Config{MinSpacing: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
