package signal

import (
	"fmt"

	"github.com/newthinker/signaledge/internal/core"
)

// Mode selects the base rule comparing close to its moving average
type Mode string

const (
	// ModeCrossover fires only on the bar where close crosses the average
	ModeCrossover Mode = "crossover"
	// ModeLevel fires on every bar close sits above or below the average
	ModeLevel Mode = "level"
)

// Gate selects how volatility restricts signals
type Gate string

const (
	GateOff Gate = "off"
	// GateRegime compares volatility to its expanding mean up to the bar
	GateRegime Gate = "regime"
	// GateThreshold compares volatility to a fixed threshold
	GateThreshold Gate = "threshold"
)

// Config holds all signal options
type Config struct {
	Mode                Mode    `mapstructure:"mode" json:"mode"`
	VolatilityGate      Gate    `mapstructure:"volatility_gate" json:"volatility_gate"`
	VolatilityThreshold float64 `mapstructure:"volatility_threshold" json:"volatility_threshold,omitempty"`
	GateSells           bool    `mapstructure:"gate_sells" json:"gate_sells,omitempty"`
	MinMovePct          float64 `mapstructure:"min_move_pct" json:"min_move_pct"`
	MinSpacing          int     `mapstructure:"min_spacing" json:"min_spacing"`
}

// DefaultConfig returns the crossover rule with every filter disabled
func DefaultConfig() Config {
	return Config{
		Mode:           ModeCrossover,
		VolatilityGate: GateOff,
	}
}

// withDefaults fills empty enum fields
func (c Config) withDefaults() Config {
	if c.Mode == "" {
		c.Mode = ModeCrossover
	}
	if c.VolatilityGate == "" {
		c.VolatilityGate = GateOff
	}
	return c
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	c = c.withDefaults()

	switch c.Mode {
	case ModeCrossover, ModeLevel:
	default:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown signal mode %q", c.Mode))
	}

	switch c.VolatilityGate {
	case GateOff, GateRegime:
	case GateThreshold:
		if c.VolatilityThreshold <= 0 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("volatility_threshold must be positive with threshold gate, got %f", c.VolatilityThreshold))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown volatility gate %q", c.VolatilityGate))
	}

	if c.MinMovePct < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("min_move_pct cannot be negative, got %f", c.MinMovePct))
	}
	if c.MinSpacing < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("min_spacing cannot be negative, got %d", c.MinSpacing))
	}
	return nil
}
