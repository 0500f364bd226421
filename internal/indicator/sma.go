package indicator

import (
	"fmt"
	"math"

	"github.com/newthinker/signaledge/internal/core"
)

// Frame holds indicator values aligned 1:1 with the closes they were computed from
type Frame struct {
	Window     int              `json:"window"`
	SMA        []core.NullFloat `json:"sma"`
	Volatility []core.NullFloat `json:"volatility"`
}

// Len returns the number of aligned values
func (f Frame) Len() int {
	return len(f.SMA)
}

// Compute builds the SMA and rolling volatility for closes
func Compute(closes []float64, window int) (Frame, error) {
	if window <= 0 {
		return Frame{}, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("window must be positive, got %d", window))
	}
	return Frame{
		Window:     window,
		SMA:        SMA(closes, window),
		Volatility: RollingVolatility(closes, window),
	}, nil
}

// SMA calculates Simple Moving Average
// Returns slice of length len(prices); the first period-1 values are absent.
func SMA(prices []float64, period int) []core.NullFloat {
	result := make([]core.NullFloat, len(prices))
	if period <= 0 || len(prices) < period {
		return result
	}

	// Calculate first SMA
	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	result[period-1] = core.Some(sum / float64(period))

	// Rolling calculation
	for i := period; i < len(prices); i++ {
		sum = sum - prices[i-period] + prices[i]
		result[i] = core.Some(sum / float64(period))
	}

	return result
}

// RollingVolatility calculates the sample standard deviation of one-period
// percentage returns across the trailing window of closes ending at each index.
// A window of n closes holds n-1 returns, so windows below 3 never produce a value.
func RollingVolatility(prices []float64, period int) []core.NullFloat {
	result := make([]core.NullFloat, len(prices))
	if period < 3 || len(prices) < period {
		return result
	}

	returns := PctChange(prices)
	for t := period - 1; t < len(prices); t++ {
		// returns[j] exists for j >= 1
		result[t] = stdev(returns[t-period+2 : t+1])
	}

	return result
}

// PctChange returns close[i]/close[i-1]-1 aligned to prices; index 0 is 0.
func PctChange(prices []float64) []float64 {
	out := make([]float64, len(prices))
	for i := 1; i < len(prices); i++ {
		out[i] = prices[i]/prices[i-1] - 1
	}
	return out
}

// stdev is the two-pass sample standard deviation
func stdev(values []float64) core.NullFloat {
	if len(values) < 2 {
		return core.None()
	}

	// Identical values are exactly zero; the mean can be off by an ulp
	same := true
	var sum float64
	for _, v := range values {
		sum += v
		same = same && v == values[0]
	}
	if same {
		return core.Some(0)
	}
	mean := sum / float64(len(values))

	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return core.Some(math.Sqrt(ss / float64(len(values)-1)))
}

// StdDev exposes the sample standard deviation for other packages
func StdDev(values []float64) core.NullFloat {
	return stdev(values)
}
