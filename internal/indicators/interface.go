package indicators

import (
	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

// Indicator derives one or more frame columns from a candle series. Values at
// bar i must depend only on candles[0..i].
type Indicator interface {
	Name() string
	// Columns lists the frame columns the indicator writes.
	Columns() []string
	// RequiredPeriods is the index of the first defined value.
	RequiredPeriods() int
	Compute(candles []types.Candle, f *Frame)
}

// Family names accepted by the bank configuration.
const (
	FamilyBands       = "bands"
	FamilyMomentum    = "momentum"
	FamilyFlow        = "flow"
	FamilyDirectional = "directional"
	FamilyVelocity    = "velocity"
)

func prices(candles []types.Candle, src types.PriceSource) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Price(src)
	}
	return out
}

func highs(candles []types.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

func lows(candles []types.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}
