package indicators

import (
	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

// Velocity writes raw prices and the first differences of high and low,
// used to confirm a reversal at a band edge.
type Velocity struct{}

func NewVelocity() *Velocity { return &Velocity{} }

func (v *Velocity) Name() string { return "VEL" }

func (v *Velocity) Columns() []string {
	return []string{ColClose, ColHigh, ColLow, ColHighVelocity, ColLowVelocity}
}

func (v *Velocity) RequiredPeriods() int { return 1 }

func (v *Velocity) Compute(candles []types.Candle, f *Frame) {
	high := highs(candles)
	low := lows(candles)
	f.Set(ColClose, prices(candles, types.PriceClose))
	f.Set(ColHigh, high)
	f.Set(ColLow, low)
	f.Set(ColHighVelocity, Diff(high))
	f.Set(ColLowVelocity, Diff(low))
}
