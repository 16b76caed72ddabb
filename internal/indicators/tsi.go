package indicators

import (
	"math"

	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

// TSI is a true strength index: the double smoothed close momentum divided by
// the double smoothed absolute momentum, scaled to [-100, 100].
type TSI struct {
	slow int // first smoothing
	fast int // second smoothing
}

func NewTSI(slow, fast int) *TSI {
	return &TSI{slow: slow, fast: fast}
}

func (t *TSI) Name() string { return "TSI" }

func (t *TSI) Columns() []string { return []string{ColTSI, ColTSIVelocity} }

func (t *TSI) RequiredPeriods() int { return t.slow + t.fast - 1 }

func (t *TSI) Compute(candles []types.Candle, f *Frame) {
	tsi := TSISeries(prices(candles, types.PriceClose), t.slow, t.fast)
	f.Set(ColTSI, tsi)
	f.Set(ColTSIVelocity, Diff(tsi))
}

// TSISeries computes the index over closing prices. Values before
// slow+fast-1 are NaN, as are bars with no movement in the smoothed window.
func TSISeries(closes []float64, slow, fast int) []float64 {
	n := len(closes)
	out := nanSeries(n)
	if n < 2 || slow < 1 || fast < 1 {
		return out
	}

	momentum := make([]float64, n)
	absMomentum := make([]float64, n)
	for i := 1; i < n; i++ {
		momentum[i] = closes[i] - closes[i-1]
		absMomentum[i] = math.Abs(momentum[i])
	}

	num := EMA(EMA(momentum, slow, 1), fast, 1)
	den := EMA(EMA(absMomentum, slow, 1), fast, 1)

	for i := slow + fast - 1; i < n; i++ {
		if den[i] == 0 || math.IsNaN(den[i]) {
			continue
		}
		out[i] = 100 * num[i] / den[i]
	}
	return out
}
