package indicators

import (
	"math"

	"github.com/markcheno/go-talib"

	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

// DefaultDirectionalPeriod is the usual Wilder smoothing length.
const DefaultDirectionalPeriod = 14

// Directional computes the positive and negative directional indicators.
type Directional struct {
	period int
}

func NewDirectional(period int) *Directional {
	if period <= 0 {
		period = DefaultDirectionalPeriod
	}
	return &Directional{period: period}
}

func (d *Directional) Name() string { return "DI" }

func (d *Directional) Columns() []string { return []string{ColPlusDI, ColMinusDI} }

func (d *Directional) RequiredPeriods() int { return d.period }

func (d *Directional) Compute(candles []types.Candle, f *Frame) {
	plus, minus := DirectionalSeries(candles, d.period)
	f.Set(ColPlusDI, plus)
	f.Set(ColMinusDI, minus)
}

// DirectionalSeries returns +DI and -DI. Wilder smoothing runs forward from
// the first bar so each value depends only on earlier bars.
func DirectionalSeries(candles []types.Candle, period int) (plus, minus []float64) {
	n := len(candles)
	if n <= period {
		return nanSeries(n), nanSeries(n)
	}

	high := highs(candles)
	low := lows(candles)
	closes := prices(candles, types.PriceClose)

	plus = talib.PlusDI(high, low, closes, period)
	minus = talib.MinusDI(high, low, closes, period)
	for i := 0; i < period && i < n; i++ {
		plus[i] = math.NaN()
		minus[i] = math.NaN()
	}
	return plus, minus
}
