package indicators

import (
	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

// BollingerBands computes a rolling mean and population standard deviation
// with an envelope of mean ± factor·stddev.
type BollingerBands struct {
	period int
	factor float64
	source types.PriceSource
}

// NewBollingerBands creates a band indicator over closing prices.
func NewBollingerBands(period int, factor float64) *BollingerBands {
	return &BollingerBands{period: period, factor: factor, source: types.PriceClose}
}

// WithSource switches the price fed into the window.
func (bb *BollingerBands) WithSource(src types.PriceSource) *BollingerBands {
	if src != "" {
		bb.source = src
	}
	return bb
}

func (bb *BollingerBands) Name() string { return "BB" }

func (bb *BollingerBands) Columns() []string {
	return []string{ColMean, ColStdDev, ColUpper, ColLower, ColMeanVelocity}
}

func (bb *BollingerBands) RequiredPeriods() int { return bb.period - 1 }

// Compute writes mean, stddev, band edges and the slope of the mean.
func (bb *BollingerBands) Compute(candles []types.Candle, f *Frame) {
	mean, std, upper, lower := BollingerSeries(prices(candles, bb.source), bb.period, bb.factor)
	f.Set(ColMean, mean)
	f.Set(ColStdDev, std)
	f.Set(ColUpper, upper)
	f.Set(ColLower, lower)
	f.Set(ColMeanVelocity, Diff(mean))
}

// BollingerSeries returns mean, stddev, upper and lower series.
func BollingerSeries(values []float64, period int, factor float64) (mean, std, upper, lower []float64) {
	mean = RollingMean(values, period)
	std = RollingStdDev(values, period)
	upper = make([]float64, len(values))
	lower = make([]float64, len(values))
	for i := range values {
		upper[i] = mean[i] + factor*std[i]
		lower[i] = mean[i] - factor*std[i]
	}
	return mean, std, upper, lower
}
