package indicators

import (
	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

// MFI is the money flow index over typical price and volume.
type MFI struct {
	period int
}

func NewMFI(period int) *MFI {
	return &MFI{period: period}
}

func (m *MFI) Name() string { return "MFI" }

func (m *MFI) Columns() []string { return []string{ColMFI} }

// RequiredPeriods accounts for the extra bar needed to compare typical prices.
func (m *MFI) RequiredPeriods() int { return m.period }

func (m *MFI) Compute(candles []types.Candle, f *Frame) {
	f.Set(ColMFI, MFISeries(candles, m.period))
}

// MFISeries returns values in [0, 100]. Bar i sums the flows of bars
// i-period+1..i, each flow classified by its typical price against the
// previous bar.
func MFISeries(candles []types.Candle, period int) []float64 {
	n := len(candles)
	out := nanSeries(n)
	if period < 1 {
		return out
	}

	positive := make([]float64, n)
	negative := make([]float64, n)
	for j := 1; j < n; j++ {
		tp := candles[j].TypicalPrice()
		prev := candles[j-1].TypicalPrice()
		flow := tp * candles[j].Volume
		switch {
		case tp > prev:
			positive[j] = flow
		case tp < prev:
			negative[j] = flow
		}
	}

	for i := period; i < n; i++ {
		var pos, neg float64
		for j := i - period + 1; j <= i; j++ {
			pos += positive[j]
			neg += negative[j]
		}
		switch {
		case pos == 0 && neg == 0:
			out[i] = 50
		case neg == 0:
			out[i] = 100
		default:
			out[i] = 100 - 100/(1+pos/neg)
		}
	}
	return out
}
