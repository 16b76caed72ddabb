package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollingStdDev_PopulationFormula(t *testing.T) {
	closes := closesOf(generateTestData(120))

	for _, w := range []int{1, 2, 5, 8, 21, 34} {
		std := RollingStdDev(closes, w)
		for i := range closes {
			if i < w-1 {
				assert.True(t, math.IsNaN(std[i]), "w=%d i=%d should be undefined", w, i)
				continue
			}
			window := closes[i-w+1 : i+1]
			var mean float64
			for _, v := range window {
				mean += v
			}
			mean /= float64(w)
			var ss float64
			for _, v := range window {
				ss += (v - mean) * (v - mean)
			}
			assert.InDelta(t, math.Sqrt(ss/float64(w)), std[i], 1e-12, "w=%d i=%d", w, i)
		}
	}
}

func TestRollingStdDev_MatchesTalib(t *testing.T) {
	closes := closesOf(generateTestData(200))
	for _, w := range []int{5, 21} {
		ours := RollingStdDev(closes, w)
		ref := talib.StdDev(closes, w, 1)
		for i := w - 1; i < len(closes); i++ {
			assert.InDelta(t, ref[i], ours[i], 1e-6, "w=%d i=%d", w, i)
		}
	}
}

func TestBollingerSeries_MatchesTalib(t *testing.T) {
	closes := closesOf(generateTestData(150))
	mean, _, upper, lower := BollingerSeries(closes, 21, 2)
	refUpper, refMiddle, refLower := talib.BBands(closes, 21, 2, 2, talib.SMA)

	for i := 20; i < len(closes); i++ {
		assert.InDelta(t, refMiddle[i], mean[i], 1e-9)
		assert.InDelta(t, refUpper[i], upper[i], 1e-6)
		assert.InDelta(t, refLower[i], lower[i], 1e-6)
	}
}

func TestBollingerBands_FlatSeriesCollapses(t *testing.T) {
	data := generateFlatData(30, 100)
	f := NewFrame(make([]time.Time, len(data)))
	NewBollingerBands(8, 2).Compute(data, f)

	for i := 7; i < len(data); i++ {
		upper, ok := f.Value(ColUpper, i)
		require.True(t, ok)
		lower, _ := f.Value(ColLower, i)
		assert.Equal(t, 100.0, upper)
		assert.Equal(t, 100.0, lower)
	}
	_, ok := f.Value(ColUpper, 6)
	assert.False(t, ok)
}

func TestBollingerBands_Source(t *testing.T) {
	data := generateTestData(40)
	closeFrame := NewFrame(make([]time.Time, len(data)))
	typicalFrame := NewFrame(make([]time.Time, len(data)))

	NewBollingerBands(8, 2).Compute(data, closeFrame)
	NewBollingerBands(8, 2).WithSource("typical").Compute(data, typicalFrame)

	a, _ := closeFrame.Value(ColMean, 30)
	b, _ := typicalFrame.Value(ColMean, 30)
	assert.NotEqual(t, a, b)
}

func TestDiffAndEMA(t *testing.T) {
	d := Diff([]float64{1, 3, 6, 10})
	assert.True(t, math.IsNaN(d[0]))
	assert.Equal(t, []float64{2, 3, 4}, d[1:])

	e := EMA([]float64{0, 10, 10, 10}, 3, 1)
	assert.True(t, math.IsNaN(e[0]))
	assert.Equal(t, 10.0, e[1])
	assert.Equal(t, 10.0, e[3])

	e = EMA([]float64{2, 4}, 3, 0)
	assert.InDelta(t, 3.0, e[1], 1e-12)
}
