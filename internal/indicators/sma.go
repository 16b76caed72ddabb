package indicators

import "math"

// RollingMean returns the simple moving average over window w. The first
// w-1 values are NaN. Each value is summed over its own window so that it
// depends only on values[i-w+1 : i+1].
func RollingMean(values []float64, w int) []float64 {
	out := nanSeries(len(values))
	if w < 1 {
		return out
	}
	for i := w - 1; i < len(values); i++ {
		out[i] = windowMean(values[i-w+1 : i+1])
	}
	return out
}

// RollingStdDev returns the population standard deviation over window w.
func RollingStdDev(values []float64, w int) []float64 {
	out := nanSeries(len(values))
	if w < 1 {
		return out
	}
	for i := w - 1; i < len(values); i++ {
		window := values[i-w+1 : i+1]
		mean := windowMean(window)
		var ss float64
		for _, v := range window {
			d := v - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(w))
	}
	return out
}

func windowMean(window []float64) float64 {
	var sum float64
	for _, v := range window {
		sum += v
	}
	return sum / float64(len(window))
}

// Diff returns the first difference. out[0] is NaN, and NaN inputs propagate.
func Diff(values []float64) []float64 {
	out := nanSeries(len(values))
	for i := 1; i < len(values); i++ {
		out[i] = values[i] - values[i-1]
	}
	return out
}

// EMA returns an exponential moving average with alpha 2/(span+1), seeded
// with values[start]. Values before start are NaN. A NaN input after the seed
// makes the remainder NaN.
func EMA(values []float64, span, start int) []float64 {
	out := nanSeries(len(values))
	if span < 1 || start < 0 || start >= len(values) {
		return out
	}
	alpha := 2.0 / float64(span+1)
	out[start] = values[start]
	for i := start + 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}
