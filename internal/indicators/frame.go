package indicators

import (
	"math"
	"sort"
	"time"
)

// Column names written by the bank.
const (
	ColClose        = "close"
	ColHigh         = "high"
	ColLow          = "low"
	ColMean         = "mean"
	ColStdDev       = "stddev"
	ColUpper        = "upper"
	ColLower        = "lower"
	ColMeanVelocity = "mean_velocity"
	ColTSI          = "tsi"
	ColTSIVelocity  = "tsi_velocity"
	ColMFI          = "mfi"
	ColPlusDI       = "di_plus"
	ColMinusDI      = "di_minus"
	ColHighVelocity = "high_velocity"
	ColLowVelocity  = "low_velocity"
)

// Frame holds named derived series aligned with a candle series. Undefined
// values are NaN.
type Frame struct {
	times   []time.Time
	columns map[string][]float64
}

// NewFrame creates an empty frame aligned to the given bar close times.
func NewFrame(times []time.Time) *Frame {
	return &Frame{
		times:   times,
		columns: make(map[string][]float64),
	}
}

// Len is the number of aligned bars.
func (f *Frame) Len() int {
	return len(f.times)
}

// Time returns the close time of bar i.
func (f *Frame) Time(i int) time.Time {
	return f.times[i]
}

// Set stores a column. The slice must have one value per bar.
func (f *Frame) Set(name string, values []float64) {
	if len(values) != len(f.times) {
		panic("indicators: column " + name + " misaligned with frame")
	}
	f.columns[name] = values
}

// Column returns the raw series, or nil when absent.
func (f *Frame) Column(name string) []float64 {
	return f.columns[name]
}

// Has reports whether the column exists.
func (f *Frame) Has(name string) bool {
	_, ok := f.columns[name]
	return ok
}

// Value returns the column value at bar i and whether it is defined.
func (f *Frame) Value(name string, i int) (float64, bool) {
	col, ok := f.columns[name]
	if !ok || i < 0 || i >= len(col) {
		return math.NaN(), false
	}
	v := col[i]
	return v, !math.IsNaN(v)
}

// Columns lists column names in sorted order.
func (f *Frame) Columns() []string {
	names := make([]string, 0, len(f.columns))
	for name := range f.columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tail returns a frame view over the last n bars.
func (f *Frame) Tail(n int) *Frame {
	if n >= f.Len() {
		return f
	}
	from := f.Len() - n
	out := NewFrame(f.times[from:])
	for name, col := range f.columns {
		out.columns[name] = col[from:]
	}
	return out
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
