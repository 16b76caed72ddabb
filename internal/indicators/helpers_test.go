package indicators

import (
	"math"
	"time"

	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

var testEpoch = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// generateTestData builds a deterministic wavy series with varying volume.
func generateTestData(n int) []types.Candle {
	out := make([]types.Candle, n)
	for i := range out {
		base := 100 + 8*math.Sin(float64(i)/5) + 3*math.Cos(float64(i)/2.3)
		open := base - 0.4*math.Sin(float64(i))
		closePrice := base + 0.4*math.Sin(float64(i))
		high := math.Max(open, closePrice) + 0.5 + 0.2*math.Abs(math.Cos(float64(i)))
		low := math.Min(open, closePrice) - 0.5 - 0.2*math.Abs(math.Sin(float64(i)))
		openTime := testEpoch.Add(time.Duration(i) * 15 * time.Minute)
		out[i] = types.Candle{
			OpenTime:  openTime,
			CloseTime: openTime.Add(15*time.Minute - time.Millisecond),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    50 + 20*math.Abs(math.Sin(float64(i)/3)),
		}
	}
	return out
}

// generateFlatData builds a series with one constant price.
func generateFlatData(n int, price float64) []types.Candle {
	out := make([]types.Candle, n)
	for i := range out {
		openTime := testEpoch.Add(time.Duration(i) * 15 * time.Minute)
		out[i] = types.Candle{
			OpenTime:  openTime,
			CloseTime: openTime.Add(15*time.Minute - time.Millisecond),
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    10,
		}
	}
	return out
}

func closesOf(candles []types.Candle) []float64 {
	return prices(candles, types.PriceClose)
}

func sameFloat(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return a == b
}
