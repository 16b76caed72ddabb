package backtest

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/flipside-bot/internal/indicators"
	"github.com/ducminhle1904/flipside-bot/internal/position"
	"github.com/ducminhle1904/flipside-bot/internal/strategy"
	"github.com/ducminhle1904/flipside-bot/internal/tracker"
	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

var testEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// dipCloses oscillates ±5% around 100, dips to 80 at bar 25, recovers by bar
// 30 and spikes to 120 at bar 38.
func dipCloses() []float64 {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 95
		if i%2 == 1 {
			closes[i] = 105
		}
	}
	for i, v := range map[int]float64{23: 95, 24: 88, 25: 80, 26: 84, 27: 90, 28: 95, 29: 98, 30: 100, 38: 120, 39: 112} {
		closes[i] = v
	}
	return closes
}

func flatCloses(n int, price float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = price
	}
	return closes
}

func candlesFrom(closes []float64) []types.Candle {
	out := make([]types.Candle, len(closes))
	for i, c := range closes {
		openTime := testEpoch.Add(time.Duration(i) * time.Hour)
		out[i] = types.Candle{
			OpenTime:  openTime,
			CloseTime: openTime.Add(time.Hour - time.Millisecond),
			Open:      c,
			High:      c * 1.01,
			Low:       c * 0.99,
			Close:     c,
			Volume:    10 + float64(i%7),
		}
	}
	return out
}

// wavyCandles is a long noisy oscillation with varying volume.
func wavyCandles(n int) []types.Candle {
	closes := make([]float64, n)
	for i := range closes {
		x := float64(i)
		closes[i] = 100 + 12*math.Sin(x/9) + 4*math.Sin(x/2.7) + 1.5*math.Cos(x*1.3)
	}
	out := candlesFrom(closes)
	for i := range out {
		out[i].Volume = 40 + 30*math.Abs(math.Sin(float64(i)/4))
	}
	return out
}

func bandConfig(budget float64) tracker.Config {
	return tracker.Config{
		Symbol:   "BTCUSDT",
		Capacity: 20,
		Bank: indicators.BankConfig{
			WindowIndex:       4,
			BandFactor:        2,
			BandSource:        types.PriceClose,
			DirectionalPeriod: indicators.DefaultDirectionalPeriod,
		},
		Strategy: strategy.Descriptor{
			SignalTTL: 5,
			Quorum:    1,
			Rules:     []strategy.RuleSpec{{Kind: strategy.KindBand}},
		},
		Position: position.Config{
			Budget:        decimal.NewFromFloat(budget),
			Commission:    decimal.NewFromFloat(0.001),
			SpendFraction: decimal.NewFromInt(1),
			StopLoss:      decimal.NewFromFloat(0.05),
		},
	}
}
