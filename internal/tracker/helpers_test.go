package tracker

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/flipside-bot/internal/indicators"
	"github.com/ducminhle1904/flipside-bot/internal/position"
	"github.com/ducminhle1904/flipside-bot/internal/strategy"
	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

var testEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// dipCloses oscillates ±5% around 100, dips to 80 at bar 25, recovers by bar
// 30 and spikes to 120 at bar 38.
func dipCloses() []float64 {
	closes := make([]float64, 50)
	for i := range closes {
		if i%2 == 0 {
			closes[i] = 95
		} else {
			closes[i] = 105
		}
	}
	for i, v := range map[int]float64{23: 95, 24: 88, 25: 80, 26: 84, 27: 90, 28: 95, 29: 98, 30: 100, 38: 120, 39: 112} {
		closes[i] = v
	}
	return closes
}

func dipSeries() []types.Candle { return candlesFrom(dipCloses()) }

func candlesFrom(closes []float64) []types.Candle {
	out := make([]types.Candle, len(closes))
	for i, c := range closes {
		openTime := testEpoch.Add(time.Duration(i) * time.Minute)
		out[i] = types.Candle{
			OpenTime:  openTime,
			CloseTime: openTime.Add(time.Minute - time.Millisecond),
			Open:      c,
			High:      c * 1.01,
			Low:       c * 0.99,
			Close:     c,
			Volume:    10 + float64(i%7),
		}
	}
	return out
}

// wavySeries is a long noisy oscillation that trades under the default
// descriptor.
func wavySeries(n int) []types.Candle {
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

func bandOnlyConfig(symbol string) Config {
	return Config{
		Symbol:   symbol,
		Capacity: 100,
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
		Position: testPositionConfig(1000),
	}
}

func defaultConfig(symbol string, capacity int) Config {
	return Config{
		Symbol:   symbol,
		Capacity: capacity,
		Bank:     indicators.DefaultBankConfig(),
		Strategy: strategy.DefaultDescriptor(),
		Position: testPositionConfig(1000),
	}
}

func testPositionConfig(budget float64) position.Config {
	return position.Config{
		Budget:        decimal.NewFromFloat(budget),
		Commission:    decimal.NewFromFloat(0.001),
		SpendFraction: decimal.NewFromInt(1),
		StopLoss:      decimal.NewFromFloat(0.05),
	}
}

func newTracker(t *testing.T, cfg Config, exec Executor) *Tracker {
	t.Helper()
	tr, err := New(cfg, exec, nil)
	require.NoError(t, err)
	return tr
}

// tradeKey strips the random order id.
type tradeKey struct {
	Action strategy.TradeAction
	Time   time.Time
	Price  string
	Base   string
	Quote  string
	Forced bool
}

func keys(orders []position.Order) []tradeKey {
	out := make([]tradeKey, len(orders))
	for i, o := range orders {
		out[i] = tradeKey{o.Action, o.Time, o.Price.String(), o.Base.String(), o.Quote.String(), o.Forced}
	}
	return out
}

// failingExecutor fails every call while armed.
type failingExecutor struct {
	PaperExecutor
	fail  bool
	calls int
}

var errRejected = errors.New("order rejected")

func (f *failingExecutor) Buy(ctx context.Context, symbol string, plan position.BuyPlan) (position.Fill, error) {
	f.calls++
	if f.fail {
		return position.Fill{}, errRejected
	}
	return f.PaperExecutor.Buy(ctx, symbol, plan)
}

func (f *failingExecutor) Sell(ctx context.Context, symbol string, plan position.SellPlan) (position.Fill, error) {
	f.calls++
	if f.fail {
		return position.Fill{}, errRejected
	}
	return f.PaperExecutor.Sell(ctx, symbol, plan)
}
