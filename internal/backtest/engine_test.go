package backtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/flipside-bot/internal/indicators"
	"github.com/ducminhle1904/flipside-bot/internal/position"
	"github.com/ducminhle1904/flipside-bot/internal/series"
	"github.com/ducminhle1904/flipside-bot/internal/strategy"
	"github.com/ducminhle1904/flipside-bot/internal/tracker"
	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

func TestRun_DipAndRecovery(t *testing.T) {
	candles := candlesFrom(dipCloses())

	results, err := NewEngine(bandConfig(1000), nil).Run(context.Background(), candles)
	require.NoError(t, err)

	require.Len(t, results.Orders, 2)
	assert.Equal(t, strategy.ActionBuy, results.Orders[0].Action)
	assert.Equal(t, candles[26].CloseTime, results.Orders[0].Time)
	assert.Equal(t, strategy.ActionSell, results.Orders[1].Action)
	assert.Equal(t, candles[39].CloseTime, results.Orders[1].Time)

	require.Len(t, results.Trades, 1)
	trade := results.Trades[0]
	assert.Equal(t, 84.0, trade.EntryPrice)
	assert.Equal(t, 112.0, trade.ExitPrice)
	assert.Greater(t, trade.PnL, 0.0)
	assert.False(t, trade.Forced)

	assert.Equal(t, 1, results.TotalTrades)
	assert.Equal(t, 1, results.WinningTrades)
	assert.Zero(t, results.LosingTrades)
	assert.False(t, results.OpenPosition)
	assert.InDelta(t, 1330.668, results.EndBalance, 1e-6)
	assert.InDelta(t, 0.330668, results.TotalReturn, 1e-9)
	assert.InDelta(t, results.RealizedPnL, trade.PnL, 1e-9)
	assert.Equal(t, 100.0, results.WinRate)

	require.Len(t, results.EquityCurve, len(candles))
	assert.Equal(t, 1000.0, results.EquityCurve[0].Equity)
	assert.InDelta(t, results.EndBalance, results.EquityCurve[len(candles)-1].Equity, 1e-9)
	assert.Greater(t, results.MaxDrawdown, 0.0)
	assert.NotNil(t, results.Frame)
	assert.Equal(t, len(candles), results.Frame.Len())
}

func TestRun_NoSellAtALoss(t *testing.T) {
	candles := candlesFrom(dipCloses())

	results, err := NewEngine(bandConfig(1000), nil).Run(context.Background(), candles)
	require.NoError(t, err)
	for _, o := range results.Orders {
		if o.Action == strategy.ActionSell && !o.Forced {
			assert.False(t, o.Profit.IsNegative(), "sell at %s lost %s", o.Time, o.Profit)
		}
	}
}

func TestRun_FlatSeriesHasNoTrades(t *testing.T) {
	candles := candlesFrom(flatCloses(120, 100))

	for name, cfg := range map[string]tracker.Config{
		"band only": bandConfig(1000),
		"default": {
			Symbol:   "BTCUSDT",
			Bank:     indicators.DefaultBankConfig(),
			Strategy: strategy.DefaultDescriptor(),
			Position: bandConfig(1000).Position,
		},
	} {
		t.Run(name, func(t *testing.T) {
			results, err := NewEngine(cfg, nil).Run(context.Background(), candles)
			require.NoError(t, err)
			assert.Empty(t, results.Orders)
			assert.Zero(t, results.TotalTrades)
			assert.Equal(t, 1000.0, results.EndBalance)
			assert.Zero(t, results.MaxDrawdown)
		})
	}
}

func TestRun_EmptySeries(t *testing.T) {
	_, err := NewEngine(bandConfig(1000), nil).Run(context.Background(), nil)
	assert.ErrorIs(t, err, series.ErrEmptyFeed)
}

func TestRun_RejectsNonMonotonicSeries(t *testing.T) {
	candles := candlesFrom(dipCloses())
	candles[10], candles[11] = candles[11], candles[10]

	_, err := NewEngine(bandConfig(1000), nil).Run(context.Background(), candles)
	assert.ErrorIs(t, err, series.ErrNonMonotonic)
}

func TestRun_InsufficientFundsIsCounted(t *testing.T) {
	results, err := NewEngine(bandConfig(0), nil).Run(context.Background(), candlesFrom(dipCloses()))
	require.NoError(t, err)
	assert.Empty(t, results.Orders)
	assert.Positive(t, results.Refusals[position.InsufficientFunds])
}

func TestRun_StopLoss(t *testing.T) {
	closes := append(dipCloses()[:27], 78, 76, 75)

	results, err := NewEngine(bandConfig(1000), nil).Run(context.Background(), candlesFrom(closes))
	require.NoError(t, err)
	require.Len(t, results.Trades, 1)
	assert.True(t, results.Trades[0].Forced)
	assert.Less(t, results.Trades[0].PnL, 0.0)
	assert.Equal(t, 1, results.StopLosses)
	assert.Equal(t, 1, results.LosingTrades)
}

func TestRun_OpenPositionValuedAtLastClose(t *testing.T) {
	candles := candlesFrom(dipCloses()[:30])

	results, err := NewEngine(bandConfig(1000), nil).Run(context.Background(), candles)
	require.NoError(t, err)
	require.Len(t, results.Orders, 1)
	assert.True(t, results.OpenPosition)
	assert.Empty(t, results.Trades)
	// bought at 84, valued at 98
	assert.Greater(t, results.EndBalance, 1000.0)
}

// The engine must produce the same orders as the live path fed one bar at a
// time over an unbounded store.
func TestRun_MatchesBarByBarFeed(t *testing.T) {
	ctx := context.Background()
	candles := candlesFrom(dipCloses())
	cfg := bandConfig(1000)

	results, err := NewEngine(cfg, nil).Run(ctx, candles)
	require.NoError(t, err)

	liveCfg := cfg
	liveCfg.Capacity = len(candles)
	live, err := tracker.New(liveCfg, nil, nil)
	require.NoError(t, err)
	for _, c := range candles {
		_, err := live.Tick(ctx, c.CloseTime, []types.RawKline{c.ToRaw()})
		require.NoError(t, err)
	}

	liveOrders := live.Position().Orders()
	require.Len(t, liveOrders, len(results.Orders))
	for i := range liveOrders {
		assert.Equal(t, results.Orders[i].Action, liveOrders[i].Action)
		assert.Equal(t, results.Orders[i].Time, liveOrders[i].Time)
		assert.True(t, results.Orders[i].Price.Equal(liveOrders[i].Price))
		assert.True(t, results.Orders[i].Quote.Equal(liveOrders[i].Quote))
	}
}

// A live tracker keeps only one cycle of bars and evicts as it goes. Rolling
// windows and the decayed smoothing seeds make its signals and orders match
// the engine, which never evicts.
func TestRun_MatchesEvictingLiveTracker(t *testing.T) {
	ctx := context.Background()
	candles := wavyCandles(1200)
	cfg := tracker.Config{
		Symbol:   "BTCUSDT",
		Capacity: series.FullCycle,
		Bank:     indicators.DefaultBankConfig(),
		Strategy: strategy.DefaultDescriptor(),
		Position: bandConfig(1000).Position,
	}

	results, err := NewEngine(cfg, nil).Run(ctx, candles)
	require.NoError(t, err)

	unbounded := cfg
	unbounded.Capacity = len(candles)
	batch, err := tracker.New(unbounded, nil, nil)
	require.NoError(t, err)
	batchRes, err := batch.Feed(ctx, candles)
	require.NoError(t, err)

	live, err := tracker.New(cfg, nil, nil)
	require.NoError(t, err)
	var liveDominant []strategy.TradeAction
	for _, c := range candles {
		res, err := live.Tick(ctx, c.CloseTime, []types.RawKline{c.ToRaw()})
		require.NoError(t, err)
		for _, d := range res.Decisions {
			liveDominant = append(liveDominant, d.Resolution.Dominant)
		}
	}
	require.Equal(t, 672, live.Store().Len(), "the live store evicted")

	var batchDominant []strategy.TradeAction
	for _, d := range batchRes.Decisions {
		batchDominant = append(batchDominant, d.Resolution.Dominant)
	}
	require.Len(t, liveDominant, len(candles))
	assert.Equal(t, batchDominant, liveDominant)

	liveOrders := live.Position().Orders()
	require.Len(t, liveOrders, len(results.Orders))
	for i := range liveOrders {
		assert.Equal(t, results.Orders[i].Action, liveOrders[i].Action)
		assert.Equal(t, results.Orders[i].Time, liveOrders[i].Time)
		assert.True(t, results.Orders[i].Price.Equal(liveOrders[i].Price))
		assert.True(t, results.Orders[i].Quote.Equal(liveOrders[i].Quote))
	}
}

func TestRun_BuyAndHold(t *testing.T) {
	candles := candlesFrom([]float64{100, 110, 120})

	results, err := NewEngine(bandConfig(1000), nil).Run(context.Background(), candles)
	require.NoError(t, err)
	// 1000/100 * 0.999 * 120 * 0.999
	assert.InDelta(t, 1197.6012, results.BuyAndHold, 1e-9)
	assert.InDelta(t, 0.1976012, results.BuyAndHoldReturn, 1e-12)
}
