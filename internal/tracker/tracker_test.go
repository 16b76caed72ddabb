package tracker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/flipside-bot/internal/position"
	"github.com/ducminhle1904/flipside-bot/internal/series"
	"github.com/ducminhle1904/flipside-bot/internal/strategy"
	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

func TestFeed_DipScenario(t *testing.T) {
	candles := dipSeries()
	tr := newTracker(t, bandOnlyConfig("BTCUSDT"), nil)

	res, err := tr.Feed(context.Background(), candles)
	require.NoError(t, err)
	assert.Equal(t, 50, res.Appended)
	assert.Len(t, res.Decisions, 50)
	require.Len(t, res.Orders, 2)

	buy, sell := res.Orders[0], res.Orders[1]
	assert.Equal(t, strategy.ActionBuy, buy.Action)
	assert.Equal(t, candles[26].CloseTime, buy.Time)
	assert.Equal(t, "84", buy.Price.String())

	assert.Equal(t, strategy.ActionSell, sell.Action)
	assert.Equal(t, candles[39].CloseTime, sell.Time)
	assert.Equal(t, "112", sell.Price.String())
	assert.False(t, sell.Forced)
	assert.True(t, sell.Profit.IsPositive())
	assert.InDelta(t, 330.668, sell.Profit.InexactFloat64(), 1e-6)

	assert.Equal(t, position.StateFlat, tr.Position().State())
	assert.True(t, tr.Position().RealizedPnL().Equal(sell.Profit))

	var changed []int
	for _, d := range res.Changes() {
		changed = append(changed, d.Resolution.Index)
	}
	assert.Equal(t, []int{26, 39}, changed)
}

func TestFeed_BatchMatchesBarByBar(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		candles []types.Candle
	}{
		{name: "band rule on dip", cfg: bandOnlyConfig("BTCUSDT"), candles: dipSeries()},
		{name: "default descriptor on waves", cfg: defaultConfig("ETHUSDT", 672), candles: wavySeries(400)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()

			batch := newTracker(t, tt.cfg, nil)
			batchRes, err := batch.Feed(ctx, tt.candles)
			require.NoError(t, err)

			live := newTracker(t, tt.cfg, nil)
			var liveOrders []position.Order
			var liveDominant []strategy.TradeAction
			for _, c := range tt.candles {
				res, err := live.Tick(ctx, c.CloseTime, []types.RawKline{c.ToRaw()})
				require.NoError(t, err)
				require.Equal(t, 1, res.Appended)
				liveOrders = append(liveOrders, res.Orders...)
				for _, d := range res.Decisions {
					liveDominant = append(liveDominant, d.Resolution.Dominant)
				}
			}

			var batchDominant []strategy.TradeAction
			for _, d := range batchRes.Decisions {
				batchDominant = append(batchDominant, d.Resolution.Dominant)
			}
			assert.Equal(t, batchDominant, liveDominant)
			assert.Equal(t, keys(batchRes.Orders), keys(liveOrders))
			assert.Equal(t, keys(batch.Position().Orders()), keys(live.Position().Orders()))
			assert.True(t, batch.Position().Quote().Equal(live.Position().Quote()))
		})
	}
}

func TestTick_DropsFormingBar(t *testing.T) {
	candles := dipSeries()
	tr := newTracker(t, bandOnlyConfig("BTCUSDT"), nil)

	raws := make([]types.RawKline, 11)
	for i := range raws {
		raws[i] = candles[i].ToRaw()
	}

	res, err := tr.Tick(context.Background(), candles[9].CloseTime, raws)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Appended)
	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, 10, tr.Store().Len())

	last, ok := tr.Store().LatestCloseTime()
	require.True(t, ok)
	assert.Equal(t, candles[9].CloseTime, last)
}

func TestTick_RejectsMalformedKline(t *testing.T) {
	tr := newTracker(t, bandOnlyConfig("BTCUSDT"), nil)

	_, err := tr.Tick(context.Background(), testEpoch, []types.RawKline{{"1", "2"}})
	assert.ErrorIs(t, err, types.ErrMalformedKline)
	assert.Equal(t, 0, tr.Store().Len())
}

func TestFeed_EmptyIsNoop(t *testing.T) {
	tr := newTracker(t, bandOnlyConfig("BTCUSDT"), nil)

	res, err := tr.Feed(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, res.Appended)
	assert.Empty(t, res.Decisions)
	assert.Nil(t, tr.Frame())
}

func TestFeed_RejectsNonMonotonicBatch(t *testing.T) {
	candles := dipSeries()
	tr := newTracker(t, bandOnlyConfig("BTCUSDT"), nil)
	ctx := context.Background()

	_, err := tr.Feed(ctx, candles[:20])
	require.NoError(t, err)

	_, err = tr.Feed(ctx, candles[15:25])
	assert.ErrorIs(t, err, series.ErrNonMonotonic)
	assert.Equal(t, 20, tr.Store().Len())

	_, err = tr.Feed(ctx, candles[20:])
	require.NoError(t, err)
	assert.Len(t, tr.Position().Orders(), 2)
}

func TestFeed_InsufficientFunds(t *testing.T) {
	cfg := bandOnlyConfig("BTCUSDT")
	cfg.Position = testPositionConfig(0)
	tr := newTracker(t, cfg, nil)

	res, err := tr.Feed(context.Background(), dipSeries())
	require.NoError(t, err)
	assert.Empty(t, res.Orders)

	d := res.Decisions[26]
	assert.Equal(t, strategy.ActionBuy, d.Action)
	assert.Equal(t, position.InsufficientFunds, d.Outcome)
	assert.Nil(t, d.Order)

	assert.Equal(t, position.StateFlat, tr.Position().State())
	assert.True(t, tr.Position().Quote().IsZero())
	assert.True(t, tr.Position().Base().IsZero())
}

func TestFeed_ExecutorFailureLeavesPositionUntouched(t *testing.T) {
	exec := &failingExecutor{fail: true}
	tr := newTracker(t, bandOnlyConfig("BTCUSDT"), exec)
	candles := dipSeries()

	res, err := tr.Feed(context.Background(), candles[:30])
	assert.ErrorIs(t, err, errRejected)
	assert.Equal(t, 1, exec.calls)
	assert.Empty(t, res.Orders)
	assert.Len(t, res.Decisions, 30)

	pos := tr.Position()
	assert.Equal(t, position.StateFlat, pos.State())
	assert.True(t, pos.Quote().Equal(testPositionConfig(1000).Budget))
	assert.Empty(t, pos.Orders())

	// the vote armed at bar 26 is still alive and the next tick buys
	exec.fail = false
	res, err = tr.Feed(context.Background(), candles[30:31])
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)
	assert.Equal(t, strategy.ActionBuy, res.Orders[0].Action)
	assert.Equal(t, candles[30].CloseTime, res.Orders[0].Time)
}

func TestFeed_StopLossOverridesSignal(t *testing.T) {
	closes := append(dipCloses()[:27], 78)
	candles := candlesFrom(closes)

	tr := newTracker(t, bandOnlyConfig("BTCUSDT"), nil)
	res, err := tr.Feed(context.Background(), candles)
	require.NoError(t, err)
	require.Len(t, res.Orders, 2)

	stop := res.Orders[1]
	assert.Equal(t, strategy.ActionSell, stop.Action)
	assert.True(t, stop.Forced)
	assert.True(t, stop.Profit.IsNegative())

	d := res.Decisions[27]
	assert.True(t, d.StopLoss)
	assert.Equal(t, strategy.ActionBuy, d.Resolution.Dominant)
	assert.Equal(t, position.StateFlat, tr.Position().State())
}

func TestWarmup_DoesNotTrade(t *testing.T) {
	candles := dipSeries()
	tr := newTracker(t, bandOnlyConfig("BTCUSDT"), nil)

	n, err := tr.Warmup(candles[:27])
	require.NoError(t, err)
	assert.Equal(t, 27, n)
	assert.Empty(t, tr.Position().Orders())
	assert.Equal(t, strategy.ActionBuy, tr.Dominant())

	// the BUY vote armed during warmup is still alive on the first live bar
	res, err := tr.Feed(context.Background(), candles[27:28])
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)
	assert.Equal(t, strategy.ActionBuy, res.Orders[0].Action)
	assert.False(t, res.Decisions[0].Changed)
}

func TestSnapshotRestore(t *testing.T) {
	candles := dipSeries()
	ctx := context.Background()

	orig := newTracker(t, bandOnlyConfig("BTCUSDT"), nil)
	_, err := orig.Feed(ctx, candles[:30])
	require.NoError(t, err)
	require.Equal(t, position.StateCommitted, orig.Position().State())

	blob, err := orig.Snapshot()
	require.NoError(t, err)

	restored := newTracker(t, bandOnlyConfig("BTCUSDT"), nil)
	require.NoError(t, restored.Restore(blob))
	assert.Equal(t, 30, restored.Store().Len())
	assert.Equal(t, position.StateCommitted, restored.Position().State())
	assert.True(t, orig.Position().Base().Equal(restored.Position().Base()))
	assert.Equal(t, keys(orig.Position().Orders()), keys(restored.Position().Orders()))
	assert.Equal(t, orig.Dominant(), restored.Dominant())

	a, err := orig.Feed(ctx, candles[30:])
	require.NoError(t, err)
	b, err := restored.Feed(ctx, candles[30:])
	require.NoError(t, err)
	require.Len(t, a.Orders, 1)
	assert.Equal(t, keys(a.Orders), keys(b.Orders))
}

func TestRestore_RejectsForeignSnapshot(t *testing.T) {
	src := newTracker(t, bandOnlyConfig("BTCUSDT"), nil)
	_, err := src.Feed(context.Background(), dipSeries()[:10])
	require.NoError(t, err)
	blob, err := src.Snapshot()
	require.NoError(t, err)

	dst := newTracker(t, bandOnlyConfig("ETHUSDT"), nil)
	assert.Error(t, dst.Restore(blob))
	assert.Error(t, dst.Restore([]byte("{")))
	assert.Equal(t, 0, dst.Store().Len())
}

func TestNew_Validation(t *testing.T) {
	cfg := bandOnlyConfig("")
	_, err := New(cfg, nil, nil)
	assert.Error(t, err)

	cfg = bandOnlyConfig("BTCUSDT")
	cfg.Bank.WindowIndex = 99
	_, err = New(cfg, nil, nil)
	assert.Error(t, err)

	cfg = bandOnlyConfig("BTCUSDT")
	cfg.Strategy.Rules = nil
	_, err = New(cfg, nil, nil)
	assert.Error(t, err)
}
