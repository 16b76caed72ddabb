package validation

import (
	"bytes"
	"context"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/flipside-bot/internal/backtest"
	"github.com/ducminhle1904/flipside-bot/internal/indicators"
	"github.com/ducminhle1904/flipside-bot/internal/position"
	"github.com/ducminhle1904/flipside-bot/internal/strategy"
	"github.com/ducminhle1904/flipside-bot/internal/tracker"
	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// hourlyWave is n hourly bars oscillating ±10% around 100 with a 36 hour period.
func hourlyWave(n int) []types.Candle {
	out := make([]types.Candle, n)
	for i := range out {
		c := 100 + 10*math.Sin(float64(i)*2*math.Pi/36)
		openTime := epoch.Add(time.Duration(i) * time.Hour)
		out[i] = types.Candle{
			OpenTime:  openTime,
			CloseTime: openTime.Add(time.Hour - time.Millisecond),
			Open:      c,
			High:      c * 1.01,
			Low:       c * 0.99,
			Close:     c,
			Volume:    10,
		}
	}
	return out
}

func baseConfig() tracker.Config {
	return tracker.Config{
		Symbol:   "BTCUSDT",
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
		Position: position.Config{
			Budget:        decimal.NewFromInt(1000),
			Commission:    decimal.NewFromFloat(0.001),
			SpendFraction: decimal.NewFromInt(1),
		},
	}
}

func TestSplitByRatio(t *testing.T) {
	data := hourlyWave(100)
	s := NewDefaultDataSplitter()

	train, test := s.SplitByRatio(data, 0.7)
	assert.Len(t, train, 70)
	assert.Len(t, test, 30)
	assert.Equal(t, data[70], test[0])

	for _, ratio := range []float64{0, 1, -0.5, 0.001} {
		train, test = s.SplitByRatio(data, ratio)
		assert.Len(t, train, 100, "ratio %v", ratio)
		assert.Nil(t, test)
	}
}

func TestCreateRollingFolds(t *testing.T) {
	data := hourlyWave(40 * 24)
	folds := NewDefaultDataSplitter().CreateRollingFolds(data, 10, 5, 5)

	require.Len(t, folds, 6)
	for i, f := range folds {
		assert.Equal(t, epoch.Add(time.Duration(i*5*24)*time.Hour), f.TrainStart)
		assert.Len(t, f.Train, 10*24)
		assert.Len(t, f.Test, 5*24)
		assert.Equal(t, f.TrainStart.Add(10*24*time.Hour), f.TestStart)
		assert.True(t, f.TrainEnd.Before(f.TestStart))
	}

	assert.Empty(t, NewDefaultDataSplitter().CreateRollingFolds(hourlyWave(30), 1, 1, 1))
}

func TestValidate_Holdout(t *testing.T) {
	data := hourlyWave(20 * 24)
	v := NewWalkForwardValidator(2, nil)

	summary, err := v.Validate(context.Background(), baseConfig(), data, []int{3, 4, 5}, WalkForwardConfig{SplitRatio: 0.7})
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)

	res := summary.Results[0]
	assert.Equal(t, 1, res.Fold)
	assert.Contains(t, []int{3, 4, 5}, res.Window)
	assert.Equal(t, 336, res.TrainResults.Bars)
	assert.Equal(t, 144, res.TestResults.Bars)
	assert.InDelta(t, res.TrainResults.TotalReturn*100, summary.AverageTrainReturn, 1e-9)
	assert.InDelta(t, res.TestResults.TotalReturn*100, summary.AverageTestReturn, 1e-9)
	assert.NotEmpty(t, summary.OverfittingRisk)
}

func TestValidate_Rolling(t *testing.T) {
	data := hourlyWave(40 * 24)
	v := NewWalkForwardValidator(2, nil)

	summary, err := v.Validate(context.Background(), baseConfig(), data, nil, WalkForwardConfig{
		Rolling:   true,
		TrainDays: 10,
		TestDays:  5,
		RollDays:  5,
	})
	require.NoError(t, err)
	require.Len(t, summary.Results, 6)
	for i, r := range summary.Results {
		assert.Equal(t, i+1, r.Fold)
		assert.Equal(t, 4, r.Window)
	}
}

func TestValidate_NotEnoughData(t *testing.T) {
	v := NewWalkForwardValidator(1, nil)

	_, err := v.Validate(context.Background(), baseConfig(), hourlyWave(40), nil, WalkForwardConfig{SplitRatio: 0.7})
	assert.ErrorContains(t, err, "not enough data")

	_, err = v.Validate(context.Background(), baseConfig(), hourlyWave(40), nil, WalkForwardConfig{Rolling: true, TrainDays: 10, TestDays: 5, RollDays: 5})
	assert.ErrorContains(t, err, "not enough data")
}

func TestCalculateSummary(t *testing.T) {
	results := []WalkForwardResults{
		{TrainResults: &backtest.Results{TotalReturn: 0.10, MaxDrawdown: 0.02}, TestResults: &backtest.Results{TotalReturn: 0.05, MaxDrawdown: 0.04}},
		{TrainResults: &backtest.Results{TotalReturn: 0.10, MaxDrawdown: 0.04}, TestResults: &backtest.Results{TotalReturn: 0.05, MaxDrawdown: 0.06}},
	}
	s := calculateSummary(results)

	assert.InDelta(t, 10.0, s.AverageTrainReturn, 1e-9)
	assert.InDelta(t, 5.0, s.AverageTestReturn, 1e-9)
	assert.InDelta(t, 3.0, s.AverageTrainDrawdown, 1e-9)
	assert.InDelta(t, 5.0, s.AverageTestDrawdown, 1e-9)
	assert.InDelta(t, 50.0, s.ReturnDegradation, 1e-9)
	assert.False(t, s.IsRobust)
	assert.Equal(t, "HIGH", s.OverfittingRisk)

	var out bytes.Buffer
	PrintSummary(&out, s)
	assert.Contains(t, out.String(), "ACROSS 2 FOLDS")
	assert.Contains(t, out.String(), "HIGH OVERFITTING RISK")

	assert.Equal(t, "LOW", calculateSummary([]WalkForwardResults{
		{TrainResults: &backtest.Results{TotalReturn: 0.10}, TestResults: &backtest.Results{TotalReturn: 0.12}},
	}).OverfittingRisk)
}
