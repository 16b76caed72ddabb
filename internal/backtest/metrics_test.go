package backtest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateProfitFactor(t *testing.T) {
	tests := []struct {
		name     string
		trades   []Trade
		expected float64
	}{
		{name: "no trades", expected: 0},
		{name: "only wins", trades: []Trade{{PnL: 10}, {PnL: 5}}, expected: math.Inf(1)},
		{name: "mixed", trades: []Trade{{PnL: 30}, {PnL: -10}, {PnL: -5}}, expected: 2},
		{name: "only losses", trades: []Trade{{PnL: -3}}, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Results{Trades: tt.trades}
			assert.Equal(t, tt.expected, r.CalculateProfitFactor())
		})
	}
}

func TestCalculateMaxDrawdown(t *testing.T) {
	r := &Results{EquityCurve: []EquityPoint{
		{Equity: 100}, {Equity: 120}, {Equity: 90}, {Equity: 110}, {Equity: 130}, {Equity: 117},
	}}
	assert.InDelta(t, 0.25, r.CalculateMaxDrawdown(), 1e-12)

	assert.Zero(t, (&Results{}).CalculateMaxDrawdown())
}

func TestUpdateMetrics(t *testing.T) {
	r := &Results{
		Trades: []Trade{
			{Cost: 100, PnL: 10},
			{Cost: 100, PnL: -4, Forced: true},
			{Cost: 100, PnL: 6},
		},
		EquityCurve: []EquityPoint{{Equity: 100}, {Equity: 110}, {Equity: 106}, {Equity: 112}},
	}
	r.UpdateMetrics()

	assert.Equal(t, 3, r.TotalTrades)
	assert.Equal(t, 2, r.WinningTrades)
	assert.Equal(t, 1, r.LosingTrades)
	assert.Equal(t, 1, r.StopLosses)
	assert.InDelta(t, 200.0/3, r.WinRate, 1e-9)
	assert.InDelta(t, 4.0, r.ProfitFactor, 1e-12)
	assert.Greater(t, r.SharpeRatio, 0.0)
	assert.Greater(t, r.SortinoRatio, 0.0)
	assert.InDelta(t, 4.0/110, r.MaxDrawdown, 1e-12)
}

func TestCalculateSharpeRatio_ConstantReturns(t *testing.T) {
	r := &Results{Trades: []Trade{{Cost: 100, PnL: 5}, {Cost: 200, PnL: 10}}}
	assert.Zero(t, r.CalculateSharpeRatio())
}
