package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	boterrors "github.com/ducminhle1904/flipside-bot/internal/errors"
	"github.com/ducminhle1904/flipside-bot/internal/indicators"
	"github.com/ducminhle1904/flipside-bot/internal/logger"
	"github.com/ducminhle1904/flipside-bot/internal/position"
	"github.com/ducminhle1904/flipside-bot/internal/series"
	"github.com/ducminhle1904/flipside-bot/internal/strategy"
	"github.com/ducminhle1904/flipside-bot/internal/tracker"
	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

// Engine replays a candle series through the same tracker the live driver
// uses, filling orders on paper.
type Engine struct {
	cfg tracker.Config
	log *logger.Logger
}

// Results summarizes one backtest run.
type Results struct {
	Symbol string
	Bars   int
	Start  time.Time
	End    time.Time

	StartBalance  float64
	EndBalance    float64
	TotalReturn   float64
	RealizedPnL   float64
	MaxDrawdown   float64
	SharpeRatio   float64
	SortinoRatio  float64
	ProfitFactor  float64
	WinRate       float64
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	StopLosses    int

	// Refusals counts signals the position declined, by outcome.
	Refusals map[position.Outcome]int

	// BuyAndHold is the value of spending the budget on the first close and
	// holding to the last.
	BuyAndHold       float64
	BuyAndHoldReturn float64

	OpenPosition bool
	Trades       []Trade
	Orders       []position.Order
	EquityCurve  []EquityPoint
	Frame        *indicators.Frame `json:"-"`
}

// Trade pairs a BUY with the SELL that closed it.
type Trade struct {
	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	Cost       float64
	Proceeds   float64
	PnL        float64
	Forced     bool
}

// EquityPoint is the account value at one bar close.
type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
	Exposure  float64 // share of equity held in base
}

// NewEngine creates a backtest engine for one pair configuration.
func NewEngine(cfg tracker.Config, log *logger.Logger) *Engine {
	return &Engine{cfg: cfg, log: logger.OrNop(log)}
}

// Run walks the series once in time order. Capacity is raised to the series
// length so that no bar is evicted and the result matches feeding the same
// bars one at a time. An open position at the end is valued at the last close,
// not liquidated.
func (e *Engine) Run(ctx context.Context, candles []types.Candle) (*Results, error) {
	if len(candles) == 0 {
		return nil, boterrors.WrapError(series.ErrEmptyFeed, boterrors.ErrorCategoryData, "backtest", "run")
	}

	cfg := e.cfg
	if cfg.Capacity < len(candles) {
		cfg.Capacity = len(candles)
	}
	tr, err := tracker.New(cfg, tracker.PaperExecutor{}, e.log)
	if err != nil {
		return nil, boterrors.WrapError(err, boterrors.ErrorCategoryConfiguration, "backtest", "run")
	}

	res, err := tr.Feed(ctx, candles)
	if err != nil {
		return nil, fmt.Errorf("backtest %s: %w", cfg.Symbol, err)
	}

	results := &Results{
		Symbol:       cfg.Symbol,
		Bars:         len(candles),
		Start:        candles[0].OpenTime,
		End:          candles[len(candles)-1].CloseTime,
		StartBalance: cfg.Position.Budget.InexactFloat64(),
		Refusals:     make(map[position.Outcome]int),
		Orders:       tr.Position().Orders(),
		Frame:        tr.Frame(),
	}

	for _, d := range res.Decisions {
		if d.Action != strategy.ActionHold && d.Outcome != position.OK {
			results.Refusals[d.Outcome]++
		}
	}

	results.Trades = pairTrades(results.Orders)
	results.EquityCurve = equityCurve(cfg.Position.Budget, candles, results.Orders)

	last := decimal.NewFromFloat(candles[len(candles)-1].Close)
	results.EndBalance = tr.Position().Equity(last).InexactFloat64()
	results.RealizedPnL = tr.Position().RealizedPnL().InexactFloat64()
	results.OpenPosition = tr.Position().Committed()
	if results.StartBalance > 0 {
		results.TotalReturn = (results.EndBalance - results.StartBalance) / results.StartBalance
	}
	results.BuyAndHold, results.BuyAndHoldReturn = buyAndHold(cfg.Position, candles)
	results.UpdateMetrics()

	e.log.Status("%s backtest: %d bars, %d trades, return %.2f%%, buy and hold %.2f%%",
		cfg.Symbol, results.Bars, results.TotalTrades, results.TotalReturn*100, results.BuyAndHoldReturn*100)
	return results, nil
}

// pairTrades matches each BUY with the next SELL. A trailing BUY stays open
// and is not reported as a trade.
func pairTrades(orders []position.Order) []Trade {
	var trades []Trade
	var entry *position.Order
	for i := range orders {
		o := orders[i]
		switch o.Action {
		case strategy.ActionBuy:
			entry = &orders[i]
		case strategy.ActionSell:
			if entry == nil {
				continue
			}
			trades = append(trades, Trade{
				EntryTime:  entry.Time,
				ExitTime:   o.Time,
				EntryPrice: entry.Price.InexactFloat64(),
				ExitPrice:  o.Price.InexactFloat64(),
				Quantity:   entry.Base.InexactFloat64(),
				Cost:       entry.Quote.InexactFloat64(),
				Proceeds:   o.Quote.InexactFloat64(),
				PnL:        o.Profit.InexactFloat64(),
				Forced:     o.Forced,
			})
			entry = nil
		}
	}
	return trades
}

// equityCurve re-applies the orders bar by bar.
func equityCurve(budget decimal.Decimal, candles []types.Candle, orders []position.Order) []EquityPoint {
	curve := make([]EquityPoint, 0, len(candles))
	quote, base := budget, decimal.Zero
	next := 0
	for _, c := range candles {
		for next < len(orders) && !orders[next].Time.After(c.CloseTime) {
			o := orders[next]
			switch o.Action {
			case strategy.ActionBuy:
				quote = quote.Sub(o.Quote)
				base = o.Base
			case strategy.ActionSell:
				quote = quote.Add(o.Quote)
				base = decimal.Zero
			}
			next++
		}
		held := base.Mul(decimal.NewFromFloat(c.Close))
		equity := quote.Add(held)
		point := EquityPoint{Timestamp: c.CloseTime, Equity: equity.InexactFloat64()}
		if equity.IsPositive() {
			point.Exposure = held.Div(equity).InexactFloat64()
		}
		curve = append(curve, point)
	}
	return curve
}

func buyAndHold(cfg position.Config, candles []types.Candle) (float64, float64) {
	first := decimal.NewFromFloat(candles[0].Close)
	last := decimal.NewFromFloat(candles[len(candles)-1].Close)
	if !first.IsPositive() || !cfg.Budget.IsPositive() {
		return cfg.Budget.InexactFloat64(), 0
	}
	keep := decimal.NewFromInt(1).Sub(cfg.Commission)
	value := cfg.Budget.Div(first).Mul(keep).Mul(last).Mul(keep)
	return value.InexactFloat64(), value.Sub(cfg.Budget).Div(cfg.Budget).InexactFloat64()
}
