package tracker

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ducminhle1904/flipside-bot/internal/exchange"
	"github.com/ducminhle1904/flipside-bot/internal/position"
)

// Executor turns an approved plan into a fill. A failed execution must leave
// nothing to commit.
type Executor interface {
	Buy(ctx context.Context, symbol string, plan position.BuyPlan) (position.Fill, error)
	Sell(ctx context.Context, symbol string, plan position.SellPlan) (position.Fill, error)
}

// PaperExecutor fills every plan in full at the plan price.
type PaperExecutor struct{}

func (PaperExecutor) Buy(_ context.Context, _ string, plan position.BuyPlan) (position.Fill, error) {
	return position.Fill{Base: plan.Spend.Div(plan.Price), Quote: plan.Spend}, nil
}

func (PaperExecutor) Sell(_ context.Context, _ string, plan position.SellPlan) (position.Fill, error) {
	return position.Fill{Base: plan.Base, Quote: plan.Base.Mul(plan.Price)}, nil
}

// ExchangeExecutor places market orders through an exchange connector. Buys
// are sized in quote currency, sells in base currency, both rounded down to
// the venue's steps when the connector reports them.
type ExchangeExecutor struct {
	orders exchange.OrderExecutor
	source exchange.InstrumentSource

	mu    sync.Mutex
	rules map[string]exchange.SymbolRules
}

// NewExchangeExecutor wraps an exchange order endpoint. Sizing rules are read
// from it when it is also an InstrumentSource.
func NewExchangeExecutor(orders exchange.OrderExecutor) *ExchangeExecutor {
	src, _ := orders.(exchange.InstrumentSource)
	return &ExchangeExecutor{orders: orders, source: src, rules: make(map[string]exchange.SymbolRules)}
}

// Rules returns the cached sizing rules of symbol, fetching them once.
func (e *ExchangeExecutor) Rules(ctx context.Context, symbol string) (exchange.SymbolRules, error) {
	if e.source == nil {
		return exchange.SymbolRules{Symbol: symbol}, nil
	}
	e.mu.Lock()
	r, ok := e.rules[symbol]
	e.mu.Unlock()
	if ok {
		return r, nil
	}

	r, err := e.source.SymbolRules(ctx, symbol)
	if err != nil {
		return exchange.SymbolRules{}, fmt.Errorf("%s sizing rules: %w", symbol, err)
	}
	e.mu.Lock()
	e.rules[symbol] = r
	e.mu.Unlock()
	return r, nil
}

func (e *ExchangeExecutor) Buy(ctx context.Context, symbol string, plan position.BuyPlan) (position.Fill, error) {
	rules, err := e.Rules(ctx, symbol)
	if err != nil {
		return position.Fill{}, err
	}
	spend := rules.RoundQuote(plan.Spend)
	if err := rules.CheckQuote(spend); err != nil {
		return position.Fill{}, err
	}

	res, err := e.orders.PlaceMarketOrder(ctx, exchange.OrderRequest{
		Symbol:        symbol,
		Side:          exchange.SideBuy,
		QuoteAmount:   spend,
		ClientOrderID: uuid.NewString(),
	})
	if err != nil {
		return position.Fill{}, err
	}
	return fillFrom(res)
}

// Sell sells the holding floored to the base step. The remainder below one
// step stays on the account as dust.
func (e *ExchangeExecutor) Sell(ctx context.Context, symbol string, plan position.SellPlan) (position.Fill, error) {
	rules, err := e.Rules(ctx, symbol)
	if err != nil {
		return position.Fill{}, err
	}
	base := rules.RoundBase(plan.Base)
	if err := rules.CheckBase(base, plan.Price); err != nil {
		return position.Fill{}, err
	}

	res, err := e.orders.PlaceMarketOrder(ctx, exchange.OrderRequest{
		Symbol:        symbol,
		Side:          exchange.SideSell,
		BaseAmount:    base,
		ClientOrderID: uuid.NewString(),
	})
	if err != nil {
		return position.Fill{}, err
	}
	return fillFrom(res)
}

func fillFrom(res exchange.OrderResult) (position.Fill, error) {
	if !res.ExecutedBase.IsPositive() || !res.CumulativeQuote.IsPositive() {
		return position.Fill{}, fmt.Errorf("order %s not filled (base %s, quote %s)", res.OrderID, res.ExecutedBase, res.CumulativeQuote)
	}
	return position.Fill{Base: res.ExecutedBase, Quote: res.CumulativeQuote}, nil
}
