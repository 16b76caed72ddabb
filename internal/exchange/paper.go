package exchange

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

// Paper is an in-memory exchange. It serves klines from preloaded candles,
// revealing only those that closed by the current clock, and fills market
// orders at the last revealed close.
type Paper struct {
	mu      sync.Mutex
	candles map[string][]types.Candle
	clock   func() time.Time
	fail    map[string]error
	rules   map[string]SymbolRules
	orders  []OrderRequest
}

// NewPaper creates a paper exchange over the given series keyed by symbol.
func NewPaper(candles map[string][]types.Candle) *Paper {
	p := &Paper{
		candles: make(map[string][]types.Candle),
		clock:   time.Now,
		fail:    make(map[string]error),
		rules:   make(map[string]SymbolRules),
	}
	for symbol, series := range candles {
		sorted := append([]types.Candle(nil), series...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].CloseTime.Before(sorted[j].CloseTime) })
		p.candles[symbol] = sorted
	}
	return p
}

// WithClock replaces the clock used to hide not-yet-closed bars.
func (p *Paper) WithClock(clock func() time.Time) *Paper {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clock = clock
	return p
}

// WithRules enforces sizing rules on orders for rules.Symbol. Buys then fill
// a base amount floored to the base step.
func (p *Paper) WithRules(rules SymbolRules) *Paper {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rules[rules.Symbol] = rules
	return p
}

// SymbolRules returns the rules set with WithRules, or none.
func (p *Paper) SymbolRules(_ context.Context, symbol string) (SymbolRules, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r, ok := p.rules[symbol]; ok {
		return r, nil
	}
	return SymbolRules{Symbol: symbol}, nil
}

// FailNext makes the next call on symbol return err.
func (p *Paper) FailNext(symbol string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail[symbol] = err
}

func (p *Paper) Name() string { return "paper" }

func (p *Paper) takeFailure(symbol string) error {
	if err, ok := p.fail[symbol]; ok {
		delete(p.fail, symbol)
		return err
	}
	return nil
}

func (p *Paper) FetchKlines(ctx context.Context, symbol, interval string, since time.Time, limit int) ([]types.RawKline, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.takeFailure(symbol); err != nil {
		return nil, err
	}
	series, ok := p.candles[symbol]
	if !ok {
		return nil, &ClientError{Exchange: p.Name(), Status: 400, Code: -1121, Message: "invalid symbol " + symbol}
	}

	now := p.clock()
	var out []types.RawKline
	for _, c := range series {
		if !c.OpenTime.Before(since) && !c.OpenTime.After(now) {
			out = append(out, c.ToRaw())
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (p *Paper) lastClose(symbol string) (decimal.Decimal, error) {
	now := p.clock()
	series := p.candles[symbol]
	for i := len(series) - 1; i >= 0; i-- {
		if !series[i].CloseTime.After(now) {
			return decimal.NewFromFloat(series[i].Close), nil
		}
	}
	return decimal.Zero, &ClientError{Exchange: p.Name(), Status: 400, Code: -1013, Message: "no price for " + symbol}
}

func (p *Paper) PlaceMarketOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.takeFailure(req.Symbol); err != nil {
		return OrderResult{}, err
	}
	price, err := p.lastClose(req.Symbol)
	if err != nil {
		return OrderResult{}, err
	}

	rules := p.rules[req.Symbol]
	var res OrderResult
	switch req.Side {
	case SideBuy:
		if !req.QuoteAmount.IsPositive() {
			return OrderResult{}, &ClientError{Exchange: p.Name(), Status: 400, Code: -1013, Message: "quote amount must be positive"}
		}
		if !rules.RoundQuote(req.QuoteAmount).Equal(req.QuoteAmount) {
			return OrderResult{}, &ClientError{Exchange: p.Name(), Status: 400, Code: -1111, Message: "quote amount " + req.QuoteAmount.String() + " exceeds precision"}
		}
		res = OrderResult{ExecutedBase: req.QuoteAmount.Div(price), CumulativeQuote: req.QuoteAmount}
		if rules.BaseStep.IsPositive() {
			base := rules.RoundBase(res.ExecutedBase)
			res = OrderResult{ExecutedBase: base, CumulativeQuote: base.Mul(price)}
		}
	case SideSell:
		if !req.BaseAmount.IsPositive() {
			return OrderResult{}, &ClientError{Exchange: p.Name(), Status: 400, Code: -1013, Message: "base amount must be positive"}
		}
		if !rules.RoundBase(req.BaseAmount).Equal(req.BaseAmount) {
			return OrderResult{}, &ClientError{Exchange: p.Name(), Status: 400, Code: -1013, Message: "Filter failure: LOT_SIZE " + req.BaseAmount.String()}
		}
		res = OrderResult{ExecutedBase: req.BaseAmount, CumulativeQuote: req.BaseAmount.Mul(price)}
	default:
		return OrderResult{}, fmt.Errorf("unknown side %q", req.Side)
	}
	res.OrderID = uuid.NewString()
	p.orders = append(p.orders, req)
	return res, nil
}

func (p *Paper) Balances(ctx context.Context) ([]types.Balance, error) {
	return nil, nil
}

// Orders returns the accepted order requests.
func (p *Paper) Orders() []OrderRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]OrderRequest(nil), p.orders...)
}
