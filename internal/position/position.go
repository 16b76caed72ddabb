package position

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/flipside-bot/internal/strategy"
)

// Config holds the money rules of a position.
type Config struct {
	Budget        decimal.Decimal // initial quote balance
	Commission    decimal.Decimal // proportional fee in [0, 1)
	SpendFraction decimal.Decimal // share of quote spent per buy, in (0, 1]
	StopLoss      decimal.Decimal // loss fraction below entry forcing an exit; zero disables
	MinQuote      decimal.Decimal // smallest order the venue accepts
}

// Validate checks the configured ranges.
func (c Config) Validate() error {
	one := decimal.NewFromInt(1)
	switch {
	case c.Budget.IsNegative():
		return fmt.Errorf("budget must not be negative")
	case c.Commission.IsNegative() || c.Commission.GreaterThanOrEqual(one):
		return fmt.Errorf("commission %s outside [0, 1)", c.Commission)
	case !c.SpendFraction.IsPositive() || c.SpendFraction.GreaterThan(one):
		return fmt.Errorf("spend fraction %s outside (0, 1]", c.SpendFraction)
	case c.StopLoss.IsNegative() || c.StopLoss.GreaterThanOrEqual(one):
		return fmt.Errorf("stop loss %s outside [0, 1)", c.StopLoss)
	case c.MinQuote.IsNegative():
		return fmt.Errorf("min quote must not be negative")
	}
	return nil
}

// Order is one executed trade in the order history.
type Order struct {
	ID     string               `json:"id"`
	Action strategy.TradeAction `json:"action"`
	Time   time.Time            `json:"time"`
	Price  decimal.Decimal      `json:"price"`
	Base   decimal.Decimal      `json:"base"`
	Quote  decimal.Decimal      `json:"quote"`
	Profit decimal.Decimal      `json:"profit"`
	Forced bool                 `json:"forced"`
}

// Fill is what the venue reports for an executed market order.
type Fill struct {
	Base  decimal.Decimal // executed base quantity
	Quote decimal.Decimal // cumulative quote quantity
}

// BuyPlan describes a buy before anything is mutated.
type BuyPlan struct {
	Outcome      Outcome
	Price        decimal.Decimal
	Spend        decimal.Decimal
	ExpectedBase decimal.Decimal
}

// SellPlan describes a sell before anything is mutated.
type SellPlan struct {
	Outcome          Outcome
	Price            decimal.Decimal
	Base             decimal.Decimal
	ExpectedProceeds decimal.Decimal
	Profit           decimal.Decimal
	Forced           bool
}

// Position tracks one pair's holdings through FLAT and COMMITTED. It is
// owned by a single tracker and is not safe for concurrent use.
type Position struct {
	cfg        Config
	base       decimal.Decimal
	quote      decimal.Decimal
	state      State
	costBasis  decimal.Decimal
	entryPrice decimal.Decimal
	realized   decimal.Decimal
	orders     []Order
}

// New creates a FLAT position holding the whole budget in quote currency.
func New(cfg Config) (*Position, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Position{cfg: cfg, quote: cfg.Budget}, nil
}

// PrepareBuy plans a buy at price without changing the position.
func (p *Position) PrepareBuy(price decimal.Decimal) BuyPlan {
	plan := BuyPlan{Price: price}
	if p.state == StateCommitted {
		plan.Outcome = AlreadyCommitted
		return plan
	}
	spend := p.quote.Mul(p.cfg.SpendFraction)
	if !spend.IsPositive() || !price.IsPositive() || spend.LessThan(p.cfg.MinQuote) {
		plan.Outcome = InsufficientFunds
		return plan
	}
	plan.Outcome = OK
	plan.Spend = spend
	plan.ExpectedBase = spend.Div(price).Mul(p.keepRate())
	return plan
}

// PrepareSell plans selling the whole holding at price. Without force a sell
// whose proceeds would not cover the cost basis is refused.
func (p *Position) PrepareSell(price decimal.Decimal, force bool) SellPlan {
	plan := SellPlan{Price: price, Forced: force}
	if p.state != StateCommitted {
		plan.Outcome = NotCommitted
		return plan
	}
	plan.Base = p.base
	plan.ExpectedProceeds = p.base.Mul(price).Mul(p.keepRate())
	plan.Profit = plan.ExpectedProceeds.Sub(p.costBasis)
	if plan.Profit.IsNegative() && !force {
		plan.Outcome = NoProfit
		return plan
	}
	plan.Outcome = OK
	return plan
}

// CommitBuy applies an executed buy. The commission is taken from the bought
// base amount.
func (p *Position) CommitBuy(at time.Time, price decimal.Decimal, fill Fill) (Order, error) {
	if p.state == StateCommitted {
		return Order{}, fmt.Errorf("commit buy: position already committed")
	}
	if !fill.Base.IsPositive() || !fill.Quote.IsPositive() {
		return Order{}, fmt.Errorf("commit buy: empty fill %s/%s", fill.Base, fill.Quote)
	}
	if fill.Quote.GreaterThan(p.quote) {
		return Order{}, fmt.Errorf("commit buy: fill spends %s, only %s available", fill.Quote, p.quote)
	}

	received := fill.Base.Mul(p.keepRate())
	p.quote = p.quote.Sub(fill.Quote)
	p.base = received
	p.costBasis = fill.Quote
	p.entryPrice = fill.Quote.Div(fill.Base)
	p.state = StateCommitted

	order := Order{
		ID:     uuid.NewString(),
		Action: strategy.ActionBuy,
		Time:   at,
		Price:  price,
		Base:   received,
		Quote:  fill.Quote,
	}
	p.orders = append(p.orders, order)
	return order, nil
}

// CommitSell applies an executed sell of the whole holding.
func (p *Position) CommitSell(at time.Time, price decimal.Decimal, fill Fill, forced bool) (Order, error) {
	if p.state != StateCommitted {
		return Order{}, fmt.Errorf("commit sell: position not committed")
	}
	if !fill.Quote.IsPositive() {
		return Order{}, fmt.Errorf("commit sell: empty fill")
	}

	proceeds := fill.Quote.Mul(p.keepRate())
	profit := proceeds.Sub(p.costBasis)

	p.quote = p.quote.Add(proceeds)
	p.realized = p.realized.Add(profit)
	p.base = decimal.Zero
	p.costBasis = decimal.Zero
	p.entryPrice = decimal.Zero
	p.state = StateFlat

	order := Order{
		ID:     uuid.NewString(),
		Action: strategy.ActionSell,
		Time:   at,
		Price:  price,
		Base:   fill.Base,
		Quote:  proceeds,
		Profit: profit,
		Forced: forced,
	}
	p.orders = append(p.orders, order)
	return order, nil
}

// BuyIn buys at price with a simulated fill.
func (p *Position) BuyIn(at time.Time, price decimal.Decimal) (Outcome, *Order) {
	plan := p.PrepareBuy(price)
	if plan.Outcome != OK {
		return plan.Outcome, nil
	}
	order, err := p.CommitBuy(at, price, Fill{Base: plan.Spend.Div(price), Quote: plan.Spend})
	if err != nil {
		return InsufficientFunds, nil
	}
	return OK, &order
}

// SellOut sells the holding at price with a simulated fill.
func (p *Position) SellOut(at time.Time, price decimal.Decimal, force bool) (Outcome, *Order) {
	plan := p.PrepareSell(price, force)
	if plan.Outcome != OK {
		return plan.Outcome, nil
	}
	order, err := p.CommitSell(at, price, Fill{Base: plan.Base, Quote: plan.Base.Mul(price)}, force)
	if err != nil {
		return NotCommitted, nil
	}
	return OK, &order
}

// StopLossTriggered reports whether price fell below the stop level.
func (p *Position) StopLossTriggered(price decimal.Decimal) bool {
	if p.state != StateCommitted || !p.cfg.StopLoss.IsPositive() {
		return false
	}
	stop := p.entryPrice.Mul(decimal.NewFromInt(1).Sub(p.cfg.StopLoss))
	return price.LessThan(stop)
}

func (p *Position) keepRate() decimal.Decimal {
	return decimal.NewFromInt(1).Sub(p.cfg.Commission)
}

func (p *Position) State() State                { return p.state }
func (p *Position) Committed() bool             { return p.state == StateCommitted }
func (p *Position) Base() decimal.Decimal       { return p.base }
func (p *Position) Quote() decimal.Decimal      { return p.quote }
func (p *Position) CostBasis() decimal.Decimal  { return p.costBasis }
func (p *Position) EntryPrice() decimal.Decimal { return p.entryPrice }
func (p *Position) RealizedPnL() decimal.Decimal {
	return p.realized
}
func (p *Position) Config() Config { return p.cfg }

// Equity values the position at price.
func (p *Position) Equity(price decimal.Decimal) decimal.Decimal {
	return p.quote.Add(p.base.Mul(price))
}

// Orders returns a copy of the order history.
func (p *Position) Orders() []Order {
	out := make([]Order, len(p.orders))
	copy(out, p.orders)
	return out
}

// Reset returns to the initial FLAT state with the full budget.
func (p *Position) Reset() {
	*p = Position{cfg: p.cfg, quote: p.cfg.Budget}
}

// Snapshot is the persisted form of a position.
type Snapshot struct {
	Base       decimal.Decimal `json:"base"`
	Quote      decimal.Decimal `json:"quote"`
	State      State           `json:"state"`
	CostBasis  decimal.Decimal `json:"cost_basis"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	Realized   decimal.Decimal `json:"realized"`
	Orders     []Order         `json:"orders"`
}

// Export captures the position for persistence.
func (p *Position) Export() Snapshot {
	return Snapshot{
		Base:       p.base,
		Quote:      p.quote,
		State:      p.state,
		CostBasis:  p.costBasis,
		EntryPrice: p.entryPrice,
		Realized:   p.realized,
		Orders:     p.Orders(),
	}
}

// Restore replaces the position with a snapshot after checking its invariants.
func (p *Position) Restore(s Snapshot) error {
	if s.Base.IsNegative() || s.Quote.IsNegative() {
		return fmt.Errorf("restore: negative balance")
	}
	if (s.State == StateCommitted) != s.Base.IsPositive() {
		return fmt.Errorf("restore: state %s inconsistent with base %s", s.State, s.Base)
	}
	p.base = s.Base
	p.quote = s.Quote
	p.state = s.State
	p.costBasis = s.CostBasis
	p.entryPrice = s.EntryPrice
	p.realized = s.Realized
	p.orders = append([]Order(nil), s.Orders...)
	return nil
}
