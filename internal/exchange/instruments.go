package exchange

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrBelowMinimum is returned when an order, once rounded to the venue's
// steps, is smaller than the venue accepts.
var ErrBelowMinimum = errors.New("order below venue minimum")

// SymbolRules are the venue's sizing rules for one spot pair. Zero fields
// impose no constraint.
type SymbolRules struct {
	Symbol      string
	BaseStep    decimal.Decimal // quantity step of base amounts
	MinBase     decimal.Decimal
	MaxBase     decimal.Decimal
	QuoteStep   decimal.Decimal // precision of quote amounts
	MinNotional decimal.Decimal
}

// InstrumentSource reports sizing rules for a symbol.
type InstrumentSource interface {
	SymbolRules(ctx context.Context, symbol string) (SymbolRules, error)
}

// FeeSource reports the account's trading commission for a symbol as a rate.
type FeeSource interface {
	Commission(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// StepFromPrecision turns a number of decimals into a step, 8 -> 0.00000001.
func StepFromPrecision(decimals int) decimal.Decimal {
	if decimals < 0 {
		return decimal.Zero
	}
	return decimal.New(1, -int32(decimals))
}

// ParseStep reads a step such as "0.00001". Blank or invalid input gives zero.
func ParseStep(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func floorToStep(v, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return v
	}
	return v.Div(step).Floor().Mul(step)
}

// RoundBase floors a base quantity to the step and caps it at the maximum.
func (r SymbolRules) RoundBase(qty decimal.Decimal) decimal.Decimal {
	if r.MaxBase.IsPositive() && qty.GreaterThan(r.MaxBase) {
		qty = r.MaxBase
	}
	return floorToStep(qty, r.BaseStep)
}

// RoundQuote floors a quote amount to the quote precision.
func (r SymbolRules) RoundQuote(amount decimal.Decimal) decimal.Decimal {
	return floorToStep(amount, r.QuoteStep)
}

// CheckBase validates a rounded base quantity worth qty*price.
func (r SymbolRules) CheckBase(qty, price decimal.Decimal) error {
	if !qty.IsPositive() || qty.LessThan(r.MinBase) {
		return fmt.Errorf("%w: %s quantity %s, minimum %s", ErrBelowMinimum, r.Symbol, qty, r.MinBase)
	}
	if price.IsPositive() && qty.Mul(price).LessThan(r.MinNotional) {
		return fmt.Errorf("%w: %s notional %s, minimum %s", ErrBelowMinimum, r.Symbol, qty.Mul(price).StringFixed(8), r.MinNotional)
	}
	return nil
}

// CheckQuote validates a rounded quote amount.
func (r SymbolRules) CheckQuote(amount decimal.Decimal) error {
	if !amount.IsPositive() || amount.LessThan(r.MinNotional) {
		return fmt.Errorf("%w: %s amount %s, minimum %s", ErrBelowMinimum, r.Symbol, amount, r.MinNotional)
	}
	return nil
}
