package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/flipside-bot/internal/exchange"
	"github.com/ducminhle1904/flipside-bot/internal/exchange/bybit"
	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

// BybitAdapter exposes the Bybit spot client through the exchange interfaces.
type BybitAdapter struct {
	client      *bybit.Client
	instruments *bybit.InstrumentManager
}

// NewBybitAdapter creates a new Bybit adapter instance
func NewBybitAdapter(config bybit.Config) *BybitAdapter {
	client := bybit.NewClient(config)
	return &BybitAdapter{client: client, instruments: bybit.NewInstrumentManager(client)}
}

// Name returns the exchange name
func (b *BybitAdapter) Name() string {
	return "bybit"
}

// GetEnvironment returns the current environment string
func (b *BybitAdapter) GetEnvironment() string {
	return b.client.GetEnvironment()
}

// FetchKlines converts Bybit's seven-field klines into the twelve-field
// layout. Bybit reports neither trade counts nor taker volume, so those are
// zero.
func (b *BybitAdapter) FetchKlines(ctx context.Context, symbol, interval string, since time.Time, limit int) ([]types.RawKline, error) {
	iv, err := bybit.ParseInterval(interval)
	if err != nil {
		return nil, err
	}
	step, err := exchange.IntervalDuration(interval)
	if err != nil {
		return nil, err
	}

	params := bybit.KlineParams{Symbol: symbol, Interval: iv, Limit: limit}
	if !since.IsZero() {
		params.Start = &since
	}

	klines, err := b.client.GetKlines(ctx, params)
	if err != nil {
		return nil, b.wrapError(err)
	}

	out := make([]types.RawKline, len(klines))
	for i, k := range klines {
		closeTime := k.StartTime.Add(step - time.Millisecond)
		out[i] = types.RawKline{
			k.StartTime.UnixMilli(), k.Open, k.High, k.Low, k.Close, k.Volume,
			closeTime.UnixMilli(), k.Turnover, int64(0), "0", "0", "0",
		}
	}
	return out, nil
}

// PlaceMarketOrder places a spot market order and reports the executed amounts.
func (b *BybitAdapter) PlaceMarketOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResult, error) {
	linkID := req.ClientOrderID
	if linkID == "" {
		linkID = uuid.NewString()
	}

	var (
		side bybit.OrderSide
		qty  string
	)
	switch req.Side {
	case exchange.SideBuy:
		side, qty = bybit.OrderSideBuy, req.QuoteAmount.String()
	case exchange.SideSell:
		side, qty = bybit.OrderSideSell, req.BaseAmount.String()
	default:
		return exchange.OrderResult{}, fmt.Errorf("unknown side %q", req.Side)
	}

	order, err := b.client.PlaceSpotMarketOrder(ctx, req.Symbol, side, qty, linkID)
	if err != nil {
		return exchange.OrderResult{}, b.wrapError(err)
	}

	executed, err := decimal.NewFromString(order.CumExecQty)
	if err != nil {
		return exchange.OrderResult{}, fmt.Errorf("failed to parse cumExecQty %q: %w", order.CumExecQty, err)
	}
	cumulative, err := decimal.NewFromString(order.CumExecValue)
	if err != nil {
		return exchange.OrderResult{}, fmt.Errorf("failed to parse cumExecValue %q: %w", order.CumExecValue, err)
	}

	return exchange.OrderResult{
		OrderID:         order.OrderID,
		ExecutedBase:    executed,
		CumulativeQuote: cumulative,
	}, nil
}

// SymbolRules converts the spot lot size filter into sizing rules.
func (b *BybitAdapter) SymbolRules(ctx context.Context, symbol string) (exchange.SymbolRules, error) {
	info, err := b.instruments.GetInstrumentInfo(ctx, symbol)
	if err != nil {
		return exchange.SymbolRules{}, b.wrapError(err)
	}
	return bybitRules(info), nil
}

func bybitRules(info *bybit.InstrumentInfo) exchange.SymbolRules {
	return exchange.SymbolRules{
		Symbol:      info.Symbol,
		BaseStep:    exchange.ParseStep(info.QuantityStep()),
		MinBase:     exchange.ParseStep(info.LotSizeFilter.MinOrderQty),
		MaxBase:     exchange.ParseStep(info.MaxMarketQty()),
		QuoteStep:   exchange.ParseStep(info.LotSizeFilter.QuotePrecision),
		MinNotional: exchange.ParseStep(info.MinAmount()),
	}
}

// Balances lists the unified account coins.
func (b *BybitAdapter) Balances(ctx context.Context) ([]types.Balance, error) {
	coins, err := b.client.GetWalletBalances(ctx)
	if err != nil {
		return nil, b.wrapError(err)
	}

	out := make([]types.Balance, 0, len(coins))
	for _, c := range coins {
		wallet, _ := decimal.NewFromString(c.WalletBalance)
		locked, _ := decimal.NewFromString(c.Locked)
		out = append(out, types.Balance{
			Asset:  c.Coin,
			Free:   wallet.Sub(locked).InexactFloat64(),
			Locked: locked.InexactFloat64(),
		})
	}
	return out, nil
}

func (b *BybitAdapter) wrapError(err error) error {
	var bybitErr *bybit.BybitError
	if !errors.As(err, &bybitErr) {
		return err
	}
	return &exchange.ClientError{
		Exchange: b.Name(),
		Status:   bybitErr.HTTPStatus(),
		Code:     int64(bybitErr.Code),
		Message:  bybitErr.Message,
	}
}
