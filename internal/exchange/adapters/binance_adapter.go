package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/flipside-bot/internal/exchange"
	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

const binanceTestnetURL = "https://testnet.binance.vision"

// BinanceAdapter serves spot klines and market orders from Binance.
type BinanceAdapter struct {
	client  *binance.Client
	testnet bool
}

// NewBinanceAdapter creates a spot client, pointed at the public testnet when
// testnet is set.
func NewBinanceAdapter(apiKey, apiSecret string, testnet bool) (*BinanceAdapter, error) {
	client := binance.NewClient(apiKey, apiSecret)
	if testnet {
		if err := client.SetBaseURL(binanceTestnetURL); err != nil {
			return nil, fmt.Errorf("failed to set testnet URL: %w", err)
		}
	}
	return &BinanceAdapter{client: client, testnet: testnet}, nil
}

// Name returns the exchange name
func (b *BinanceAdapter) Name() string {
	return "binance"
}

// GetEnvironment returns the current environment string
func (b *BinanceAdapter) GetEnvironment() string {
	if b.testnet {
		return "testnet"
	}
	return "mainnet"
}

// FetchKlines returns klines opening at or after since, oldest first.
func (b *BinanceAdapter) FetchKlines(ctx context.Context, symbol, interval string, since time.Time, limit int) ([]types.RawKline, error) {
	svc := b.client.NewKlinesService().Symbol(symbol).Interval(interval)
	if !since.IsZero() {
		svc = svc.StartTime(since.UnixMilli())
	}
	if limit > 0 {
		svc = svc.Limit(limit)
	}

	klines, err := svc.Do(ctx)
	if err != nil {
		return nil, b.wrapError(err)
	}

	out := make([]types.RawKline, len(klines))
	for i, k := range klines {
		out[i] = types.RawKline{
			k.OpenTime, k.Open, k.High, k.Low, k.Close, k.Volume,
			k.CloseTime, k.QuoteAssetVolume, k.TradeNum,
			k.TakerBuyBaseAssetVolume, k.TakerBuyQuoteAssetVolume, "0",
		}
	}
	return out, nil
}

// PlaceMarketOrder buys by quote amount or sells by base amount.
func (b *BinanceAdapter) PlaceMarketOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResult, error) {
	clientID := req.ClientOrderID
	if clientID == "" {
		clientID = uuid.NewString()
	}

	svc := b.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Type(binance.OrderTypeMarket).
		NewClientOrderID(clientID)

	switch req.Side {
	case exchange.SideBuy:
		svc = svc.Side(binance.SideTypeBuy).QuoteOrderQty(req.QuoteAmount.String())
	case exchange.SideSell:
		svc = svc.Side(binance.SideTypeSell).Quantity(req.BaseAmount.String())
	default:
		return exchange.OrderResult{}, fmt.Errorf("unknown side %q", req.Side)
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		return exchange.OrderResult{}, b.wrapError(err)
	}

	executed, err := decimal.NewFromString(resp.ExecutedQuantity)
	if err != nil {
		return exchange.OrderResult{}, fmt.Errorf("failed to parse executed quantity %q: %w", resp.ExecutedQuantity, err)
	}
	cumulative, err := decimal.NewFromString(resp.CummulativeQuoteQuantity)
	if err != nil {
		return exchange.OrderResult{}, fmt.Errorf("failed to parse cumulative quote %q: %w", resp.CummulativeQuoteQuantity, err)
	}

	return exchange.OrderResult{
		OrderID:         fmt.Sprintf("%d", resp.OrderID),
		ExecutedBase:    executed,
		CumulativeQuote: cumulative,
	}, nil
}

// Balances lists non-empty wallet lines.
func (b *BinanceAdapter) Balances(ctx context.Context) ([]types.Balance, error) {
	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, b.wrapError(err)
	}

	var out []types.Balance
	for _, bal := range account.Balances {
		free, _ := decimal.NewFromString(bal.Free)
		locked, _ := decimal.NewFromString(bal.Locked)
		if free.IsZero() && locked.IsZero() {
			continue
		}
		out = append(out, types.Balance{
			Asset:  bal.Asset,
			Free:   free.InexactFloat64(),
			Locked: locked.InexactFloat64(),
		})
	}
	return out, nil
}

// SymbolRules reads LOT_SIZE, the notional filter and the quote precision
// from exchange info.
func (b *BinanceAdapter) SymbolRules(ctx context.Context, symbol string) (exchange.SymbolRules, error) {
	info, err := b.client.NewExchangeInfoService().Symbol(symbol).Do(ctx)
	if err != nil {
		return exchange.SymbolRules{}, b.wrapError(err)
	}
	for i := range info.Symbols {
		if info.Symbols[i].Symbol == symbol {
			return binanceRules(&info.Symbols[i]), nil
		}
	}
	return exchange.SymbolRules{}, fmt.Errorf("binance: symbol %s not listed", symbol)
}

func binanceRules(s *binance.Symbol) exchange.SymbolRules {
	rules := exchange.SymbolRules{
		Symbol:    s.Symbol,
		QuoteStep: exchange.StepFromPrecision(s.QuoteAssetPrecision),
	}
	if lot := s.LotSizeFilter(); lot != nil {
		rules.BaseStep = exchange.ParseStep(lot.StepSize)
		rules.MinBase = exchange.ParseStep(lot.MinQuantity)
		rules.MaxBase = exchange.ParseStep(lot.MaxQuantity)
	}
	for _, f := range s.Filters {
		switch f["filterType"] {
		case "NOTIONAL", "MIN_NOTIONAL":
			if v, ok := f["minNotional"].(string); ok {
				rules.MinNotional = exchange.ParseStep(v)
			}
		}
	}
	return rules
}

// Commission is the account's taker rate; market orders always take.
func (b *BinanceAdapter) Commission(ctx context.Context, _ string) (decimal.Decimal, error) {
	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return decimal.Zero, b.wrapError(err)
	}
	return decimal.New(account.TakerCommission, -4), nil
}

// wrapError turns Binance API errors into exchange client errors. Transport
// failures are returned unchanged.
func (b *BinanceAdapter) wrapError(err error) error {
	var apiErr *common.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	return &exchange.ClientError{
		Exchange: b.Name(),
		Status:   binanceStatus(apiErr.Code),
		Code:     apiErr.Code,
		Message:  apiErr.Message,
	}
}

func binanceStatus(code int64) int {
	switch code {
	case -1003, -1015:
		return 429
	case -1022, -2014, -2015:
		return 401
	case -1000, -1001, -1006, -1007:
		return 503
	default:
		return 400
	}
}
