package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

// Side of a market order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderRequest describes a market order. Buys are sized in quote currency,
// sells in base currency.
type OrderRequest struct {
	Symbol        string
	Side          Side
	QuoteAmount   decimal.Decimal
	BaseAmount    decimal.Decimal
	ClientOrderID string
}

// OrderResult is the venue's report for an executed market order.
type OrderResult struct {
	OrderID         string
	ExecutedBase    decimal.Decimal
	CumulativeQuote decimal.Decimal
}

// CandleSource fetches closed and forming klines newer than since.
type CandleSource interface {
	FetchKlines(ctx context.Context, symbol, interval string, since time.Time, limit int) ([]types.RawKline, error)
}

// OrderExecutor places market orders.
type OrderExecutor interface {
	PlaceMarketOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
}

// Account reports wallet balances.
type Account interface {
	Balances(ctx context.Context) ([]types.Balance, error)
}

// Client is a full exchange connector.
type Client interface {
	CandleSource
	OrderExecutor
	Account
	Name() string
}

// ClientError is a failed exchange call carrying the HTTP status and the
// venue error code.
type ClientError struct {
	Exchange string
	Status   int
	Code     int64
	Message  string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("%s client error (status %d, code %d): %s", e.Exchange, e.Status, e.Code, e.Message)
}

// HTTPStatus exposes the status code for error categorization.
func (e *ClientError) HTTPStatus() int {
	return e.Status
}

// IntervalDuration converts an exchange interval such as "1m", "15m", "4h"
// or "1d" into a duration.
func IntervalDuration(interval string) (time.Duration, error) {
	switch interval {
	case "1m":
		return time.Minute, nil
	case "3m":
		return 3 * time.Minute, nil
	case "5m":
		return 5 * time.Minute, nil
	case "15m":
		return 15 * time.Minute, nil
	case "30m":
		return 30 * time.Minute, nil
	case "1h":
		return time.Hour, nil
	case "2h":
		return 2 * time.Hour, nil
	case "4h":
		return 4 * time.Hour, nil
	case "6h":
		return 6 * time.Hour, nil
	case "12h":
		return 12 * time.Hour, nil
	case "1d":
		return 24 * time.Hour, nil
	case "1w":
		return 7 * 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("unsupported interval %q", interval)
}
