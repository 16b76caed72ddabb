package types

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMalformedKline marks a raw exchange record that cannot be decoded.
	ErrMalformedKline = errors.New("malformed kline")
	// ErrInvalidCandle marks a decoded bar whose prices or volumes are inconsistent.
	ErrInvalidCandle = errors.New("invalid candle")
)

// Candle is one immutable OHLCV bar.
type Candle struct {
	OpenTime       time.Time `json:"open_time"`
	CloseTime      time.Time `json:"close_time"`
	Open           float64   `json:"open"`
	High           float64   `json:"high"`
	Low            float64   `json:"low"`
	Close          float64   `json:"close"`
	Volume         float64   `json:"volume"`
	QuoteVolume    float64   `json:"quote_volume"`
	TradeCount     int64     `json:"trade_count"`
	TakerBuyVolume float64   `json:"taker_buy_volume"`
	TakerBuyQuote  float64   `json:"taker_buy_quote"`
}

// TypicalPrice is the mean of open, high, low and close.
func (c Candle) TypicalPrice() float64 {
	return (c.Open + c.High + c.Low + c.Close) / 4
}

// Validate checks the bar invariants.
func (c Candle) Validate() error {
	switch {
	case !c.CloseTime.After(c.OpenTime):
		return fmt.Errorf("%w: close time %s not after open time %s", ErrInvalidCandle, c.CloseTime, c.OpenTime)
	case c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0:
		return fmt.Errorf("%w: non-positive price", ErrInvalidCandle)
	case c.High < c.Open || c.High < c.Close:
		return fmt.Errorf("%w: high %.8f below open/close", ErrInvalidCandle, c.High)
	case c.Low > c.Open || c.Low > c.Close:
		return fmt.Errorf("%w: low %.8f above open/close", ErrInvalidCandle, c.Low)
	case c.Volume < 0:
		return fmt.Errorf("%w: negative volume", ErrInvalidCandle)
	case c.TradeCount < 0:
		return fmt.Errorf("%w: negative trade count", ErrInvalidCandle)
	case c.TakerBuyVolume < 0 || c.TakerBuyVolume > c.Volume:
		return fmt.Errorf("%w: taker buy volume %.8f outside [0, %.8f]", ErrInvalidCandle, c.TakerBuyVolume, c.Volume)
	}
	return nil
}

// PriceSource selects which price of a bar feeds a rolling window.
type PriceSource string

const (
	PriceClose   PriceSource = "close"
	PriceTypical PriceSource = "typical"
	PriceHL2     PriceSource = "hl2"
)

// Price returns the bar price for the given source. Unknown sources use close.
func (c Candle) Price(src PriceSource) float64 {
	switch src {
	case PriceTypical:
		return c.TypicalPrice()
	case PriceHL2:
		return (c.High + c.Low) / 2
	default:
		return c.Close
	}
}

// Balance is one wallet line reported by an exchange account.
type Balance struct {
	Asset  string
	Free   float64
	Locked float64
}
