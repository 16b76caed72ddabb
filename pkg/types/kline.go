package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// KlineFields is the arity of an exchange kline record.
const KlineFields = 12

// RawKline is one exchange kline tuple:
// open_time_ms, open, high, low, close, volume, close_time_ms, quote_volume,
// trade_count, taker_buy_base_volume, taker_buy_quote_volume, ignored.
// Elements may be strings, float64, int64 or json.Number.
type RawKline []interface{}

// ParseKline decodes and validates one raw record.
func ParseKline(raw RawKline) (Candle, error) {
	if len(raw) != KlineFields {
		return Candle{}, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedKline, KlineFields, len(raw))
	}

	var (
		c   Candle
		err error
		ms  int64
	)

	if ms, err = intField(raw, 0); err != nil {
		return Candle{}, err
	}
	c.OpenTime = time.UnixMilli(ms).UTC()
	if ms, err = intField(raw, 6); err != nil {
		return Candle{}, err
	}
	c.CloseTime = time.UnixMilli(ms).UTC()

	floats := []struct {
		idx int
		dst *float64
	}{
		{1, &c.Open}, {2, &c.High}, {3, &c.Low}, {4, &c.Close},
		{5, &c.Volume}, {7, &c.QuoteVolume}, {9, &c.TakerBuyVolume}, {10, &c.TakerBuyQuote},
	}
	for _, f := range floats {
		if *f.dst, err = floatField(raw, f.idx); err != nil {
			return Candle{}, err
		}
	}
	if c.TradeCount, err = intField(raw, 8); err != nil {
		return Candle{}, err
	}

	if err := c.Validate(); err != nil {
		return Candle{}, err
	}
	return c, nil
}

// ParseKlines decodes a whole batch, failing on the first bad record.
func ParseKlines(raws []RawKline) ([]Candle, error) {
	out := make([]Candle, 0, len(raws))
	for i, raw := range raws {
		c, err := ParseKline(raw)
		if err != nil {
			return nil, fmt.Errorf("kline %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// ToRaw encodes the bar back into the exchange tuple layout.
func (c Candle) ToRaw() RawKline {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return RawKline{
		c.OpenTime.UnixMilli(),
		f(c.Open), f(c.High), f(c.Low), f(c.Close), f(c.Volume),
		c.CloseTime.UnixMilli(),
		f(c.QuoteVolume),
		c.TradeCount,
		f(c.TakerBuyVolume), f(c.TakerBuyQuote),
		"0",
	}
}

func decimalField(raw RawKline, idx int) (decimal.Decimal, error) {
	switch v := raw[idx].(type) {
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: field %d: %v", ErrMalformedKline, idx, err)
		}
		return d, nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: field %d: %v", ErrMalformedKline, idx, err)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: field %d has type %T", ErrMalformedKline, idx, v)
	}
}

func floatField(raw RawKline, idx int) (float64, error) {
	d, err := decimalField(raw, idx)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

func intField(raw RawKline, idx int) (int64, error) {
	d, err := decimalField(raw, idx)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("%w: field %d is not an integer", ErrMalformedKline, idx)
	}
	return d.IntPart(), nil
}
