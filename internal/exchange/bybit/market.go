package bybit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// KlineInterval represents the time interval for kline data
type KlineInterval string

const (
	Interval1m  KlineInterval = "1"
	Interval3m  KlineInterval = "3"
	Interval5m  KlineInterval = "5"
	Interval15m KlineInterval = "15"
	Interval30m KlineInterval = "30"
	Interval1h  KlineInterval = "60"
	Interval2h  KlineInterval = "120"
	Interval4h  KlineInterval = "240"
	Interval6h  KlineInterval = "360"
	Interval12h KlineInterval = "720"
	Interval1d  KlineInterval = "D"
	Interval1w  KlineInterval = "W"
)

var intervalNames = map[string]KlineInterval{
	"1m": Interval1m, "3m": Interval3m, "5m": Interval5m, "15m": Interval15m, "30m": Interval30m,
	"1h": Interval1h, "2h": Interval2h, "4h": Interval4h, "6h": Interval6h, "12h": Interval12h,
	"1d": Interval1d, "1w": Interval1w,
}

// ParseInterval converts names like "15m" into Bybit intervals.
func ParseInterval(name string) (KlineInterval, error) {
	if iv, ok := intervalNames[name]; ok {
		return iv, nil
	}
	return "", fmt.Errorf("unsupported interval %q", name)
}

// Kline represents a single kline/candlestick data point. Prices are kept as
// the decimal strings Bybit returns.
type Kline struct {
	StartTime time.Time
	Open      string
	High      string
	Low       string
	Close     string
	Volume    string
	Turnover  string
}

// KlineParams holds parameters for fetching kline data
type KlineParams struct {
	Category string        // "spot", "linear", "inverse"
	Symbol   string        // Trading pair symbol (e.g., "BTCUSDT")
	Interval KlineInterval // Time interval
	Start    *time.Time    // Start time (optional)
	Limit    int           // Number of records to return (max 1000, default 200)
}

// GetKlines fetches klines oldest first.
func (c *Client) GetKlines(ctx context.Context, params KlineParams) ([]Kline, error) {
	if params.Category == "" {
		params.Category = "spot"
	}
	if params.Limit == 0 {
		params.Limit = 200
	}
	if params.Limit > 1000 {
		params.Limit = 1000
	}

	reqParams := map[string]interface{}{
		"category": params.Category,
		"symbol":   params.Symbol,
		"interval": string(params.Interval),
		"limit":    params.Limit,
	}
	if params.Start != nil {
		reqParams["start"] = params.Start.UnixMilli()
	}

	var klines []Kline
	err := c.retry(ctx, func() error {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(reqParams).GetMarketKline(ctx)
		if err != nil {
			return fmt.Errorf("failed to get klines: %w", err)
		}
		klines, err = parseKlineResponse(result)
		return err
	})
	if err != nil {
		return nil, err
	}
	return klines, nil
}

// parseKlineResponse decodes the list and reorders it oldest first, since
// Bybit returns the newest kline first.
func parseKlineResponse(response interface{}) ([]Kline, error) {
	var klineResult struct {
		Symbol   string     `json:"symbol"`
		Category string     `json:"category"`
		List     [][]string `json:"list"`
	}
	if err := decodeResult(response, &klineResult); err != nil {
		return nil, err
	}

	klines := make([]Kline, 0, len(klineResult.List))
	for _, item := range klineResult.List {
		// [startTime, openPrice, highPrice, lowPrice, closePrice, volume, turnover]
		if len(item) < 7 {
			return nil, fmt.Errorf("kline has %d fields, want 7", len(item))
		}
		start, err := decimal.NewFromString(item[0])
		if err != nil {
			return nil, fmt.Errorf("bad kline start time %q: %w", item[0], err)
		}
		klines = append(klines, Kline{
			StartTime: time.UnixMilli(start.IntPart()).UTC(),
			Open:      item[1],
			High:      item[2],
			Low:       item[3],
			Close:     item[4],
			Volume:    item[5],
			Turnover:  item[6],
		})
	}

	sort.Slice(klines, func(i, j int) bool { return klines[i].StartTime.Before(klines[j].StartTime) })
	return klines, nil
}
