package bybit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// InstrumentInfo is the part of a spot instrument needed to size orders.
// Spot instruments report basePrecision; derivatives report qtyStep.
type InstrumentInfo struct {
	Symbol    string `json:"symbol"`
	Status    string `json:"status"`
	BaseCoin  string `json:"baseCoin"`
	QuoteCoin string `json:"quoteCoin"`

	LotSizeFilter struct {
		BasePrecision    string `json:"basePrecision"`
		QuotePrecision   string `json:"quotePrecision"`
		QtyStep          string `json:"qtyStep"`
		MinOrderQty      string `json:"minOrderQty"`
		MaxOrderQty      string `json:"maxOrderQty"`
		MaxMktOrderQty   string `json:"maxMktOrderQty"`
		MinOrderAmt      string `json:"minOrderAmt"`
		MinNotionalValue string `json:"minNotionalValue"`
	} `json:"lotSizeFilter"`
}

// QuantityStep is the base quantity step.
func (ii *InstrumentInfo) QuantityStep() string {
	if ii.LotSizeFilter.QtyStep != "" {
		return ii.LotSizeFilter.QtyStep
	}
	return ii.LotSizeFilter.BasePrecision
}

// MaxMarketQty is the largest base quantity a market order may carry.
func (ii *InstrumentInfo) MaxMarketQty() string {
	if ii.LotSizeFilter.MaxMktOrderQty != "" {
		return ii.LotSizeFilter.MaxMktOrderQty
	}
	return ii.LotSizeFilter.MaxOrderQty
}

// MinAmount is the smallest quote value of an order.
func (ii *InstrumentInfo) MinAmount() string {
	if ii.LotSizeFilter.MinOrderAmt != "" {
		return ii.LotSizeFilter.MinOrderAmt
	}
	return ii.LotSizeFilter.MinNotionalValue
}

// InstrumentManager caches instrument info. Lot rules change rarely, so an
// hourly refresh is enough.
type InstrumentManager struct {
	client         *Client
	instruments    map[string]*InstrumentInfo
	fetched        map[string]time.Time
	mutex          sync.RWMutex
	updateInterval time.Duration
}

// NewInstrumentManager creates a new instrument manager
func NewInstrumentManager(client *Client) *InstrumentManager {
	return &InstrumentManager{
		client:         client,
		instruments:    make(map[string]*InstrumentInfo),
		fetched:        make(map[string]time.Time),
		updateInterval: time.Hour,
	}
}

// GetInstrumentInfo returns cached spot instrument info, fetching it when
// missing or stale.
func (im *InstrumentManager) GetInstrumentInfo(ctx context.Context, symbol string) (*InstrumentInfo, error) {
	im.mutex.RLock()
	instrument, ok := im.instruments[symbol]
	fresh := ok && time.Since(im.fetched[symbol]) < im.updateInterval
	im.mutex.RUnlock()
	if fresh {
		return instrument, nil
	}

	instrument, err := im.client.GetInstrumentInfo(ctx, "spot", symbol)
	if err != nil {
		return nil, err
	}

	im.mutex.Lock()
	im.instruments[symbol] = instrument
	im.fetched[symbol] = time.Now()
	im.mutex.Unlock()
	return instrument, nil
}

// GetInstrumentInfo fetches one instrument from /v5/market/instruments-info.
func (c *Client) GetInstrumentInfo(ctx context.Context, category, symbol string) (*InstrumentInfo, error) {
	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
	}

	var instrument *InstrumentInfo
	err := c.retry(ctx, func() error {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetInstrumentInfo(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch instrument info: %w", err)
		}
		instrument, err = parseInstrumentInfoResponse(result, symbol)
		return err
	})
	if err != nil {
		return nil, err
	}
	return instrument, nil
}

func parseInstrumentInfoResponse(response interface{}, symbol string) (*InstrumentInfo, error) {
	var instrumentResult struct {
		Category string           `json:"category"`
		List     []InstrumentInfo `json:"list"`
	}
	if err := decodeResult(response, &instrumentResult); err != nil {
		return nil, err
	}

	for i := range instrumentResult.List {
		if instrumentResult.List[i].Symbol == symbol {
			return &instrumentResult.List[i], nil
		}
	}
	return nil, fmt.Errorf("instrument %s not found", symbol)
}
