package bybit

import (
	"context"
	"fmt"
)

// OrderSide represents the side of an order
type OrderSide string

const (
	OrderSideBuy  OrderSide = "Buy"
	OrderSideSell OrderSide = "Sell"
)

// Order is the subset of order fields the tracker needs.
type Order struct {
	OrderID      string `json:"orderId"`
	OrderLinkID  string `json:"orderLinkId"`
	Symbol       string `json:"symbol"`
	Side         string `json:"side"`
	OrderStatus  string `json:"orderStatus"`
	CumExecQty   string `json:"cumExecQty"`
	CumExecValue string `json:"cumExecValue"`
	AvgPrice     string `json:"avgPrice"`
}

// PlaceSpotMarketOrder places a spot market order. Buys are sized in quote
// coin, sells in base coin. The returned order carries the executed amounts.
func (c *Client) PlaceSpotMarketOrder(ctx context.Context, symbol string, side OrderSide, qty, linkID string) (*Order, error) {
	if symbol == "" || qty == "" {
		return nil, fmt.Errorf("symbol and qty are required")
	}

	marketUnit := "baseCoin"
	if side == OrderSideBuy {
		marketUnit = "quoteCoin"
	}

	apiParams := map[string]interface{}{
		"category":   "spot",
		"symbol":     symbol,
		"side":       string(side),
		"orderType":  "Market",
		"qty":        qty,
		"marketUnit": marketUnit,
	}
	if linkID != "" {
		apiParams["orderLinkId"] = linkID
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(apiParams).PlaceOrder(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	var placed struct {
		OrderID     string `json:"orderId"`
		OrderLinkID string `json:"orderLinkId"`
	}
	if err := decodeResult(result, &placed); err != nil {
		return nil, err
	}

	return c.GetOrder(ctx, symbol, placed.OrderID)
}

// GetOrder looks an order up in the order history.
func (c *Client) GetOrder(ctx context.Context, symbol, orderID string) (*Order, error) {
	params := map[string]interface{}{
		"category": "spot",
		"symbol":   symbol,
		"orderId":  orderID,
	}

	var found *Order
	err := c.retry(ctx, func() error {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetOrderHistory(ctx)
		if err != nil {
			return fmt.Errorf("failed to get order history: %w", err)
		}
		var history struct {
			List []Order `json:"list"`
		}
		if err := decodeResult(result, &history); err != nil {
			return err
		}
		for i := range history.List {
			if history.List[i].OrderID == orderID {
				found = &history.List[i]
				return nil
			}
		}
		return &BybitError{Code: ErrCodeOrderNotFound, Message: "order " + orderID + " not found"}
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}
