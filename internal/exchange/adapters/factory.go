package adapters

import (
	"fmt"
	"strings"

	"github.com/ducminhle1904/flipside-bot/internal/exchange"
	"github.com/ducminhle1904/flipside-bot/internal/exchange/bybit"
)

// Supported exchange names
const (
	ExchangeBinance = "binance"
	ExchangeBybit   = "bybit"
)

// ClientConfig selects and authenticates one exchange connector.
type ClientConfig struct {
	Name      string
	APIKey    string
	APISecret string
	Testnet   bool
	Demo      bool
}

// NewClient creates the connector named in cfg.
func NewClient(cfg ClientConfig) (exchange.Client, error) {
	switch strings.ToLower(cfg.Name) {
	case ExchangeBinance:
		client, err := NewBinanceAdapter(cfg.APIKey, cfg.APISecret, cfg.Testnet)
		if err != nil {
			return nil, err
		}
		return client, nil
	case ExchangeBybit:
		return NewBybitAdapter(bybit.Config{
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
			Testnet:   cfg.Testnet,
			Demo:      cfg.Demo,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported exchange: %s (supported: %s, %s)", cfg.Name, ExchangeBinance, ExchangeBybit)
	}
}

// SupportedExchanges returns the list of supported exchange names
func SupportedExchanges() []string {
	return []string{ExchangeBinance, ExchangeBybit}
}
