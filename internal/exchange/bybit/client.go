package bybit

import (
	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

const demoURL = "https://api-demo.bybit.com"

// Client wraps the Bybit API client for spot trading.
type Client struct {
	httpClient *bybit_api.Client
	testnet    bool
	demo       bool
	retryCfg   RetryConfig
}

// Config holds the configuration for the Bybit client
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
	Demo      bool // Demo trading environment
}

// NewClient creates a new Bybit client
func NewClient(config Config) *Client {
	var baseURL string
	switch {
	case config.Demo:
		baseURL = demoURL
	case config.Testnet:
		baseURL = bybit_api.TESTNET
	default:
		baseURL = bybit_api.MAINNET
	}

	httpClient := bybit_api.NewBybitHttpClient(
		config.APIKey,
		config.APISecret,
		bybit_api.WithBaseURL(baseURL),
	)

	return &Client{
		httpClient: httpClient,
		testnet:    config.Testnet,
		demo:       config.Demo,
		retryCfg:   DefaultRetryConfig(),
	}
}

// GetEnvironment returns a string describing the current environment
func (c *Client) GetEnvironment() string {
	switch {
	case c.demo:
		return "demo"
	case c.testnet:
		return "testnet"
	default:
		return "mainnet"
	}
}
