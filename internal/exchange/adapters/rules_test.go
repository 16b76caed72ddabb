package adapters

import (
	"testing"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/ducminhle1904/flipside-bot/internal/exchange/bybit"
)

func TestBinanceRules(t *testing.T) {
	rules := binanceRules(&binance.Symbol{
		Symbol:              "BTCUSDT",
		QuoteAssetPrecision: 8,
		Filters: []map[string]interface{}{
			{"filterType": "PRICE_FILTER", "tickSize": "0.01000000"},
			{"filterType": "LOT_SIZE", "minQty": "0.00001000", "maxQty": "9000.00000000", "stepSize": "0.00001000"},
			{"filterType": "NOTIONAL", "minNotional": "5.00000000", "applyMinToMarket": true},
		},
	})

	assert.Equal(t, "BTCUSDT", rules.Symbol)
	assert.Equal(t, "0.00001", rules.BaseStep.String())
	assert.Equal(t, "0.00001", rules.MinBase.String())
	assert.Equal(t, "9000", rules.MaxBase.String())
	assert.Equal(t, "0.00000001", rules.QuoteStep.String())
	assert.Equal(t, "5", rules.MinNotional.String())
	assert.Equal(t, "0.02311", rules.RoundBase(decimal.RequireFromString("0.02311686")).String())
}

func TestBinanceRules_WithoutFilters(t *testing.T) {
	rules := binanceRules(&binance.Symbol{Symbol: "ETHBTC", QuoteAssetPrecision: 8})
	assert.True(t, rules.BaseStep.IsZero())
	assert.True(t, rules.MinNotional.IsZero())
	assert.Equal(t, "0.00000001", rules.QuoteStep.String())
}

func TestBybitRules(t *testing.T) {
	info := &bybit.InstrumentInfo{Symbol: "BTCUSDT"}
	info.LotSizeFilter.BasePrecision = "0.000001"
	info.LotSizeFilter.QuotePrecision = "0.00000001"
	info.LotSizeFilter.MinOrderQty = "0.000048"
	info.LotSizeFilter.MaxOrderQty = "71.73956243"
	info.LotSizeFilter.MaxMktOrderQty = "2.5"
	info.LotSizeFilter.MinOrderAmt = "1"

	rules := bybitRules(info)
	assert.Equal(t, "0.000001", rules.BaseStep.String(), "spot falls back to basePrecision")
	assert.Equal(t, "0.000048", rules.MinBase.String())
	assert.Equal(t, "2.5", rules.MaxBase.String(), "market orders use the market cap")
	assert.Equal(t, "0.00000001", rules.QuoteStep.String())
	assert.Equal(t, "1", rules.MinNotional.String())

	info.LotSizeFilter.QtyStep = "0.001"
	assert.Equal(t, "0.001", bybitRules(info).BaseStep.String())
}
