package reporting

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/flipside-bot/internal/backtest"
	"github.com/ducminhle1904/flipside-bot/internal/indicators"
	"github.com/ducminhle1904/flipside-bot/internal/position"
	"github.com/ducminhle1904/flipside-bot/internal/strategy"
	"github.com/ducminhle1904/flipside-bot/internal/tracker"
	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

func dipCandles() []types.Candle {
	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	overrides := map[int]float64{23: 95, 24: 88, 25: 80, 26: 84, 27: 90, 28: 95, 29: 98, 30: 100, 38: 120, 39: 112}
	out := make([]types.Candle, 50)
	for i := range out {
		c := 95.0
		if i%2 == 1 {
			c = 105
		}
		if v, ok := overrides[i]; ok {
			c = v
		}
		openTime := epoch.Add(time.Duration(i) * time.Hour)
		out[i] = types.Candle{
			OpenTime:  openTime,
			CloseTime: openTime.Add(time.Hour - time.Millisecond),
			Open:      c,
			High:      c * 1.01,
			Low:       c * 0.99,
			Close:     c,
			Volume:    10,
		}
	}
	return out
}

func dipConfig(window int) tracker.Config {
	return tracker.Config{
		Symbol:   "BTCUSDT",
		Capacity: 20,
		Bank: indicators.BankConfig{
			WindowIndex:       window,
			BandFactor:        2,
			BandSource:        types.PriceClose,
			DirectionalPeriod: indicators.DefaultDirectionalPeriod,
		},
		Strategy: strategy.Descriptor{
			SignalTTL: 5,
			Quorum:    1,
			Rules:     []strategy.RuleSpec{{Kind: strategy.KindBand}},
		},
		Position: position.Config{
			Budget:        decimal.NewFromInt(1000),
			Commission:    decimal.NewFromFloat(0.001),
			SpendFraction: decimal.NewFromInt(1),
			StopLoss:      decimal.NewFromFloat(0.05),
		},
	}
}

func runDip(t *testing.T) *backtest.Results {
	t.Helper()
	results, err := backtest.NewEngine(dipConfig(4), nil).Run(context.Background(), dipCandles())
	require.NoError(t, err)
	require.Len(t, results.Trades, 1)
	return results
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)
	return records
}

func TestReportResults_WritesAllFiles(t *testing.T) {
	results := runDip(t)
	dir := t.TempDir()

	var out bytes.Buffer
	m := NewReportingManager(ReportingConfig{
		EnableConsole:   true,
		EnableFiles:     true,
		OutputDirectory: dir,
		CSVEnabled:      true,
		ExcelEnabled:    true,
		JSONEnabled:     true,
	}, &out)

	written, err := m.ReportResults(results, "1h")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "trades.csv"),
		filepath.Join(dir, "orders.csv"),
		filepath.Join(dir, "trades.xlsx"),
		filepath.Join(dir, "results.json"),
	}, written)

	assert.Contains(t, out.String(), "BACKTEST RESULTS BTCUSDT")
	assert.Contains(t, out.String(), "ORDERS")

	trades := readCSV(t, written[0])
	require.Len(t, trades, 3)
	assert.Equal(t, "Trade", trades[0][0])
	assert.Equal(t, "84.00000000", trades[1][3])
	assert.Equal(t, "112.00000000", trades[1][4])
	assert.Equal(t, "signal", trades[1][10])
	assert.Contains(t, trades[2][10], "SUMMARY")

	orders := readCSV(t, written[1])
	require.Len(t, orders, 3)
	assert.Equal(t, []string{"id", "action", "time", "price", "base", "quote", "profit", "forced"}, orders[0])
	assert.Equal(t, "BUY", orders[1][1])
	assert.Equal(t, "84", orders[1][3])
	assert.Equal(t, "SELL", orders[2][1])
	assert.Equal(t, "false", orders[2][7])
}

func TestReportResults_ConsoleOnly(t *testing.T) {
	var out bytes.Buffer
	m := NewReportingManager(ReportingConfig{EnableConsole: true}, &out)

	written, err := m.ReportResults(runDip(t), "1h")
	require.NoError(t, err)
	assert.Empty(t, written)
	assert.NotEmpty(t, out.String())
}

func TestWriteTradesXLSX(t *testing.T) {
	results := runDip(t)
	path := filepath.Join(t.TempDir(), "nested", "trades.xlsx")
	require.NoError(t, WriteTradesXLSX(results, path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	assert.Equal(t, []string{summarySheet, tradesSheet, ordersSheet, frameSheet}, fx.GetSheetList())

	v, err := fx.GetCellValue(summarySheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", v)

	v, err = fx.GetCellValue(ordersSheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, results.Orders[0].ID, v)

	v, err = fx.GetCellValue(tradesSheet, "K2")
	require.NoError(t, err)
	assert.Equal(t, "signal", v)

	v, err = fx.GetCellValue(frameSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "time", v)

	rows, err := fx.GetRows(frameSheet)
	require.NoError(t, err)
	assert.Len(t, rows, len(dipCandles())+1)
}

func TestWriteTradesXLSX_WithoutFrame(t *testing.T) {
	results := runDip(t)
	results.Frame = nil
	path := filepath.Join(t.TempDir(), "trades.xlsx")
	require.NoError(t, NewDefaultExcelReporter().WriteTradesXLSX(results, path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()
	assert.NotContains(t, fx.GetSheetList(), frameSheet)
}

func TestWriteTradesCSV_DelegatesXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.XLSX")
	require.NoError(t, NewDefaultCSVReporter().WriteTradesCSV(runDip(t), path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	fx.Close()
}

func TestWriteResultsJSON(t *testing.T) {
	results := runDip(t)
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, WriteResultsJSON(results, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "BTCUSDT", decoded["Symbol"])
	assert.NotContains(t, decoded, "Frame")
	assert.Len(t, decoded["Orders"], 2)
	// a single winning trade has an unbounded profit factor
	assert.Greater(t, decoded["ProfitFactor"].(float64), 1e300)
}

func TestPrintSweep_RanksByReturn(t *testing.T) {
	var out bytes.Buffer
	r := NewConsoleReporter(&out)

	r.PrintSweep([]backtest.JobResult{
		{ID: "broken", Config: dipConfig(2), Error: errors.New("no data")},
		{ID: "low", Config: dipConfig(3), Results: &backtest.Results{TotalReturn: 0.01, WinRate: 50}},
		{ID: "high", Config: dipConfig(4), Results: &backtest.Results{TotalReturn: 0.33, WinRate: 100}},
	})

	s := out.String()
	high, low, broken := bytes.Index(out.Bytes(), []byte("high")), bytes.Index(out.Bytes(), []byte("low")), bytes.Index(out.Bytes(), []byte("broken"))
	assert.Less(t, high, low)
	assert.Less(t, low, broken)
	assert.Contains(t, s, "33.00%")
	assert.Contains(t, s, "100.0%")
	assert.Contains(t, s, "error: no data")
}

func TestPrintOrders_Empty(t *testing.T) {
	var out bytes.Buffer
	NewConsoleReporter(&out).PrintOrders(nil)
	assert.Equal(t, "No orders.\n", out.String())
}

func TestExtractIntervalFromPath(t *testing.T) {
	tests := map[string]string{
		"data/binance/spot/BTCUSDT/15m/candles.csv": "15m",
		"data/BTCUSDT_1h.csv":                       "1h",
		"data/BTCUSDT/4h":                           "4h",
		"candles.csv":                               "",
		"":                                          "",
	}
	for path, want := range tests {
		assert.Equal(t, want, ExtractIntervalFromPath(path), path)
	}
}

func TestDefaultOutputDir(t *testing.T) {
	p := NewDefaultPathManager()
	assert.Equal(t, filepath.Join("results", "BTCUSDT_15m"), p.GetDefaultOutputDir("btcusdt", "15M"))
	assert.Equal(t, filepath.Join("results", "UNKNOWN_unknown"), p.GetDefaultOutputDir("", ""))

	m := NewReportingManager(ReportingConfig{OutputDirectory: "out"}, &bytes.Buffer{})
	assert.Equal(t, "out", m.OutputDir("BTCUSDT", "1h"))
}
