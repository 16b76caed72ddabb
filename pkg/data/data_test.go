package data

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/flipside-bot/internal/series"
	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

var epoch = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func generateTestData(n int) []types.Candle {
	out := make([]types.Candle, n)
	for i := range out {
		price := 100 + float64(i%10)
		open := epoch.Add(time.Duration(i) * time.Hour)
		out[i] = types.Candle{
			OpenTime:    open,
			CloseTime:   open.Add(time.Hour - time.Millisecond),
			Open:        price,
			High:        price + 1,
			Low:         price - 1,
			Close:       price + 0.5,
			Volume:      10,
			QuoteVolume: 1000,
			TradeCount:  42,
		}
	}
	return out
}

const binanceRows = `1709251200000,61000.1,61200.0,60900.5,61100.0,12.5,1709254799999,763000.0,900,6.1,372000.0,0
1709254800000,61100.0,61300.0,61050.0,61250.0,10.0,1709258399999,612000.0,800,5.0,306000.0,0
`

func TestCSVProvider_Read(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"without header", binanceRows},
		{"with header", strings.Join(header, ",") + "\n" + binanceRows},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candles, err := NewCSVProvider().Read(strings.NewReader(tt.input))
			require.NoError(t, err)
			require.Len(t, candles, 2)
			assert.Equal(t, time.UnixMilli(1709251200000).UTC(), candles[0].OpenTime)
			assert.Equal(t, 61100.0, candles[0].Close)
			assert.Equal(t, int64(800), candles[1].TradeCount)
		})
	}
}

func TestCSVProvider_RejectsMalformedRows(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"short row", "1709251200000,1,2,0.5,1.5,10\n", types.ErrMalformedKline},
		{"bad number", strings.Replace(binanceRows, "61200.0", "abc", 1), types.ErrMalformedKline},
		{"high below close", strings.Replace(binanceRows, "61200.0", "61000.5", 1), types.ErrInvalidCandle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCSVProvider().Read(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "line 1")
		})
	}
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "candles.csv")
	data := generateTestData(24)
	require.NoError(t, WriteCSV(path, data))

	loaded, err := NewCSVProvider().LoadData(path)
	require.NoError(t, err)
	assert.Equal(t, data, loaded)
}

func TestValidateData(t *testing.T) {
	p := NewCSVProvider()
	data := generateTestData(5)
	assert.NoError(t, p.ValidateData(data))

	assert.ErrorIs(t, p.ValidateData(nil), series.ErrEmptyFeed)

	dup := append([]types.Candle(nil), data...)
	dup[3] = dup[2]
	assert.ErrorIs(t, p.ValidateData(dup), series.ErrNonMonotonic)

	swapped := append([]types.Candle(nil), data...)
	swapped[1], swapped[2] = swapped[2], swapped[1]
	assert.ErrorIs(t, p.ValidateData(swapped), series.ErrNonMonotonic)
}

func TestFilters(t *testing.T) {
	f := NewDefaultDataFilter()
	data := generateTestData(48)

	lastDay := f.FilterByPeriod(data, 24*time.Hour)
	assert.Len(t, lastDay, 24)
	assert.Equal(t, data[24].OpenTime, lastDay[0].OpenTime)
	assert.Len(t, f.FilterByPeriod(data, 0), 48)

	ranged := f.FilterByDateRange(data, epoch.Add(10*time.Hour), epoch.Add(19*time.Hour))
	assert.Len(t, ranged, 10)
	assert.Len(t, f.FilterByDateRange(data, time.Time{}, epoch.Add(4*time.Hour)), 5)
}

func TestDataManager_Load(t *testing.T) {
	root := t.TempDir()
	path := DataPath(root, "Binance", "btcusdt", "1h")
	require.NoError(t, WriteCSV(path, generateTestData(72)))

	dm := NewDataManager()
	found := dm.FindDataFile(root, "binance", "BTCUSDT", "1h")
	assert.Equal(t, path, found)
	assert.Empty(t, dm.FindDataFile(root, "bybit", "BTCUSDT", "1h"))

	candles, err := dm.Load(found, 48*time.Hour)
	require.NoError(t, err)
	assert.Len(t, candles, 48)

	require.NoError(t, os.Remove(path))
	cached, err := dm.Load(found, 0)
	require.NoError(t, err, "second load is served from cache")
	assert.Len(t, cached, 72)
}

func TestParseTrailingPeriod(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"7d", 7 * 24 * time.Hour, true},
		{"30days", 30 * 24 * time.Hour, true},
		{"168h", 168 * time.Hour, true},
		{"d", 0, false},
		{"-3d", 0, false},
		{"soon", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseTrailingPeriod(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
