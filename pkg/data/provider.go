package data

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

// DataManager combines all data operations in a convenient interface
type DataManager struct {
	provider DataProvider
	filter   DataFilter
	locator  FileLocator
}

// NewDataManager creates a new data manager with default components
func NewDataManager() *DataManager {
	return &DataManager{
		provider: NewCachedProvider(NewCSVProvider()),
		filter:   NewDefaultDataFilter(),
		locator:  NewDefaultFileLocator(),
	}
}

// Load reads and validates a dump, then trims it to the trailing period
// (zero keeps everything).
func (dm *DataManager) Load(path string, period time.Duration) ([]types.Candle, error) {
	candles, err := dm.provider.LoadData(path)
	if err != nil {
		return nil, err
	}
	if err := dm.provider.ValidateData(candles); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return dm.filter.FilterByPeriod(candles, period), nil
}

// FilterByDateRange keeps bars opened within [start, end].
func (dm *DataManager) FilterByDateRange(data []types.Candle, start, end time.Time) []types.Candle {
	return dm.filter.FilterByDateRange(data, start, end)
}

// FindDataFile locates data files
func (dm *DataManager) FindDataFile(dataRoot, exchange, symbol, interval string) string {
	return dm.locator.FindDataFile(dataRoot, exchange, symbol, interval)
}

// ParseTrailingPeriod parses period strings like "7d", "30d", "180d"
func ParseTrailingPeriod(s string) (time.Duration, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasSuffix(s, "days") {
		s = strings.TrimSuffix(s, "days") + "d"
	}
	if strings.HasSuffix(s, "d") {
		nStr := strings.TrimSuffix(s, "d")
		if nStr == "" {
			return 0, false
		}
		n, err := strconv.Atoi(nStr)
		if err != nil || n <= 0 {
			return 0, false
		}
		return time.Duration(n) * 24 * time.Hour, true
	}
	// allow raw durations too (e.g., 168h)
	if d, err := time.ParseDuration(s); err == nil {
		return d, true
	}
	return 0, false
}
