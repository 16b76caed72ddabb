package data

import (
	"time"

	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

// DataProvider interface for loading historical data from various sources
type DataProvider interface {
	// LoadData loads historical data from the specified source
	LoadData(source string) ([]types.Candle, error)

	// ValidateData validates the integrity of the loaded data
	ValidateData(data []types.Candle) error

	// GetName returns the name of the data provider
	GetName() string
}

// DataCache interface for caching loaded data
type DataCache interface {
	Get(key string) ([]types.Candle, bool)
	Set(key string, data []types.Candle)
	Clear()
	Size() int
}

// DataFilter interface for filtering data
type DataFilter interface {
	// FilterByPeriod keeps the trailing period ending at the last close
	FilterByPeriod(data []types.Candle, period time.Duration) []types.Candle

	// FilterByDateRange keeps bars opened within [start, end]
	FilterByDateRange(data []types.Candle, start, end time.Time) []types.Candle

	// ValidateTimeSequence ensures close times strictly increase
	ValidateTimeSequence(data []types.Candle) error
}

// FileLocator interface for finding data files
type FileLocator interface {
	// FindDataFile attempts to locate data files for a specific exchange and symbol
	FindDataFile(dataRoot, exchange, symbol, interval string) string
}
