package data

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultFileLocator implements FileLocator for standard file system operations
type DefaultFileLocator struct{}

// NewDefaultFileLocator creates a new default file locator
func NewDefaultFileLocator() *DefaultFileLocator {
	return &DefaultFileLocator{}
}

// DataPath is where a kline dump for one pair is stored:
// {root}/{exchange}/spot/{SYMBOL}/{interval}/candles.csv
func DataPath(dataRoot, exchange, symbol, interval string) string {
	return filepath.Join(dataRoot, strings.ToLower(exchange), "spot", strings.ToUpper(symbol), interval, "candles.csv")
}

// FindDataFile returns the dump for the pair, or "" when none exists. A
// top-level {SYMBOL}_{interval}.csv is accepted as well.
func (f *DefaultFileLocator) FindDataFile(dataRoot, exchange, symbol, interval string) string {
	candidates := []string{
		DataPath(dataRoot, exchange, symbol, interval),
		filepath.Join(dataRoot, strings.ToUpper(symbol)+"_"+interval+".csv"),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
