package reporting

import (
	"github.com/ducminhle1904/flipside-bot/internal/backtest"
	"github.com/ducminhle1904/flipside-bot/internal/position"
)

// Package reporting provides output generation for trading bot results

// ConsoleReporter defines interface for console output
type ConsoleReporter interface {
	OutputResults(results *backtest.Results)
	PrintOrders(orders []position.Order)
	PrintSweep(results []backtest.JobResult)
}

// FileReporter defines interface for file output
type FileReporter interface {
	WriteTradesCSV(results *backtest.Results, path string) error
	WriteTradesXLSX(results *backtest.Results, path string) error
	WriteResultsJSON(results *backtest.Results, path string) error
}

// PathManager defines interface for output path management
type PathManager interface {
	GetDefaultOutputDir(symbol, interval string) string
	EnsureDirectoryExists(path string) error
}

// Reporter combines all reporting interfaces
type Reporter interface {
	ConsoleReporter
	FileReporter
	PathManager
}

// ExcelStyles holds Excel formatting styles
type ExcelStyles struct {
	HeaderStyle   int
	CurrencyStyle int
	PriceStyle    int
	PercentStyle  int
	BaseStyle     int
	EntryStyle    int
	ExitStyle     int
	ForcedStyle   int
	TimeStyle     int
}

// ReportingConfig holds configuration for reporting
type ReportingConfig struct {
	EnableConsole   bool
	EnableFiles     bool
	OutputDirectory string // empty means results/<SYMBOL>_<interval>
	ExcelEnabled    bool
	CSVEnabled      bool
	JSONEnabled     bool
}
