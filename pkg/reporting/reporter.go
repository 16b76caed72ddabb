package reporting

import (
	"io"
	"os"
	"path/filepath"

	"github.com/ducminhle1904/flipside-bot/internal/backtest"
	"github.com/ducminhle1904/flipside-bot/internal/position"
)

// DefaultReporter implements the complete Reporter interface
type DefaultReporter struct {
	console *DefaultConsoleReporter
	csv     *DefaultCSVReporter
	excel   *DefaultExcelReporter
	paths   *DefaultPathManager
}

// NewDefaultReporter creates a reporter printing to stdout
func NewDefaultReporter() *DefaultReporter {
	return NewReporterTo(os.Stdout)
}

// NewReporterTo creates a reporter printing to out
func NewReporterTo(out io.Writer) *DefaultReporter {
	return &DefaultReporter{
		console: NewConsoleReporter(out),
		csv:     NewDefaultCSVReporter(),
		excel:   NewDefaultExcelReporter(),
		paths:   NewDefaultPathManager(),
	}
}

// Console output methods
func (r *DefaultReporter) OutputResults(results *backtest.Results) {
	r.console.OutputResults(results)
}

func (r *DefaultReporter) PrintOrders(orders []position.Order) {
	r.console.PrintOrders(orders)
}

func (r *DefaultReporter) PrintSweep(results []backtest.JobResult) {
	r.console.PrintSweep(results)
}

// File output methods
func (r *DefaultReporter) WriteTradesCSV(results *backtest.Results, path string) error {
	return r.csv.WriteTradesCSV(results, path)
}

func (r *DefaultReporter) WriteOrdersCSV(orders []position.Order, path string) error {
	return r.csv.WriteOrdersCSV(orders, path)
}

func (r *DefaultReporter) WriteTradesXLSX(results *backtest.Results, path string) error {
	return r.excel.WriteTradesXLSX(results, path)
}

func (r *DefaultReporter) WriteResultsJSON(results *backtest.Results, path string) error {
	return WriteResultsJSON(results, path)
}

// Path management methods
func (r *DefaultReporter) GetDefaultOutputDir(symbol, interval string) string {
	return r.paths.GetDefaultOutputDir(symbol, interval)
}

func (r *DefaultReporter) EnsureDirectoryExists(path string) error {
	return r.paths.EnsureDirectoryExists(path)
}

// ReportingManager provides a high-level interface for all reporting needs
type ReportingManager struct {
	reporter *DefaultReporter
	config   ReportingConfig
}

// NewReportingManager creates a new reporting manager with configuration
func NewReportingManager(config ReportingConfig, out io.Writer) *ReportingManager {
	return &ReportingManager{
		reporter: NewReporterTo(out),
		config:   config,
	}
}

// OutputDir is where file reports for symbol and interval go.
func (m *ReportingManager) OutputDir(symbol, interval string) string {
	if m.config.OutputDirectory != "" {
		return m.config.OutputDirectory
	}
	return m.reporter.GetDefaultOutputDir(symbol, interval)
}

// ReportResults outputs results according to configuration and returns the
// files written.
func (m *ReportingManager) ReportResults(results *backtest.Results, interval string) ([]string, error) {
	if m.config.EnableConsole {
		m.reporter.OutputResults(results)
		m.reporter.PrintOrders(results.Orders)
	}
	if !m.config.EnableFiles {
		return nil, nil
	}

	outputDir := m.OutputDir(results.Symbol, interval)
	var written []string

	if m.config.CSVEnabled {
		path := filepath.Join(outputDir, "trades.csv")
		if err := m.reporter.WriteTradesCSV(results, path); err != nil {
			return written, err
		}
		written = append(written, path)

		path = filepath.Join(outputDir, "orders.csv")
		if err := m.reporter.WriteOrdersCSV(results.Orders, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if m.config.ExcelEnabled {
		path := filepath.Join(outputDir, "trades.xlsx")
		if err := m.reporter.WriteTradesXLSX(results, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if m.config.JSONEnabled {
		path := filepath.Join(outputDir, "results.json")
		if err := m.reporter.WriteResultsJSON(results, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	return written, nil
}
