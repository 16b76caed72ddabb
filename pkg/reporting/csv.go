package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ducminhle1904/flipside-bot/internal/backtest"
	"github.com/ducminhle1904/flipside-bot/internal/position"
)

const timeLayout = "2006-01-02 15:04:05"

// DefaultCSVReporter implements CSV output functionality
type DefaultCSVReporter struct{}

// NewDefaultCSVReporter creates a new CSV reporter
func NewDefaultCSVReporter() *DefaultCSVReporter {
	return &DefaultCSVReporter{}
}

func createCSV(path string) (*os.File, *csv.Writer, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, csv.NewWriter(f), nil
}

// WriteTradesCSV writes one row per closed BUY→SELL pair followed by a
// summary row. An .xlsx path is delegated to the Excel writer.
func (r *DefaultCSVReporter) WriteTradesCSV(results *backtest.Results, path string) error {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return NewDefaultExcelReporter().WriteTradesXLSX(results, path)
	}

	f, w, err := createCSV(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := w.Write([]string{
		"Trade",
		"Entry_Time",
		"Exit_Time",
		"Entry_Price",
		"Exit_Price",
		"Quantity",
		"Cost_$",
		"Proceeds_$",
		"Trade_PnL_$",
		"Return_%",
		"Exit",
	}); err != nil {
		return err
	}

	var totalPnL float64
	for i, t := range results.Trades {
		totalPnL += t.PnL
		ret := 0.0
		if t.Cost > 0 {
			ret = t.PnL / t.Cost * 100
		}
		exit := "signal"
		if t.Forced {
			exit = "stop-loss"
		}
		row := []string{
			strconv.Itoa(i + 1),
			t.EntryTime.Format(timeLayout),
			t.ExitTime.Format(timeLayout),
			fmt.Sprintf("%.8f", t.EntryPrice),
			fmt.Sprintf("%.8f", t.ExitPrice),
			fmt.Sprintf("%.8f", t.Quantity),
			fmt.Sprintf("%.2f", t.Cost),
			fmt.Sprintf("%.2f", t.Proceeds),
			fmt.Sprintf("%.2f", t.PnL),
			fmt.Sprintf("%.2f", ret),
			exit,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	summary := fmt.Sprintf("SUMMARY: total_pnl=$%.2f; total_return=%.2f%%; win_rate=%.1f%%; total_trades=%d",
		totalPnL, results.TotalReturn*100, results.WinRate, len(results.Trades))
	summaryRow := make([]string, 11)
	summaryRow[10] = summary
	if err := w.Write(summaryRow); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

// WriteOrdersCSV writes the raw order history.
func (r *DefaultCSVReporter) WriteOrdersCSV(orders []position.Order, path string) error {
	f, w, err := createCSV(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := w.Write([]string{"id", "action", "time", "price", "base", "quote", "profit", "forced"}); err != nil {
		return err
	}
	for _, o := range orders {
		if err := w.Write([]string{
			o.ID,
			o.Action.String(),
			o.Time.UTC().Format(timeLayout),
			o.Price.String(),
			o.Base.String(),
			o.Quote.String(),
			o.Profit.String(),
			strconv.FormatBool(o.Forced),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
