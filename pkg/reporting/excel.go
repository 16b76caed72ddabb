package reporting

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/ducminhle1904/flipside-bot/internal/backtest"
	"github.com/ducminhle1904/flipside-bot/internal/indicators"
	"github.com/ducminhle1904/flipside-bot/internal/position"
	"github.com/ducminhle1904/flipside-bot/internal/strategy"
	"github.com/xuri/excelize/v2"
)

const (
	ordersSheet  = "Orders"
	tradesSheet  = "Trades"
	summarySheet = "Summary"
	frameSheet   = "Frame"
)

// chartColumns are the frame series plotted on the price chart.
var chartColumns = []string{
	indicators.ColClose,
	indicators.ColUpper,
	indicators.ColLower,
	indicators.ColMean,
}

// DefaultExcelReporter implements Excel output functionality
type DefaultExcelReporter struct{}

// NewDefaultExcelReporter creates a new Excel reporter
func NewDefaultExcelReporter() *DefaultExcelReporter {
	return &DefaultExcelReporter{}
}

// WriteTradesXLSX writes a workbook with the order history, the paired
// trades, a summary and, when the run kept its indicator frame, the frame
// itself with a price chart.
func (r *DefaultExcelReporter) WriteTradesXLSX(results *backtest.Results, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	if err := fx.SetSheetName(fx.GetSheetName(0), summarySheet); err != nil {
		return err
	}
	for _, name := range []string{tradesSheet, ordersSheet} {
		if _, err := fx.NewSheet(name); err != nil {
			return err
		}
	}

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeSummarySheet(fx, summarySheet, results, styles); err != nil {
		return err
	}
	if err := r.writeTradesSheet(fx, tradesSheet, results, styles); err != nil {
		return err
	}
	if err := r.writeOrdersSheet(fx, ordersSheet, results, styles); err != nil {
		return err
	}

	if results.Frame != nil && results.Frame.Len() > 0 {
		if _, err := fx.NewSheet(frameSheet); err != nil {
			return err
		}
		if err := r.writeFrameSheet(fx, frameSheet, results.Frame, styles); err != nil {
			return err
		}
	}

	return fx.SaveAs(path)
}

func (r *DefaultExcelReporter) createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	lightBorder := []excelize.Border{
		{Type: "left", Color: "E0E0E0", Style: 1},
		{Type: "right", Color: "E0E0E0", Style: 1},
		{Type: "bottom", Color: "E0E0E0", Style: 1},
	}

	// Dark slate header with white text
	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:   true,
			Size:   11,
			Color:  "FFFFFF",
			Family: "Calibri",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"2F4F4F"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	styles.CurrencyStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    7,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    lightBorder,
	})
	if err != nil {
		return styles, err
	}

	priceFmt := "0.00000000"
	styles.PriceStyle, err = fx.NewStyle(&excelize.Style{
		CustomNumFmt: &priceFmt,
		Alignment:    &excelize.Alignment{Horizontal: "right"},
		Border:       lightBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.PercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    10,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    lightBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.BaseStyle, err = fx.NewStyle(&excelize.Style{Border: lightBorder})
	if err != nil {
		return styles, err
	}

	// Light blue for entries
	styles.EntryStyle, err = fx.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E6F3FF"}, Pattern: 1},
		Border: lightBorder,
	})
	if err != nil {
		return styles, err
	}

	// Light green for signal exits
	styles.ExitStyle, err = fx.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E6FFE6"}, Pattern: 1},
		Border: lightBorder,
	})
	if err != nil {
		return styles, err
	}

	// Light red for stop-loss exits
	styles.ForcedStyle, err = fx.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"FFE6E6"}, Pattern: 1},
		Border: lightBorder,
	})
	if err != nil {
		return styles, err
	}

	timeFmt := "yyyy-mm-dd hh:mm:ss"
	styles.TimeStyle, err = fx.NewStyle(&excelize.Style{
		CustomNumFmt: &timeFmt,
		Border:       lightBorder,
	})
	if err != nil {
		return styles, err
	}

	return styles, nil
}

func (r *DefaultExcelReporter) writeHeader(fx *excelize.File, sheet string, headers []string, styles ExcelStyles) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := fx.SetCellStyle(sheet, "A1", last, styles.HeaderStyle); err != nil {
		return err
	}
	return fx.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// writeRow sets the values of one row and applies the per-column styles.
func (r *DefaultExcelReporter) writeRow(fx *excelize.File, sheet string, row int, values []interface{}, colStyles []int) error {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		if err := fx.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
		if i < len(colStyles) {
			if err := fx.SetCellStyle(sheet, cell, cell, colStyles[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *DefaultExcelReporter) writeOrdersSheet(fx *excelize.File, sheet string, results *backtest.Results, styles ExcelStyles) error {
	headers := []string{"ID", "Action", "Time", "Price", "Base", "Quote", "Profit", "Forced"}
	if err := r.writeHeader(fx, sheet, headers, styles); err != nil {
		return err
	}

	for i, o := range results.Orders {
		rowStyle := styles.EntryStyle
		switch {
		case o.Forced:
			rowStyle = styles.ForcedStyle
		case o.Action == strategy.ActionSell:
			rowStyle = styles.ExitStyle
		}
		values := []interface{}{
			o.ID,
			o.Action.String(),
			o.Time.UTC(),
			o.Price.InexactFloat64(),
			o.Base.InexactFloat64(),
			o.Quote.InexactFloat64(),
			o.Profit.InexactFloat64(),
			o.Forced,
		}
		colStyles := []int{rowStyle, rowStyle, styles.TimeStyle, styles.PriceStyle, styles.PriceStyle, styles.CurrencyStyle, styles.CurrencyStyle, rowStyle}
		if err := r.writeRow(fx, sheet, i+2, values, colStyles); err != nil {
			return err
		}
	}

	_ = fx.SetColWidth(sheet, "A", "A", 38)
	_ = fx.SetColWidth(sheet, "C", "C", 20)
	_ = fx.SetColWidth(sheet, "D", "G", 16)
	return nil
}

func (r *DefaultExcelReporter) writeTradesSheet(fx *excelize.File, sheet string, results *backtest.Results, styles ExcelStyles) error {
	headers := []string{"Trade", "Entry Time", "Exit Time", "Entry Price", "Exit Price", "Quantity", "Cost", "Proceeds", "PnL", "Return", "Exit"}
	if err := r.writeHeader(fx, sheet, headers, styles); err != nil {
		return err
	}

	row := 2
	var totalPnL float64
	for i, t := range results.Trades {
		totalPnL += t.PnL
		ret := 0.0
		if t.Cost > 0 {
			ret = t.PnL / t.Cost
		}
		exit, exitStyle := "signal", styles.ExitStyle
		if t.Forced {
			exit, exitStyle = "stop-loss", styles.ForcedStyle
		}
		values := []interface{}{
			i + 1,
			t.EntryTime.UTC(),
			t.ExitTime.UTC(),
			t.EntryPrice,
			t.ExitPrice,
			t.Quantity,
			t.Cost,
			t.Proceeds,
			t.PnL,
			ret,
			exit,
		}
		colStyles := []int{
			styles.BaseStyle, styles.TimeStyle, styles.TimeStyle,
			styles.PriceStyle, styles.PriceStyle, styles.PriceStyle,
			styles.CurrencyStyle, styles.CurrencyStyle, styles.CurrencyStyle,
			styles.PercentStyle, exitStyle,
		}
		if err := r.writeRow(fx, sheet, row, values, colStyles); err != nil {
			return err
		}
		row++
	}

	// Totals
	if len(results.Trades) > 0 {
		row++
		if err := r.writeRow(fx, sheet, row,
			[]interface{}{"TOTAL", "", "", "", "", "", "", "", totalPnL},
			[]int{styles.HeaderStyle, styles.BaseStyle, styles.BaseStyle, styles.BaseStyle, styles.BaseStyle, styles.BaseStyle, styles.BaseStyle, styles.BaseStyle, styles.CurrencyStyle},
		); err != nil {
			return err
		}
	}

	_ = fx.SetColWidth(sheet, "B", "C", 20)
	_ = fx.SetColWidth(sheet, "D", "I", 16)
	return nil
}

func (r *DefaultExcelReporter) writeSummarySheet(fx *excelize.File, sheet string, results *backtest.Results, styles ExcelStyles) error {
	if err := r.writeHeader(fx, sheet, []string{"Metric", "Value"}, styles); err != nil {
		return err
	}

	type metric struct {
		name  string
		value interface{}
		style int
	}
	metrics := []metric{
		{"Symbol", results.Symbol, styles.BaseStyle},
		{"Bars", results.Bars, styles.BaseStyle},
		{"Start", results.Start.UTC(), styles.TimeStyle},
		{"End", results.End.UTC(), styles.TimeStyle},
		{"Start Balance", results.StartBalance, styles.CurrencyStyle},
		{"End Balance", results.EndBalance, styles.CurrencyStyle},
		{"Realized PnL", results.RealizedPnL, styles.CurrencyStyle},
		{"Total Return", results.TotalReturn, styles.PercentStyle},
		{"Buy & Hold Return", results.BuyAndHoldReturn, styles.PercentStyle},
		{"Max Drawdown", results.MaxDrawdown, styles.PercentStyle},
		{"Sharpe Ratio", finite(results.SharpeRatio), styles.BaseStyle},
		{"Sortino Ratio", finite(results.SortinoRatio), styles.BaseStyle},
		{"Profit Factor", finite(results.ProfitFactor), styles.BaseStyle},
		{"Win Rate", results.WinRate / 100, styles.PercentStyle},
		{"Total Trades", results.TotalTrades, styles.BaseStyle},
		{"Winning Trades", results.WinningTrades, styles.BaseStyle},
		{"Losing Trades", results.LosingTrades, styles.BaseStyle},
		{"Stop Losses", results.StopLosses, styles.BaseStyle},
		{"Open Position", results.OpenPosition, styles.BaseStyle},
	}

	outcomes := make([]position.Outcome, 0, len(results.Refusals))
	for o := range results.Refusals {
		outcomes = append(outcomes, o)
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i] < outcomes[j] })
	for _, o := range outcomes {
		metrics = append(metrics, metric{"Refused: " + o.String(), results.Refusals[o], styles.BaseStyle})
	}

	for i, m := range metrics {
		if err := r.writeRow(fx, sheet, i+2, []interface{}{m.name, m.value}, []int{styles.BaseStyle, m.style}); err != nil {
			return err
		}
	}

	_ = fx.SetColWidth(sheet, "A", "A", 24)
	_ = fx.SetColWidth(sheet, "B", "B", 22)
	return nil
}

// writeFrameSheet dumps every frame column, leaving undefined values blank,
// and plots the price against its bands.
func (r *DefaultExcelReporter) writeFrameSheet(fx *excelize.File, sheet string, frame *indicators.Frame, styles ExcelStyles) error {
	columns := frame.Columns()
	headers := append([]string{"time"}, columns...)
	if err := r.writeHeader(fx, sheet, headers, styles); err != nil {
		return err
	}

	for i := 0; i < frame.Len(); i++ {
		row := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := fx.SetCellValue(sheet, cell, frame.Time(i).UTC()); err != nil {
			return err
		}
		_ = fx.SetCellStyle(sheet, cell, cell, styles.TimeStyle)
		for c, name := range columns {
			v := frame.Column(name)[i]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+2, row)
			if err := fx.SetCellFloat(sheet, cell, v, -1, 64); err != nil {
				return err
			}
		}
	}
	_ = fx.SetColWidth(sheet, "A", "A", 20)

	return r.addPriceChart(fx, sheet, frame, columns)
}

func (r *DefaultExcelReporter) addPriceChart(fx *excelize.File, sheet string, frame *indicators.Frame, columns []string) error {
	index := make(map[string]int, len(columns))
	for c, name := range columns {
		index[name] = c + 2
	}

	lastRow := frame.Len() + 1
	categories := fmt.Sprintf("'%s'!$A$2:$A$%d", sheet, lastRow)

	var series []excelize.ChartSeries
	for _, name := range chartColumns {
		col, ok := index[name]
		if !ok {
			continue
		}
		letter, _ := excelize.ColumnNumberToName(col)
		series = append(series, excelize.ChartSeries{
			Name:       fmt.Sprintf("'%s'!$%s$1", sheet, letter),
			Categories: categories,
			Values:     fmt.Sprintf("'%s'!$%s$2:$%s$%d", sheet, letter, letter, lastRow),
		})
	}
	if len(series) == 0 {
		return nil
	}

	anchor, _ := excelize.CoordinatesToCellName(len(columns)+3, 2)
	return fx.AddChart(sheet, anchor, &excelize.Chart{
		Type:   excelize.Line,
		Series: series,
		Title:  []excelize.RichTextRun{{Text: "Close and bands"}},
		Legend: excelize.ChartLegend{Position: "bottom"},
		Dimension: excelize.ChartDimension{
			Width:  960,
			Height: 480,
		},
	})
}

// WriteTradesXLSX is the package-level convenience wrapper.
func WriteTradesXLSX(results *backtest.Results, path string) error {
	return NewDefaultExcelReporter().WriteTradesXLSX(results, path)
}
