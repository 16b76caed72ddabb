package reporting

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/flipside-bot/internal/backtest"
	"github.com/ducminhle1904/flipside-bot/internal/position"
	"github.com/ducminhle1904/flipside-bot/internal/strategy"
)

// DefaultConsoleReporter renders results as tables.
type DefaultConsoleReporter struct {
	out io.Writer
}

// NewDefaultConsoleReporter creates a console reporter writing to stdout
func NewDefaultConsoleReporter() *DefaultConsoleReporter {
	return NewConsoleReporter(os.Stdout)
}

func NewConsoleReporter(out io.Writer) *DefaultConsoleReporter {
	return &DefaultConsoleReporter{out: out}
}

func (r *DefaultConsoleReporter) newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	return t
}

// OutputResults prints the backtest summary.
func (r *DefaultConsoleReporter) OutputResults(results *backtest.Results) {
	t := r.newTable(fmt.Sprintf("📊 BACKTEST RESULTS %s", results.Symbol))

	winRate, loseRate := 0.0, 0.0
	if results.TotalTrades > 0 {
		winRate = float64(results.WinningTrades) / float64(results.TotalTrades) * 100
		loseRate = float64(results.LosingTrades) / float64(results.TotalTrades) * 100
	}

	t.AppendRows([]table.Row{
		{"🕒 Period", fmt.Sprintf("%s → %s (%d bars)", results.Start.Format("2006-01-02 15:04"), results.End.Format("2006-01-02 15:04"), results.Bars)},
		{"💰 Initial Balance", fmt.Sprintf("$%.2f", results.StartBalance)},
		{"💰 Final Balance", fmt.Sprintf("$%.2f", results.EndBalance)},
		{"📈 Total Return", fmt.Sprintf("%.2f%%", results.TotalReturn*100)},
		{"📈 Buy and Hold", fmt.Sprintf("%.2f%%", results.BuyAndHoldReturn*100)},
		{"💵 Realized PnL", fmt.Sprintf("$%.2f", results.RealizedPnL)},
		{"📉 Max Drawdown", fmt.Sprintf("%.2f%%", results.MaxDrawdown*100)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"📊 Sharpe Ratio", fmt.Sprintf("%.2f", results.SharpeRatio)},
		{"📊 Sortino Ratio", fmt.Sprintf("%.2f", results.SortinoRatio)},
		{"💹 Profit Factor", fmt.Sprintf("%.2f", results.ProfitFactor)},
		{"🔄 Total Trades", results.TotalTrades},
		{"✅ Winning Trades", fmt.Sprintf("%d (%.1f%%)", results.WinningTrades, winRate)},
		{"❌ Losing Trades", fmt.Sprintf("%d (%.1f%%)", results.LosingTrades, loseRate)},
		{"🛑 Stop-losses", results.StopLosses},
	})

	if len(results.Refusals) > 0 {
		outcomes := make([]position.Outcome, 0, len(results.Refusals))
		for o := range results.Refusals {
			outcomes = append(outcomes, o)
		}
		sort.Slice(outcomes, func(i, j int) bool { return outcomes[i] < outcomes[j] })

		t.AppendSeparator()
		for _, o := range outcomes {
			t.AppendRow(table.Row{"🚫 Refused " + o.String(), results.Refusals[o]})
		}
	}
	if results.OpenPosition {
		t.AppendFooter(table.Row{"⚠️ Position", "still open, valued at last close"})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 22, Align: text.AlignLeft},
		{Number: 2, WidthMin: 20, Align: text.AlignRight},
	})
	t.Render()
}

// PrintOrders prints the order history.
func (r *DefaultConsoleReporter) PrintOrders(orders []position.Order) {
	if len(orders) == 0 {
		fmt.Fprintln(r.out, "No orders.")
		return
	}
	t := r.newTable("ORDERS")
	t.AppendHeader(table.Row{"#", "Side", "Time", "Price", "Base", "Quote", "Profit", "Note"})
	for i, o := range orders {
		side := text.FgGreen.Sprint(o.Action)
		profit := ""
		if o.Action == strategy.ActionSell {
			side = text.FgRed.Sprint(o.Action)
			profit = o.Profit.StringFixed(2)
		}
		note := ""
		if o.Forced {
			note = "stop-loss"
		}
		t.AppendRow(table.Row{
			i + 1, side, o.Time.Format("2006-01-02 15:04"),
			o.Price.String(), o.Base.StringFixed(8), o.Quote.StringFixed(2), profit, note,
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	t.Render()
}

// PrintSweep ranks sweep jobs by total return.
func (r *DefaultConsoleReporter) PrintSweep(results []backtest.JobResult) {
	ranked := append([]backtest.JobResult(nil), results...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if (ranked[i].Error == nil) != (ranked[j].Error == nil) {
			return ranked[i].Error == nil
		}
		if ranked[i].Error != nil {
			return false
		}
		return ranked[i].Results.TotalReturn > ranked[j].Results.TotalReturn
	})

	t := r.newTable("WINDOW SWEEP")
	t.AppendHeader(table.Row{"Job", "Window", "Return", "Max DD", "Trades", "Win Rate", "Time"})
	for _, jr := range ranked {
		if jr.Error != nil {
			t.AppendRow(table.Row{jr.ID, jr.Config.Bank.WindowIndex, "error: " + jr.Error.Error(), "", "", "", jr.Duration.Round(time.Millisecond)})
			continue
		}
		res := jr.Results
		t.AppendRow(table.Row{
			jr.ID, jr.Config.Bank.WindowIndex,
			fmt.Sprintf("%.2f%%", res.TotalReturn*100),
			fmt.Sprintf("%.2f%%", res.MaxDrawdown*100),
			res.TotalTrades,
			fmt.Sprintf("%.1f%%", res.WinRate),
			jr.Duration.Round(time.Millisecond),
		})
	}
	t.Render()
}
