package backtest

import (
	"fmt"
	"math"
)

// CalculateSharpeRatio is the mean over the standard deviation of per-trade
// returns, with a zero risk-free rate.
func (r *Results) CalculateSharpeRatio() float64 {
	returns := r.tradeReturns()
	if len(returns) == 0 {
		return 0
	}

	avg := mean(returns)
	variance := 0.0
	for _, x := range returns {
		variance += math.Pow(x-avg, 2)
	}
	variance /= float64(len(returns))
	stdDev := math.Sqrt(variance)

	if stdDev < 1e-10 {
		return 0
	}
	return avg / stdDev
}

// CalculateSortinoRatio uses the bar-to-bar equity returns and only their
// downside deviation.
func (r *Results) CalculateSortinoRatio() float64 {
	if len(r.EquityCurve) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(r.EquityCurve)-1)
	for i := 1; i < len(r.EquityCurve); i++ {
		prev := r.EquityCurve[i-1].Equity
		if prev > 0 {
			returns = append(returns, (r.EquityCurve[i].Equity-prev)/prev)
		}
	}
	if len(returns) == 0 {
		return 0
	}

	downside, count := 0.0, 0
	for _, x := range returns {
		if x < 0 {
			downside += x * x
			count++
		}
	}
	if count == 0 {
		return math.Inf(1)
	}
	return mean(returns) / math.Sqrt(downside/float64(count))
}

// CalculateProfitFactor is gross profit over gross loss of closed trades.
func (r *Results) CalculateProfitFactor() float64 {
	if len(r.Trades) == 0 {
		return 0
	}

	profit, loss := 0.0, 0.0
	for _, t := range r.Trades {
		if t.PnL > 0 {
			profit += t.PnL
		} else {
			loss += math.Abs(t.PnL)
		}
	}
	if loss == 0 {
		if profit > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return profit / loss
}

// CalculateWinRate returns the percentage of closed trades with a profit.
func (r *Results) CalculateWinRate() float64 {
	if len(r.Trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range r.Trades {
		if t.PnL > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(r.Trades)) * 100
}

// CalculateMaxDrawdown is the largest peak-to-trough fall of the equity
// curve, as a fraction of the peak.
func (r *Results) CalculateMaxDrawdown() float64 {
	peak, maxDD := 0.0, 0.0
	for _, p := range r.EquityCurve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			if dd := (peak - p.Equity) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// UpdateMetrics updates all calculated metrics
func (r *Results) UpdateMetrics() {
	r.TotalTrades = len(r.Trades)
	r.WinningTrades, r.LosingTrades, r.StopLosses = 0, 0, 0
	for _, t := range r.Trades {
		if t.PnL > 0 {
			r.WinningTrades++
		} else {
			r.LosingTrades++
		}
		if t.Forced {
			r.StopLosses++
		}
	}

	r.SharpeRatio = r.CalculateSharpeRatio()
	r.SortinoRatio = r.CalculateSortinoRatio()
	r.ProfitFactor = r.CalculateProfitFactor()
	r.WinRate = r.CalculateWinRate()
	r.MaxDrawdown = r.CalculateMaxDrawdown()
}

// PrintSummary writes a short plain text summary to stdout.
func (r *Results) PrintSummary() {
	fmt.Printf("=== Backtest Results: %s ===\n", r.Symbol)
	fmt.Printf("Bars: %d (%s to %s)\n", r.Bars, r.Start.Format("2006-01-02 15:04"), r.End.Format("2006-01-02 15:04"))
	fmt.Printf("Initial Balance: $%.2f\n", r.StartBalance)
	fmt.Printf("Final Balance: $%.2f\n", r.EndBalance)
	fmt.Printf("Total Return: %.2f%%\n", r.TotalReturn*100)
	fmt.Printf("Buy and Hold: %.2f%%\n", r.BuyAndHoldReturn*100)
	fmt.Printf("Max Drawdown: %.2f%%\n", r.MaxDrawdown*100)
	fmt.Printf("Total Trades: %d (won %d, lost %d, stop-loss %d)\n", r.TotalTrades, r.WinningTrades, r.LosingTrades, r.StopLosses)
	fmt.Printf("Profit Factor: %.2f\n", r.ProfitFactor)
}

func (r *Results) tradeReturns() []float64 {
	returns := make([]float64, 0, len(r.Trades))
	for _, t := range r.Trades {
		if t.Cost > 0 {
			returns = append(returns, t.PnL/t.Cost)
		}
	}
	return returns
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
