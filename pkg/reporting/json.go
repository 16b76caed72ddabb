package reporting

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ducminhle1904/flipside-bot/internal/backtest"
)

// WriteResultsJSON writes the results, without the indicator frame, as
// indented JSON.
func WriteResultsJSON(results *backtest.Results, path string) error {
	out := *results
	out.SharpeRatio = finite(out.SharpeRatio)
	out.SortinoRatio = finite(out.SortinoRatio)
	out.ProfitFactor = finite(out.ProfitFactor)

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return os.WriteFile(path, data, 0644)
}

// finite clamps infinities to the largest float and maps NaN to zero;
// neither JSON nor xlsx can carry them.
func finite(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	}
	return v
}

// ExtractIntervalFromPath extracts interval from data file path
// Example: "data/binance/spot/BTCUSDT/15m/candles.csv" -> "15m"
func ExtractIntervalFromPath(dataPath string) string {
	if dataPath == "" {
		return ""
	}

	dataPath = filepath.ToSlash(dataPath)
	parts := strings.Split(dataPath, "/")

	for i := len(parts) - 1; i >= 0; i-- {
		part := strings.TrimSuffix(parts[i], ".csv")
		if idx := strings.LastIndex(part, "_"); idx >= 0 {
			part = part[idx+1:]
		}
		if len(part) >= 2 {
			lastChar := part[len(part)-1]
			if lastChar == 'm' || lastChar == 'h' || lastChar == 'd' || lastChar == 'w' {
				if _, err := strconv.Atoi(part[:len(part)-1]); err == nil {
					return part
				}
			}
		}
	}

	return ""
}
