package data

import (
	"fmt"
	"time"

	"github.com/ducminhle1904/flipside-bot/internal/series"
	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

// DefaultDataFilter implements DataFilter for common filtering operations
type DefaultDataFilter struct{}

// NewDefaultDataFilter creates a new default data filter
func NewDefaultDataFilter() *DefaultDataFilter {
	return &DefaultDataFilter{}
}

// FilterByPeriod filters data to the last N period
func (f *DefaultDataFilter) FilterByPeriod(data []types.Candle, period time.Duration) []types.Candle {
	if period <= 0 || len(data) == 0 {
		return data
	}

	cutoffTime := data[len(data)-1].CloseTime.Add(-period)
	for i, candle := range data {
		if !candle.OpenTime.Before(cutoffTime) {
			return data[i:]
		}
	}
	return data[len(data)-1:]
}

// FilterByDateRange filters data to a specific date range. A zero bound is open.
func (f *DefaultDataFilter) FilterByDateRange(data []types.Candle, start, end time.Time) []types.Candle {
	var filtered []types.Candle
	for _, candle := range data {
		if !start.IsZero() && candle.OpenTime.Before(start) {
			continue
		}
		if !end.IsZero() && candle.OpenTime.After(end) {
			continue
		}
		filtered = append(filtered, candle)
	}
	return filtered
}

// ValidateTimeSequence rejects duplicate or out of order close times. The data
// is never reordered.
func (f *DefaultDataFilter) ValidateTimeSequence(data []types.Candle) error {
	for i := 1; i < len(data); i++ {
		if !data[i].CloseTime.After(data[i-1].CloseTime) {
			return fmt.Errorf("index %d: close time %s does not follow %s: %w",
				i, data[i].CloseTime.Format(time.RFC3339), data[i-1].CloseTime.Format(time.RFC3339), series.ErrNonMonotonic)
		}
	}
	return nil
}
