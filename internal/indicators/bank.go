package indicators

import (
	"fmt"
	"time"

	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

// BankConfig selects which indicator families are computed and how their
// windows are derived.
type BankConfig struct {
	WindowIndex       int
	BandFactor        float64
	BandSource        types.PriceSource
	DirectionalPeriod int
	Families          []string
}

// DefaultBankConfig computes every family over a 21 bar window.
func DefaultBankConfig() BankConfig {
	return BankConfig{
		WindowIndex:       DefaultWindowIndex,
		BandFactor:        2,
		BandSource:        types.PriceClose,
		DirectionalPeriod: DefaultDirectionalPeriod,
		Families:          []string{FamilyVelocity, FamilyBands, FamilyMomentum, FamilyFlow, FamilyDirectional},
	}
}

// Bank owns the configured indicators and recomputes a frame from a series.
type Bank struct {
	windows    Windows
	indicators []Indicator
}

// NewBank builds the indicator set. Velocity columns are always present.
func NewBank(cfg BankConfig) (*Bank, error) {
	windows, err := WindowsFor(cfg.WindowIndex)
	if err != nil {
		return nil, err
	}

	b := &Bank{windows: windows}
	b.indicators = append(b.indicators, NewVelocity())

	seen := map[string]bool{FamilyVelocity: true}
	for _, family := range cfg.Families {
		if seen[family] {
			continue
		}
		seen[family] = true

		switch family {
		case FamilyBands:
			b.indicators = append(b.indicators, NewBollingerBands(windows.Normal, cfg.BandFactor).WithSource(cfg.BandSource))
		case FamilyMomentum:
			b.indicators = append(b.indicators, NewTSI(windows.Slow, windows.Fast))
		case FamilyFlow:
			b.indicators = append(b.indicators, NewMFI(windows.Normal))
		case FamilyDirectional:
			b.indicators = append(b.indicators, NewDirectional(cfg.DirectionalPeriod))
		default:
			return nil, fmt.Errorf("unknown indicator family %q", family)
		}
	}
	return b, nil
}

// Windows returns the derived window lengths.
func (b *Bank) Windows() Windows { return b.windows }

// Indicators returns the configured indicators.
func (b *Bank) Indicators() []Indicator { return b.indicators }

// WarmupPeriods is the number of leading bars for which at least one
// configured column is still undefined.
func (b *Bank) WarmupPeriods() int {
	max := 0
	for _, ind := range b.indicators {
		if p := ind.RequiredPeriods(); p > max {
			max = p
		}
	}
	return max
}

// Compute recomputes every column over the full series into a new frame.
func (b *Bank) Compute(candles []types.Candle) *Frame {
	times := make([]time.Time, len(candles))
	for i, c := range candles {
		times[i] = c.CloseTime
	}
	f := NewFrame(times)
	for _, ind := range b.indicators {
		ind.Compute(candles, f)
	}
	return f
}
