package scheduler

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/flipside-bot/internal/exchange"
	"github.com/ducminhle1904/flipside-bot/internal/indicators"
	"github.com/ducminhle1904/flipside-bot/internal/notifications"
	"github.com/ducminhle1904/flipside-bot/internal/position"
	"github.com/ducminhle1904/flipside-bot/internal/strategy"
	"github.com/ducminhle1904/flipside-bot/internal/tracker"
	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

var testEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// at is seven seconds past minute m.
func at(m int) time.Time {
	return testEpoch.Add(time.Duration(m)*time.Minute + 7*time.Second)
}

// dipSeries oscillates around 100, dips to 80 at bar 25 and spikes to 120 at bar 38.
func dipSeries() []types.Candle {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 95
		if i%2 == 1 {
			closes[i] = 105
		}
	}
	for i, v := range map[int]float64{23: 95, 24: 88, 25: 80, 26: 84, 27: 90, 28: 95, 29: 98, 30: 100, 38: 120, 39: 112} {
		closes[i] = v
	}

	out := make([]types.Candle, len(closes))
	for i, c := range closes {
		openTime := testEpoch.Add(time.Duration(i) * time.Minute)
		out[i] = types.Candle{
			OpenTime:  openTime,
			CloseTime: openTime.Add(time.Minute - time.Millisecond),
			Open:      c,
			High:      c * 1.01,
			Low:       c * 0.99,
			Close:     c,
			Volume:    10 + float64(i%7),
		}
	}
	return out
}

func bandConfig(symbol string) tracker.Config {
	return tracker.Config{
		Symbol:   symbol,
		Capacity: 100,
		Bank: indicators.BankConfig{
			WindowIndex:       4,
			BandFactor:        2,
			BandSource:        types.PriceClose,
			DirectionalPeriod: indicators.DefaultDirectionalPeriod,
		},
		Strategy: strategy.Descriptor{
			SignalTTL: 5,
			Quorum:    1,
			Rules:     []strategy.RuleSpec{{Kind: strategy.KindBand}},
		},
		Position: position.Config{
			Budget:        decimal.NewFromInt(1000),
			Commission:    decimal.NewFromFloat(0.001),
			SpendFraction: decimal.NewFromInt(1),
		},
	}
}

// clock is a settable time source shared by the paper exchange and the test.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

type message struct {
	Level notifications.Level
	Text  string
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []message
}

func (r *recordingNotifier) Notify(_ context.Context, level notifications.Level, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message{level, text})
	return nil
}

func (r *recordingNotifier) At(level notifications.Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.messages {
		if m.Level == level {
			out = append(out, m.Text)
		}
	}
	return out
}

func containsAll(texts []string, sub string) bool {
	for _, t := range texts {
		if !strings.Contains(t, sub) {
			return false
		}
	}
	return len(texts) > 0
}

// newRunner builds a live-executing runner for symbol against paper.
func newRunner(t *testing.T, paper *exchange.Paper, symbol string, opts RunnerOptions) *PairRunner {
	t.Helper()
	tr, err := tracker.New(bandConfig(symbol), tracker.NewExchangeExecutor(paper), nil)
	require.NoError(t, err)
	if opts.Interval == "" {
		opts.Interval = "1m"
	}
	r, err := NewPairRunner(tr, paper, opts)
	require.NoError(t, err)
	return r
}

type panicSource struct{}

func (panicSource) FetchKlines(context.Context, string, string, time.Time, int) ([]types.RawKline, error) {
	panic("feed exploded")
}
