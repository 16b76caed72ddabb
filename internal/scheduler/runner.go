package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	boterrors "github.com/ducminhle1904/flipside-bot/internal/errors"
	"github.com/ducminhle1904/flipside-bot/internal/exchange"
	"github.com/ducminhle1904/flipside-bot/internal/logger"
	"github.com/ducminhle1904/flipside-bot/internal/monitoring"
	"github.com/ducminhle1904/flipside-bot/internal/notifications"
	"github.com/ducminhle1904/flipside-bot/internal/position"
	"github.com/ducminhle1904/flipside-bot/internal/state"
	"github.com/ducminhle1904/flipside-bot/internal/strategy"
	"github.com/ducminhle1904/flipside-bot/internal/tracker"
	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

const (
	defaultHistoryLimit = 1000
	defaultPersistEvery = 15
	maxHistoryPages     = 10
)

// RunnerOptions wires the collaborators of one pair. Store, Notifier and
// Health are optional.
type RunnerOptions struct {
	Interval     string // candle interval, e.g. "1m"
	PersistEvery int    // ticks between snapshots
	HistoryLimit int    // klines per request
	Store        state.SnapshotStore
	Notifier     notifications.Notifier
	Health       *monitoring.HealthChecker
	Logger       *logger.Logger
}

// PairRunner connects one tracker to the exchange, the snapshot store and the
// notifier. Only its own scheduler goroutine touches it during a tick.
type PairRunner struct {
	tracker  *tracker.Tracker
	source   exchange.CandleSource
	interval string
	barSize  time.Duration

	persistEvery int
	historyLimit int
	store        state.SnapshotStore
	notifier     notifications.Notifier
	health       *monitoring.HealthChecker
	log          *logger.Logger

	ticks  int
	skip   atomic.Int32
	halted atomic.Bool
}

// NewPairRunner creates a runner for t fed from source.
func NewPairRunner(t *tracker.Tracker, source exchange.CandleSource, opts RunnerOptions) (*PairRunner, error) {
	if t == nil || source == nil {
		return nil, fmt.Errorf("runner needs a tracker and a candle source")
	}
	barSize, err := exchange.IntervalDuration(opts.Interval)
	if err != nil {
		return nil, err
	}
	r := &PairRunner{
		tracker:      t,
		source:       source,
		interval:     opts.Interval,
		barSize:      barSize,
		persistEvery: opts.PersistEvery,
		historyLimit: opts.HistoryLimit,
		store:        opts.Store,
		notifier:     opts.Notifier,
		health:       opts.Health,
		log:          logger.OrNop(opts.Logger),
	}
	if r.persistEvery <= 0 {
		r.persistEvery = defaultPersistEvery
	}
	if r.historyLimit <= 0 {
		r.historyLimit = defaultHistoryLimit
	}
	if r.notifier == nil {
		r.notifier = notifications.Nop{}
	}
	return r, nil
}

func (r *PairRunner) Symbol() string            { return r.tracker.Symbol() }
func (r *PairRunner) Tracker() *tracker.Tracker { return r.tracker }

// Halted reports whether the pair stopped trading after a fatal error.
func (r *PairRunner) Halted() bool { return r.halted.Load() }

func (r *PairRunner) halt() { r.halted.Store(true) }

// backOff makes the next n ticks no-ops.
func (r *PairRunner) backOff(n int) { r.skip.Store(int32(n)) }

func (r *PairRunner) skipTick() bool {
	for {
		n := r.skip.Load()
		if n <= 0 {
			return false
		}
		if r.skip.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

// since is the open time of the first bar the tracker has not seen.
func (r *PairRunner) since(now time.Time) time.Time {
	if last, ok := r.tracker.Store().LatestCloseTime(); ok {
		return last.Add(time.Millisecond)
	}
	return now.Add(-time.Duration(r.historyLimit) * r.barSize)
}

// Preload restores the last snapshot, fetches the bars missed since then and
// warms the tracker up on them without trading.
func (r *PairRunner) Preload(ctx context.Context, now time.Time) error {
	symbol := r.Symbol()

	if r.store != nil {
		blob, found, err := r.store.Load(ctx, symbol)
		switch {
		case err != nil:
			r.log.Warning("%s: could not load snapshot, starting fresh: %v", symbol, err)
		case found:
			if err := r.tracker.Restore(blob); err != nil {
				r.log.Warning("%s: discarding unusable snapshot: %v", symbol, err)
			} else {
				r.log.Status("%s: resumed from snapshot with %d bars", symbol, r.tracker.Store().Len())
			}
		}
	}

	total := 0
	for page := 0; page < maxHistoryPages; page++ {
		raws, err := r.source.FetchKlines(ctx, symbol, r.interval, r.since(now), r.historyLimit)
		if err != nil {
			return boterrors.CategorizeError(err, "scheduler", "preload")
		}
		candles, err := closedBy(raws, now)
		if err != nil {
			return boterrors.CategorizeError(err, "scheduler", "preload")
		}
		n, err := r.tracker.Warmup(candles)
		if err != nil {
			return boterrors.CategorizeError(err, "scheduler", "preload")
		}
		total += n
		if len(raws) < r.historyLimit {
			break
		}
	}

	// the first bar with every column defined follows the warm-up periods
	if need := r.tracker.Bank().WarmupPeriods() + 1; r.tracker.Store().Len() < need {
		short := boterrors.NewDataError("scheduler", "preload",
			fmt.Sprintf("insufficient history: %d of %d bars", r.tracker.Store().Len(), need))
		r.log.LogError(symbol, short)
		if nerr := r.notifier.Notify(ctx, notifications.LevelWarning, fmt.Sprintf("%s: %s, signals wait for more bars", symbol, short.Message)); nerr != nil {
			r.log.Warning("notification failed: %v", nerr)
		}
	}

	r.log.Info("%s: preloaded %d bars, dominant %s", symbol, total, r.tracker.Dominant())
	return nil
}

// closedBy parses raws and keeps the bars closed by now.
func closedBy(raws []types.RawKline, now time.Time) ([]types.Candle, error) {
	candles, err := types.ParseKlines(raws)
	if err != nil {
		return nil, err
	}
	out := candles[:0]
	for _, c := range candles {
		if !c.CloseTime.After(now) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Tick fetches the bars closed since the last one seen and feeds them to the
// tracker. Orders placed before a failure are still journaled and announced.
func (r *PairRunner) Tick(ctx context.Context, now time.Time) (tracker.TickResult, error) {
	symbol := r.Symbol()

	raws, err := r.source.FetchKlines(ctx, symbol, r.interval, r.since(now), r.historyLimit)
	if err != nil {
		return tracker.TickResult{Symbol: symbol, Now: now}, boterrors.CategorizeError(err, "scheduler", "fetch_klines")
	}

	res, tickErr := r.tracker.Tick(ctx, now, raws)
	r.report(ctx, res)

	r.ticks++
	if len(res.Orders) > 0 || r.ticks%r.persistEvery == 0 {
		r.persist(ctx)
	}

	if r.health != nil {
		price, _ := r.tracker.LastPrice()
		r.health.MarkTick(symbol, now, price.InexactFloat64(), r.tracker.Position().Committed(), tickErr)
	}

	if tickErr != nil {
		return res, boterrors.CategorizeError(tickErr, "scheduler", "tick")
	}
	return res, nil
}

// report updates metrics, journals orders and sends notifications.
func (r *PairRunner) report(ctx context.Context, res tracker.TickResult) {
	symbol := r.Symbol()

	monitoring.RecordCandles(symbol, res.Appended)
	if price, ok := r.tracker.LastPrice(); ok {
		monitoring.UpdatePrice(symbol, price.InexactFloat64())
	}

	for _, d := range res.Decisions {
		for _, v := range d.Resolution.Votes {
			if v.Trigger != strategy.ActionHold {
				monitoring.RecordSubSignal(symbol, v.Rule, v.Trigger.String())
			}
		}
		if d.Resolution.Dominant != strategy.ActionHold {
			monitoring.RecordDominant(symbol, d.Resolution.Dominant.String())
		}
		if d.Action != strategy.ActionHold && d.Outcome != position.OK {
			monitoring.RecordRefusal(symbol, d.Outcome.String())
		}
		if d.Changed {
			r.notify(ctx, notifications.LevelInfo, fmt.Sprintf("%s: %s signal at %.8g (%s)",
				symbol, d.Resolution.Dominant, d.Resolution.Price, d.Resolution.Time.UTC().Format(time.RFC3339)))
		}
	}

	if len(res.Orders) == 0 {
		return
	}
	journal, _ := r.store.(state.OrderJournal)
	for _, o := range res.Orders {
		monitoring.RecordTrade(symbol, o.Action.String(), o.Quote.InexactFloat64(), o.Forced)
		if r.health != nil {
			r.health.MarkTrade(symbol, o.Time)
		}
		if journal != nil {
			if err := journal.RecordOrder(ctx, symbol, o); err != nil {
				r.log.LogError("journal order", err)
			}
		}
		r.notify(ctx, notifications.LevelTrade, formatOrder(symbol, o))
	}
	monitoring.UpdateRealizedPnL(symbol, r.tracker.Position().RealizedPnL().InexactFloat64())
}

func formatOrder(symbol string, o position.Order) string {
	msg := fmt.Sprintf("%s %s %s @ %s for %s", symbol, o.Action, o.Base.StringFixed(8), o.Price.StringFixed(4), o.Quote.StringFixed(2))
	if o.Action == strategy.ActionSell {
		msg += fmt.Sprintf(", profit %s", o.Profit.StringFixed(2))
	}
	if o.Forced {
		msg += " (stop-loss)"
	}
	return msg
}

// persist saves a snapshot. Failures are logged; the next tick retries.
func (r *PairRunner) persist(ctx context.Context) {
	if r.store == nil {
		return
	}
	blob, err := r.tracker.Snapshot()
	if err == nil {
		err = r.store.Save(ctx, r.Symbol(), blob)
	}
	if err != nil {
		botErr := boterrors.NewStorageError("scheduler", "persist", err)
		monitoring.RecordError(string(botErr.Category))
		r.log.LogError("persist snapshot", botErr)
	}
}

// Flush saves a snapshot regardless of the tick count.
func (r *PairRunner) Flush(ctx context.Context) {
	r.persist(ctx)
}

// notify is best-effort.
func (r *PairRunner) notify(ctx context.Context, level notifications.Level, msg string) {
	if err := r.notifier.Notify(ctx, level, msg); err != nil {
		r.log.Warning("notification failed: %v", err)
	}
}
