package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/flipside-bot/internal/indicators"
	"github.com/ducminhle1904/flipside-bot/internal/logger"
	"github.com/ducminhle1904/flipside-bot/internal/position"
	"github.com/ducminhle1904/flipside-bot/internal/series"
	"github.com/ducminhle1904/flipside-bot/internal/strategy"
	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

// Config assembles one pair's engine.
type Config struct {
	Symbol   string
	Capacity int
	Bank     indicators.BankConfig
	Strategy strategy.Descriptor
	Position position.Config
}

// Decision is what the tracker did on one bar.
type Decision struct {
	Resolution strategy.Resolution `json:"resolution"`
	Action     strategy.TradeAction `json:"action"`
	Outcome    position.Outcome     `json:"outcome"`
	Order      *position.Order      `json:"order,omitempty"`
	StopLoss   bool                 `json:"stop_loss"`
	Changed    bool                 `json:"changed"` // dominant moved to a new non-HOLD value
}

// TickResult reports one feed.
type TickResult struct {
	Symbol    string
	Now       time.Time
	Appended  int
	Dropped   int // forming bars held back
	Decisions []Decision
	Orders    []position.Order
}

// Changes returns the decisions whose dominant signal transitioned.
func (r TickResult) Changes() []Decision {
	var out []Decision
	for _, d := range r.Decisions {
		if d.Changed {
			out = append(out, d)
		}
	}
	return out
}

// Tracker runs the bar loop for one trading pair. It owns its series,
// indicator bank, resolver and position, and is driven by a single goroutine.
type Tracker struct {
	symbol   string
	store    *series.Store
	bank     *indicators.Bank
	resolver *strategy.Resolver
	position *position.Position
	exec     Executor
	log      *logger.Logger

	frame    *indicators.Frame
	dominant strategy.TradeAction
}

// New builds a tracker. A nil executor fills orders on paper.
func New(cfg Config, exec Executor, log *logger.Logger) (*Tracker, error) {
	log = logger.OrNop(log)
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("tracker: symbol is required")
	}

	if len(cfg.Bank.Families) == 0 {
		cfg.Bank.Families = cfg.Strategy.Families()
	}
	bank, err := indicators.NewBank(cfg.Bank)
	if err != nil {
		return nil, fmt.Errorf("tracker %s: %w", cfg.Symbol, err)
	}
	resolver, err := strategy.NewResolver(cfg.Strategy, log)
	if err != nil {
		return nil, fmt.Errorf("tracker %s: %w", cfg.Symbol, err)
	}
	pos, err := position.New(cfg.Position)
	if err != nil {
		return nil, fmt.Errorf("tracker %s: %w", cfg.Symbol, err)
	}
	if exec == nil {
		exec = PaperExecutor{}
	}

	return &Tracker{
		symbol:   cfg.Symbol,
		store:    series.New(cfg.Capacity, log),
		bank:     bank,
		resolver: resolver,
		position: pos,
		exec:     exec,
		log:      log,
	}, nil
}

func (t *Tracker) Symbol() string                 { return t.symbol }
func (t *Tracker) Position() *position.Position   { return t.position }
func (t *Tracker) Store() *series.Store           { return t.store }
func (t *Tracker) Bank() *indicators.Bank         { return t.bank }
func (t *Tracker) Resolver() *strategy.Resolver   { return t.resolver }
func (t *Tracker) Dominant() strategy.TradeAction { return t.dominant }

// Frame returns the frame computed by the last feed, or nil before any.
func (t *Tracker) Frame() *indicators.Frame { return t.frame }

// LastPrice is the close of the newest bar.
func (t *Tracker) LastPrice() (decimal.Decimal, bool) {
	if t.store.Len() == 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(t.store.At(t.store.Len() - 1).Close), true
}

// Tick parses raw klines, holds back bars still forming at now and feeds the
// rest. An empty feed is a no-op.
func (t *Tracker) Tick(ctx context.Context, now time.Time, raws []types.RawKline) (TickResult, error) {
	res := TickResult{Symbol: t.symbol, Now: now}

	candles, err := types.ParseKlines(raws)
	if err != nil {
		t.log.Error("%s: tick rejected: %v", t.symbol, err)
		return res, fmt.Errorf("%s: %w", t.symbol, err)
	}

	closed := candles[:0]
	for _, c := range candles {
		if c.CloseTime.After(now) {
			res.Dropped++
			continue
		}
		closed = append(closed, c)
	}
	if len(closed) == 0 {
		t.log.Debug("%s: nothing closed by %s", t.symbol, now.Format(time.RFC3339))
		return res, nil
	}

	fed, err := t.Feed(ctx, closed)
	fed.Now = now
	fed.Dropped = res.Dropped
	return fed, err
}

// Feed appends closed candles and walks every new bar through the resolver and
// the position. Feeding a series in one batch or one bar at a time produces the
// same orders as long as the store never evicts.
//
// If the executor fails, the position is left as it was, trading stops for
// the rest of the batch while signals keep advancing, and the error is
// returned with the partial result.
func (t *Tracker) Feed(ctx context.Context, candles []types.Candle) (TickResult, error) {
	res := TickResult{Symbol: t.symbol}

	n, err := t.store.AppendCandles(candles)
	if errors.Is(err, series.ErrEmptyFeed) {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("%s: %w", t.symbol, err)
	}
	res.Appended = n

	t.frame = t.bank.Compute(t.store.View())
	first := t.store.Len() - n
	if first < 0 {
		first = 0
	}

	var execErr error
	for i := first; i < t.store.Len(); i++ {
		d, err := t.step(ctx, i, execErr == nil)
		if err != nil {
			execErr = err
		}
		res.Decisions = append(res.Decisions, d)
		if d.Order != nil {
			res.Orders = append(res.Orders, *d.Order)
		}
	}
	return res, execErr
}

// Warmup loads history without trading. Signals are advanced over every bar
// so that votes and pending states are live once trading starts.
func (t *Tracker) Warmup(candles []types.Candle) (int, error) {
	n, err := t.store.AppendCandles(candles)
	if errors.Is(err, series.ErrEmptyFeed) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%s warmup: %w", t.symbol, err)
	}

	t.frame = t.bank.Compute(t.store.View())
	first := t.store.Len() - n
	if first < 0 {
		first = 0
	}
	for i := first; i < t.store.Len(); i++ {
		t.observe(t.resolver.Step(t.frame, i))
	}
	t.log.Status("%s: warmed up on %d bars (%d retained)", t.symbol, n, t.store.Len())
	return n, nil
}

// observe records the dominant signal and reports whether it transitioned to
// a new non-HOLD value.
func (t *Tracker) observe(r strategy.Resolution) bool {
	changed := r.Dominant != strategy.ActionHold && r.Dominant != t.dominant
	t.dominant = r.Dominant
	return changed
}

func (t *Tracker) step(ctx context.Context, i int, trading bool) (Decision, error) {
	r := t.resolver.Step(t.frame, i)
	d := Decision{Resolution: r, Changed: t.observe(r)}
	if !trading {
		return d, nil
	}

	bar := t.store.At(i)
	price := decimal.NewFromFloat(bar.Close)

	var err error
	switch {
	case t.position.StopLossTriggered(price):
		d.Action, d.StopLoss = strategy.ActionSell, true
		d.Outcome, d.Order, err = t.sell(ctx, bar.CloseTime, price, true)
	case r.Dominant == strategy.ActionBuy:
		d.Action = strategy.ActionBuy
		d.Outcome, d.Order, err = t.buy(ctx, bar.CloseTime, price)
	case r.Dominant == strategy.ActionSell:
		d.Action = strategy.ActionSell
		d.Outcome, d.Order, err = t.sell(ctx, bar.CloseTime, price, false)
	}
	return d, err
}

func (t *Tracker) buy(ctx context.Context, at time.Time, price decimal.Decimal) (position.Outcome, *position.Order, error) {
	plan := t.position.PrepareBuy(price)
	if plan.Outcome != position.OK {
		if plan.Outcome != position.AlreadyCommitted {
			t.log.Info("%s: BUY at %s refused: %s", t.symbol, price, plan.Outcome)
		}
		return plan.Outcome, nil, nil
	}

	fill, err := t.exec.Buy(ctx, t.symbol, plan)
	if err != nil {
		return plan.Outcome, nil, fmt.Errorf("%s: execute buy: %w", t.symbol, err)
	}
	order, err := t.position.CommitBuy(at, price, fill)
	if err != nil {
		return plan.Outcome, nil, fmt.Errorf("%s: %w", t.symbol, err)
	}
	t.logOrder(order)
	return position.OK, &order, nil
}

func (t *Tracker) sell(ctx context.Context, at time.Time, price decimal.Decimal, force bool) (position.Outcome, *position.Order, error) {
	plan := t.position.PrepareSell(price, force)
	if plan.Outcome != position.OK {
		if plan.Outcome == position.NoProfit {
			t.log.Info("%s: SELL at %s refused: proceeds %s below cost %s",
				t.symbol, price, plan.ExpectedProceeds.StringFixed(8), t.position.CostBasis().StringFixed(8))
		}
		return plan.Outcome, nil, nil
	}

	fill, err := t.exec.Sell(ctx, t.symbol, plan)
	if err != nil {
		return plan.Outcome, nil, fmt.Errorf("%s: execute sell: %w", t.symbol, err)
	}
	order, err := t.position.CommitSell(at, price, fill, force)
	if err != nil {
		return plan.Outcome, nil, fmt.Errorf("%s: %w", t.symbol, err)
	}
	if force {
		t.log.Warning("%s: stop-loss exit at %s, loss %s", t.symbol, price, order.Profit.StringFixed(8))
	}
	t.logOrder(order)
	return position.OK, &order, nil
}

func (t *Tracker) logOrder(o position.Order) {
	t.log.LogTradeExecution(
		o.Action.String(), o.ID, o.Time,
		o.Price.InexactFloat64(), o.Base.InexactFloat64(), o.Quote.InexactFloat64(), o.Forced,
	)
}

// snapshot is the persisted form of a tracker.
type snapshot struct {
	Symbol   string               `json:"symbol"`
	SavedAt  time.Time            `json:"saved_at"`
	Candles  []types.Candle       `json:"candles"`
	Position position.Snapshot    `json:"position"`
	Dominant strategy.TradeAction `json:"dominant"`
}

// Snapshot serializes the retained candles and the position.
func (t *Tracker) Snapshot() ([]byte, error) {
	return json.Marshal(snapshot{
		Symbol:   t.symbol,
		SavedAt:  time.Now().UTC(),
		Candles:  t.store.Candles(),
		Position: t.position.Export(),
		Dominant: t.dominant,
	})
}

// Restore replaces the tracker state with a snapshot. Candles are replayed
// through the resolver without trading.
func (t *Tracker) Restore(blob []byte) error {
	var s snapshot
	if err := json.Unmarshal(blob, &s); err != nil {
		return fmt.Errorf("%s restore: %w", t.symbol, err)
	}
	if s.Symbol != t.symbol {
		return fmt.Errorf("%s restore: snapshot belongs to %s", t.symbol, s.Symbol)
	}

	pos, err := position.New(t.position.Config())
	if err != nil {
		return err
	}
	if err := pos.Restore(s.Position); err != nil {
		return fmt.Errorf("%s %w", t.symbol, err)
	}

	t.store.Reset()
	t.resolver.Reset()
	t.frame = nil
	t.dominant = strategy.ActionHold
	if _, err := t.Warmup(s.Candles); err != nil {
		t.store.Reset()
		t.resolver.Reset()
		return err
	}
	t.position = pos
	t.dominant = s.Dominant
	return nil
}
