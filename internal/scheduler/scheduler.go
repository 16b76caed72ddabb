package scheduler

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	boterrors "github.com/ducminhle1904/flipside-bot/internal/errors"
	"github.com/ducminhle1904/flipside-bot/internal/logger"
	"github.com/ducminhle1904/flipside-bot/internal/monitoring"
	"github.com/ducminhle1904/flipside-bot/internal/notifications"
)

const (
	defaultTickTimeout = 30 * time.Second

	// rate limits seen in the recent window before a pair backs off longer
	rateLimitStreak  = 3
	rateLimitBackoff = 2
)

// Config controls tick timing.
type Config struct {
	Interval    time.Duration // tick period
	Offset      time.Duration // delay past each interval boundary
	TickTimeout time.Duration // per-pair deadline
}

// Scheduler fires one tick per interval, Offset after the boundary, and ticks
// every pair concurrently. A tick finishes before the next is scheduled, so
// a slow tick skips boundaries instead of overlapping.
type Scheduler struct {
	cfg      Config
	pairs    []*PairRunner
	notifier notifications.Notifier
	stats    *boterrors.ErrorStats
	log      *logger.Logger
	now      func() time.Time
}

// New creates a scheduler. The default timing is one minute at seven seconds past.
func New(cfg Config, pairs []*PairRunner, notifier notifications.Notifier, stats *boterrors.ErrorStats, log *logger.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
		cfg.Offset = 7 * time.Second
	}
	if cfg.Offset < 0 || cfg.Offset >= cfg.Interval {
		cfg.Offset = 0
	}
	if cfg.TickTimeout <= 0 {
		cfg.TickTimeout = defaultTickTimeout
	}
	if notifier == nil {
		notifier = notifications.Nop{}
	}
	if stats == nil {
		stats = boterrors.NewErrorStats(100)
	}
	return &Scheduler{
		cfg:      cfg,
		pairs:    pairs,
		notifier: notifier,
		stats:    stats,
		log:      logger.OrNop(log),
		now:      time.Now,
	}
}

// Stats exposes the error counters for the health endpoint.
func (s *Scheduler) Stats() *boterrors.ErrorStats { return s.stats }

// NextTick returns the first firing time strictly after now.
func (s *Scheduler) NextTick(now time.Time) time.Time {
	next := now.Truncate(s.cfg.Interval).Add(s.cfg.Offset)
	for !next.After(now) {
		next = next.Add(s.cfg.Interval)
	}
	return next
}

// Preload prepares every pair. A pair that fails to preload is reported and
// still scheduled; its first tick fetches the history instead.
func (s *Scheduler) Preload(ctx context.Context) {
	now := s.now()
	for _, p := range s.pairs {
		if err := p.Preload(ctx, now); err != nil {
			s.fail(ctx, p, err)
		}
	}
}

// Run ticks until ctx is cancelled. It gives up with a fatal error once every
// pair has been halted.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Status("Scheduler started: %d pairs every %s at +%s", len(s.pairs), s.cfg.Interval, s.cfg.Offset)

	for {
		if s.allHalted() {
			s.log.Status("Scheduler stopped: no pair left trading")
			return boterrors.NewFatalError("scheduler", "run", "every pair is halted")
		}

		next := s.NextTick(s.now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Status("Scheduler stopped")
			return nil
		case <-timer.C:
			s.TickAll(ctx, next)
		}
	}
}

// TickAll ticks every pair once and waits for all of them. Pair failures are
// contained and reported; they never abort the other pairs.
func (s *Scheduler) TickAll(ctx context.Context, now time.Time) {
	var g errgroup.Group
	for _, p := range s.pairs {
		g.Go(func() error {
			s.tickPair(ctx, p, now)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Scheduler) allHalted() bool {
	if len(s.pairs) == 0 {
		return false
	}
	for _, p := range s.pairs {
		if !p.Halted() {
			return false
		}
	}
	return true
}

func (s *Scheduler) tickPair(ctx context.Context, p *PairRunner, now time.Time) {
	if p.Halted() {
		return
	}
	if p.skipTick() {
		s.log.Debug("%s: backing off, tick skipped", p.Symbol())
		return
	}

	start := time.Now()
	ok := false
	defer func() {
		if r := recover(); r != nil {
			s.fail(ctx, p, boterrors.NewPanicError("scheduler", "tick", r))
		}
		monitoring.RecordTick(p.Symbol(), ok, time.Since(start))
	}()

	tickCtx, cancel := context.WithTimeout(ctx, s.cfg.TickTimeout)
	defer cancel()

	res, err := p.Tick(tickCtx, now)
	if err != nil {
		s.fail(ctx, p, err)
		return
	}
	ok = true
	if res.Appended > 0 {
		s.log.Debug("%s: tick appended %d bars, %d orders, dominant %s",
			p.Symbol(), res.Appended, len(res.Orders), p.Tracker().Dominant())
	}
}

// fail records and reports an error caught at the tick boundary, then applies
// its recovery action: fatal errors halt the pair, rate limits skip ticks.
func (s *Scheduler) fail(ctx context.Context, p *PairRunner, err error) {
	symbol := p.Symbol()
	botErr := boterrors.CategorizeError(err, "scheduler", "tick")
	s.stats.RecordError(botErr)
	monitoring.RecordError(string(botErr.Category))
	s.log.LogError(symbol, botErr)

	msg := fmt.Sprintf("%s: %s: %v", symbol, botErr.TypeName(), botErr.Underlying)
	if botErr.Underlying == nil {
		msg = fmt.Sprintf("%s: %s: %s", symbol, botErr.TypeName(), botErr.Message)
	}

	level := notifications.LevelError
	switch {
	case botErr.IsFatal():
		p.halt()
		level = notifications.LevelCritical
		msg += "; trading halted for this pair"
	case botErr.GetRecoveryAction() == boterrors.RecoveryActionWait:
		skip := 1
		if s.stats.HasRecentErrors(boterrors.ErrorCategoryRateLimit, rateLimitStreak) {
			skip = rateLimitBackoff
		}
		p.backOff(skip)
		msg += fmt.Sprintf("; skipping %d tick(s)", skip)
	}

	if nerr := s.notifier.Notify(ctx, level, msg); nerr != nil {
		s.log.Warning("notification failed: %v", nerr)
	}
}

// Flush persists every pair.
func (s *Scheduler) Flush(ctx context.Context) {
	for _, p := range s.pairs {
		p.Flush(ctx)
	}
}
