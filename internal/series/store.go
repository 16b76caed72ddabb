package series

import (
	"errors"
	"fmt"
	"time"

	"github.com/ducminhle1904/flipside-bot/internal/logger"
	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

// FullCycle is the default number of retained bars: one week of 15 minute candles.
const FullCycle = 672

var (
	// ErrEmptyFeed is returned when an append carries no records.
	ErrEmptyFeed = errors.New("empty candle feed")
	// ErrNonMonotonic is returned when close times repeat or go backwards.
	ErrNonMonotonic = errors.New("non-monotonic close time")
)

// Store is a bounded, append-only window of candles ordered by close time.
// It is owned by a single tracker and is not safe for concurrent use.
type Store struct {
	capacity int
	candles  []types.Candle
	appended int64
	log      *logger.Logger
}

// New creates a store that keeps at most capacity bars. A non-positive
// capacity falls back to FullCycle.
func New(capacity int, log *logger.Logger) *Store {
	if capacity <= 0 {
		capacity = FullCycle
	}
	return &Store{
		capacity: capacity,
		candles:  make([]types.Candle, 0, capacity),
		log:      logger.OrNop(log),
	}
}

// Append parses raw exchange records and appends them. The whole batch is
// rejected, leaving the store untouched, if any record is malformed.
func (s *Store) Append(raws []types.RawKline) (int, error) {
	if len(raws) == 0 {
		s.log.Warning("append skipped: %v", ErrEmptyFeed)
		return 0, ErrEmptyFeed
	}
	candles, err := types.ParseKlines(raws)
	if err != nil {
		s.log.Error("append rejected: %v", err)
		return 0, err
	}
	return s.AppendCandles(candles)
}

// AppendCandles appends already parsed candles, evicting the oldest bars
// beyond capacity. Returns the number of bars appended.
func (s *Store) AppendCandles(candles []types.Candle) (int, error) {
	if len(candles) == 0 {
		s.log.Warning("append skipped: %v", ErrEmptyFeed)
		return 0, ErrEmptyFeed
	}

	last, hasLast := s.LatestCloseTime()
	for i, c := range candles {
		if err := c.Validate(); err != nil {
			return 0, fmt.Errorf("candle %d: %w", i, err)
		}
		if hasLast && !c.CloseTime.After(last) {
			err := fmt.Errorf("%w: candle %d closes at %s, previous at %s",
				ErrNonMonotonic, i, c.CloseTime.Format(time.RFC3339Nano), last.Format(time.RFC3339Nano))
			s.log.Error("append rejected: %v", err)
			return 0, err
		}
		last, hasLast = c.CloseTime, true
	}

	s.candles = append(s.candles, candles...)
	if excess := len(s.candles) - s.capacity; excess > 0 {
		kept := make([]types.Candle, s.capacity)
		copy(kept, s.candles[excess:])
		s.candles = kept
	}
	s.appended += int64(len(candles))
	return len(candles), nil
}

// LatestCloseTime returns the close time of the newest bar.
func (s *Store) LatestCloseTime() (time.Time, bool) {
	if len(s.candles) == 0 {
		return time.Time{}, false
	}
	return s.candles[len(s.candles)-1].CloseTime, true
}

// Candles returns a copy of the retained bars, oldest first.
func (s *Store) Candles() []types.Candle {
	out := make([]types.Candle, len(s.candles))
	copy(out, s.candles)
	return out
}

// View returns the retained bars without copying. Callers must not modify it.
func (s *Store) View() []types.Candle {
	return s.candles
}

// At returns the i-th retained bar.
func (s *Store) At(i int) types.Candle {
	return s.candles[i]
}

func (s *Store) Len() int      { return len(s.candles) }
func (s *Store) Capacity() int { return s.capacity }

// Appended is the total number of bars ever appended, including evicted ones.
func (s *Store) Appended() int64 { return s.appended }

// Reset drops every bar.
func (s *Store) Reset() {
	s.candles = s.candles[:0]
	s.appended = 0
}
