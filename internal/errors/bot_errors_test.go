package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/flipside-bot/internal/exchange"
	"github.com/ducminhle1904/flipside-bot/internal/series"
	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

type statusErr int

func (s statusErr) Error() string   { return fmt.Sprintf("status %d", int(s)) }
func (s statusErr) HTTPStatus() int { return int(s) }

type sockErr struct{ timeout bool }

func (e sockErr) Error() string   { return "read tcp 10.0.0.1:443: socket" }
func (e sockErr) Timeout() bool   { return e.timeout }
func (e sockErr) Temporary() bool { return false }

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"malformed kline", fmt.Errorf("kline 3: %w", types.ErrMalformedKline), ErrorCategoryInvariant},
		{"invalid candle", types.ErrInvalidCandle, ErrorCategoryInvariant},
		{"non-monotonic", series.ErrNonMonotonic, ErrorCategoryInvariant},
		{"empty feed", series.ErrEmptyFeed, ErrorCategoryData},
		{"deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), ErrorCategoryTimeout},
		{"rate limited", statusErr(429), ErrorCategoryRateLimit},
		{"banned", statusErr(418), ErrorCategoryRateLimit},
		{"bad key", statusErr(401), ErrorCategoryCredentials},
		{"venue rejection", statusErr(400), ErrorCategoryExchange},
		{"below venue minimum", fmt.Errorf("sell: %w", exchange.ErrBelowMinimum), ErrorCategoryData},
		{"socket timeout", sockErr{timeout: true}, ErrorCategoryTimeout},
		{"socket failure", sockErr{}, ErrorCategoryNetwork},
		{"dial failure", stderrors.New("dial tcp: connection refused"), ErrorCategoryNetwork},
		{"signature text", stderrors.New("invalid signature"), ErrorCategoryCredentials},
		{"unknown", stderrors.New("something odd"), ErrorCategoryTemporary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CategorizeError(tt.err, "tracker", "tick")
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Category)
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.Nil(t, CategorizeError(nil, "tracker", "tick"))
}

func TestCategorizeError_KeepsBotError(t *testing.T) {
	orig := NewStorageError("state", "save", stderrors.New("disk full"))
	wrapped := fmt.Errorf("persist: %w", orig)
	assert.Same(t, orig, CategorizeError(wrapped, "scheduler", "flush"))
}

func TestBotError_Behaviour(t *testing.T) {
	cfg := NewConfigurationError("config", "load", "missing pairs")
	assert.True(t, cfg.IsFatal())
	assert.False(t, cfg.IsRetryable())
	assert.Equal(t, RecoveryActionStop, cfg.GetRecoveryAction())
	assert.Equal(t, "[CONFIG:config] load: missing pairs", cfg.Error())

	net := NewNetworkError("exchange", "klines", fmt.Errorf("wrapped: %w", statusErr(503)))
	assert.True(t, net.IsRetryable())
	assert.Equal(t, RecoveryActionRetry, net.GetRecoveryAction())
	assert.Equal(t, "NETWORK(errors.statusErr)", net.TypeName())

	assert.Equal(t, RecoveryActionWait, WrapError(statusErr(429), ErrorCategoryRateLimit, "x", "y").GetRecoveryAction())
	assert.Equal(t, RecoveryActionSkip, NewDataError("x", "y", "z").GetRecoveryAction())
	assert.Nil(t, WrapError(nil, ErrorCategoryData, "x", "y"))

	withCtx := NewPanicError("tracker", "step", "boom").WithContext("symbol", "BTCUSDT")
	assert.Equal(t, "BTCUSDT", withCtx.Context["symbol"])
	assert.Contains(t, withCtx.Error(), "panic: boom")
}

func TestErrorStats(t *testing.T) {
	stats := NewErrorStats(2)
	stats.RecordError(NewDataError("a", "b", "c"))
	stats.RecordError(NewNetworkError("a", "b", stderrors.New("x")))
	stats.RecordError(NewNetworkError("a", "b", stderrors.New("y")))

	assert.Equal(t, 3, stats.Total())
	assert.Equal(t, map[ErrorCategory]int{ErrorCategoryData: 1, ErrorCategoryNetwork: 2}, stats.ByCategory())
	assert.True(t, stats.HasRecentErrors(ErrorCategoryNetwork, 2))
	// the oldest entry fell out of the recent window
	assert.False(t, stats.HasRecentErrors(ErrorCategoryData, 1))
}
