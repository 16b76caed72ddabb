package safety

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/flipside-bot/internal/exchange"
	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

// ErrInvalidOrder rejects an order request before it reaches the venue.
var ErrInvalidOrder = errors.New("invalid order")

// GuardConfig sizes the shared limiter and breaker of one venue.
type GuardConfig struct {
	RequestsPerSecond int
	Burst             int
	FailureThreshold  uint32
	Cooldown          time.Duration
}

// GuardedClient wraps an exchange connector with a token bucket, a circuit
// breaker and pre-flight order checks. All pairs share one instance.
type GuardedClient struct {
	inner   exchange.Client
	limiter *RateLimiter
	breaker *CircuitBreaker
}

// Guard wraps client.
func Guard(client exchange.Client, cfg GuardConfig) *GuardedClient {
	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.RequestsPerSecond
	}
	return &GuardedClient{
		inner:   client,
		limiter: NewRateLimiter(client.Name(), burst, cfg.RequestsPerSecond),
		breaker: NewCircuitBreaker(client.Name(), CircuitBreakerConfig{
			FailureThreshold: cfg.FailureThreshold,
			Timeout:          cfg.Cooldown,
			IsFailure:        IsVenueFailure,
		}),
	}
}

// Breaker exposes the breaker for state callbacks and health reporting.
func (g *GuardedClient) Breaker() *CircuitBreaker { return g.breaker }

func (g *GuardedClient) Name() string { return g.inner.Name() }

func (g *GuardedClient) do(ctx context.Context, fn func() error) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}
	return g.breaker.Call(fn)
}

func (g *GuardedClient) FetchKlines(ctx context.Context, symbol, interval string, since time.Time, limit int) ([]types.RawKline, error) {
	var out []types.RawKline
	err := g.do(ctx, func() error {
		var err error
		out, err = g.inner.FetchKlines(ctx, symbol, interval, since, limit)
		return err
	})
	return out, err
}

func (g *GuardedClient) PlaceMarketOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResult, error) {
	if err := ValidateOrder(req); err != nil {
		return exchange.OrderResult{}, err
	}
	var out exchange.OrderResult
	err := g.do(ctx, func() error {
		var err error
		out, err = g.inner.PlaceMarketOrder(ctx, req)
		return err
	})
	return out, err
}

func (g *GuardedClient) Balances(ctx context.Context) ([]types.Balance, error) {
	var out []types.Balance
	err := g.do(ctx, func() error {
		var err error
		out, err = g.inner.Balances(ctx)
		return err
	})
	return out, err
}

// SymbolRules asks the wrapped connector for sizing rules. Connectors without
// instrument data impose none.
func (g *GuardedClient) SymbolRules(ctx context.Context, symbol string) (exchange.SymbolRules, error) {
	src, ok := g.inner.(exchange.InstrumentSource)
	if !ok {
		return exchange.SymbolRules{Symbol: symbol}, nil
	}
	var out exchange.SymbolRules
	err := g.do(ctx, func() error {
		var err error
		out, err = src.SymbolRules(ctx, symbol)
		return err
	})
	return out, err
}

// Commission asks the wrapped connector for the account rate. ok is false
// when the connector cannot report one.
func (g *GuardedClient) Commission(ctx context.Context, symbol string) (rate decimal.Decimal, ok bool, err error) {
	src, ok := g.inner.(exchange.FeeSource)
	if !ok {
		return decimal.Zero, false, nil
	}
	err = g.do(ctx, func() error {
		var err error
		rate, err = src.Commission(ctx, symbol)
		return err
	})
	return rate, true, err
}

// IsVenueFailure reports whether err says the venue itself is unwell. Client
// side rejections (4xx other than rate limiting) and cancellations do not
// count.
func IsVenueFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var ce *exchange.ClientError
	if errors.As(err, &ce) {
		return ce.Status == 0 || ce.Status >= 500 || ce.Status == 429 || ce.Status == 418
	}
	return true
}

// ValidateOrder checks an order request before it is sent: buys are sized in
// quote and sells in base, both strictly positive.
func ValidateOrder(req exchange.OrderRequest) error {
	if req.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidOrder)
	}
	switch req.Side {
	case exchange.SideBuy:
		if !req.QuoteAmount.IsPositive() {
			return fmt.Errorf("%w: %s buy quote amount %s", ErrInvalidOrder, req.Symbol, req.QuoteAmount)
		}
	case exchange.SideSell:
		if !req.BaseAmount.IsPositive() {
			return fmt.Errorf("%w: %s sell base amount %s", ErrInvalidOrder, req.Symbol, req.BaseAmount)
		}
	default:
		return fmt.Errorf("%w: %s side %q", ErrInvalidOrder, req.Symbol, req.Side)
	}
	return nil
}
