package bybit

import (
	"context"
	"math"
	"time"
)

// RetryConfig holds configuration for retry mechanisms
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    2,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// retry runs fn until it succeeds, fails with a non-retryable error, or the
// attempts are exhausted. Only idempotent reads go through here.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= c.retryCfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil || !IsRetryableError(lastErr) || attempt == c.retryCfg.MaxRetries {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.calculateDelay(attempt)):
		}
	}
	return lastErr
}

func (c *Client) calculateDelay(attempt int) time.Duration {
	delay := time.Duration(float64(c.retryCfg.InitialDelay) * math.Pow(c.retryCfg.BackoffFactor, float64(attempt)))
	if delay > c.retryCfg.MaxDelay {
		delay = c.retryCfg.MaxDelay
	}
	return delay
}
