package notifications

import (
	"context"
	"errors"
)

// Level tags a notification.
type Level string

const (
	LevelInfo     Level = "info"
	LevelSuccess  Level = "success"
	LevelWarning  Level = "warning"
	LevelError    Level = "error"
	LevelCritical Level = "critical" // a pair stopped trading
	LevelTrade    Level = "trade"
)

// Notifier defines the interface for notification services. Delivery is best
// effort: callers log failures and carry on.
type Notifier interface {
	Notify(ctx context.Context, level Level, message string) error
}

// Multi fans a notification out to every notifier.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, level Level, message string) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, level, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards every notification.
type Nop struct{}

func (Nop) Notify(context.Context, Level, string) error { return nil }
