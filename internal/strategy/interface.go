package strategy

import (
	"fmt"
	"strings"

	"github.com/ducminhle1904/flipside-bot/internal/indicators"
)

// TradeAction represents the type of trading action
type TradeAction int

const (
	ActionHold TradeAction = iota
	ActionBuy
	ActionSell
)

func (ta TradeAction) String() string {
	switch ta {
	case ActionHold:
		return "HOLD"
	case ActionBuy:
		return "BUY"
	case ActionSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// ParseTradeAction is the inverse of String.
func ParseTradeAction(s string) (TradeAction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HOLD":
		return ActionHold, nil
	case "BUY":
		return ActionBuy, nil
	case "SELL":
		return ActionSell, nil
	default:
		return ActionHold, fmt.Errorf("unknown trade action %q", s)
	}
}

func (ta TradeAction) MarshalText() ([]byte, error) {
	return []byte(ta.String()), nil
}

func (ta *TradeAction) UnmarshalText(b []byte) error {
	a, err := ParseTradeAction(string(b))
	if err != nil {
		return err
	}
	*ta = a
	return nil
}

// RuleState is the private per-rule memory carried from bar to bar.
type RuleState struct {
	Pending    TradeAction
	PendingAge int
}

// Rule maps one indicator family's frame values at a bar to a raw trigger.
// It returns ActionHold when nothing triggers on that bar. Rules are pure:
// all memory lives in the RuleState the resolver passes in.
type Rule interface {
	Name() string
	Family() string
	Evaluate(f *indicators.Frame, i int, st RuleState) (TradeAction, RuleState)
}
