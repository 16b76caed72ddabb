package strategy

import (
	"github.com/ducminhle1904/flipside-bot/internal/indicators"
)

// BandRule fires on a band touch confirmed by a reversal of the high or low
// velocity. A touch while price is still running toward the extreme arms a
// pending vote instead. The pending vote fires on the bar velocity turns, is
// cancelled if price returns inside the band first, and expires after
// pendingTTL bars.
type BandRule struct {
	name       string
	pendingTTL int
}

func NewBandRule(name string, pendingTTL int) *BandRule {
	if name == "" {
		name = "band"
	}
	return &BandRule{name: name, pendingTTL: pendingTTL}
}

func (r *BandRule) Name() string   { return r.name }
func (r *BandRule) Family() string { return indicators.FamilyBands }

func (r *BandRule) Evaluate(f *indicators.Frame, i int, st RuleState) (TradeAction, RuleState) {
	upper, okUpper := f.Value(indicators.ColUpper, i)
	lower, okLower := f.Value(indicators.ColLower, i)
	if !okUpper || !okLower || upper <= lower {
		// undefined or zero-width band carries no information
		return ActionHold, RuleState{}
	}
	high, _ := f.Value(indicators.ColHigh, i)
	low, _ := f.Value(indicators.ColLow, i)
	highVel, okHighVel := f.Value(indicators.ColHighVelocity, i)
	lowVel, okLowVel := f.Value(indicators.ColLowVelocity, i)

	switch st.Pending {
	case ActionBuy:
		st.PendingAge++
		switch {
		case okLowVel && lowVel >= 0:
			return ActionBuy, RuleState{}
		case low > lower:
			return ActionHold, RuleState{}
		case st.PendingAge >= r.pendingTTL:
			return ActionHold, RuleState{}
		}
		return ActionHold, st
	case ActionSell:
		st.PendingAge++
		switch {
		case okHighVel && highVel <= 0:
			return ActionSell, RuleState{}
		case high < upper:
			return ActionHold, RuleState{}
		case st.PendingAge >= r.pendingTTL:
			return ActionHold, RuleState{}
		}
		return ActionHold, st
	}

	touchLower := low <= lower
	touchUpper := high >= upper
	switch {
	case touchLower && touchUpper:
		return ActionHold, RuleState{}
	case touchLower:
		if okLowVel && lowVel >= 0 {
			return ActionBuy, RuleState{}
		}
		return ActionHold, RuleState{Pending: ActionBuy}
	case touchUpper:
		if okHighVel && highVel <= 0 {
			return ActionSell, RuleState{}
		}
		return ActionHold, RuleState{Pending: ActionSell}
	}
	return ActionHold, RuleState{}
}

// ThresholdRule votes SELL when an oscillator reaches its upper level and BUY
// at its lower level. With a velocity column set, the vote also needs the
// oscillator to be turning back (velocity ≤ 0 at the top, ≥ 0 at the bottom).
type ThresholdRule struct {
	name     string
	family   string
	column   string
	velocity string
	upper    float64
	lower    float64
}

// NewMomentumRule votes on the true strength index with velocity confirmation.
func NewMomentumRule(name string, upper, lower float64, confirm bool) *ThresholdRule {
	if name == "" {
		name = "momentum"
	}
	r := &ThresholdRule{name: name, family: indicators.FamilyMomentum, column: indicators.ColTSI, upper: upper, lower: lower}
	if confirm {
		r.velocity = indicators.ColTSIVelocity
	}
	return r
}

// NewFlowRule votes on the money flow index.
func NewFlowRule(name string, upper, lower float64) *ThresholdRule {
	if name == "" {
		name = "flow"
	}
	return &ThresholdRule{name: name, family: indicators.FamilyFlow, column: indicators.ColMFI, upper: upper, lower: lower}
}

func (r *ThresholdRule) Name() string   { return r.name }
func (r *ThresholdRule) Family() string { return r.family }

func (r *ThresholdRule) Evaluate(f *indicators.Frame, i int, st RuleState) (TradeAction, RuleState) {
	v, ok := f.Value(r.column, i)
	if !ok {
		return ActionHold, st
	}

	vel, velOK := 0.0, true
	if r.velocity != "" {
		vel, velOK = f.Value(r.velocity, i)
	}

	switch {
	case v >= r.upper && velOK && vel <= 0:
		return ActionSell, st
	case v <= r.lower && velOK && vel >= 0:
		return ActionBuy, st
	}
	return ActionHold, st
}

// DirectionalRule reads a dominant directional strength as exhaustion: a
// strong positive side votes SELL and a strong negative side votes BUY.
type DirectionalRule struct {
	name      string
	threshold float64
}

func NewDirectionalRule(name string, threshold float64) *DirectionalRule {
	if name == "" {
		name = "directional"
	}
	return &DirectionalRule{name: name, threshold: threshold}
}

func (r *DirectionalRule) Name() string   { return r.name }
func (r *DirectionalRule) Family() string { return indicators.FamilyDirectional }

func (r *DirectionalRule) Evaluate(f *indicators.Frame, i int, st RuleState) (TradeAction, RuleState) {
	plus, okPlus := f.Value(indicators.ColPlusDI, i)
	minus, okMinus := f.Value(indicators.ColMinusDI, i)
	if !okPlus || !okMinus {
		return ActionHold, st
	}
	switch {
	case plus >= r.threshold && plus > minus:
		return ActionSell, st
	case minus >= r.threshold && minus > plus:
		return ActionBuy, st
	}
	return ActionHold, st
}
