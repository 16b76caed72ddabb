package strategy

import (
	"fmt"

	"github.com/ducminhle1904/flipside-bot/internal/indicators"
)

// Rule kinds accepted in a descriptor.
const (
	KindBand        = "band"
	KindMomentum    = "momentum"
	KindFlow        = "flow"
	KindDirectional = "directional"
)

// RuleSpec configures one voting rule.
type RuleSpec struct {
	Name    string  `json:"name,omitempty" yaml:"name,omitempty"`
	Kind    string  `json:"kind" yaml:"kind" validate:"required,oneof=band momentum flow directional"`
	Upper   float64 `json:"upper,omitempty" yaml:"upper,omitempty"`
	Lower   float64 `json:"lower,omitempty" yaml:"lower,omitempty"`
	Confirm bool    `json:"confirm,omitempty" yaml:"confirm,omitempty"`
	TTL     int     `json:"ttl,omitempty" yaml:"ttl,omitempty" validate:"gte=0"`
}

// Descriptor is the data-driven description of a strategy: which rules vote,
// how long their votes live and how many must agree.
type Descriptor struct {
	SignalTTL int        `json:"signal_ttl" yaml:"signal_ttl" validate:"gte=1"`
	Quorum    int        `json:"quorum" yaml:"quorum" validate:"gte=1"`
	Rules     []RuleSpec `json:"rules" yaml:"rules" validate:"required,min=1,dive"`
}

// DefaultDescriptor votes with bands, momentum, money flow and directional
// strength and requires two agreeing votes.
func DefaultDescriptor() Descriptor {
	return Descriptor{
		SignalTTL: 5,
		Quorum:    2,
		Rules: []RuleSpec{
			{Kind: KindBand},
			{Kind: KindMomentum, Upper: 25, Lower: -25, Confirm: true},
			{Kind: KindFlow, Upper: 65, Lower: 35},
			{Kind: KindDirectional, Upper: 30},
		},
	}
}

// Families lists the indicator families the rules read.
func (d Descriptor) Families() []string {
	var out []string
	seen := make(map[string]bool)
	for _, spec := range d.Rules {
		family := familyOf(spec.Kind)
		if family == "" || seen[family] {
			continue
		}
		seen[family] = true
		out = append(out, family)
	}
	return out
}

func familyOf(kind string) string {
	switch kind {
	case KindBand:
		return indicators.FamilyBands
	case KindMomentum:
		return indicators.FamilyMomentum
	case KindFlow:
		return indicators.FamilyFlow
	case KindDirectional:
		return indicators.FamilyDirectional
	}
	return ""
}

// ttlFor returns the vote lifetime of one rule.
func (d Descriptor) ttlFor(spec RuleSpec) int {
	if spec.TTL > 0 {
		return spec.TTL
	}
	return d.SignalTTL
}

// Build instantiates the rules. Names must be unique.
func (d Descriptor) Build() ([]Rule, []int, error) {
	if len(d.Rules) == 0 {
		return nil, nil, fmt.Errorf("strategy has no rules")
	}
	rules := make([]Rule, 0, len(d.Rules))
	ttls := make([]int, 0, len(d.Rules))
	names := make(map[string]bool)

	for idx, spec := range d.Rules {
		ttl := d.ttlFor(spec)
		var rule Rule
		switch spec.Kind {
		case KindBand:
			rule = NewBandRule(spec.Name, ttl)
		case KindMomentum:
			rule = NewMomentumRule(spec.Name, spec.Upper, spec.Lower, spec.Confirm)
		case KindFlow:
			rule = NewFlowRule(spec.Name, spec.Upper, spec.Lower)
		case KindDirectional:
			rule = NewDirectionalRule(spec.Name, spec.Upper)
		default:
			return nil, nil, fmt.Errorf("rule %d: unknown kind %q", idx, spec.Kind)
		}
		if (spec.Kind == KindMomentum || spec.Kind == KindFlow) && spec.Upper <= spec.Lower {
			return nil, nil, fmt.Errorf("rule %s: upper %.2f must exceed lower %.2f", rule.Name(), spec.Upper, spec.Lower)
		}
		if names[rule.Name()] {
			return nil, nil, fmt.Errorf("duplicate rule name %q", rule.Name())
		}
		names[rule.Name()] = true
		rules = append(rules, rule)
		ttls = append(ttls, ttl)
	}
	return rules, ttls, nil
}
