package strategy

import (
	"time"

	"github.com/ducminhle1904/flipside-bot/internal/indicators"
	"github.com/ducminhle1904/flipside-bot/internal/logger"
)

// Vote is one rule's sub-signal on a bar.
type Vote struct {
	Rule    string      `json:"rule"`
	Trigger TradeAction `json:"trigger"`
	Signal  SubSignal   `json:"signal"`
}

// Resolution is the outcome of resolving one bar.
type Resolution struct {
	Index    int         `json:"index"`
	Time     time.Time   `json:"time"`
	Price    float64     `json:"price"`
	Votes    []Vote      `json:"votes"`
	Buys     int         `json:"buys"`
	Sells    int         `json:"sells"`
	Dominant TradeAction `json:"dominant"`
}

// Resolver turns frame rows into dominant signals. It keeps each rule's
// sub-signal and private state across bars and must be stepped through bars
// in order, each exactly once.
type Resolver struct {
	rules  []Rule
	ttls   []int
	quorum int
	subs   []SubSignal
	states []RuleState
	log    *logger.Logger
}

// NewResolver builds a resolver from a descriptor.
func NewResolver(d Descriptor, log *logger.Logger) (*Resolver, error) {
	rules, ttls, err := d.Build()
	if err != nil {
		return nil, err
	}
	return &Resolver{
		rules:  rules,
		ttls:   ttls,
		quorum: d.Quorum,
		subs:   make([]SubSignal, len(rules)),
		states: make([]RuleState, len(rules)),
		log:    logger.OrNop(log),
	}, nil
}

// Rules returns the configured rule names in vote order.
func (r *Resolver) Rules() []string {
	names := make([]string, len(r.rules))
	for i, rule := range r.rules {
		names[i] = rule.Name()
	}
	return names
}

// Step resolves bar i of the frame. New sub-signals and rule states are built
// aside and committed only once the whole bar has been evaluated.
func (r *Resolver) Step(f *indicators.Frame, i int) Resolution {
	subs := make([]SubSignal, len(r.subs))
	states := make([]RuleState, len(r.states))
	votes := make([]Vote, len(r.rules))

	for k, rule := range r.rules {
		trigger, st := rule.Evaluate(f, i, r.states[k])
		subs[k] = r.subs[k].Advance(trigger, r.ttls[k])
		states[k] = st
		votes[k] = Vote{Rule: rule.Name(), Trigger: trigger, Signal: subs[k]}
	}

	dominant, buys, sells := Arbitrate(subs, r.quorum)
	price, _ := f.Value(indicators.ColClose, i)

	r.subs = subs
	r.states = states

	if dominant != ActionHold {
		r.log.Debug("bar %d dominant %s (buy votes %d, sell votes %d) at %.8f", i, dominant, buys, sells, price)
	}

	return Resolution{
		Index:    i,
		Time:     f.Time(i),
		Price:    price,
		Votes:    votes,
		Buys:     buys,
		Sells:    sells,
		Dominant: dominant,
	}
}

// SubSignals returns a copy of the current votes.
func (r *Resolver) SubSignals() []SubSignal {
	out := make([]SubSignal, len(r.subs))
	copy(out, r.subs)
	return out
}

// Reset clears every vote and pending state.
func (r *Resolver) Reset() {
	for k := range r.subs {
		r.subs[k] = SubSignal{}
		r.states[k] = RuleState{}
	}
}
