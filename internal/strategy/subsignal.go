package strategy

// SubSignal is one rule's current vote. A non-HOLD vote stays alive for TTL
// bars after its last trigger.
type SubSignal struct {
	Action TradeAction `json:"action"`
	TTL    int         `json:"ttl"`
}

// Arm sets the vote and resets its lifetime. A non-positive ttl keeps the
// vote for the current bar only.
func (s SubSignal) Arm(action TradeAction, ttl int) SubSignal {
	if action == ActionHold {
		return SubSignal{}
	}
	if ttl < 1 {
		ttl = 1
	}
	return SubSignal{Action: action, TTL: ttl}
}

// Decay ages the vote by one bar and reverts it to HOLD when expired.
func (s SubSignal) Decay() SubSignal {
	if s.Action == ActionHold {
		return SubSignal{}
	}
	s.TTL--
	if s.TTL <= 0 {
		return SubSignal{}
	}
	return s
}

// Advance applies one bar: a trigger re-arms, otherwise the vote decays.
func (s SubSignal) Advance(trigger TradeAction, ttl int) SubSignal {
	if trigger != ActionHold {
		return s.Arm(trigger, ttl)
	}
	return s.Decay()
}

// Alive reports whether the vote still counts.
func (s SubSignal) Alive() bool {
	return s.Action != ActionHold && s.TTL > 0
}

// Arbitrate resolves the dominant action. One side wins only if it has more
// alive votes than the other and at least quorum of them.
func Arbitrate(subs []SubSignal, quorum int) (TradeAction, int, int) {
	var buys, sells int
	for _, s := range subs {
		if !s.Alive() {
			continue
		}
		switch s.Action {
		case ActionBuy:
			buys++
		case ActionSell:
			sells++
		}
	}

	if quorum < 1 {
		quorum = 1
	}
	switch {
	case sells > buys && sells >= quorum:
		return ActionSell, buys, sells
	case buys > sells && buys >= quorum:
		return ActionBuy, buys, sells
	default:
		return ActionHold, buys, sells
	}
}
