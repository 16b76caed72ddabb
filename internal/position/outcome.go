package position

// State is the position state machine state.
type State int

const (
	StateFlat State = iota
	StateCommitted
)

func (s State) String() string {
	switch s {
	case StateFlat:
		return "FLAT"
	case StateCommitted:
		return "COMMITTED"
	default:
		return "UNKNOWN"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	if string(b) == "COMMITTED" {
		*s = StateCommitted
	} else {
		*s = StateFlat
	}
	return nil
}

// Outcome reports why a trade was or was not made. Refusals are ordinary
// results, not errors.
type Outcome int

const (
	OK Outcome = iota
	InsufficientFunds
	NoProfit
	AlreadyCommitted
	NotCommitted
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "OK"
	case InsufficientFunds:
		return "INSUFFICIENT_FUNDS"
	case NoProfit:
		return "NO_PROFIT"
	case AlreadyCommitted:
		return "ALREADY_COMMITTED"
	case NotCommitted:
		return "NOT_COMMITTED"
	default:
		return "UNKNOWN"
	}
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }
