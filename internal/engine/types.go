// Package engine implements the server-authoritative Texas Hold'em
// hand engine: a betting state machine over an append-only action log,
// with seat state reconstructed by replay and mutations committed
// under optimistic versioning by the store layer.
package engine

import (
	"errors"
	"fmt"
)

// Phase is the betting round a hand is in.
type Phase int

const (
	Preflop Phase = iota
	Flop
	Turn
	River
	Showdown
	Complete
)

func (p Phase) String() string {
	switch p {
	case Preflop:
		return "preflop"
	case Flop:
		return "flop"
	case Turn:
		return "turn"
	case River:
		return "river"
	case Showdown:
		return "showdown"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// MarshalText serializes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	switch string(text) {
	case "preflop":
		*p = Preflop
	case "flop":
		*p = Flop
	case "turn":
		*p = Turn
	case "river":
		*p = River
	case "showdown":
		*p = Showdown
	case "complete":
		*p = Complete
	default:
		return fmt.Errorf("unknown phase %q", text)
	}
	return nil
}

// ActionType is a closed set of player decisions. Dispatch is always an
// exhaustive switch so a new action type is a compile-time concern, not
// a silent no-op.
type ActionType int

const (
	PostBlind ActionType = iota
	PostAnte
	Fold
	Check
	Call
	Raise
	AllIn
)

func (a ActionType) String() string {
	switch a {
	case PostBlind:
		return "post_blind"
	case PostAnte:
		return "post_ante"
	case Fold:
		return "fold"
	case Check:
		return "check"
	case Call:
		return "call"
	case Raise:
		return "raise"
	case AllIn:
		return "all_in"
	default:
		return "unknown"
	}
}

// MarshalText serializes the action type by name.
func (a ActionType) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses an action type name.
func (a *ActionType) UnmarshalText(text []byte) error {
	parsed, err := ParseActionType(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseActionType maps a wire name to an ActionType.
func ParseActionType(s string) (ActionType, error) {
	switch s {
	case "post_blind":
		return PostBlind, nil
	case "post_ante":
		return PostAnte, nil
	case "fold":
		return Fold, nil
	case "check":
		return Check, nil
	case "call":
		return Call, nil
	case "raise":
		return Raise, nil
	case "all_in":
		return AllIn, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
}

// SeatStatus is a seat's standing within the current hand.
type SeatStatus int

const (
	Active SeatStatus = iota
	Folded
	AllInStatus
	NonParticipant
)

func (s SeatStatus) String() string {
	switch s {
	case Active:
		return "active"
	case Folded:
		return "folded"
	case AllInStatus:
		return "all-in"
	case NonParticipant:
		return "non-participant"
	default:
		return "unknown"
	}
}

// MarshalText serializes the status by name.
func (s SeatStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name.
func (s *SeatStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "active":
		*s = Active
	case "folded":
		*s = Folded
	case "all-in":
		*s = AllInStatus
	case "non-participant":
		*s = NonParticipant
	default:
		return fmt.Errorf("unknown seat status %q", text)
	}
	return nil
}

// Rejection classes. Client input errors leave state untouched;
// ErrSuperseded is the concurrency-conflict signal from the store.
var (
	ErrNotYourTurn    = errors.New("not your turn")
	ErrIllegalCheck   = errors.New("cannot check facing a bet")
	ErrRaiseTooSmall  = errors.New("raise below minimum")
	ErrInvalidAction  = errors.New("invalid action")
	ErrHandComplete   = errors.New("hand is complete")
	ErrSeatNotFound   = errors.New("player has no seat in this hand")
	ErrHandNotFound   = errors.New("hand not found")
	ErrSuperseded     = errors.New("superseded by concurrent update")
	ErrCorruptLog     = errors.New("corrupt action log")
)
