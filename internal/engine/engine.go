package engine

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// Engine validates actions against hand state and advances the
// betting state machine. It holds no hand state itself: every call
// works on a Hand snapshot the caller read from the store, and the
// caller commits the mutated copy under compare-and-swap.
type Engine struct {
	logger       *log.Logger
	actionWindow time.Duration
}

// New creates an engine. actionWindow is the fixed duration a seat has
// to act once it becomes the actor.
func New(logger *log.Logger, actionWindow time.Duration) *Engine {
	return &Engine{
		logger:       logger.WithPrefix("engine"),
		actionWindow: actionWindow,
	}
}

// Deal starts a hand and immediately resolves any deal that opens with
// nobody able to act: when the blind posts consume every stack, there
// is no actor to wait for, so the board runs out and the showdown
// settles before the hand is ever exposed to requests.
func (e *Engine) Deal(cfg HandConfig) (*Hand, error) {
	h, err := NewHand(cfg)
	if err != nil {
		return nil, err
	}
	if h.ActorSeat < 0 && h.Phase != Complete {
		e.nextStreet(h, h.Snapshot(), cfg.Now)
	}
	return h, nil
}

// ActionRequest is an inbound, identity-verified player decision.
// Amount is meaningful only for Raise and is the total target bet
// level for the round, not an increment.
type ActionRequest struct {
	PlayerID string
	Type     ActionType
	Amount   int
}

// Apply processes one action against the hand, mutating it in place.
// The returned bool reports whether the hand changed: the caller must
// commit when it is true, even if the caller's own action was rejected
// (a timeout fold may have landed first), and discard otherwise.
//
// If the hand's action deadline has already passed, the current actor
// is force-folded first, whoever sent the request; the original intent
// is then processed against the post-fold state. This is the lazy
// timeout path: expiry is only ever noticed when some request arrives.
func (e *Engine) Apply(h *Hand, req ActionRequest, now time.Time) (bool, error) {
	if h.Phase == Complete || h.Phase == Showdown {
		return false, ErrHandComplete
	}

	changed := false
	if h.Deadline != nil && now.After(*h.Deadline) && h.ActorSeat >= 0 {
		e.forceFoldActor(h, now)
		changed = true
		if h.Phase == Complete {
			// The timeout fold ended the hand; the caller's intent has
			// nothing left to apply to.
			return changed, ErrHandComplete
		}
	}

	seat, ok := h.seatByPlayer(req.PlayerID)
	if !ok {
		return changed, ErrSeatNotFound
	}
	if h.ActorSeat != seat.Number {
		return changed, ErrNotYourTurn
	}

	snap := h.Snapshot()
	ss := snap.BySeat(seat.Number)
	if ss == nil || ss.Status != Active {
		return changed, fmt.Errorf("%w: seat %d is %s", ErrCorruptLog, seat.Number, ss.Status)
	}

	rec := ActionRecord{
		PlayerID: seat.PlayerID,
		Seat:     seat.Number,
		Phase:    h.Phase,
		At:       now,
	}
	toCall := snap.CurrentBet - ss.RoundBet

	switch req.Type {
	case Fold:
		rec.Type = Fold

	case Check:
		if toCall > 0 {
			return changed, fmt.Errorf("%w: %d to call", ErrIllegalCheck, toCall)
		}
		rec.Type = Check

	case Call:
		rec.Type = Call
		rec.Amount = min(toCall, ss.Stack)

	case Raise:
		target := req.Amount
		needed := target - ss.RoundBet
		if needed >= ss.Stack {
			// Raising for the whole stack (or trying to raise beyond
			// it) is an all-in for whatever the seat actually has.
			rec.Type = AllIn
			rec.Amount = ss.Stack
			break
		}
		if target < snap.CurrentBet+snap.MinRaise {
			return changed, fmt.Errorf("%w: minimum %d", ErrRaiseTooSmall, snap.CurrentBet+snap.MinRaise)
		}
		rec.Type = Raise
		rec.Amount = needed

	case AllIn:
		rec.Type = AllIn
		rec.Amount = ss.Stack

	case PostBlind, PostAnte:
		return changed, fmt.Errorf("%w: %s is not a player decision", ErrInvalidAction, req.Type)

	default:
		return changed, fmt.Errorf("%w: %v", ErrInvalidAction, req.Type)
	}

	h.appendAction(rec)
	snap.apply(h.Actions[len(h.Actions)-1])
	h.CurrentBet = snap.CurrentBet
	h.MinRaise = snap.MinRaise

	e.advance(h, snap, seat.Number, now)
	return true, nil
}

// forceFoldActor folds the delinquent current actor out of turn. This
// is the single sanctioned bypass of the turn check.
func (e *Engine) forceFoldActor(h *Hand, now time.Time) {
	seat, ok := h.seatByNumber(h.ActorSeat)
	if !ok {
		return
	}
	e.logger.Info("force-folding actor past deadline",
		"hand", h.ID, "seat", seat.Number, "player", seat.PlayerID)

	h.appendAction(ActionRecord{
		PlayerID: seat.PlayerID,
		Seat:     seat.Number,
		Type:     Fold,
		Phase:    h.Phase,
		Forced:   true,
		At:       now,
	})
	snap := h.Snapshot()
	h.CurrentBet = snap.CurrentBet
	h.MinRaise = snap.MinRaise
	e.advance(h, snap, seat.Number, now)
}

// advance decides what follows an action: next actor, next street,
// accelerated runout, or hand completion.
func (e *Engine) advance(h *Hand, snap *Snapshot, actedSeat int, now time.Time) {
	// Last one standing ends the hand immediately, skipping any
	// remaining streets and showdown evaluation.
	if snap.live() <= 1 {
		e.completeLastStanding(h, snap)
		return
	}

	if !snap.roundClosed() {
		next, ok := h.nextOccupied(actedSeat, func(s Seat) bool {
			ss := snap.BySeat(s.Number)
			return ss != nil && ss.Status == Active
		})
		if ok {
			e.setActor(h, next.Number, now)
			return
		}
		// Nobody can act: the round is effectively closed.
	}

	e.nextStreet(h, snap, now)
}

// nextStreet deals the next street and opens its betting round. When
// no further action is possible (all but at most one contender all-in)
// it deals every remaining street in one step and goes straight to
// showdown.
func (e *Engine) nextStreet(h *Hand, snap *Snapshot, now time.Time) {
	for {
		switch h.Phase {
		case Preflop:
			h.Community = append(h.Community, h.remainingDeck().Deal(3)...)
			h.Phase = Flop
		case Flop:
			h.Community = append(h.Community, h.remainingDeck().Deal(1)...)
			h.Phase = Turn
		case Turn:
			h.Community = append(h.Community, h.remainingDeck().Deal(1)...)
			h.Phase = River
		case River:
			e.resolveShowdown(h, snap)
			return
		}

		h.CurrentBet = 0
		h.MinRaise = h.BigBlind

		if snap.active() >= 2 {
			// A fresh round starts left of the dealer.
			next, ok := h.nextOccupied(h.DealerSeat, func(s Seat) bool {
				ss := snap.BySeat(s.Number)
				return ss != nil && ss.Status == Active
			})
			if ok {
				e.setActor(h, next.Number, now)
				return
			}
		}
		// No action possible: keep dealing through to showdown.
	}
}

func (e *Engine) setActor(h *Hand, seatNumber int, now time.Time) {
	h.ActorSeat = seatNumber
	deadline := now.Add(e.actionWindow)
	h.Deadline = &deadline
}

func (h *Hand) clearActor() {
	h.ActorSeat = -1
	h.Deadline = nil
}
