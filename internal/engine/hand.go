package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/cardroom/holdemd/internal/deck"
)

// Seat is a roster entry frozen at hand start. Everything else about a
// seat during the hand is derived by replaying the action log.
type Seat struct {
	Number        int    `json:"number"`
	PlayerID      string `json:"playerId"`
	StartingStack int    `json:"startingStack"`
	Participating bool   `json:"participating"`
}

// ActionRecord is one append-only, sequence-numbered log entry per
// player decision. The log is the single source of truth for seat
// state; it is never mutated or deleted.
type ActionRecord struct {
	Seq      int        `json:"seq"`
	PlayerID string     `json:"playerId"`
	Seat     int        `json:"seat"`
	Type     ActionType `json:"type"`
	Amount   int        `json:"amount"` // chips moved by this action
	Phase    Phase      `json:"phase"`
	Forced   bool       `json:"forced,omitempty"` // timeout fold
	At       time.Time  `json:"at"`
}

// Hand is the authoritative record of one deal. It is mutated only
// through Engine.Apply and committed by the store's compare-and-swap;
// once Phase reaches Complete it is immutable.
type Hand struct {
	ID      string `json:"id"`
	TableID string `json:"tableId"`
	HandNo  int64  `json:"handNo"`

	Phase      Phase       `json:"phase"`
	Community  []deck.Card `json:"community"` // append-only, 0-5
	CurrentBet int         `json:"currentBet"`
	MinRaise   int         `json:"minRaise"`

	SmallBlind int `json:"smallBlind"`
	BigBlind   int `json:"bigBlind"`

	DealerSeat     int `json:"dealerSeat"`
	SmallBlindSeat int `json:"smallBlindSeat"`
	BigBlindSeat   int `json:"bigBlindSeat"`

	ActorSeat int        `json:"actorSeat"` // -1 when no actor
	Deadline  *time.Time `json:"deadline,omitempty"`

	// Seed is server-only until showdown; RevealedSeed is empty until
	// then. Neither appears in any public view before reveal.
	Seed         deck.Seed `json:"seed"`
	RevealedSeed string    `json:"revealedSeed,omitempty"`

	Version int64 `json:"version"`

	Seats   []Seat         `json:"seats"`
	Actions []ActionRecord `json:"actions"`

	Results *Results `json:"results,omitempty"`
}

// participants returns the participating seats in seat-number order.
func (h *Hand) participants() []Seat {
	out := make([]Seat, 0, len(h.Seats))
	for _, s := range h.Seats {
		if s.Participating {
			out = append(out, s)
		}
	}
	return out
}

// seatByNumber returns the roster entry for a seat number.
func (h *Hand) seatByNumber(n int) (Seat, bool) {
	for _, s := range h.Seats {
		if s.Number == n {
			return s, true
		}
	}
	return Seat{}, false
}

// seatByPlayer resolves a player ID to their seat for this hand.
func (h *Hand) seatByPlayer(playerID string) (Seat, bool) {
	for _, s := range h.Seats {
		if s.PlayerID == playerID {
			return s, true
		}
	}
	return Seat{}, false
}

// HoleCards returns the two hole cards for a seat, derived from the
// committed seed: two cards per participating seat, dealt in
// seat-number order before any community card.
func (h *Hand) HoleCards(seatNumber int) (deck.Hand, bool) {
	d := deck.New(h.Seed)
	for _, s := range h.participants() {
		cards := d.Deal(2)
		if s.Number == seatNumber {
			return deck.NewHand(cards...), true
		}
	}
	return 0, false
}

// remainingDeck reconstructs the deck positioned after everything
// already dealt: hole cards first, then the community so far.
func (h *Hand) remainingDeck() *deck.Deck {
	d := deck.New(h.Seed)
	d.Skip(2*len(h.participants()) + len(h.Community))
	return d
}

// DealtCards lists every card consumed so far in deal order, for
// post-reveal verification against the seed.
func (h *Hand) DealtCards() []deck.Card {
	d := deck.New(h.Seed)
	return d.Deal(2*len(h.participants()) + len(h.Community))
}

// nextSeq returns the sequence number for the next log entry.
func (h *Hand) nextSeq() int {
	return len(h.Actions) + 1
}

func (h *Hand) appendAction(rec ActionRecord) {
	rec.Seq = h.nextSeq()
	h.Actions = append(h.Actions, rec)
}

// nextOccupied walks participating seats in seat-number order starting
// just after `from`, returning the first one that passes keep.
func (h *Hand) nextOccupied(from int, keep func(Seat) bool) (Seat, bool) {
	seats := h.participants()
	if len(seats) == 0 {
		return Seat{}, false
	}
	// Index of the first seat strictly after `from`, wrapping.
	start := 0
	for i, s := range seats {
		if s.Number > from {
			start = i
			break
		}
		if i == len(seats)-1 {
			start = 0
		}
	}
	for i := 0; i < len(seats); i++ {
		s := seats[(start+i)%len(seats)]
		if keep(s) {
			return s, true
		}
	}
	return Seat{}, false
}

// HandConfig carries everything a new deal needs from the table layer.
type HandConfig struct {
	TableID    string
	HandID     string
	HandNo     int64
	Seats      []Seat
	DealerSeat int
	SmallBlind int
	BigBlind   int
	Seed       deck.Seed
	Now        time.Time
	Deadline   time.Duration
}

// NewHand starts a deal: assigns blinds, posts them as log entries,
// commits the deck seed and sets the first actor. Hole cards are not
// materialized anywhere; they are a function of the seed.
func NewHand(cfg HandConfig) (*Hand, error) {
	h := &Hand{
		ID:         cfg.HandID,
		TableID:    cfg.TableID,
		HandNo:     cfg.HandNo,
		Phase:      Preflop,
		SmallBlind: cfg.SmallBlind,
		BigBlind:   cfg.BigBlind,
		DealerSeat: cfg.DealerSeat,
		ActorSeat:  -1,
		Seed:       cfg.Seed,
		Version:    1,
		Seats:      append([]Seat(nil), cfg.Seats...),
	}
	sort.Slice(h.Seats, func(i, j int) bool { return h.Seats[i].Number < h.Seats[j].Number })

	parts := h.participants()
	if len(parts) < 2 {
		return nil, fmt.Errorf("need at least 2 participating seats, got %d", len(parts))
	}
	if _, ok := h.seatByNumber(cfg.DealerSeat); !ok {
		return nil, fmt.Errorf("dealer seat %d not in roster", cfg.DealerSeat)
	}

	alive := func(s Seat) bool { return s.Participating }

	// Heads-up: the dealer posts the small blind and acts first
	// preflop. Otherwise blinds sit left of the dealer.
	if len(parts) == 2 {
		if s, ok := h.seatByNumber(cfg.DealerSeat); ok && s.Participating {
			h.SmallBlindSeat = cfg.DealerSeat
		} else {
			sb, _ := h.nextOccupied(cfg.DealerSeat, alive)
			h.SmallBlindSeat = sb.Number
		}
		bb, _ := h.nextOccupied(h.SmallBlindSeat, alive)
		h.BigBlindSeat = bb.Number
	} else {
		sb, _ := h.nextOccupied(cfg.DealerSeat, alive)
		h.SmallBlindSeat = sb.Number
		bb, _ := h.nextOccupied(h.SmallBlindSeat, alive)
		h.BigBlindSeat = bb.Number
	}

	h.postBlind(h.SmallBlindSeat, cfg.SmallBlind, cfg.Now)
	h.postBlind(h.BigBlindSeat, cfg.BigBlind, cfg.Now)
	h.CurrentBet = cfg.BigBlind
	h.MinRaise = cfg.BigBlind

	// First to act preflop: left of the big blind.
	snap := h.Snapshot()
	actor, ok := h.nextOccupied(h.BigBlindSeat, func(s Seat) bool {
		ss := snap.BySeat(s.Number)
		return ss != nil && ss.Status == Active
	})
	if ok {
		h.ActorSeat = actor.Number
		deadline := cfg.Now.Add(cfg.Deadline)
		h.Deadline = &deadline
	}

	return h, nil
}

func (h *Hand) postBlind(seatNumber, amount int, now time.Time) {
	seat, _ := h.seatByNumber(seatNumber)
	posted := amount
	if posted > seat.StartingStack {
		posted = seat.StartingStack
	}
	h.appendAction(ActionRecord{
		PlayerID: seat.PlayerID,
		Seat:     seatNumber,
		Type:     PostBlind,
		Amount:   posted,
		Phase:    Preflop,
		At:       now,
	})
}
