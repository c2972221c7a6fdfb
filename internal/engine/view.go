package engine

import (
	"time"

	"github.com/cardroom/holdemd/internal/deck"
)

// SeatView is the public projection of one seat.
type SeatView struct {
	Seat       int        `json:"seat"`
	PlayerID   string     `json:"playerId"`
	Stack      int        `json:"stack"`
	Status     SeatStatus `json:"status"`
	RoundBet   int        `json:"roundBet"`
	LastAction string     `json:"lastAction,omitempty"`
	HasCards   bool       `json:"hasCards"`
}

// ValidActions advertises what the current actor may legally do, so
// clients need no rules knowledge of their own.
type ValidActions struct {
	Seat     int      `json:"seat"`
	Actions  []string `json:"actions"`
	ToCall   int      `json:"toCall"`
	MinRaise int      `json:"minRaiseTo"` // minimum total bet level for a raise
}

// PublicState is the secret-free snapshot broadcast to every observer
// after each commit. It never carries hole cards, the undealt deck or
// the unrevealed seed.
type PublicState struct {
	TableID      string        `json:"tableId"`
	HandID       string        `json:"handId"`
	HandNo       int64         `json:"handNo"`
	Phase        Phase         `json:"phase"`
	Community    []deck.Card   `json:"community"`
	Pots         []Pot         `json:"pots"`
	CurrentBet   int           `json:"currentBet"`
	MinRaise     int           `json:"minRaise"`
	DealerSeat   int           `json:"dealerSeat"`
	ActorSeat    int           `json:"actorSeat"`
	Deadline     *time.Time    `json:"deadline,omitempty"`
	Version      int64         `json:"version"`
	Seats        []SeatView    `json:"seats"`
	ValidActions *ValidActions `json:"validActions,omitempty"`
}

// Public projects the hand into its broadcastable form.
func (h *Hand) Public() PublicState {
	snap := h.Snapshot()

	seats := make([]SeatView, 0, len(snap.Seats))
	last := lastActions(h)
	for _, s := range snap.Seats {
		seats = append(seats, SeatView{
			Seat:       s.Seat,
			PlayerID:   s.PlayerID,
			Stack:      s.Stack,
			Status:     s.Status,
			RoundBet:   s.RoundBet,
			LastAction: last[s.Seat],
			HasCards:   s.Status == Active || s.Status == AllInStatus,
		})
	}

	state := PublicState{
		TableID:    h.TableID,
		HandID:     h.ID,
		HandNo:     h.HandNo,
		Phase:      h.Phase,
		Community:  append([]deck.Card(nil), h.Community...),
		Pots:       ComputePots(snap.Seats),
		CurrentBet: h.CurrentBet,
		MinRaise:   h.MinRaise,
		DealerSeat: h.DealerSeat,
		ActorSeat:  h.ActorSeat,
		Deadline:   h.Deadline,
		Version:    h.Version,
		Seats:      seats,
	}

	if h.ActorSeat >= 0 {
		if ss := snap.BySeat(h.ActorSeat); ss != nil && ss.Status == Active {
			state.ValidActions = validActionsFor(snap, ss)
		}
	}
	return state
}

// lastActions maps each seat to its most recent action in the current
// phase.
func lastActions(h *Hand) map[int]string {
	out := map[int]string{}
	for _, rec := range h.Actions {
		if rec.Phase == h.Phase || h.Phase == Complete || h.Phase == Showdown {
			out[rec.Seat] = rec.Type.String()
		}
	}
	return out
}

func validActionsFor(snap *Snapshot, ss *SeatSnapshot) *ValidActions {
	toCall := snap.CurrentBet - ss.RoundBet
	va := &ValidActions{
		Seat:     ss.Seat,
		Actions:  []string{Fold.String()},
		ToCall:   toCall,
		MinRaise: snap.CurrentBet + snap.MinRaise,
	}
	if toCall <= 0 {
		va.Actions = append(va.Actions, Check.String())
	} else {
		va.Actions = append(va.Actions, Call.String())
	}
	if ss.Stack > toCall {
		if ss.Stack+ss.RoundBet >= snap.CurrentBet+snap.MinRaise {
			va.Actions = append(va.Actions, Raise.String())
		}
		va.Actions = append(va.Actions, AllIn.String())
	} else if ss.Stack > 0 {
		va.Actions = append(va.Actions, AllIn.String())
	}
	return va
}

// ResultEvent is emitted exactly once when a hand completes. Revealed
// hole cards cover non-folded contenders only; the seed appears only
// after a showdown reveal.
type ResultEvent struct {
	TableID string   `json:"tableId"`
	HandID  string   `json:"handId"`
	HandNo  int64    `json:"handNo"`
	Results *Results `json:"results"`
	Version int64    `json:"version"`
}

// Result builds the completion event, or nil if the hand is not
// complete.
func (h *Hand) Result() *ResultEvent {
	if h.Phase != Complete || h.Results == nil {
		return nil
	}
	return &ResultEvent{
		TableID: h.TableID,
		HandID:  h.ID,
		HandNo:  h.HandNo,
		Results: h.Results,
		Version: h.Version,
	}
}
