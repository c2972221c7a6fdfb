package engine

import (
	"github.com/cardroom/holdemd/internal/deck"
	"github.com/cardroom/holdemd/internal/eval"
)

// Winner is one pot payout.
type Winner struct {
	PlayerID string `json:"playerId"`
	Seat     int    `json:"seat"`
	PotIndex int    `json:"potIndex"`
	Amount   int    `json:"amount"`
	HandName string `json:"handName,omitempty"`
}

// ShowdownHand is the audit detail for one contender's revealed hand.
type ShowdownHand struct {
	PlayerID  string      `json:"playerId"`
	Seat      int         `json:"seat"`
	HoleCards []deck.Card `json:"holeCards"`
	HandName  string      `json:"handName"`
	Score     int64       `json:"score"`
	BestFive  []deck.Card `json:"bestFive"`
}

// Results is the frozen outcome of a completed hand. Produced exactly
// once; the hand is immutable afterwards.
type Results struct {
	Winners      []Winner       `json:"winners"`
	Hands        []ShowdownHand `json:"hands,omitempty"`
	Pots         []Pot          `json:"pots"`
	RevealedSeed string         `json:"revealedSeed,omitempty"`
	LastStanding bool           `json:"lastStanding,omitempty"`
}

// completeLastStanding ends the hand when at most one non-folded seat
// remains: the survivor takes the entire pot, no cards are revealed
// and the seed stays secret (revealing it would expose folded hole
// cards).
func (e *Engine) completeLastStanding(h *Hand, snap *Snapshot) {
	var survivor *SeatSnapshot
	for i := range snap.Seats {
		s := &snap.Seats[i]
		if s.Status == Active || s.Status == AllInStatus {
			survivor = s
			break
		}
	}

	pots := ComputePots(snap.Seats)
	results := &Results{Pots: pots, LastStanding: true}
	if survivor != nil {
		total := snap.TotalContributed()
		results.Winners = []Winner{{
			PlayerID: survivor.PlayerID,
			Seat:     survivor.Seat,
			PotIndex: 0,
			Amount:   total,
		}}
	}

	h.Results = results
	h.Phase = Complete
	h.clearActor()
	if len(results.Winners) > 0 {
		e.logger.Info("hand complete, last standing",
			"hand", h.ID, "winner", results.Winners[0].PlayerID, "amount", results.Winners[0].Amount)
	}
}

// resolveShowdown evaluates every contender against the final board,
// partitions the pot and pays each pot to its best eligible hand(s).
// The deck seed is revealed here so observers can replay the shuffle.
func (e *Engine) resolveShowdown(h *Hand, snap *Snapshot) {
	h.Phase = Showdown
	h.clearActor()

	board := h.Community
	scores := map[int]eval.Result{}
	var hands []ShowdownHand

	for _, s := range snap.Seats {
		if s.Status != Active && s.Status != AllInStatus {
			continue
		}
		hole, ok := h.HoleCards(s.Seat)
		if !ok {
			e.logger.Error("contender has no hole cards", "hand", h.ID, "seat", s.Seat)
			continue
		}
		cards := append(append([]deck.Card{}, hole.Cards()...), board...)
		res, err := eval.Evaluate(cards)
		if err != nil {
			e.logger.Error("evaluation failed", "hand", h.ID, "seat", s.Seat, "error", err)
			continue
		}
		scores[s.Seat] = res
		hands = append(hands, ShowdownHand{
			PlayerID:  s.PlayerID,
			Seat:      s.Seat,
			HoleCards: hole.Cards(),
			HandName:  res.Class.String(),
			Score:     res.Score,
			BestFive:  res.Best.Cards(),
		})
	}

	// Equal scores must mean equal classes. A mismatch is an evaluator
	// bug, not a game state problem: log loudly and keep playing.
	for i := 0; i < len(hands); i++ {
		for j := i + 1; j < len(hands); j++ {
			if hands[i].Score == hands[j].Score && hands[i].HandName != hands[j].HandName {
				e.logger.Error("score collision across hand classes",
					"hand", h.ID, "score", hands[i].Score,
					"a", hands[i].HandName, "b", hands[j].HandName)
			}
		}
	}

	pots := ComputePots(snap.Seats)
	results := &Results{
		Hands:        hands,
		Pots:         pots,
		RevealedSeed: h.Seed.String(),
	}

	for potIdx, pot := range pots {
		best := []SeatSnapshot{}
		bestScore := int64(-1)
		for _, seatNum := range pot.Eligible {
			res, ok := scores[seatNum]
			if !ok {
				continue
			}
			if res.Score > bestScore {
				bestScore = res.Score
				best = best[:0]
			}
			if res.Score == bestScore {
				best = append(best, *snap.BySeat(seatNum))
			}
		}
		results.Winners = append(results.Winners, e.splitPot(h, pot, potIdx, best, scores)...)
	}

	h.Results = results
	h.RevealedSeed = results.RevealedSeed
	h.Phase = Complete
	e.logger.Info("hand complete at showdown",
		"hand", h.ID, "pots", len(pots), "winners", len(results.Winners))
}

// splitPot divides one pot evenly among its tied winners. A
// non-divisible remainder goes to the first winner in seat order
// starting left of the dealer, the usual odd-chip house rule.
func (e *Engine) splitPot(h *Hand, pot Pot, potIdx int, winners []SeatSnapshot, scores map[int]eval.Result) []Winner {
	if len(winners) == 0 {
		return nil
	}

	ordered := make([]SeatSnapshot, 0, len(winners))
	seatTaken := map[int]bool{}
	for _, w := range winners {
		seatTaken[w.Seat] = true
	}
	cursor := h.DealerSeat
	for len(ordered) < len(winners) {
		next, ok := h.nextOccupied(cursor, func(s Seat) bool { return seatTaken[s.Number] })
		if !ok {
			break
		}
		ordered = append(ordered, *e.winnerSeat(winners, next.Number))
		seatTaken[next.Number] = false
		cursor = next.Number
	}

	share := pot.Amount / len(ordered)
	remainder := pot.Amount % len(ordered)

	out := make([]Winner, 0, len(ordered))
	for i, w := range ordered {
		amount := share
		if i == 0 {
			amount += remainder
		}
		out = append(out, Winner{
			PlayerID: w.PlayerID,
			Seat:     w.Seat,
			PotIndex: potIdx,
			Amount:   amount,
			HandName: scores[w.Seat].Class.String(),
		})
	}
	return out
}

func (e *Engine) winnerSeat(winners []SeatSnapshot, seat int) *SeatSnapshot {
	for i := range winners {
		if winners[i].Seat == seat {
			return &winners[i]
		}
	}
	return nil
}
