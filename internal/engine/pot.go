package engine

import "sort"

// Pot is one partition of the chips in play: a main pot or a side pot
// with its eligibility set. Pots are recomputed from seat snapshots on
// every transition, never stored independently.
type Pot struct {
	Amount   int   `json:"amount"`
	Eligible []int `json:"eligible"` // seat numbers, ascending
}

// ComputePots partitions total contributions into a main pot and
// however many side pots the all-in amounts require.
//
// The contribution levels are every all-in seat's hand total plus the
// overall maximum. Walking the levels from zero, each seat pays its
// capped share of the increment into that level's pot; eligibility is
// restricted to non-folded seats whose total reaches the level. A seat
// that folded keeps its chips in the pots but is eligible for none of
// them.
func ComputePots(seats []SeatSnapshot) []Pot {
	maxTotal := 0
	levelSet := map[int]bool{}
	for _, s := range seats {
		if s.TotalBet > maxTotal {
			maxTotal = s.TotalBet
		}
		if s.Status == AllInStatus && s.TotalBet > 0 {
			levelSet[s.TotalBet] = true
		}
	}
	if maxTotal == 0 {
		return nil
	}
	levelSet[maxTotal] = true

	levels := make([]int, 0, len(levelSet))
	for l := range levelSet {
		levels = append(levels, l)
	}
	sort.Ints(levels)

	var pots []Pot
	prev := 0
	for _, level := range levels {
		pot := Pot{}
		for _, s := range seats {
			contrib := min(s.TotalBet, level) - min(s.TotalBet, prev)
			pot.Amount += contrib
			if contrib > 0 && s.TotalBet >= level &&
				(s.Status == Active || s.Status == AllInStatus) {
				pot.Eligible = append(pot.Eligible, s.Seat)
			}
		}
		if pot.Amount > 0 {
			sort.Ints(pot.Eligible)
			pots = append(pots, pot)
		}
		prev = level
	}
	return pots
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
