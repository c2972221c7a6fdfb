// Package eval ranks poker hands. Given 5-7 cards it enumerates every
// 5-card subset and returns the best one under a fully ordered score.
// The enumeration is deliberately brute force: this result moves money,
// so we pay 21 subset evaluations for correctness that is easy to
// audit rather than using a table-based fast path.
package eval

import (
	"fmt"
	"sort"

	"github.com/cardroom/holdemd/internal/deck"
)

// Class is the hand rank class, low to high.
type Class int

const (
	HighCard Class = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

func (c Class) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case OnePair:
		return "One Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// Score packing. Each of the five tie-break slots holds a rank value
// 2-14, weighted by powers of 15 so slots never carry into each other.
// classBase dwarfs the largest possible tie-break sum (14 * 54241),
// so no lower class can reach a higher class's floor.
const (
	classBase = int64(10_000_000_000)
	slotBase  = int64(15)
	slots     = 5
)

// Result is the evaluation of the best five cards.
type Result struct {
	Class Class
	Score int64
	Best  deck.Hand
}

// Beats reports whether r strictly outranks other.
func (r Result) Beats(other Result) bool {
	return r.Score > other.Score
}

// Ties reports whether r and other are exactly equal in strength.
func (r Result) Ties(other Result) bool {
	return r.Score == other.Score
}

// Evaluate returns the best 5-card hand from 5-7 cards. The result is
// invariant to input ordering.
func Evaluate(cards []deck.Card) (Result, error) {
	n := len(cards)
	if n < 5 || n > 7 {
		return Result{}, fmt.Errorf("evaluate needs 5-7 cards, got %d", n)
	}
	seen := deck.NewHand(cards...)
	if seen.Count() != n {
		return Result{}, fmt.Errorf("duplicate card in %v", cards)
	}

	best := Result{Score: -1}
	var five [5]deck.Card
	pick(cards, five[:], 0, 0, func(chosen [5]deck.Card) {
		class, tiebreaks := rankFive(chosen)
		score := packScore(class, tiebreaks)
		if score > best.Score {
			best = Result{
				Class: class,
				Score: score,
				Best:  deck.NewHand(chosen[:]...),
			}
		}
	})
	return best, nil
}

// pick enumerates every 5-card subset of cards into out.
func pick(cards []deck.Card, out []deck.Card, start, depth int, emit func([5]deck.Card)) {
	if depth == 5 {
		var five [5]deck.Card
		copy(five[:], out)
		emit(five)
		return
	}
	for i := start; i <= len(cards)-(5-depth); i++ {
		out[depth] = cards[i]
		pick(cards, out, i+1, depth+1, emit)
	}
}

func packScore(class Class, tiebreaks []int) int64 {
	score := int64(class) * classBase
	weight := int64(1)
	for i := 1; i < slots; i++ {
		weight *= slotBase
	}
	for i := 0; i < slots; i++ {
		if i < len(tiebreaks) {
			score += int64(tiebreaks[i]) * weight
		}
		weight /= slotBase
	}
	return score
}

// rankFive classifies exactly five cards. Tie-break ranks are values
// 2-14 ordered by significance (pair rank before kickers, etc).
func rankFive(cards [5]deck.Card) (Class, []int) {
	ranks := make([]int, 5)
	flush := true
	suit := cards[0].Suit()
	for i, c := range cards {
		ranks[i] = int(c.Rank()) + 2 // 2..14
		if c.Suit() != suit {
			flush = false
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ranks)))

	straightHigh := straightHighCard(ranks)

	if flush && straightHigh > 0 {
		if straightHigh == 14 {
			return RoyalFlush, []int{straightHigh}
		}
		return StraightFlush, []int{straightHigh}
	}

	// Group ranks by multiplicity, highest count first, then rank.
	type group struct{ rank, count int }
	counts := map[int]int{}
	for _, r := range ranks {
		counts[r]++
	}
	groups := make([]group, 0, 5)
	for r, c := range counts {
		groups = append(groups, group{r, c})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})

	switch {
	case groups[0].count == 4:
		return FourOfAKind, []int{groups[0].rank, groups[1].rank}
	case groups[0].count == 3 && groups[1].count == 2:
		return FullHouse, []int{groups[0].rank, groups[1].rank}
	case flush:
		return Flush, ranks
	case straightHigh > 0:
		return Straight, []int{straightHigh}
	case groups[0].count == 3:
		return ThreeOfAKind, []int{groups[0].rank, groups[1].rank, groups[2].rank}
	case groups[0].count == 2 && groups[1].count == 2:
		return TwoPair, []int{groups[0].rank, groups[1].rank, groups[2].rank}
	case groups[0].count == 2:
		return OnePair, []int{groups[0].rank, groups[1].rank, groups[2].rank, groups[3].rank}
	default:
		return HighCard, ranks
	}
}

// straightHighCard returns the high card of a straight formed by the
// five descending-sorted ranks, or 0 if they do not form one. The
// wheel (A-5-4-3-2) counts as a 5-high straight.
func straightHighCard(sorted []int) int {
	for i := 1; i < 5; i++ {
		if sorted[i] != sorted[i-1]-1 {
			// Wheel: ace on top, then 5-4-3-2.
			if i == 1 && sorted[0] == 14 && sorted[1] == 5 &&
				sorted[2] == 4 && sorted[3] == 3 && sorted[4] == 2 {
				return 5
			}
			return 0
		}
	}
	return sorted[0]
}
