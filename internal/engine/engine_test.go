package engine

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardroom/holdemd/internal/deck"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testEngine() *Engine {
	return New(log.New(io.Discard), 30*time.Second)
}

func testHand(t *testing.T, stacks []int, dealer int) *Hand {
	t.Helper()

	seats := make([]Seat, len(stacks))
	for i, stack := range stacks {
		seats[i] = Seat{
			Number:        i,
			PlayerID:      playerID(i),
			StartingStack: stack,
			Participating: true,
		}
	}

	h, err := NewHand(HandConfig{
		TableID:    "table-1",
		HandID:     "hand-1",
		HandNo:     1,
		Seats:      seats,
		DealerSeat: dealer,
		SmallBlind: 5,
		BigBlind:   10,
		Seed:       deck.Seed(42),
		Now:        t0,
		Deadline:   30 * time.Second,
	})
	require.NoError(t, err)
	return h
}

func playerID(seat int) string {
	return string(rune('a'+seat)) + "-player"
}

func act(t *testing.T, e *Engine, h *Hand, seat int, typ ActionType, amount int) {
	t.Helper()
	changed, err := e.Apply(h, ActionRequest{PlayerID: playerID(seat), Type: typ, Amount: amount}, t0)
	require.NoError(t, err)
	require.True(t, changed)
}

func TestNewHandSetup(t *testing.T) {
	t.Parallel()

	h := testHand(t, []int{1000, 1000, 1000}, 2)

	assert.Equal(t, Preflop, h.Phase)
	assert.Equal(t, 0, h.SmallBlindSeat)
	assert.Equal(t, 1, h.BigBlindSeat)
	assert.Equal(t, 2, h.ActorSeat, "UTG acts first three-handed")
	assert.Equal(t, 10, h.CurrentBet)
	assert.Equal(t, 10, h.MinRaise)
	require.NotNil(t, h.Deadline)

	snap := h.Snapshot()
	assert.Equal(t, 5, snap.BySeat(0).TotalBet)
	assert.Equal(t, 10, snap.BySeat(1).TotalBet)
	assert.Equal(t, 995, snap.BySeat(0).Stack)

	// Hole cards are distinct across seats and derived from the seed.
	seen := deck.Hand(0)
	for seat := 0; seat < 3; seat++ {
		hole, ok := h.HoleCards(seat)
		require.True(t, ok)
		assert.Equal(t, 2, hole.Count())
		assert.Zero(t, seen&hole, "hole cards must not overlap")
		seen |= hole
	}
}

func TestHeadsUpDealerPostsSmallBlind(t *testing.T) {
	t.Parallel()

	h := testHand(t, []int{500, 500}, 0)
	assert.Equal(t, 0, h.SmallBlindSeat)
	assert.Equal(t, 1, h.BigBlindSeat)
	assert.Equal(t, 0, h.ActorSeat, "dealer acts first heads-up preflop")
}

func TestTurnOrderEnforced(t *testing.T) {
	t.Parallel()

	e := testEngine()
	h := testHand(t, []int{1000, 1000, 1000}, 2)

	changed, err := e.Apply(h, ActionRequest{PlayerID: playerID(0), Type: Fold}, t0)
	assert.ErrorIs(t, err, ErrNotYourTurn)
	assert.False(t, changed)

	changed, err = e.Apply(h, ActionRequest{PlayerID: "stranger", Type: Fold}, t0)
	assert.ErrorIs(t, err, ErrSeatNotFound)
	assert.False(t, changed)
}

func TestIllegalCheckRejected(t *testing.T) {
	t.Parallel()

	e := testEngine()
	h := testHand(t, []int{1000, 1000, 1000}, 2)

	changed, err := e.Apply(h, ActionRequest{PlayerID: playerID(2), Type: Check}, t0)
	assert.ErrorIs(t, err, ErrIllegalCheck)
	assert.False(t, changed)
	assert.Equal(t, int64(1), h.Version, "rejection must not touch state")
}

func TestRaiseTooSmallRejected(t *testing.T) {
	t.Parallel()

	e := testEngine()
	h := testHand(t, []int{1000, 1000, 1000}, 2)

	// Min raise is to 20; 15 is under.
	_, err := e.Apply(h, ActionRequest{PlayerID: playerID(2), Type: Raise, Amount: 15}, t0)
	assert.ErrorIs(t, err, ErrRaiseTooSmall)
}

// Preflop raise folds out the field: hand completes as last standing
// with no community cards, and the raiser collects blinds plus raise.
func TestLastStandingWinsWithoutShowdown(t *testing.T) {
	t.Parallel()

	e := testEngine()
	h := testHand(t, []int{1000, 1000, 1000}, 2)

	act(t, e, h, 2, Raise, 30)
	assert.Equal(t, 30, h.CurrentBet)
	assert.Equal(t, 20, h.MinRaise, "raise increment becomes the new min raise")
	assert.Equal(t, 0, h.ActorSeat)

	act(t, e, h, 0, Fold, 0)
	act(t, e, h, 1, Fold, 0)

	assert.Equal(t, Complete, h.Phase)
	assert.Empty(t, h.Community, "no community cards dealt")
	assert.Empty(t, h.RevealedSeed, "seed stays secret without a showdown")

	require.NotNil(t, h.Results)
	assert.True(t, h.Results.LastStanding)
	require.Len(t, h.Results.Winners, 1)
	assert.Equal(t, playerID(2), h.Results.Winners[0].PlayerID)
	assert.Equal(t, 45, h.Results.Winners[0].Amount)
	assert.Empty(t, h.Results.Hands, "no cards revealed")
}

func TestCheckCheckClosesRound(t *testing.T) {
	t.Parallel()

	e := testEngine()
	h := testHand(t, []int{500, 500}, 0)

	act(t, e, h, 0, Call, 0) // dealer completes the small blind
	assert.Equal(t, Preflop, h.Phase, "big blind still has the option")
	assert.Equal(t, 1, h.ActorSeat)

	act(t, e, h, 1, Check, 0)
	assert.Equal(t, Flop, h.Phase)
	assert.Len(t, h.Community, 3)
	assert.Equal(t, 0, h.CurrentBet)
	assert.Equal(t, 1, h.ActorSeat, "left of dealer opens postflop")

	act(t, e, h, 1, Check, 0)
	act(t, e, h, 0, Check, 0)
	assert.Equal(t, Turn, h.Phase)
	assert.Len(t, h.Community, 4)
}

func TestRaiseReopensRound(t *testing.T) {
	t.Parallel()

	e := testEngine()
	h := testHand(t, []int{500, 500}, 0)

	act(t, e, h, 0, Call, 0)
	act(t, e, h, 1, Check, 0)
	require.Equal(t, Flop, h.Phase)

	act(t, e, h, 1, Check, 0)
	act(t, e, h, 0, Raise, 20)
	assert.Equal(t, Flop, h.Phase, "raise must reopen the round for the checker")
	assert.Equal(t, 1, h.ActorSeat)

	snap := h.Snapshot()
	assert.False(t, snap.BySeat(1).Acted, "checker owes another action")

	act(t, e, h, 1, Call, 0)
	assert.Equal(t, Turn, h.Phase)
}

// Two players all-in preflop for different stacks: the board runs out
// in one step and showdown yields a main pot plus an uncontested side
// pot back to the covering stack.
func TestAllInRunoutAndSidePots(t *testing.T) {
	t.Parallel()

	e := testEngine()
	h := testHand(t, []int{500, 200}, 0)

	act(t, e, h, 0, AllIn, 0)
	assert.Equal(t, 500, h.CurrentBet)

	act(t, e, h, 1, Call, 0)

	assert.Equal(t, Complete, h.Phase)
	assert.Len(t, h.Community, 5, "all streets dealt in one step")

	require.NotNil(t, h.Results)
	assert.False(t, h.Results.LastStanding)
	assert.Equal(t, h.Seed.String(), h.Results.RevealedSeed, "seed revealed at showdown")
	assert.Equal(t, h.RevealedSeed, h.Results.RevealedSeed)

	require.Len(t, h.Results.Pots, 2)
	assert.Equal(t, 400, h.Results.Pots[0].Amount)
	assert.Equal(t, []int{0, 1}, h.Results.Pots[0].Eligible)
	assert.Equal(t, 300, h.Results.Pots[1].Amount)
	assert.Equal(t, []int{0}, h.Results.Pots[1].Eligible)

	// The side pot goes back to seat 0 whatever the board brings.
	var sideWinners []Winner
	paidOut := 0
	for _, w := range h.Results.Winners {
		paidOut += w.Amount
		if w.PotIndex == 1 {
			sideWinners = append(sideWinners, w)
		}
	}
	require.Len(t, sideWinners, 1)
	assert.Equal(t, 0, sideWinners[0].Seat)
	assert.Equal(t, 300, sideWinners[0].Amount)
	assert.Equal(t, 700, paidOut, "payouts must cover every contributed chip")

	assert.Len(t, h.Results.Hands, 2, "both contenders revealed")
	assert.True(t, deck.Verify(h.Seed, h.DealtCards()), "revealed seed replays the deal")
}

// Heads-up with stacks no bigger than the blinds: both posts are
// all-ins, so the deal opens with nobody able to act. The hand must
// run out to showdown immediately instead of waiting for an actor
// that can never exist.
func TestBlindsAllInRunsOutImmediately(t *testing.T) {
	t.Parallel()

	e := testEngine()
	seats := []Seat{
		{Number: 0, PlayerID: playerID(0), StartingStack: 5, Participating: true},
		{Number: 1, PlayerID: playerID(1), StartingStack: 10, Participating: true},
	}
	h, err := e.Deal(HandConfig{
		TableID:    "table-1",
		HandID:     "hand-1",
		HandNo:     1,
		Seats:      seats,
		DealerSeat: 0,
		SmallBlind: 5,
		BigBlind:   10,
		Seed:       deck.Seed(42),
		Now:        t0,
		Deadline:   30 * time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, Complete, h.Phase, "hand must not stall waiting for an actor")
	assert.Equal(t, -1, h.ActorSeat)
	assert.Nil(t, h.Deadline)
	assert.Len(t, h.Community, 5, "full board dealt in one step")

	require.NotNil(t, h.Results)
	assert.False(t, h.Results.LastStanding)
	assert.Equal(t, h.Seed.String(), h.RevealedSeed, "showdown reveals the seed")
	assert.Len(t, h.Results.Hands, 2, "both all-in hands revealed")

	// Main pot 10 contested by both; the big blind's uncalled 5 comes
	// straight back as a side pot.
	require.Len(t, h.Results.Pots, 2)
	assert.Equal(t, 10, h.Results.Pots[0].Amount)
	assert.Equal(t, 5, h.Results.Pots[1].Amount)
	assert.Equal(t, []int{1}, h.Results.Pots[1].Eligible)

	paidOut := 0
	for _, w := range h.Results.Winners {
		paidOut += w.Amount
	}
	assert.Equal(t, 15, paidOut)

	changed, err := e.Apply(h, ActionRequest{PlayerID: playerID(0), Type: Check}, t0)
	assert.ErrorIs(t, err, ErrHandComplete)
	assert.False(t, changed)
}

// A short-stacked blind on its own does not trigger the runout: the
// funded seat still owes a decision.
func TestShortBlindAllInStillLeavesAnActor(t *testing.T) {
	t.Parallel()

	e := testEngine()
	seats := []Seat{
		{Number: 0, PlayerID: playerID(0), StartingStack: 5, Participating: true},
		{Number: 1, PlayerID: playerID(1), StartingStack: 500, Participating: true},
	}
	h, err := e.Deal(HandConfig{
		TableID:    "table-1",
		HandID:     "hand-1",
		HandNo:     1,
		Seats:      seats,
		DealerSeat: 0,
		SmallBlind: 5,
		BigBlind:   10,
		Seed:       deck.Seed(42),
		Now:        t0,
		Deadline:   30 * time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, Preflop, h.Phase)
	assert.Equal(t, 1, h.ActorSeat, "big blind can still act")
	require.NotNil(t, h.Deadline)

	// The big blind checks the option; with the only other seat all-in
	// the board runs out from there.
	act(t, e, h, 1, Check, 0)
	assert.Equal(t, Complete, h.Phase)
	assert.Len(t, h.Community, 5)
}

func TestExpiredDeadlineForceFoldsActor(t *testing.T) {
	t.Parallel()

	e := testEngine()
	h := testHand(t, []int{1000, 1000, 1000}, 2)
	require.Equal(t, 2, h.ActorSeat)

	late := h.Deadline.Add(time.Second)

	// Seat 0's request arrives after the deadline: seat 2 is folded
	// first, then seat 0's own call is processed normally.
	changed, err := e.Apply(h, ActionRequest{PlayerID: playerID(0), Type: Call}, late)
	require.NoError(t, err)
	require.True(t, changed)

	snap := h.Snapshot()
	assert.Equal(t, Folded, snap.BySeat(2).Status)
	assert.Equal(t, 1, snap.BySeat(2).Timeouts)
	assert.Equal(t, 10, snap.BySeat(0).TotalBet, "caller's action applied after the fold")
	assert.Equal(t, 1, h.ActorSeat, "big blind has the option")
}

func TestForceFoldStillCommitsWhenCallerRejected(t *testing.T) {
	t.Parallel()

	e := testEngine()
	h := testHand(t, []int{1000, 1000, 1000}, 2)
	late := h.Deadline.Add(time.Second)

	// Seat 1 pokes the hand after expiry but it is not their turn yet:
	// the timeout fold must still be reported as a state change.
	changed, err := e.Apply(h, ActionRequest{PlayerID: playerID(1), Type: Check}, late)
	assert.ErrorIs(t, err, ErrNotYourTurn)
	assert.True(t, changed, "timeout fold must be committed")

	snap := h.Snapshot()
	assert.Equal(t, Folded, snap.BySeat(2).Status)
}

func TestUnderRaiseAllInDoesNotReopen(t *testing.T) {
	t.Parallel()

	e := testEngine()
	// Seat 2 is the short stack: its flop all-in tops the bet without
	// a full raise increment.
	h := testHand(t, []int{1000, 1000, 55}, 2)

	act(t, e, h, 2, Raise, 30) // min raise to 20; 30 is a full raise
	act(t, e, h, 0, Call, 0)
	act(t, e, h, 1, Call, 0)
	require.Equal(t, Flop, h.Phase)

	act(t, e, h, 0, Raise, 20)
	act(t, e, h, 1, Call, 0)
	act(t, e, h, 2, AllIn, 0) // 25 behind: under-raise to 25

	snap := h.Snapshot()
	assert.Equal(t, 25, snap.CurrentBet, "bet level rises to the all-in")
	assert.Equal(t, 20, snap.MinRaise, "under-raise leaves the increment unchanged")
	assert.True(t, snap.BySeat(0).Acted, "under-raise must not reopen action")
	assert.True(t, snap.BySeat(1).Acted)
}

func TestCompletedHandRejectsActions(t *testing.T) {
	t.Parallel()

	e := testEngine()
	h := testHand(t, []int{1000, 1000}, 0)

	act(t, e, h, 0, Fold, 0)
	require.Equal(t, Complete, h.Phase)

	changed, err := e.Apply(h, ActionRequest{PlayerID: playerID(1), Type: Check}, t0)
	assert.ErrorIs(t, err, ErrHandComplete)
	assert.False(t, changed)
}

func TestStackConservation(t *testing.T) {
	t.Parallel()

	e := testEngine()
	h := testHand(t, []int{300, 450, 800}, 0)

	act(t, e, h, 0, Raise, 40)
	act(t, e, h, 1, Call, 0)
	act(t, e, h, 2, Raise, 120)
	act(t, e, h, 0, AllIn, 0)
	act(t, e, h, 1, Fold, 0)
	act(t, e, h, 2, Call, 0)

	snap := h.Snapshot()
	for _, s := range snap.Seats {
		roster, ok := h.seatByNumber(s.Seat)
		require.True(t, ok)
		assert.Equal(t, roster.StartingStack, s.Stack+s.TotalBet,
			"stack + contributions constant for seat %d", s.Seat)
	}
}
