package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputePotsSingleLevel(t *testing.T) {
	t.Parallel()

	seats := []SeatSnapshot{
		{Seat: 0, Status: Active, TotalBet: 50},
		{Seat: 1, Status: Active, TotalBet: 50},
		{Seat: 2, Status: Folded, TotalBet: 20},
	}

	pots := ComputePots(seats)
	require.Len(t, pots, 1)
	assert.Equal(t, 120, pots[0].Amount)
	assert.Equal(t, []int{0, 1}, pots[0].Eligible, "folded seat contributes but is not eligible")
}

// Three players contribute 100/300/300 with the 100 short-stacked
// all-in: a 300 main pot all three can win and a 400 side pot for the
// two full contributors.
func TestComputePotsSidePot(t *testing.T) {
	t.Parallel()

	seats := []SeatSnapshot{
		{Seat: 0, Status: AllInStatus, TotalBet: 100},
		{Seat: 1, Status: Active, TotalBet: 300},
		{Seat: 2, Status: Active, TotalBet: 300},
	}

	pots := ComputePots(seats)
	require.Len(t, pots, 2)
	assert.Equal(t, 300, pots[0].Amount)
	assert.Equal(t, []int{0, 1, 2}, pots[0].Eligible)
	assert.Equal(t, 400, pots[1].Amount)
	assert.Equal(t, []int{1, 2}, pots[1].Eligible)
}

func TestComputePotsMultipleAllIns(t *testing.T) {
	t.Parallel()

	seats := []SeatSnapshot{
		{Seat: 0, Status: AllInStatus, TotalBet: 25},
		{Seat: 1, Status: AllInStatus, TotalBet: 75},
		{Seat: 2, Status: Active, TotalBet: 200},
		{Seat: 3, Status: Folded, TotalBet: 50},
	}

	pots := ComputePots(seats)
	require.Len(t, pots, 3)

	// Level 25: everyone pays 25.
	assert.Equal(t, 100, pots[0].Amount)
	assert.Equal(t, []int{0, 1, 2}, pots[0].Eligible)

	// Level 75: seats 1 and 2 pay 50, folded seat 3 pays its last 25.
	assert.Equal(t, 125, pots[1].Amount)
	assert.Equal(t, []int{1, 2}, pots[1].Eligible)

	// Level 200: only seat 2, uncontested.
	assert.Equal(t, 125, pots[2].Amount)
	assert.Equal(t, []int{2}, pots[2].Eligible)
}

// Pot amounts must always sum to total contributions, whatever the mix
// of folds and all-ins.
func TestComputePotsConservation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		seats []SeatSnapshot
	}{
		{"no all-ins", []SeatSnapshot{
			{Seat: 0, Status: Active, TotalBet: 40},
			{Seat: 1, Status: Active, TotalBet: 40},
		}},
		{"fold between levels", []SeatSnapshot{
			{Seat: 0, Status: AllInStatus, TotalBet: 30},
			{Seat: 1, Status: Folded, TotalBet: 60},
			{Seat: 2, Status: Active, TotalBet: 90},
			{Seat: 3, Status: Active, TotalBet: 90},
		}},
		{"everyone all-in distinct", []SeatSnapshot{
			{Seat: 0, Status: AllInStatus, TotalBet: 10},
			{Seat: 1, Status: AllInStatus, TotalBet: 20},
			{Seat: 2, Status: AllInStatus, TotalBet: 35},
			{Seat: 3, Status: AllInStatus, TotalBet: 80},
		}},
		{"non-participant ignored", []SeatSnapshot{
			{Seat: 0, Status: Active, TotalBet: 15},
			{Seat: 1, Status: Active, TotalBet: 15},
			{Seat: 2, Status: NonParticipant, TotalBet: 0},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := 0
			for _, s := range tt.seats {
				want += s.TotalBet
			}
			got := 0
			for _, p := range ComputePots(tt.seats) {
				got += p.Amount
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestComputePotsEmpty(t *testing.T) {
	t.Parallel()

	assert.Nil(t, ComputePots(nil))
	assert.Nil(t, ComputePots([]SeatSnapshot{{Seat: 0, Status: Active}}))
}
