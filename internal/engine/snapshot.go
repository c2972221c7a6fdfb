package engine

// SeatSnapshot is a seat's derived state: never stored, always
// reconstructed from the action log so that concurrent readers replay
// an identical view.
type SeatSnapshot struct {
	Seat     int        `json:"seat"`
	PlayerID string     `json:"playerId"`
	Stack    int        `json:"stack"`
	Status   SeatStatus `json:"status"`
	RoundBet int        `json:"roundBet"` // contributed this betting round
	TotalBet int        `json:"totalBet"` // contributed this hand
	Acted    bool       `json:"acted"`    // has acted since the last full raise
	Timeouts int        `json:"timeouts"` // forced folds, feeds discipline policy
}

// Snapshot is the full derived betting state for one hand.
type Snapshot struct {
	Seats      []SeatSnapshot
	CurrentBet int
	MinRaise   int

	phase    Phase
	bigBlind int
}

// Snapshot replays the action log from the roster. Invariant for each
// seat: Stack + TotalBet == StartingStack.
func (h *Hand) Snapshot() *Snapshot {
	snap := &Snapshot{
		Seats:    make([]SeatSnapshot, len(h.Seats)),
		MinRaise: h.BigBlind,
		phase:    Preflop,
		bigBlind: h.BigBlind,
	}
	for i, s := range h.Seats {
		status := Active
		if !s.Participating {
			status = NonParticipant
		}
		snap.Seats[i] = SeatSnapshot{
			Seat:     s.Number,
			PlayerID: s.PlayerID,
			Stack:    s.StartingStack,
			Status:   status,
		}
	}
	for _, rec := range h.Actions {
		snap.apply(rec)
	}
	return snap
}

// BySeat returns the snapshot entry for a seat number, or nil.
func (s *Snapshot) BySeat(n int) *SeatSnapshot {
	for i := range s.Seats {
		if s.Seats[i].Seat == n {
			return &s.Seats[i]
		}
	}
	return nil
}

// apply folds one log entry into the snapshot. This is the only place
// betting state changes, shared by full replay and live mutation.
func (s *Snapshot) apply(rec ActionRecord) {
	if rec.Phase != s.phase {
		s.startRound(rec.Phase)
	}

	seat := s.BySeat(rec.Seat)
	if seat == nil {
		return
	}

	switch rec.Type {
	case PostBlind, PostAnte:
		s.moveChips(seat, rec.Amount)
		if seat.RoundBet > s.CurrentBet {
			s.CurrentBet = seat.RoundBet
		}
		// Posting a blind is not acting: the poster keeps the option.

	case Fold:
		seat.Status = Folded
		seat.Acted = true
		if rec.Forced {
			seat.Timeouts++
		}

	case Check:
		seat.Acted = true

	case Call:
		s.moveChips(seat, rec.Amount)
		seat.Acted = true

	case Raise, AllIn:
		s.moveChips(seat, rec.Amount)
		level := seat.RoundBet
		if level > s.CurrentBet {
			if level >= s.CurrentBet+s.MinRaise {
				// A full raise reopens the round: everyone still able
				// to act owes a response.
				s.MinRaise = level - s.CurrentBet
				for i := range s.Seats {
					if s.Seats[i].Seat != seat.Seat && s.Seats[i].Status == Active {
						s.Seats[i].Acted = false
					}
				}
			}
			// An under-raise all-in moves the bet level without
			// reopening action for seats that already matched.
			s.CurrentBet = level
		}
		seat.Acted = true
	}
}

// startRound resets per-round state when the log crosses a phase
// boundary.
func (s *Snapshot) startRound(phase Phase) {
	s.phase = phase
	s.CurrentBet = 0
	s.MinRaise = s.bigBlind
	for i := range s.Seats {
		s.Seats[i].RoundBet = 0
		s.Seats[i].Acted = false
	}
}

// moveChips moves amount from the seat's stack into its contributions,
// flipping the seat to all-in when the stack empties.
func (s *Snapshot) moveChips(seat *SeatSnapshot, amount int) {
	if amount > seat.Stack {
		amount = seat.Stack
	}
	seat.Stack -= amount
	seat.RoundBet += amount
	seat.TotalBet += amount
	if seat.Stack == 0 && seat.Status == Active {
		seat.Status = AllInStatus
	}
}

// live counts seats still contending for the pot (not folded, dealt in).
func (s *Snapshot) live() int {
	n := 0
	for _, seat := range s.Seats {
		if seat.Status == Active || seat.Status == AllInStatus {
			n++
		}
	}
	return n
}

// active counts seats that can still act (not folded, not all-in).
func (s *Snapshot) active() int {
	n := 0
	for _, seat := range s.Seats {
		if seat.Status == Active {
			n++
		}
	}
	return n
}

// roundClosed reports whether the current betting round is finished:
// either nobody can act, or every active seat has acted since the last
// full raise and all active seats' round contributions match.
func (s *Snapshot) roundClosed() bool {
	var bet = -1
	for _, seat := range s.Seats {
		if seat.Status != Active {
			continue
		}
		if !seat.Acted {
			return false
		}
		if bet == -1 {
			bet = seat.RoundBet
		} else if seat.RoundBet != bet {
			return false
		}
	}
	return true
}

// TotalContributed sums every seat's whole-hand contribution.
func (s *Snapshot) TotalContributed() int {
	total := 0
	for _, seat := range s.Seats {
		total += seat.TotalBet
	}
	return total
}
