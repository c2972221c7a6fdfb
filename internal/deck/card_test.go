package deck

import (
	"testing"
)

func TestParseCard(t *testing.T) {
	tests := []struct {
		s    string
		rank uint8
		suit uint8
	}{
		{"As", Ace, Spades},
		{"Kh", King, Hearts},
		{"2c", Two, Clubs},
		{"Td", Ten, Diamonds},
		{"9s", Nine, Spades},
	}

	for _, tt := range tests {
		c, err := ParseCard(tt.s)
		if err != nil {
			t.Fatalf("ParseCard(%q): %v", tt.s, err)
		}
		if c.Rank() != tt.rank || c.Suit() != tt.suit {
			t.Errorf("ParseCard(%q) = rank %d suit %d, want rank %d suit %d",
				tt.s, c.Rank(), c.Suit(), tt.rank, tt.suit)
		}
		if c.String() != tt.s {
			t.Errorf("String() = %q, want %q", c.String(), tt.s)
		}
	}
}

func TestParseCardInvalid(t *testing.T) {
	for _, s := range []string{"", "A", "Asd", "Xs", "Ax"} {
		if _, err := ParseCard(s); err == nil {
			t.Errorf("ParseCard(%q) should fail", s)
		}
	}
}

func TestHandOperations(t *testing.T) {
	as, _ := ParseCard("As")
	kh, _ := ParseCard("Kh")
	qc, _ := ParseCard("Qc")

	h := NewHand(as, kh)
	if h.Count() != 2 {
		t.Errorf("Count() = %d, want 2", h.Count())
	}
	if !h.Has(as) || !h.Has(kh) {
		t.Error("hand should contain both cards")
	}
	if h.Has(qc) {
		t.Error("hand should not contain Qc")
	}

	h.Add(qc)
	if h.Count() != 3 {
		t.Errorf("Count() after Add = %d, want 3", h.Count())
	}

	cards := h.Cards()
	if len(cards) != 3 {
		t.Fatalf("Cards() returned %d cards, want 3", len(cards))
	}
	back := NewHand(cards...)
	if back != h {
		t.Error("Cards() round trip lost cards")
	}
}

func TestRankMask(t *testing.T) {
	as, _ := ParseCard("As")
	ah, _ := ParseCard("Ah")
	twoC, _ := ParseCard("2c")

	h := NewHand(as, ah, twoC)
	mask := h.RankMask()
	if mask != (1<<Ace)|(1<<Two) {
		t.Errorf("RankMask() = %013b", mask)
	}
	if h.SuitMask(Spades) != 1<<Ace {
		t.Errorf("SuitMask(spades) = %013b", h.SuitMask(Spades))
	}
}
