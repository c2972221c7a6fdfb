package deck

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	rand "math/rand/v2"
)

// Seed is the 64-bit value a deck ordering is committed to. The server
// generates it before any card is shown and keeps it secret until
// showdown; once revealed, anyone can replay the shuffle and confirm
// the dealt cards matched the commitment.
type Seed uint64

// NewSeed draws a fresh seed from crypto/rand.
func NewSeed() (Seed, error) {
	var buf [8]byte
	if _, err := cryptorand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("generating deck seed: %w", err)
	}
	return Seed(binary.BigEndian.Uint64(buf[:])), nil
}

// String encodes the seed as 16 hex characters.
func (s Seed) String() string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(s))
	return hex.EncodeToString(buf[:])
}

// ParseSeed decodes the 16-hex-character form.
func ParseSeed(s string) (Seed, error) {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 8 {
		return 0, fmt.Errorf("invalid seed %q", s)
	}
	return Seed(binary.BigEndian.Uint64(raw)), nil
}

const goldenRatio64 = 0x9e3779b97f4a7c15

// rng derives a PCG stream from the seed. The mixer whitens the raw
// seed so that the two 64-bit PCG seeds are decorrelated even for
// adjacent seed values.
func (s Seed) rng() *rand.Rand {
	u := uint64(s)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// Deck is a 52-card deck in a fixed, seed-determined order. Cards are
// consumed front to back and the deck is never reshuffled mid-hand:
// hole cards first, then the flop, turn and river continue from
// wherever dealing left off.
type Deck struct {
	cards [52]Card
	next  int
}

// New builds the deck for a seed. The ordering is a pure function of
// the seed: the 52 cards in rank-within-suit order run through a
// Fisher-Yates pass driven by the seed's PCG stream.
func New(seed Seed) *Deck {
	d := &Deck{}

	i := 0
	for suit := uint8(0); suit < 4; suit++ {
		for rank := uint8(0); rank < 13; rank++ {
			d.cards[i] = NewCard(rank, suit)
			i++
		}
	}

	rng := seed.rng()
	for i := len(d.cards) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
	return d
}

// Deal deals the next n cards. Returns nil if the deck is exhausted,
// which cannot happen for any legal hold'em deal.
func (d *Deck) Deal(n int) []Card {
	if d.next+n > len(d.cards) {
		return nil
	}
	cards := d.cards[d.next : d.next+n]
	d.next += n
	return cards
}

// Skip advances the deal offset without returning cards. Used when
// reconstructing a deck that has already dealt part of a hand.
func (d *Deck) Skip(n int) {
	d.next += n
	if d.next > len(d.cards) {
		d.next = len(d.cards)
	}
}

// Dealt returns how many cards have been consumed.
func (d *Deck) Dealt() int {
	return d.next
}

// Verify replays the shuffle for a revealed seed and reports whether
// the claimed sequence of dealt cards matches the committed ordering.
// This is the audit entry point for observers after a seed reveal.
func Verify(seed Seed, dealt []Card) bool {
	if len(dealt) > 52 {
		return false
	}
	d := New(seed)
	for i, c := range dealt {
		if d.cards[i] != c {
			return false
		}
	}
	return true
}
