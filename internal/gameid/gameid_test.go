package gameid

import (
	"strings"
	"testing"
	"time"
)

type fixedRand struct{ v int }

func (f fixedRand) Intn(n int) int { return f.v % n }

func TestGenerate(t *testing.T) {
	t.Parallel()

	id := Generate()
	if err := Validate(id); err != nil {
		t.Fatalf("generated ID failed validation: %v", err)
	}
	if len(id) != 26 {
		t.Errorf("len = %d, want 26", len(id))
	}
}

func TestGenerateUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := Generate()
		if seen[id] {
			t.Fatalf("duplicate ID %s", id)
		}
		seen[id] = true
	}
}

func TestGenerateSortsByTime(t *testing.T) {
	// Same randomness, later timestamp: IDs must compare ascending.
	g := NewGenerator(fixedRand{7})
	a := g.Generate()
	time.Sleep(2 * time.Millisecond)
	b := g.Generate()
	if strings.Compare(a, b) > 0 {
		t.Errorf("IDs not time-ordered: %s then %s", a, b)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id string
		ok bool
	}{
		{"01hgw2bkv0qwerty0123456789", true},
		{"", false},
		{"tooshort", false},
		{"91hgw2bkv0qwerty0123456789", false}, // first char > 7
		{"01hgw2bkv0qwerty012345678U", false}, // bad alphabet
	}
	for _, tt := range tests {
		err := Validate(tt.id)
		if (err == nil) != tt.ok {
			t.Errorf("Validate(%q) = %v, want ok=%v", tt.id, err, tt.ok)
		}
	}
}
