package exercise

import (
	"math/rand"
	"strings"
	"testing"

	"typingclash/internal/keyboard"
	"typingclash/internal/stats"
)

func newTestGenerator(seed int64) *Generator {
	return NewGenerator(DefaultConfig, rand.New(rand.NewSource(seed)))
}

func TestGenerateDayOneUsesIndexFingersOnly(t *testing.T) {
	allowed := string(keyboard.LettersFor(keyboard.LeftIndex)) + string(keyboard.LettersFor(keyboard.RightIndex))

	for seed := int64(0); seed < 20; seed++ {
		seq := newTestGenerator(seed).Generate(1, stats.NewTable())
		if len(seq) < DefaultConfig.MinKeystrokes {
			t.Fatalf("seed %d: length %d below floor", seed, len(seq))
		}
		for _, r := range seq {
			if !strings.ContainsRune(allowed, r) {
				t.Fatalf("seed %d: unexpected character %q on day 1", seed, r)
			}
		}
	}
}

func TestGenerateDayThirtyFiveIncludesDigitsAndAllFingers(t *testing.T) {
	seq := string(newTestGenerator(1).Generate(35, stats.NewTable()))

	if !strings.ContainsAny(seq, keyboard.Digits) {
		t.Error("expected at least one digit on day 35")
	}
	if strings.ContainsAny(seq, keyboard.Symbols) {
		t.Error("symbols must not appear before day 61")
	}
	for _, f := range keyboard.Fingers {
		for _, r := range keyboard.LettersFor(f) {
			if !strings.ContainsRune(seq, r) {
				t.Errorf("missing %s letter %q", f, r)
			}
		}
	}
}

func TestGenerateLengthFloor(t *testing.T) {
	tests := []struct {
		name string
		day  int
	}{
		{name: "first day", day: 1},
		{name: "middle fingers", day: 3},
		{name: "pinkies", day: 7},
		{name: "comprehensive", day: 20},
		{name: "digits", day: 45},
		{name: "symbols", day: 90},
		{name: "zero day clamps to one", day: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := newTestGenerator(3).Generate(tt.day, nil)
			if len(seq) < DefaultConfig.MinKeystrokes {
				t.Errorf("Generate(%d) length = %d, want >= %d", tt.day, len(seq), DefaultConfig.MinKeystrokes)
			}
		})
	}
}

func TestGenerateReinforcesWeakCharacters(t *testing.T) {
	letters := stats.NewTable()
	for i := 0; i < 10; i++ {
		letters.Record('F', i < 2, 300)
	}

	plain := newTestGenerator(5).Generate(20, stats.NewTable())
	weighted := newTestGenerator(5).Generate(20, letters)

	if len(weighted) <= len(plain) {
		t.Fatalf("weak block missing: %d <= %d", len(weighted), len(plain))
	}
	if strings.Count(string(weighted), "F") <= strings.Count(string(plain), "F") {
		t.Error("expected more F drills when F is weak")
	}
}

func TestGenerateIgnoresWeakCharactersOutsideTheDay(t *testing.T) {
	letters := stats.NewTable()
	for i := 0; i < 10; i++ {
		letters.Record('Q', false, 300)
	}

	seq := string(newTestGenerator(9).Generate(1, letters))
	if strings.ContainsRune(seq, 'Q') {
		t.Error("Q is not unlocked on day 1")
	}
}

func TestCombinationLength(t *testing.T) {
	g := newTestGenerator(11)
	got := g.combination([]rune("ABC"), 10)
	if len(got) != 10 {
		t.Fatalf("combination length = %d, want 10", len(got))
	}
	if g.combination(nil, 10) != nil {
		t.Error("empty character set should produce nothing")
	}
}
