package keyboard

import (
	"strings"
	"testing"
)

func TestFingersForDay(t *testing.T) {
	tests := []struct {
		day  int
		want int
	}{
		{day: 1, want: 2},
		{day: 2, want: 2},
		{day: 3, want: 4},
		{day: 5, want: 6},
		{day: 6, want: 6},
		{day: 7, want: 8},
		{day: 40, want: 8},
	}

	for _, tt := range tests {
		got := FingersForDay(tt.day)
		if len(got) != tt.want {
			t.Errorf("FingersForDay(%d) returned %d fingers, want %d", tt.day, len(got), tt.want)
		}
	}
}

func TestNewFingersForDay(t *testing.T) {
	got := NewFingersForDay(3)
	if len(got) != 2 || got[0] != LeftMiddle || got[1] != RightMiddle {
		t.Errorf("NewFingersForDay(3) = %v, want middle fingers", got)
	}
	if got := NewFingersForDay(ComprehensiveDay); got != nil {
		t.Errorf("NewFingersForDay(%d) = %v, want nil", ComprehensiveDay, got)
	}
}

func TestCharsForDay(t *testing.T) {
	t.Run("day one is index letters only", func(t *testing.T) {
		got := string(CharsForDay(1))
		if got != "RFVTGBYHNUJM" {
			t.Errorf("CharsForDay(1) = %q", got)
		}
	})

	t.Run("digits unlock after day thirty", func(t *testing.T) {
		if strings.ContainsAny(string(CharsForDay(30)), Digits) {
			t.Error("day 30 should not include digits")
		}
		got := string(CharsForDay(31))
		for _, d := range Digits {
			if !strings.ContainsRune(got, d) {
				t.Errorf("day 31 missing digit %q", d)
			}
		}
		if strings.ContainsAny(got, Symbols) {
			t.Error("day 31 should not include symbols")
		}
	})

	t.Run("symbols unlock after day sixty", func(t *testing.T) {
		got := string(CharsForDay(61))
		for _, s := range Symbols {
			if !strings.ContainsRune(got, s) {
				t.Errorf("day 61 missing symbol %q", s)
			}
		}
		if len(got) != len(Letters)+len(Digits)+len(Symbols) {
			t.Errorf("day 61 has %d chars, want %d", len(got), len(Letters)+len(Digits)+len(Symbols))
		}
	})
}

func TestIsAllowedKey(t *testing.T) {
	tests := []struct {
		key  rune
		want bool
	}{
		{'a', true},
		{'Z', true},
		{'7', true},
		{' ', true},
		{';', true},
		{'\\', true},
		{'!', false},
		{'\t', false},
		{'é', false},
	}

	for _, tt := range tests {
		if got := IsAllowedKey(tt.key); got != tt.want {
			t.Errorf("IsAllowedKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestFingerFor(t *testing.T) {
	f, ok := FingerFor('j')
	if !ok || f != RightIndex {
		t.Errorf("FingerFor('j') = %v, %v", f, ok)
	}
	if _, ok := FingerFor(' '); ok {
		t.Error("space has no drilled finger")
	}
}

func TestDayDescription(t *testing.T) {
	if got := DayDescription(1); !strings.Contains(got, "left index") {
		t.Errorf("DayDescription(1) = %q", got)
	}
	if got := DayDescription(12); !strings.HasPrefix(got, "Comprehensive") {
		t.Errorf("DayDescription(12) = %q", got)
	}
}
