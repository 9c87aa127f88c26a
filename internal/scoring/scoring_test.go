package scoring

import (
	"testing"

	"typingclash/internal/stats"
)

func TestCalculatePoints(t *testing.T) {
	tests := []struct {
		name            string
		totalChars      int
		correctChars    int
		totalTimeMs     int64
		consecutiveDays int
		want            Breakdown
	}{
		{
			name: "nothing typed earns base only",
			want: Breakdown{Base: 100, Total: 100},
		},
		{
			name:            "high accuracy fast long streak",
			totalChars:      100,
			correctChars:    98,
			totalTimeMs:     40000,
			consecutiveDays: 10,
			want:            Breakdown{Base: 100, AccuracyBonus: 50, SpeedBonus: 30, StreakBonus: 100, Total: 280},
		},
		{
			name:            "good accuracy medium speed",
			totalChars:      100,
			correctChars:    91,
			totalTimeMs:     70000,
			consecutiveDays: 3,
			want:            Breakdown{Base: 100, AccuracyBonus: 30, SpeedBonus: 15, StreakBonus: 30, Total: 175},
		},
		{
			name:            "fair accuracy slow",
			totalChars:      100,
			correctChars:    80,
			totalTimeMs:     90000,
			consecutiveDays: 1,
			want:            Breakdown{Base: 100, AccuracyBonus: 10, StreakBonus: 10, Total: 120},
		},
		{
			name:            "poor accuracy and streak capped",
			totalChars:      100,
			correctChars:    50,
			totalTimeMs:     50000,
			consecutiveDays: 25,
			want:            Breakdown{Base: 100, SpeedBonus: 30, StreakBonus: 100, Total: 230},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculatePoints(tt.totalChars, tt.correctChars, tt.totalTimeMs, tt.consecutiveDays)
			if got != tt.want {
				t.Errorf("CalculatePoints() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLevels(t *testing.T) {
	if got := AccuracyLevel(0.96); got != "excellent" {
		t.Errorf("AccuracyLevel(0.96) = %q", got)
	}
	if got := AccuracyLevel(0.5); got != "needs practice" {
		t.Errorf("AccuracyLevel(0.5) = %q", got)
	}
	if got := SpeedLevel(450); got != "fast" {
		t.Errorf("SpeedLevel(450) = %q", got)
	}
	if got := SpeedLevel(0); got != "normal" {
		t.Errorf("SpeedLevel(0) = %q", got)
	}
}

func ids(as []Achievement) []string {
	out := make([]string, 0, len(as))
	for _, a := range as {
		out = append(out, a.ID)
	}
	return out
}

func TestCheckNewAchievements(t *testing.T) {
	s := stats.UserStats{
		CurrentDay:        8,
		ConsecutiveDays:   7,
		TotalChars:        1200,
		OverallAccuracy:   0.96,
		AvgResponseTimeMs: 450,
		TodayAccuracy:     1,
		PerfectDays:       1,
	}

	got := ids(CheckNewAchievements(s, nil))
	want := []string{"first_day", "week_streak", "perfect_day", "accuracy_master", "speed_demon", "hundred_chars", "thousand_chars"}
	if len(got) != len(want) {
		t.Fatalf("CheckNewAchievements() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestCheckNewAchievementsIsIdempotent(t *testing.T) {
	s := stats.UserStats{CurrentDay: 31, ConsecutiveDays: 30, TotalChars: 60000, OverallAccuracy: 0.99, AvgResponseTimeMs: 250}

	first := ids(CheckNewAchievements(s, nil))
	if len(first) == 0 {
		t.Fatal("expected unlocks on first evaluation")
	}
	second := CheckNewAchievements(s, first)
	if len(second) != 0 {
		t.Errorf("second evaluation returned %v", ids(second))
	}
}

func TestCheckNewAchievementsSkipsUnlocked(t *testing.T) {
	s := stats.UserStats{CurrentDay: 2, TotalChars: 150}
	got := ids(CheckNewAchievements(s, []string{"first_day"}))
	if len(got) != 1 || got[0] != "hundred_chars" {
		t.Errorf("got %v, want [hundred_chars]", got)
	}
}

func TestSpeedAchievementsNeedTyping(t *testing.T) {
	s := stats.UserStats{AvgResponseTimeMs: 0, TotalChars: 10000}
	for _, a := range CheckNewAchievements(s, nil) {
		if a.ID == "speed_demon" || a.ID == "lightning_fast" {
			t.Errorf("%s unlocked without a measured response time", a.ID)
		}
	}
}

func TestProgress(t *testing.T) {
	p, ok := Progress("thousand_chars", stats.UserStats{TotalChars: 250})
	if !ok {
		t.Fatal("thousand_chars not found")
	}
	if p.Current != 250 || p.Target != 1000 || p.Percentage != 25 {
		t.Errorf("Progress() = %+v", p)
	}

	p, _ = Progress("first_day", stats.UserStats{CurrentDay: 40})
	if p.Percentage != 100 {
		t.Errorf("capped percentage = %v, want 100", p.Percentage)
	}

	p, _ = Progress("speed_demon", stats.UserStats{})
	if p.Percentage != 0 || p.Target != 1 {
		t.Errorf("binary progress = %+v", p)
	}

	if _, ok := Progress("unknown", stats.UserStats{}); ok {
		t.Error("unknown id should not be found")
	}
}

func TestCatalogOrderAndUniqueness(t *testing.T) {
	seen := map[string]bool{}
	for _, a := range Catalog() {
		if seen[a.ID] {
			t.Errorf("duplicate achievement id %s", a.ID)
		}
		seen[a.ID] = true
	}
	if len(seen) != 16 {
		t.Errorf("catalog has %d entries, want 16", len(seen))
	}
}
