package scoring

import (
	"math"

	"typingclash/internal/stats"
)

// Achievement is a catalog entry unlocked when Condition holds.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`

	Condition func(stats.UserStats) bool `json:"-"`

	// metric and target drive progress reporting; nil metric means the
	// achievement is binary.
	metric func(stats.UserStats) float64
	target float64
}

// ProgressInfo reports how close a user is to an achievement.
type ProgressInfo struct {
	Current    float64 `json:"current"`
	Target     float64 `json:"target"`
	Percentage float64 `json:"percentage"`
}

func currentDay(s stats.UserStats) float64      { return float64(s.CurrentDay) }
func consecutiveDays(s stats.UserStats) float64 { return float64(s.ConsecutiveDays) }
func totalChars(s stats.UserStats) float64      { return float64(s.TotalChars) }
func perfectDays(s stats.UserStats) float64     { return float64(s.PerfectDays) }
func todayAccuracy(s stats.UserStats) float64   { return s.TodayAccuracy }
func overallAccuracy(s stats.UserStats) float64 { return s.OverallAccuracy }

func atLeast(metric func(stats.UserStats) float64, target float64) func(stats.UserStats) bool {
	return func(s stats.UserStats) bool { return metric(s) >= target }
}

func fastTyping(maxAvgMs float64, minChars int) func(stats.UserStats) bool {
	return func(s stats.UserStats) bool {
		return s.AvgResponseTimeMs > 0 && s.AvgResponseTimeMs <= maxAvgMs && s.TotalChars >= minChars
	}
}

func milestone(id, name, description, icon string, metric func(stats.UserStats) float64, target float64) Achievement {
	return Achievement{
		ID:          id,
		Name:        name,
		Description: description,
		Icon:        icon,
		Condition:   atLeast(metric, target),
		metric:      metric,
		target:      target,
	}
}

var catalog = []Achievement{
	milestone("first_day", "First Steps", "Complete your first day of practice", "🎯", currentDay, 1),
	milestone("week_streak", "Week Warrior", "Practice 7 days in a row", "🔥", consecutiveDays, 7),
	milestone("two_week_streak", "Fortnight Fighter", "Practice 14 days in a row", "💪", consecutiveDays, 14),
	milestone("month_master", "Month Master", "Practice 30 days in a row", "👑", consecutiveDays, 30),
	milestone("hundred_days", "Hundred Day Legend", "Practice 100 days in a row", "🏆", consecutiveDays, 100),
	milestone("perfect_day", "Flawless", "Finish a day with 100% accuracy", "💯", todayAccuracy, 1),
	{
		ID:          "accuracy_master",
		Name:        "Accuracy Master",
		Description: "Reach 95% overall accuracy over at least 1000 characters",
		Icon:        "🎖️",
		Condition: func(s stats.UserStats) bool {
			return s.OverallAccuracy >= 0.95 && s.TotalChars >= 1000
		},
		metric: overallAccuracy,
		target: 0.95,
	},
	milestone("ten_perfect_days", "Perfectionist", "Finish 10 days with 100% accuracy", "✨", perfectDays, 10),
	{
		ID:          "speed_demon",
		Name:        "Speed Demon",
		Description: "Average 500ms or less per key over at least 100 characters",
		Icon:        "⚡",
		Condition:   fastTyping(500, 100),
	},
	{
		ID:          "lightning_fast",
		Name:        "Lightning Fast",
		Description: "Average 300ms or less per key over at least 500 characters",
		Icon:        "🌩️",
		Condition:   fastTyping(300, 500),
	},
	milestone("hundred_chars", "Warming Up", "Type 100 characters", "📝", totalChars, 100),
	milestone("thousand_chars", "Keyboard Explorer", "Type 1,000 characters", "⌨️", totalChars, 1000),
	milestone("five_thousand", "Diligent Typist", "Type 5,000 characters", "📚", totalChars, 5000),
	milestone("ten_thousand", "Typing Expert", "Type 10,000 characters", "🎓", totalChars, 10000),
	milestone("fifty_thousand", "Typing Master", "Type 50,000 characters", "🌟", totalChars, 50000),
	milestone("hundred_thousand", "Typing Grandmaster", "Type 100,000 characters", "🚀", totalChars, 100000),
}

// Catalog returns all achievements in evaluation order.
func Catalog() []Achievement {
	out := make([]Achievement, len(catalog))
	copy(out, catalog)
	return out
}

// Find looks up an achievement by id.
func Find(id string) (Achievement, bool) {
	for _, a := range catalog {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}

// CheckNewAchievements returns, in catalog order, the achievements that are
// not in unlocked and whose condition holds. It has no side effects; the
// caller persists the returned unlocks.
func CheckNewAchievements(s stats.UserStats, unlocked []string) []Achievement {
	have := make(map[string]bool, len(unlocked))
	for _, id := range unlocked {
		have[id] = true
	}

	var out []Achievement
	for _, a := range catalog {
		if have[a.ID] {
			continue
		}
		if a.Condition(s) {
			out = append(out, a)
		}
	}
	return out
}

// Progress reports progress toward id. Binary achievements report 0 or 100.
func Progress(id string, s stats.UserStats) (ProgressInfo, bool) {
	a, ok := Find(id)
	if !ok {
		return ProgressInfo{}, false
	}
	if a.metric == nil {
		if a.Condition(s) {
			return ProgressInfo{Current: 1, Target: 1, Percentage: 100}, true
		}
		return ProgressInfo{Current: 0, Target: 1, Percentage: 0}, true
	}

	current := a.metric(s)
	pct := math.Min(100, current/a.target*100)
	return ProgressInfo{Current: current, Target: a.target, Percentage: math.Round(pct*10) / 10}, true
}
