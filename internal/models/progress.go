package models

import "time"

// Progress is the persisted per-user aggregate, including today's
// in-flight practice counters.
type Progress struct {
	UserID            int64
	CurrentDay        int
	ConsecutiveDays   int
	LastCompletedDate string
	TotalPoints       int
	UsedPoints        int

	TodayDate         string
	TodayStartedAt    *time.Time
	TodayTotalTimeMs  int64
	TodayCompleted    bool
	TodayTotalChars   int
	TodayCorrectChars int

	UpdatedAt time.Time
}

// AvailablePoints is what the user can still spend
func (p *Progress) AvailablePoints() int {
	return p.TotalPoints - p.UsedPoints
}

// DailyRecord is the immutable summary of a completed practice day
type DailyRecord struct {
	Day               int     `json:"day"`
	Date              string  `json:"date"`
	TotalChars        int     `json:"totalChars"`
	CorrectChars      int     `json:"correctChars"`
	TotalTimeMs       int64   `json:"totalTime"`
	EarnedPoints      int     `json:"earnedPoints"`
	Accuracy          float64 `json:"accuracy"`
	AvgResponseTimeMs float64 `json:"avgResponseTime"`
}

// UnlockedAchievement marks when a user earned a catalog achievement
type UnlockedAchievement struct {
	ID         string    `json:"id"`
	UnlockedAt time.Time `json:"unlockedAt"`
}
