package models

import "time"

// Default practice-to-play ratio used when a student has no parent
const (
	DefaultPracticePerSlotMinutes = 30
	DefaultPlayPerSlotMinutes     = 30
)

// Relation binds a student to the parent supervising them. A student has
// at most one relation.
type Relation struct {
	ID                     int64
	ParentID               int64
	StudentID              int64
	PracticePerSlotMinutes int
	PlayPerSlotMinutes     int
	MaxDailyPlayMinutes    *int
	CreatedAt              time.Time
}

// StudentSummary is what a parent sees for each bound student
type StudentSummary struct {
	Relation    Relation
	AccountName string
	Nickname    string
	Avatar      string
	CurrentDay  int
	TotalPoints int
	UsedPoints  int
	Streak      int
}
