package progress

import (
	"errors"
	"sort"
	"time"

	"typingclash/internal/clock"
	"typingclash/internal/models"
	"typingclash/internal/scoring"
	"typingclash/internal/stats"
)

var (
	ErrAlreadyCompleted   = errors.New("today's practice is already completed")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrInvalidAmount      = errors.New("points amount must be positive")
)

// Today holds the in-flight counters for the current calendar date
type Today struct {
	Date         string     `json:"date"`
	StartedAt    *time.Time `json:"startTime,omitempty"`
	TotalTimeMs  int64      `json:"totalTime"`
	Completed    bool       `json:"completed"`
	TotalChars   int        `json:"totalChars"`
	CorrectChars int        `json:"correctChars"`
}

// Accuracy of today's keystrokes, 0 before any were typed
func (t Today) Accuracy() float64 {
	if t.TotalChars == 0 {
		return 0
	}
	return float64(t.CorrectChars) / float64(t.TotalChars)
}

// User is one account's practice aggregate. Trackers mutate it through its
// methods; the practice service persists it.
type User struct {
	UserID            int64
	CurrentDay        int
	ConsecutiveDays   int
	LastCompletedDate string
	TotalPoints       int
	UsedPoints        int

	Today        Today
	Letters      stats.Table
	Records      []models.DailyRecord
	Achievements []models.UnlockedAchievement
}

// Completion is the result of finishing a day
type Completion struct {
	Points          scoring.Breakdown     `json:"points"`
	Record          models.DailyRecord    `json:"record"`
	NewAchievements []scoring.Achievement `json:"newAchievements"`
}

// New returns a fresh aggregate starting on day 1
func New(userID int64, today string) *User {
	return &User{
		UserID:     userID,
		CurrentDay: 1,
		Today:      Today{Date: today},
		Letters:    stats.NewTable(),
	}
}

// FromModel assembles an aggregate from its stored parts. Records are
// kept in ascending date order.
func FromModel(p *models.Progress, letters stats.Table, records []models.DailyRecord, achievements []models.UnlockedAchievement) *User {
	if letters == nil {
		letters = stats.NewTable()
	}
	recs := append([]models.DailyRecord(nil), records...)
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Date < recs[j].Date })

	u := &User{
		UserID:            p.UserID,
		CurrentDay:        max(p.CurrentDay, 1),
		ConsecutiveDays:   p.ConsecutiveDays,
		LastCompletedDate: p.LastCompletedDate,
		TotalPoints:       p.TotalPoints,
		UsedPoints:        p.UsedPoints,
		Today: Today{
			Date:         p.TodayDate,
			StartedAt:    p.TodayStartedAt,
			TotalTimeMs:  p.TodayTotalTimeMs,
			Completed:    p.TodayCompleted,
			TotalChars:   p.TodayTotalChars,
			CorrectChars: p.TodayCorrectChars,
		},
		Letters:      letters,
		Records:      recs,
		Achievements: append([]models.UnlockedAchievement(nil), achievements...),
	}
	return u
}

// Model flattens the scalar part of the aggregate for storage
func (u *User) Model() models.Progress {
	return models.Progress{
		UserID:            u.UserID,
		CurrentDay:        u.CurrentDay,
		ConsecutiveDays:   u.ConsecutiveDays,
		LastCompletedDate: u.LastCompletedDate,
		TotalPoints:       u.TotalPoints,
		UsedPoints:        u.UsedPoints,
		TodayDate:         u.Today.Date,
		TodayStartedAt:    u.Today.StartedAt,
		TodayTotalTimeMs:  u.Today.TotalTimeMs,
		TodayCompleted:    u.Today.Completed,
		TodayTotalChars:   u.Today.TotalChars,
		TodayCorrectChars: u.Today.CorrectChars,
	}
}

// AvailablePoints is earned minus spent
func (u *User) AvailablePoints() int {
	return u.TotalPoints - u.UsedPoints
}

// TodayCompleted reports whether the practice for today is done
func (u *User) TodayCompleted(today string) bool {
	return u.Today.Date == today && u.Today.Completed
}

// RollOver starts a fresh Today when the date has changed and breaks the
// streak when more than one day passed since the last completion. It
// reports whether a rollover happened.
func (u *User) RollOver(today string) bool {
	if u.Today.Date == today {
		return false
	}
	u.Today = Today{Date: today}
	if u.LastCompletedDate != "" {
		if gap, err := clock.DaysBetween(u.LastCompletedDate, today); err == nil && gap > 1 {
			u.ConsecutiveDays = 0
		}
	}
	return true
}

// RecordKeystroke counts one drill keystroke against target
func (u *User) RecordKeystroke(target rune, correct bool, responseTimeMs int64) {
	u.Letters.Record(target, correct, responseTimeMs)
	u.Today.TotalChars++
	if correct {
		u.Today.CorrectChars++
	}
}

// Stats aggregates the figures achievements are evaluated against
func (u *User) Stats() stats.UserStats {
	accs := make([]float64, 0, len(u.Records))
	for _, r := range u.Records {
		accs = append(accs, r.Accuracy)
	}
	return stats.Aggregate(stats.AggregateInput{
		CurrentDay:      u.CurrentDay,
		ConsecutiveDays: u.ConsecutiveDays,
		Letters:         u.Letters,
		TodayChars:      u.Today.TotalChars,
		TodayCorrect:    u.Today.CorrectChars,
		DailyAccuracies: accs,
	})
}

// UnlockedIDs lists the ids of earned achievements
func (u *User) UnlockedIDs() []string {
	ids := make([]string, 0, len(u.Achievements))
	for _, a := range u.Achievements {
		ids = append(ids, a.ID)
	}
	return ids
}

// CompleteDay finalises today: it updates the streak, scores the day,
// appends the daily record, advances the day and unlocks achievements.
// The day is recorded under the date its practice started on, so a
// session running past midnight still completes that date.
func (u *User) CompleteDay(now time.Time) (Completion, error) {
	today := u.Today.Date
	if today == "" {
		today = clock.Date(now)
		u.Today.Date = today
	}
	if u.Today.Completed {
		return Completion{}, ErrAlreadyCompleted
	}

	switch gap, err := clock.DaysBetween(u.LastCompletedDate, today); {
	case u.LastCompletedDate == "" || err != nil:
		u.ConsecutiveDays = 1
	case gap == 1:
		u.ConsecutiveDays++
	case gap > 1:
		u.ConsecutiveDays = 1
	}

	t := u.Today
	points := scoring.CalculatePoints(t.TotalChars, t.CorrectChars, t.TotalTimeMs, u.ConsecutiveDays)

	rec := models.DailyRecord{
		Day:          u.CurrentDay,
		Date:         today,
		TotalChars:   t.TotalChars,
		CorrectChars: t.CorrectChars,
		TotalTimeMs:  t.TotalTimeMs,
		EarnedPoints: points.Total,
		Accuracy:     t.Accuracy(),
	}
	if t.TotalChars > 0 {
		rec.AvgResponseTimeMs = float64(t.TotalTimeMs) / float64(t.TotalChars)
	}
	u.Records = append(u.Records, rec)

	u.TotalPoints += points.Total
	u.Today.Completed = true
	u.LastCompletedDate = today
	u.CurrentDay++

	unlocked := scoring.CheckNewAchievements(u.Stats(), u.UnlockedIDs())
	for _, a := range unlocked {
		u.Achievements = append(u.Achievements, models.UnlockedAchievement{ID: a.ID, UnlockedAt: now})
	}

	return Completion{Points: points, Record: rec, NewAchievements: unlocked}, nil
}

// Earn credits points outside of daily completion
func (u *User) Earn(amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	u.TotalPoints += amount
	return nil
}

// Redeem spends cost points. It fails without side effects when the
// balance is too low.
func (u *User) Redeem(cost int) error {
	if cost <= 0 {
		return ErrInvalidAmount
	}
	if u.AvailablePoints() < cost {
		return ErrInsufficientPoints
	}
	u.UsedPoints += cost
	return nil
}
