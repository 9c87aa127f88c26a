package progress

import (
	"errors"
	"testing"
	"time"

	"typingclash/internal/models"
)

func at(date string, hour int) time.Time {
	d, _ := time.Parse("2006-01-02", date)
	return d.Add(time.Duration(hour) * time.Hour)
}

func TestCompleteDayStreakRule(t *testing.T) {
	tests := []struct {
		name          string
		lastCompleted string
		streak        int
		want          int
	}{
		{name: "first completion", lastCompleted: "", streak: 0, want: 1},
		{name: "completed yesterday", lastCompleted: "2026-03-09", streak: 4, want: 5},
		{name: "completed three days ago", lastCompleted: "2026-03-07", streak: 4, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := New(1, "2026-03-10")
			u.LastCompletedDate = tt.lastCompleted
			u.ConsecutiveDays = tt.streak

			if _, err := u.CompleteDay(at("2026-03-10", 18)); err != nil {
				t.Fatalf("CompleteDay() error = %v", err)
			}
			if u.ConsecutiveDays != tt.want {
				t.Errorf("ConsecutiveDays = %d, want %d", u.ConsecutiveDays, tt.want)
			}
			if u.LastCompletedDate != "2026-03-10" {
				t.Errorf("LastCompletedDate = %s", u.LastCompletedDate)
			}
		})
	}
}

func TestRollOverBreaksStreakLazily(t *testing.T) {
	u := New(1, "2026-03-07")
	u.LastCompletedDate = "2026-03-07"
	u.ConsecutiveDays = 6
	u.Today.Completed = true
	u.Today.TotalChars = 400

	if !u.RollOver("2026-03-08") {
		t.Fatal("RollOver() = false on a new date")
	}
	if u.ConsecutiveDays != 6 {
		t.Errorf("streak changed after a one day gap: %d", u.ConsecutiveDays)
	}
	if u.Today.Completed || u.Today.TotalChars != 0 || u.Today.Date != "2026-03-08" {
		t.Errorf("Today not reset: %+v", u.Today)
	}

	u.RollOver("2026-03-10")
	if u.ConsecutiveDays != 0 {
		t.Errorf("ConsecutiveDays = %d after a gap, want 0", u.ConsecutiveDays)
	}
	if u.RollOver("2026-03-10") {
		t.Error("RollOver() on the same date should be a no-op")
	}
}

func TestCompleteDayRecordsAndScores(t *testing.T) {
	u := New(7, "2026-03-10")
	for i := 0; i < 100; i++ {
		u.RecordKeystroke('F', i < 98, 400)
	}
	u.Today.TotalTimeMs = 40000
	u.ConsecutiveDays = 9
	u.LastCompletedDate = "2026-03-09"

	c, err := u.CompleteDay(at("2026-03-10", 20))
	if err != nil {
		t.Fatalf("CompleteDay() error = %v", err)
	}
	if c.Points.Total != 280 {
		t.Errorf("points = %+v, want total 280", c.Points)
	}
	if u.TotalPoints != 280 || u.CurrentDay != 2 || !u.Today.Completed {
		t.Errorf("aggregate not updated: points=%d day=%d completed=%v", u.TotalPoints, u.CurrentDay, u.Today.Completed)
	}
	if len(u.Records) != 1 || c.Record.Day != 1 || c.Record.AvgResponseTimeMs != 400 || c.Record.Accuracy != 0.98 {
		t.Errorf("record = %+v", c.Record)
	}

	got := map[string]bool{}
	for _, a := range c.NewAchievements {
		got[a.ID] = true
	}
	for _, id := range []string{"first_day", "week_streak", "speed_demon", "hundred_chars"} {
		if !got[id] {
			t.Errorf("expected %s to unlock", id)
		}
	}
	if len(u.Achievements) != len(c.NewAchievements) {
		t.Errorf("unlocks not stored on the aggregate")
	}

	if _, err := u.CompleteDay(at("2026-03-10", 21)); !errors.Is(err, ErrAlreadyCompleted) {
		t.Errorf("second CompleteDay() error = %v, want ErrAlreadyCompleted", err)
	}
}

func TestRedeemKeepsUsedWithinTotal(t *testing.T) {
	u := New(1, "2026-03-10")
	u.TotalPoints = 100

	if err := u.Redeem(60); err != nil {
		t.Fatalf("Redeem(60) error = %v", err)
	}
	if err := u.Redeem(50); !errors.Is(err, ErrInsufficientPoints) {
		t.Errorf("Redeem(50) error = %v, want ErrInsufficientPoints", err)
	}
	if u.UsedPoints != 60 || u.UsedPoints > u.TotalPoints {
		t.Errorf("UsedPoints = %d", u.UsedPoints)
	}
	if err := u.Redeem(0); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Redeem(0) error = %v", err)
	}
	if err := u.Earn(-3); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Earn(-3) error = %v", err)
	}
}

func TestModelRoundTripKeepsRecordOrder(t *testing.T) {
	p := &models.Progress{UserID: 3, CurrentDay: 0, TotalPoints: 50, TodayDate: "2026-03-10", TodayTotalChars: 5}
	recs := []models.DailyRecord{{Date: "2026-03-09"}, {Date: "2026-03-07"}, {Date: "2026-03-08"}}

	u := FromModel(p, nil, recs, nil)
	if u.CurrentDay != 1 {
		t.Errorf("CurrentDay = %d, want clamp to 1", u.CurrentDay)
	}
	if u.Records[0].Date != "2026-03-07" || u.Records[2].Date != "2026-03-09" {
		t.Errorf("records not sorted ascending: %+v", u.Records)
	}
	m := u.Model()
	if m.UserID != 3 || m.TotalPoints != 50 || m.TodayTotalChars != 5 {
		t.Errorf("Model() = %+v", m)
	}
}
