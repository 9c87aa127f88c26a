package handlers

import (
	"time"

	"typingclash/internal/models"
	"typingclash/internal/service"
)

type userView struct {
	ID                  int64      `json:"id"`
	AccountName         string     `json:"accountName"`
	Nickname            string     `json:"nickname"`
	Email               string     `json:"email,omitempty"`
	Role                string     `json:"role"`
	MembershipTier      string     `json:"membershipTier"`
	MembershipExpiresAt *time.Time `json:"membershipExpiresAt,omitempty"`
	Level               int        `json:"level"`
	SoundEnabled        bool       `json:"soundEnabled"`
	Avatar              string     `json:"avatar,omitempty"`
	InviteCode          string     `json:"inviteCode,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
}

func newUserView(u *models.User) userView {
	return userView{
		ID:                  u.ID,
		AccountName:         u.AccountName,
		Nickname:            u.Nickname,
		Email:               u.Email,
		Role:                string(u.Role),
		MembershipTier:      string(u.MembershipTier),
		MembershipExpiresAt: u.MembershipExpiresAt,
		Level:               u.Level,
		SoundEnabled:        u.SoundEnabled,
		Avatar:              u.Avatar,
		InviteCode:          u.InviteCode,
		CreatedAt:           u.CreatedAt,
	}
}

// publicUserView hides contact and invite details from other accounts
type publicUserView struct {
	ID          int64  `json:"id"`
	AccountName string `json:"accountName"`
	Nickname    string `json:"nickname"`
	Avatar      string `json:"avatar,omitempty"`
}

type relationView struct {
	ParentID               int64     `json:"parentId"`
	StudentID              int64     `json:"studentId"`
	PracticePerSlotMinutes int       `json:"practicePerSlotMinutes"`
	PlayPerSlotMinutes     int       `json:"playPerSlotMinutes"`
	MaxDailyPlayMinutes    *int      `json:"maxDailyPlayMinutes"`
	CreatedAt              time.Time `json:"createdAt"`
}

func newRelationView(r *models.Relation) relationView {
	return relationView{
		ParentID:               r.ParentID,
		StudentID:              r.StudentID,
		PracticePerSlotMinutes: r.PracticePerSlotMinutes,
		PlayPerSlotMinutes:     r.PlayPerSlotMinutes,
		MaxDailyPlayMinutes:    r.MaxDailyPlayMinutes,
		CreatedAt:              r.CreatedAt,
	}
}

type studentView struct {
	ID              int64        `json:"id"`
	AccountName     string       `json:"accountName"`
	Nickname        string       `json:"nickname"`
	Avatar          string       `json:"avatar,omitempty"`
	CurrentDay      int          `json:"currentDay"`
	TotalPoints     int          `json:"totalPoints"`
	AvailablePoints int          `json:"availablePoints"`
	Streak          int          `json:"streak"`
	Relation        relationView `json:"relation"`
}

func newStudentViews(summaries []models.StudentSummary) []studentView {
	out := make([]studentView, 0, len(summaries))
	for i := range summaries {
		s := &summaries[i]
		out = append(out, studentView{
			ID:              s.Relation.StudentID,
			AccountName:     s.AccountName,
			Nickname:        s.Nickname,
			Avatar:          s.Avatar,
			CurrentDay:      s.CurrentDay,
			TotalPoints:     s.TotalPoints,
			AvailablePoints: s.TotalPoints - s.UsedPoints,
			Streak:          s.Streak,
			Relation:        newRelationView(&s.Relation),
		})
	}
	return out
}

type progressSummaryView struct {
	CurrentDay        int    `json:"currentDay"`
	ConsecutiveDays   int    `json:"consecutiveDays"`
	LastCompletedDate string `json:"lastCompletedDate"`
	TotalPoints       int    `json:"totalPoints"`
	UsedPoints        int    `json:"usedPoints"`
	AvailablePoints   int    `json:"availablePoints"`
	TodayDate         string `json:"todayDate"`
	TodayTotalTimeMs  int64  `json:"todayTotalTime"`
	TodayCompleted    bool   `json:"todayCompleted"`
}

func newProgressSummaryView(p *models.Progress) progressSummaryView {
	return progressSummaryView{
		CurrentDay:        p.CurrentDay,
		ConsecutiveDays:   p.ConsecutiveDays,
		LastCompletedDate: p.LastCompletedDate,
		TotalPoints:       p.TotalPoints,
		UsedPoints:        p.UsedPoints,
		AvailablePoints:   p.AvailablePoints(),
		TodayDate:         p.TodayDate,
		TodayTotalTimeMs:  p.TodayTotalTimeMs,
		TodayCompleted:    p.TodayCompleted,
	}
}

type giftView struct {
	ID          int64      `json:"id"`
	ParentID    int64      `json:"parentId"`
	StudentID   int64      `json:"studentId"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Cost        int        `json:"cost"`
	Status      string     `json:"status"`
	RedeemedAt  *time.Time `json:"redeemedAt,omitempty"`
	ClaimedAt   *time.Time `json:"claimedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func newGiftView(g *models.Gift) giftView {
	return giftView{
		ID:          g.ID,
		ParentID:    g.ParentID,
		StudentID:   g.StudentID,
		Name:        g.Name,
		Description: g.Description,
		Cost:        g.Cost,
		Status:      string(g.Status),
		RedeemedAt:  g.RedeemedAt,
		ClaimedAt:   g.ClaimedAt,
		CreatedAt:   g.CreatedAt,
	}
}

func newGiftViews(gifts []models.Gift) []giftView {
	out := make([]giftView, 0, len(gifts))
	for i := range gifts {
		out = append(out, newGiftView(&gifts[i]))
	}
	return out
}

type gameRecordView struct {
	GameType    string `json:"gameType"`
	Date        string `json:"date"`
	TotalTimeMs int64  `json:"totalTime"`
	Completed   bool   `json:"completed"`
}

func newGameRecordViews(records []models.GameRecord) []gameRecordView {
	out := make([]gameRecordView, 0, len(records))
	for _, r := range records {
		out = append(out, gameRecordView{GameType: r.GameType, Date: r.Date, TotalTimeMs: r.TotalTimeMs, Completed: r.Completed})
	}
	return out
}

type gameTypeView struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Description        string `json:"description"`
	RequiredMembership string `json:"requiredMembership"`
	RequiredLevel      int    `json:"requiredLevel"`
	Available          bool   `json:"available"`
}

func newGameTypeViews(types []service.GameTypeView) []gameTypeView {
	out := make([]gameTypeView, 0, len(types))
	for _, t := range types {
		out = append(out, gameTypeView{
			ID:                 t.ID,
			Name:               t.Name,
			Description:        t.Description,
			RequiredMembership: string(t.RequiredMembership),
			RequiredLevel:      t.RequiredLevel,
			Available:          t.Available,
		})
	}
	return out
}

type pointsEntryView struct {
	ID        int64     `json:"id"`
	Amount    int       `json:"amount"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}

func newPointsEntryViews(entries []models.PointsEntry) []pointsEntryView {
	out := make([]pointsEntryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, pointsEntryView{ID: e.ID, Amount: e.Amount, Reason: e.Reason, CreatedAt: e.CreatedAt})
	}
	return out
}
