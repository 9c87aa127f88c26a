package playtime

import (
	"time"

	"typingclash/internal/models"
)

// SessionCap bounds a single game session
const SessionCap = 30 * time.Minute

// DefaultRatio applies when no parent has configured one
var DefaultRatio = Ratio{
	PracticePerSlotMinutes: models.DefaultPracticePerSlotMinutes,
	PlayPerSlotMinutes:     models.DefaultPlayPerSlotMinutes,
}

// Ratio converts practice minutes into play minutes. A nil
// MaxDailyPlayMinutes means no daily cap.
type Ratio struct {
	PracticePerSlotMinutes int  `json:"practicePerSlotMinutes"`
	PlayPerSlotMinutes     int  `json:"playPerSlotMinutes"`
	MaxDailyPlayMinutes    *int `json:"maxDailyPlayMinutes"`
}

// RatioFor returns the ratio configured on rel, or DefaultRatio when the
// student is unbound.
func RatioFor(rel *models.Relation) Ratio {
	if rel == nil {
		return DefaultRatio
	}
	return Ratio{
		PracticePerSlotMinutes: rel.PracticePerSlotMinutes,
		PlayPerSlotMinutes:     rel.PlayPerSlotMinutes,
		MaxDailyPlayMinutes:    rel.MaxDailyPlayMinutes,
	}
}

// Allowance is the play time a student has earned for a date
type Allowance struct {
	PracticeMinutes   int `json:"practiceMinutes"`
	PlayedMinutes     int `json:"playedMinutes"`
	SlotsEarned       int `json:"slotsEarned"`
	EarnedPlayMinutes int `json:"earnedPlayMinutes"`
	AvailableMinutes  int `json:"availableMinutes"`
}

// PracticeMinutes converts a millisecond total to whole minutes
func PracticeMinutes(ms int64) int {
	if ms <= 0 {
		return 0
	}
	return int(ms / int64(time.Minute/time.Millisecond))
}

// Compute derives the allowance from the day's practice and play totals.
func Compute(practiceMinutes int, ratio Ratio, playedMinutes int) Allowance {
	perSlot := ratio.PracticePerSlotMinutes
	if perSlot <= 0 {
		perSlot = DefaultRatio.PracticePerSlotMinutes
	}
	play := max(ratio.PlayPerSlotMinutes, 0)
	practiceMinutes = max(practiceMinutes, 0)
	playedMinutes = max(playedMinutes, 0)

	a := Allowance{
		PracticeMinutes: practiceMinutes,
		PlayedMinutes:   playedMinutes,
		SlotsEarned:     practiceMinutes / perSlot,
	}
	a.EarnedPlayMinutes = a.SlotsEarned * play
	if ratio.MaxDailyPlayMinutes != nil {
		a.EarnedPlayMinutes = min(a.EarnedPlayMinutes, max(*ratio.MaxDailyPlayMinutes, 0))
	}
	a.AvailableMinutes = max(0, a.EarnedPlayMinutes-playedMinutes)
	return a
}

// Reason explains a denied game start
type Reason string

const (
	ReasonPracticeNotCompleted Reason = "practice_not_completed"
	ReasonQuotaExhausted       Reason = "quota_exhausted"
)

var reasonMessages = map[Reason]string{
	ReasonPracticeNotCompleted: "Finish today's practice before playing",
	ReasonQuotaExhausted:       "Today's play time has been used up",
}

// Account carries the fields of a user that the gate looks at
type Account struct {
	Role      models.Role
	Tier      models.Tier
	ExpiresAt *time.Time
}

// AccountFor extracts the gate inputs from a user
func AccountFor(u *models.User) Account {
	return Account{Role: u.Role, Tier: u.MembershipTier, ExpiresAt: u.MembershipExpiresAt}
}

func (a Account) unrestricted(now time.Time) bool {
	if a.Role == models.RoleParent {
		return true
	}
	u := models.User{MembershipTier: a.Tier, MembershipExpiresAt: a.ExpiresAt}
	return u.EffectiveTier(now) == models.TierPremium
}

// Decision is the outcome of CanStartGame
type Decision struct {
	Allowed   bool   `json:"allowed"`
	Reason    Reason `json:"reason,omitempty"`
	Message   string `json:"message,omitempty"`
	GrantedMs int64  `json:"grantedMs"`
}

// CanStartGame decides whether acct may start a game session now.
// Parents and active premium members always may, for a full session.
// Free students must have completed today's practice and have play time left.
func CanStartGame(acct Account, completedToday bool, allowance Allowance, now time.Time) Decision {
	if acct.unrestricted(now) {
		return Decision{Allowed: true, GrantedMs: SessionCap.Milliseconds()}
	}
	if !completedToday {
		return deny(ReasonPracticeNotCompleted)
	}
	if allowance.AvailableMinutes <= 0 {
		return deny(ReasonQuotaExhausted)
	}

	granted := min(time.Duration(allowance.AvailableMinutes)*time.Minute, SessionCap)
	return Decision{Allowed: true, GrantedMs: granted.Milliseconds()}
}

func deny(r Reason) Decision {
	return Decision{Allowed: false, Reason: r, Message: reasonMessages[r]}
}
