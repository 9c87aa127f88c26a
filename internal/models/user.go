package models

import "time"

// Role distinguishes supervising parents from practising students
type Role string

const (
	RoleParent  Role = "parent"
	RoleStudent Role = "student"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleParent || r == RoleStudent
}

// Tier is a membership level
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// User represents an account in the system
type User struct {
	ID                  int64
	Email               string
	PasswordHash        string
	AccountName         string
	Nickname            string
	Role                Role
	MembershipTier      Tier
	MembershipExpiresAt *time.Time
	Level               int
	SoundEnabled        bool
	Avatar              string
	InviteCode          string
	OAuthProvider       string
	OAuthSubject        string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsParent reports whether the user supervises students
func (u *User) IsParent() bool {
	return u.Role == RoleParent
}

// EffectiveTier returns the tier in force at now. Premium without an expiry
// never lapses; an expired premium membership acts as free.
func (u *User) EffectiveTier(now time.Time) Tier {
	if u.MembershipTier != TierPremium {
		return TierFree
	}
	if u.MembershipExpiresAt != nil && !now.Before(*u.MembershipExpiresAt) {
		return TierFree
	}
	return TierPremium
}

// Session represents an authenticated session
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
